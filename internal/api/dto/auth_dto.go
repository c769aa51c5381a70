package dto

import "github.com/spec-kit/securehire-auth/internal/domain"

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,bcryptlen"`
}

// RegisterRequest payload for new candidates and recruiters. Name is required
// for candidates and CompanyName for recruiters.
type RegisterRequest struct {
	Role        string `json:"role" validate:"required,oneof=CANDIDATE RECRUITER candidate recruiter"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,bcryptlen"`
	Name        string `json:"name" validate:"max=120"`
	CompanyName string `json:"companyName" validate:"max=200"`
	Phone       string `json:"phone" validate:"omitempty,max=32"`
	Website     string `json:"website" validate:"omitempty,url"`
}

// MessageResponse wraps a plain confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// CandidateView is the public projection of a candidate.
type CandidateView struct {
	ID          int64       `json:"id"`
	Role        domain.Role `json:"role"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Phone       string      `json:"phone,omitempty"`
	PremiumUser bool        `json:"premiumUser"`
}

// RecruiterView is the public projection of a recruiter.
type RecruiterView struct {
	ID          int64       `json:"id"`
	Role        domain.Role `json:"role"`
	Email       string      `json:"email"`
	CompanyName string      `json:"companyName"`
	Phone       string      `json:"phone,omitempty"`
	Website     string      `json:"website,omitempty"`
}

// PrincipalView projects either variant without credential fields.
func PrincipalView(p domain.Principal) any {
	switch v := p.(type) {
	case *domain.Candidate:
		return CandidateView{ID: v.ID, Role: v.Role(), Email: v.Email, Name: v.Name, Phone: v.Phone, PremiumUser: v.PremiumUser}
	case *domain.Recruiter:
		return RecruiterView{ID: v.ID, Role: v.Role(), Email: v.Email, CompanyName: v.CompanyName, Phone: v.Phone, Website: v.Website}
	default:
		return nil
	}
}
