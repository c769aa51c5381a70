package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/securehire-auth/internal/auth"
	"github.com/spec-kit/securehire-auth/internal/config"
	"github.com/spec-kit/securehire-auth/internal/domain"
	"github.com/spec-kit/securehire-auth/internal/events"
	"github.com/spec-kit/securehire-auth/internal/repository"
)

// RegisterInput carries a registration request. Name applies to candidates,
// CompanyName and Website to recruiters.
type RegisterInput struct {
	Role        domain.Role
	Email       string
	Password    string
	Name        string
	CompanyName string
	Phone       string
	Website     string
}

// AuthService coordinates registration, login and logout flows.
type AuthService struct {
	principals *repository.Principals
	verifier   *auth.CredentialVerifier
	tokens     *auth.TokenCodec
	attempts   repository.LoginAttemptRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	limits     config.RateLimitConfig
}

// AuthDependencies encapsulates collaborators of the auth service.
// LoginAttempts may be nil, which disables login throttling.
type AuthDependencies struct {
	Principals    *repository.Principals
	Tokens        *auth.TokenCodec
	LoginAttempts repository.LoginAttemptRepository
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		principals: deps.Principals,
		verifier:   auth.NewCredentialVerifier(deps.Principals, cfg.Auth.BcryptCost),
		tokens:     deps.Tokens,
		attempts:   deps.LoginAttempts,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: cfg.Auth.BcryptCost,
		limits:     cfg.RateLimit,
	}
}

// Login verifies credentials, issues a fresh pair and stores the refresh value
// in the principal's slot, replacing whatever session was there.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.Principal, domain.TokenPair, error) {
	email = domain.NormalizeEmail(email)

	if s.throttled(ctx, email) {
		s.publish(ctx, events.EventLoginFailed, events.Actor{Email: email}, events.LoginFailedPayload{Kind: "too_many_attempts"})
		return nil, domain.TokenPair{}, domain.ErrTooManyAttempts
	}

	p, err := s.verifier.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			s.recordFailure(ctx, email)
		}
		actor := events.Actor{Email: email}
		s.publish(ctx, events.EventLoginFailed, actor, events.LoginFailedPayload{Kind: auth.FailureKind(err)})
		return nil, domain.TokenPair{}, err
	}

	pair, err := s.tokens.IssuePair(p)
	if err != nil {
		return nil, domain.TokenPair{}, err
	}
	if err := s.principals.SetRefreshToken(ctx, p, pair.RefreshToken); err != nil {
		return nil, domain.TokenPair{}, err
	}
	s.resetFailures(ctx, email)
	s.publish(ctx, events.EventLoginSucceeded, events.ActorOf(p), nil)
	return p, pair, nil
}

// Logout empties the refresh slot so no outstanding refresh token can rotate.
func (s *AuthService) Logout(ctx context.Context, p domain.Principal) error {
	if p == nil {
		return domain.ErrPrincipalNotFound
	}
	if err := s.principals.ClearRefreshToken(ctx, p); err != nil {
		return err
	}
	s.publish(ctx, events.EventLoggedOut, events.ActorOf(p), nil)
	return nil
}

// Register creates a candidate or recruiter. The email must be free in both stores.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.Principal, error) {
	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	account := domain.Account{
		Email:        domain.NormalizeEmail(in.Email),
		PasswordHash: hash,
	}

	var p domain.Principal
	switch in.Role {
	case domain.RoleCandidate:
		p = &domain.Candidate{Account: account, Name: strings.TrimSpace(in.Name), Phone: in.Phone}
	case domain.RoleRecruiter:
		p = &domain.Recruiter{Account: account, CompanyName: strings.TrimSpace(in.CompanyName), Phone: in.Phone, Website: in.Website}
	default:
		return nil, errors.New("unknown role")
	}

	if err := s.principals.Register(ctx, p); err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventRegistered, events.ActorOf(p), nil)
	return p, nil
}

func (s *AuthService) throttled(ctx context.Context, email string) bool {
	if s.attempts == nil || s.limits.MaxFailedLogins <= 0 {
		return false
	}
	n, err := s.attempts.Failures(ctx, email)
	if err != nil {
		s.logger.Warn("login limiter unavailable", zap.Error(err))
		return false
	}
	return n >= int64(s.limits.MaxFailedLogins)
}

func (s *AuthService) recordFailure(ctx context.Context, email string) {
	if s.attempts == nil || s.limits.MaxFailedLogins <= 0 {
		return
	}
	if _, err := s.attempts.RecordFailure(ctx, email, s.limits.Window()); err != nil {
		s.logger.Warn("record login failure", zap.Error(err))
	}
}

func (s *AuthService) resetFailures(ctx context.Context, email string) {
	if s.attempts == nil {
		return
	}
	if err := s.attempts.Reset(ctx, email); err != nil {
		s.logger.Warn("reset login failures", zap.Error(err))
	}
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, actor events.Actor, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, events.NewEvent(eventType, actor, s.tokens.Now(), payload)); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(eventType)), zap.Error(err))
	}
}
