package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/securehire-auth/internal/config"
	"github.com/spec-kit/securehire-auth/internal/domain"
)

const (
	AccessCookieName  = "jwt"
	RefreshCookieName = "refreshJwtToken"
)

// CookieJar writes and clears the two session cookies.
type CookieJar struct {
	secure     bool
	sameSite   string
	domain     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCookieJar derives cookie lifetimes from the codec so token exp and Max-Age agree.
func NewCookieJar(cfg config.CookieConfig, tokens *TokenCodec) *CookieJar {
	return &CookieJar{
		secure:     cfg.Secure,
		sameSite:   sameSiteMode(cfg.SameSite),
		domain:     cfg.Domain,
		accessTTL:  tokens.AccessTTL(),
		refreshTTL: tokens.RefreshTTL(),
	}
}

// SetSession writes both cookies for a freshly issued pair.
func (j *CookieJar) SetSession(c *fiber.Ctx, pair domain.TokenPair) {
	c.Cookie(j.cookie(AccessCookieName, pair.AccessToken, int(j.accessTTL/time.Second)))
	c.Cookie(j.cookie(RefreshCookieName, pair.RefreshToken, int(j.refreshTTL/time.Second)))
}

// Clear expires both cookies with the same attributes they were set with.
func (j *CookieJar) Clear(c *fiber.Ctx) {
	for _, name := range []string{AccessCookieName, RefreshCookieName} {
		ck := j.cookie(name, "", 0)
		ck.Expires = time.Unix(0, 0)
		c.Cookie(ck)
	}
}

func (j *CookieJar) cookie(name, value string, maxAge int) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   j.domain,
		MaxAge:   maxAge,
		Secure:   j.secure,
		HTTPOnly: true,
		SameSite: j.sameSite,
	}
}

func sameSiteMode(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case fiber.CookieSameSiteStrictMode:
		return fiber.CookieSameSiteStrictMode
	case fiber.CookieSameSiteNoneMode:
		return fiber.CookieSameSiteNoneMode
	default:
		return fiber.CookieSameSiteLaxMode
	}
}
