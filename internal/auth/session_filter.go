package auth

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/securehire-auth/internal/domain"
	"github.com/spec-kit/securehire-auth/internal/events"
	"github.com/spec-kit/securehire-auth/internal/observability"
	"github.com/spec-kit/securehire-auth/internal/repository"
)

const (
	principalKey = "auth_principal"
	stateKey     = "auth_session_state"
)

// SessionState is where a request ended up in the session filter.
type SessionState int

const (
	StateAnonymous SessionState = iota
	StatePresentedAccess
	StatePresentedRefreshOnly
	StateAuthenticated
)

func (s SessionState) String() string {
	switch s {
	case StatePresentedAccess:
		return "PRESENTED_ACCESS"
	case StatePresentedRefreshOnly:
		return "PRESENTED_REFRESH_ONLY"
	case StateAuthenticated:
		return "AUTHENTICATED"
	default:
		return "ANONYMOUS"
	}
}

// SessionFilterDeps bundles the collaborators of the filter.
type SessionFilterDeps struct {
	Tokens     *TokenCodec
	Resolver   *PrincipalResolver
	Principals *repository.Principals
	Cookies    *CookieJar
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// SessionFilter establishes the principal of a request from its session
// cookies and silently rotates the pair when only the refresh token is usable.
// It never rejects a request; failures leave the request anonymous.
type SessionFilter struct {
	tokens     *TokenCodec
	resolver   *PrincipalResolver
	principals *repository.Principals
	cookies    *CookieJar
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewSessionFilter constructs the middleware.
func NewSessionFilter(deps SessionFilterDeps) *SessionFilter {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionFilter{
		tokens:     deps.Tokens,
		resolver:   deps.Resolver,
		principals: deps.Principals,
		cookies:    deps.Cookies,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger.Named("session"),
	}
}

// Handle is the fiber handler. It always continues the chain.
func (f *SessionFilter) Handle(c *fiber.Ctx) error {
	if _, ok := PrincipalFromContext(c); ok {
		return c.Next()
	}
	state := f.establish(c)
	c.Locals(stateKey, state)
	f.metrics.RecordSession(state.String())
	return c.Next()
}

func (f *SessionFilter) establish(c *fiber.Ctx) SessionState {
	accessRaw := c.Cookies(AccessCookieName)
	refreshRaw := c.Cookies(RefreshCookieName)
	if accessRaw == "" && refreshRaw == "" {
		return StateAnonymous
	}

	state := StateAnonymous
	var claims *Claims
	if accessRaw != "" {
		if cl, err := f.present(accessRaw, f.tokens.VerifyAccess); err != nil {
			f.fail(c, err, AccessCookieName)
		} else {
			claims, state = cl, StatePresentedAccess
		}
	}
	if claims == nil && refreshRaw != "" {
		if cl, err := f.present(refreshRaw, f.tokens.VerifyRefresh); err != nil {
			f.fail(c, err, RefreshCookieName)
		} else {
			claims, state = cl, StatePresentedRefreshOnly
		}
	}
	if claims == nil {
		return StateAnonymous
	}

	cookie := AccessCookieName
	if state == StatePresentedRefreshOnly {
		cookie = RefreshCookieName
	}

	ctx := c.UserContext()
	principal, err := f.resolver.ResolveAs(ctx, claims.Subject, claims.Role)
	if err != nil {
		f.fail(c, err, cookie)
		return StateAnonymous
	}
	if principal.Credentials().Blocked {
		f.fail(c, domain.ErrAccountBlocked, cookie)
		return StateAnonymous
	}

	switch state {
	case StatePresentedAccess:
		ok, err := f.tokens.ValidateAccess(accessRaw, principal)
		if err == nil && !ok {
			err = domain.ErrPrincipalNotFound
		}
		if err != nil {
			f.fail(c, err, cookie)
			return StateAnonymous
		}
	case StatePresentedRefreshOnly:
		principal, err = f.rotate(c, ctx, principal, refreshRaw)
		if err != nil {
			f.fail(c, err, cookie)
			return StateAnonymous
		}
	}

	c.Locals(principalKey, principal)
	return StateAuthenticated
}

// present verifies a cookie value and reports expiry as an error.
func (f *SessionFilter) present(raw string, verify func(string) (*Claims, error)) (*Claims, error) {
	claims, err := verify(raw)
	if err != nil {
		return nil, err
	}
	if f.tokens.IsExpired(claims) {
		return nil, domain.ErrTokenExpired
	}
	return claims, nil
}

// rotate swaps the refresh slot from presented to a freshly issued token and
// writes the new cookies. A lost race is re-read once; if the slot still holds
// presented the swap is retried once, otherwise the request fails closed.
func (f *SessionFilter) rotate(c *fiber.Ctx, ctx context.Context, p domain.Principal, presented string) (domain.Principal, error) {
	if !repository.SlotHolds(p, presented) {
		return nil, domain.ErrRotationConflict
	}
	pair, err := f.tokens.IssuePair(p)
	if err != nil {
		return nil, err
	}

	retried := false
	err = f.principals.RotateRefreshToken(ctx, p, presented, pair.RefreshToken)
	if errors.Is(err, domain.ErrRotationConflict) {
		reloaded, rerr := f.resolver.ResolveAs(ctx, p.Credentials().Email, p.Role())
		if rerr != nil {
			return nil, rerr
		}
		if !repository.SlotHolds(reloaded, presented) {
			return nil, domain.ErrRotationConflict
		}
		retried = true
		p = reloaded
		err = f.principals.RotateRefreshToken(ctx, p, presented, pair.RefreshToken)
	}
	if err != nil {
		return nil, err
	}

	f.cookies.SetSession(c, pair)
	f.logger.Debug("session rotated",
		zap.String("role", p.Role().String()),
		zap.Bool("retried", retried),
	)
	if f.dispatcher != nil {
		event := events.NewEvent(events.EventSessionRotated, events.ActorOf(p), f.tokens.Now(), events.SessionRotatedPayload{Retried: retried})
		if err := f.dispatcher.Publish(ctx, event); err != nil {
			f.logger.Warn("session_rotated handler failed", zap.Error(err))
		}
	}
	return p, nil
}

func (f *SessionFilter) fail(c *fiber.Ctx, err error, cookie string) {
	kind := FailureKind(err)
	f.metrics.RecordAuthFailure(kind, cookie)

	fields := []zap.Field{
		zap.String("kind", kind),
		zap.String("cookie", cookie),
		zap.String("path", c.Path()),
	}
	if kind == KindStoreError {
		f.logger.Error("session store failure", append(fields, zap.Error(err))...)
		return
	}
	f.logger.Warn("session rejected", fields...)
}

// PrincipalFromContext returns the principal the session filter established.
func PrincipalFromContext(c *fiber.Ctx) (domain.Principal, bool) {
	principal, ok := c.Locals(principalKey).(domain.Principal)
	return principal, ok && principal != nil
}

// SessionStateFromContext returns the filter's final state for the request.
func SessionStateFromContext(c *fiber.Ctx) SessionState {
	state, ok := c.Locals(stateKey).(SessionState)
	if !ok {
		return StateAnonymous
	}
	return state
}
