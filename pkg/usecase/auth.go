package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/interfaces"
	"github.com/feedbackloop/actionflow/pkg/domain/model/auth"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
)

// TenantClaim is the JWT claim carrying the caller's tenant
const TenantClaim = "tenant_id"

const (
	jwksRefreshInterval = time.Hour
	jwtAcceptableSkew   = 10 * time.Second
)

// AuthUseCaseInterface resolves a bearer token to an actor
type AuthUseCaseInterface interface {
	Authenticate(ctx context.Context, token string) (*auth.Actor, error)
	IsNoAuthn() bool
}

type AuthUseCase struct {
	repo     interfaces.Repository
	secret   []byte
	jwksURL  string
	audience string
	now      func() time.Time
	cache    *authCache

	keyMu     sync.Mutex
	keySet    jwk.Set
	fetchedAt time.Time
}

// AuthOption is a functional option for AuthUseCase
type AuthOption func(*AuthUseCase)

// WithHMACSecret verifies tokens signed with HS256 and the given secret
func WithHMACSecret(secret string) AuthOption {
	return func(uc *AuthUseCase) {
		uc.secret = []byte(secret)
	}
}

// WithJWKSURL verifies tokens against the key set published at url
func WithJWKSURL(url string) AuthOption {
	return func(uc *AuthUseCase) {
		uc.jwksURL = url
	}
}

// WithAudience requires the aud claim to contain audience
func WithAudience(audience string) AuthOption {
	return func(uc *AuthUseCase) {
		uc.audience = audience
	}
}

// WithAuthClock replaces the clock used for cache expiry
func WithAuthClock(now func() time.Time) AuthOption {
	return func(uc *AuthUseCase) {
		uc.now = now
	}
}

func NewAuthUseCase(repo interfaces.Repository, options ...AuthOption) (*AuthUseCase, error) {
	uc := &AuthUseCase{
		repo:  repo,
		now:   time.Now,
		cache: newAuthCache(),
	}
	for _, opt := range options {
		opt(uc)
	}

	if len(uc.secret) == 0 && uc.jwksURL == "" {
		return nil, goerr.New("either HMAC secret or JWKS URL is required")
	}
	if len(uc.secret) > 0 && uc.jwksURL != "" {
		return nil, goerr.New("HMAC secret and JWKS URL are mutually exclusive")
	}
	return uc, nil
}

// IsNoAuthn returns false for regular AuthUseCase
func (uc *AuthUseCase) IsNoAuthn() bool {
	return false
}

// Authenticate verifies the token and builds the actor from the user directory
func (uc *AuthUseCase) Authenticate(ctx context.Context, token string) (*auth.Actor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, goerr.Wrap(ErrUnauthenticated, "token is empty")
	}

	key := cacheKey(token)
	if actor, ok := uc.cache.get(key, uc.now()); ok {
		return actor, nil
	}

	parsed, err := uc.parse(ctx, token)
	if err != nil {
		return nil, err
	}

	subject := parsed.Subject()
	tenantID, _ := claimString(parsed, TenantClaim)
	if subject == "" || tenantID == "" {
		return nil, goerr.Wrap(ErrUnauthenticated, "token lacks subject or tenant claim")
	}

	user, err := uc.repo.User().Get(ctx, tenantID, subject)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, goerr.Wrap(ErrUnauthenticated, "user not found in directory",
			goerr.V(UserIDKey, subject), goerr.V(TenantIDKey, tenantID))
	}
	if err != nil {
		return nil, goerr.Wrap(ErrDependency, "failed to look up user", goerr.V(UserIDKey, subject), goerr.V("cause", err.Error()))
	}
	if !user.IsActive {
		return nil, goerr.Wrap(ErrUnauthenticated, "user is inactive", goerr.V(UserIDKey, subject))
	}

	actor := &auth.Actor{
		UserID:     user.ID,
		TenantID:   user.TenantID,
		Role:       user.Role,
		Department: user.Department,
	}

	expiresAt := uc.now().Add(authCacheTTL)
	if exp := parsed.Expiration(); !exp.IsZero() && exp.Before(expiresAt) {
		expiresAt = exp
	}
	uc.cache.set(key, actor, expiresAt)

	return actor, nil
}

func (uc *AuthUseCase) parse(ctx context.Context, token string) (jwt.Token, error) {
	options := []jwt.ParseOption{
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(jwtAcceptableSkew),
		jwt.WithClock(jwt.ClockFunc(uc.now)),
	}
	if uc.audience != "" {
		options = append(options, jwt.WithAudience(uc.audience))
	}

	if len(uc.secret) > 0 {
		options = append(options, jwt.WithKey(jwa.HS256, uc.secret))
	} else {
		keySet, err := uc.keys(ctx)
		if err != nil {
			return nil, err
		}
		options = append(options, jwt.WithKeySet(keySet))
	}

	parsed, err := jwt.Parse([]byte(token), options...)
	if err != nil {
		return nil, goerr.Wrap(ErrUnauthenticated, "failed to parse or verify JWT", goerr.V("cause", err.Error()))
	}
	return parsed, nil
}

// keys returns the cached JWKS, fetching it again once it is older than the refresh interval
func (uc *AuthUseCase) keys(ctx context.Context) (jwk.Set, error) {
	uc.keyMu.Lock()
	defer uc.keyMu.Unlock()

	if uc.keySet != nil && uc.now().Sub(uc.fetchedAt) < jwksRefreshInterval {
		return uc.keySet, nil
	}

	keySet, err := jwk.Fetch(ctx, uc.jwksURL)
	if err != nil {
		if uc.keySet != nil {
			return uc.keySet, nil
		}
		return nil, goerr.Wrap(ErrDependency, "failed to fetch public keys", goerr.V("jwks_url", uc.jwksURL), goerr.V("cause", err.Error()))
	}

	uc.keySet = keySet
	uc.fetchedAt = uc.now()
	return keySet, nil
}

func claimString(token jwt.Token, name string) (string, bool) {
	v, ok := token.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
