package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"rentals/internal/config"
	"rentals/internal/domain"
	"rentals/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Claims are the fields read from a bearer token. Tokens are issued by the
// account service; this package only verifies them.
type Claims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

type ctxKey int

const identityKey ctxKey = iota

var errMissingToken = errors.New("missing bearer token")

// Authenticator verifies HS256 bearer tokens and turns them into identities.
type Authenticator struct {
	secret []byte
	issuer string
	users  domain.UserService
	logger *zerolog.Logger
}

func NewAuthenticator(cfg config.APIAuthConfig, users domain.UserService, logger *zerolog.Logger) *Authenticator {
	return &Authenticator{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		users:  users,
		logger: logger,
	}
}

// Verify parses a raw token and returns the identity it carries.
func (a *Authenticator) Verify(tokenStr string) (models.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return models.Identity{}, fmt.Errorf("%w: invalid token", models.ErrUnauthorized)
	}

	id := claims.ID
	if id == "" {
		id = claims.Subject
	}
	if id == "" {
		return models.Identity{}, fmt.Errorf("%w: token carries no user id", models.ErrUnauthorized)
	}

	return models.Identity{
		UserID: id,
		Email:  strings.TrimSpace(claims.Email),
		Name:   strings.TrimSpace(claims.Name),
	}, nil
}

// Require rejects requests without a valid bearer token and stores the
// caller's identity in the request context.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		identity, err := a.Verify(tokenStr)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		// Профиль нужен только для отображения в бронированиях
		if a.users != nil {
			if err := a.users.Remember(r.Context(), identity); err != nil {
				a.logger.Warn().Err(err).Str("user_id", identity.UserID).Msg("Failed to remember user")
			}
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
	})
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errMissingToken
	}
	return strings.TrimSpace(token), nil
}

func withIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFrom returns the authenticated caller stored by Require.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(models.Identity)
	return identity, ok
}
