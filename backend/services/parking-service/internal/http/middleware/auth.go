package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"parkspot/backend/libs/logging"
	"parkspot/backend/services/parking-service/internal/models"
)

type contextKey string

const identityKey contextKey = "identity"

// Claims is the JWT payload issued by the auth service.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller.
type Identity struct {
	UserID int64
	Role   models.Role
}

// ParseToken verifies an HS256 token and resolves the caller.
func ParseToken(secret, tokenStr string) (Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("token: unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid {
		return Identity{}, errors.New("token: invalid")
	}
	if claims.UserID <= 0 {
		return Identity{}, errors.New("token: user_id not present")
	}
	role, err := models.ParseRole(claims.Role)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: claims.UserID, Role: role}, nil
}

// AuthMiddleware validates bearer tokens and stores the caller identity.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return authenticate(secret, false)
}

// SocketAuthMiddleware also accepts the token in the access_token query parameter,
// since browsers cannot set headers on WebSocket upgrades.
func SocketAuthMiddleware(secret string) func(http.Handler) http.Handler {
	return authenticate(secret, true)
}

func authenticate(secret string, allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearerToken(r)
			if !ok && allowQuery {
				tokenStr = strings.TrimSpace(r.URL.Query().Get("access_token"))
				ok = tokenStr != ""
			}
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			identity, err := ParseToken(secret, tokenStr)
			if err != nil {
				logging.FromContext(r.Context(), nil).Debug("rejected token", zap.Error(err))
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			logger := logging.FromContext(ctx, nil).With(zap.Int64("user_id", identity.UserID))
			ctx = logging.WithContext(ctx, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// IdentityFromContext retrieves the caller from request context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// UserIDFromRequest returns the authenticated user of r.
func UserIDFromRequest(r *http.Request) (int64, bool) {
	identity, ok := IdentityFromContext(r.Context())
	return identity.UserID, ok
}
