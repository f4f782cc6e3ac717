package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/advisor-match/internal/http/respond"
	"github.com/wolfman30/advisor-match/internal/identity"
	"github.com/wolfman30/advisor-match/pkg/logging"
)

// Claims is the JWT payload issued to signed-in users.
type Claims struct {
	jwt.RegisteredClaims
	UserType string `json:"user_type"`
	FirmID   string `json:"firm_id,omitempty"`
}

// IssueToken signs an HS256 token for id.
func IssueToken(secret string, id identity.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserType: string(id.Type),
		FirmID:   id.FirmID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates an HMAC-signed token and returns the identity it carries.
func ParseToken(secret, tokenString string) (identity.Identity, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return identity.Identity{}, jwt.ErrTokenInvalidClaims
	}
	userType, ok := identity.ParseUserType(claims.UserType)
	if !ok || claims.Subject == "" {
		return identity.Identity{}, jwt.ErrTokenInvalidClaims
	}
	return identity.Identity{UserID: claims.Subject, Type: userType, FirmID: claims.FirmID}, nil
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	// Browsers cannot set headers on websocket upgrades.
	if r.URL.Path == "/realtime" {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

// Authenticate attaches the caller's identity when a valid bearer token is
// present. Requests without a token pass through anonymous; handlers decide
// whether that is enough. A token that fails validation is rejected.
//
// With an empty secret the identity is read from X-User-Id, X-User-Type and
// X-Firm-Id headers instead. That mode exists for local development only.
func Authenticate(secret string, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if secret == "" {
		logger.Warn("AUTH_JWT_SECRET not set, trusting identity headers")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				if id, ok := headerIdentity(r); ok {
					r = r.WithContext(identity.WithIdentity(r.Context(), id))
				}
				next.ServeHTTP(w, r)
				return
			}
			tokenString := bearerToken(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}
			id, err := ParseToken(secret, tokenString)
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
		})
	}
}

func headerIdentity(r *http.Request) (identity.Identity, bool) {
	uid := strings.TrimSpace(r.Header.Get("X-User-Id"))
	userType, ok := identity.ParseUserType(r.Header.Get("X-User-Type"))
	if uid == "" || !ok {
		return identity.Identity{}, false
	}
	return identity.Identity{UserID: uid, Type: userType, FirmID: strings.TrimSpace(r.Header.Get("X-Firm-Id"))}, true
}

// RequireIdentity rejects anonymous requests with 401.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identity.FromContext(r.Context()); !ok {
			respond.Error(w, http.StatusUnauthorized, "sign in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
