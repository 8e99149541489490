package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
)

const UserIDKey contextKey = "user_id"

// Claims carried by the session token. The user id is issued by the
// authentication subsystem; this service only verifies it.
type Claims struct {
	UserID int64 `json:"userId"`
	jwt.RegisteredClaims
}

// Authenticate verifies the bearer token and injects the numeric user id into
// the request context. Requests without a valid token never reach the core.
func Authenticate(secret []byte) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			tokenString := r.Header.Get("Authorization")
			if tokenString == "" {
				unauthorized(w, "Missing token")
				return
			}

			if len(tokenString) < 8 || !strings.HasPrefix(tokenString, "Bearer ") {
				unauthorized(w, "Invalid token format")
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString[7:], claims, func(token *jwt.Token) (any, error) {
				return secret, nil
			})
			if err != nil || !token.Valid || claims.UserID <= 0 {
				unauthorized(w, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			next(w, r.WithContext(ctx), ps)
		}
	}
}

// UserIDFromContext returns the authenticated user id set by Authenticate.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDKey).(int64)
	return id, ok
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
