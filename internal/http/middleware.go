package http

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shoaibhajj/E-shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type contextKey string

const userContextKey contextKey = "user"

// UserLookup loads the account a verified token belongs to.
type UserLookup interface {
	GetUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

type Authenticator struct {
	secret []byte
	users  UserLookup
	logger *zap.Logger
}

func NewAuthenticator(secret string, users UserLookup, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		users:  users,
		logger: logger,
	}
}

// Protect rejects requests without a valid bearer token for an active user
// and stores that user in the request context.
func (a *Authenticator) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || tokenString == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "you are not logged in, please login to get access")
			return
		}

		userID, err := a.parseToken(tokenString)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}

		user, err := a.users.GetUser(r.Context(), userID)
		if err != nil {
			a.logger.Debug("token user lookup failed", zap.String("user_id", userID.Hex()), zap.Error(err))
			respondError(w, http.StatusUnauthorized, "unauthorized", "the user that belongs to this token no longer exists")
			return
		}
		if !user.Active {
			respondError(w, http.StatusUnauthorized, "unauthorized", "this account is deactivated")
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

func (a *Authenticator) parseToken(tokenString string) (primitive.ObjectID, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return primitive.NilObjectID, err
	}

	raw, ok := claims["userId"].(string)
	if !ok {
		return primitive.NilObjectID, errors.New("token has no userId claim")
	}
	return primitive.ObjectIDFromHex(raw)
}

// AllowedTo restricts a route to the given roles. It must run after Protect.
func AllowedTo(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := userFromContext(r.Context())
			if user == nil {
				respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
				return
			}
			if !slices.Contains(roles, user.Role) {
				respondError(w, http.StatusForbidden, "permission_denied", "you are not allowed to access this route")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs one line per request with the chi request id.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

func withUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func userFromContext(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userContextKey).(*domain.User)
	return user
}
