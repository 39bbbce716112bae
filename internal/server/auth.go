package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"staffline/internal/engine/auth"
	"staffline/internal/logger"
)

type AuthConfig struct {
	JWTSecret string
	// DevAuth exposes POST /auth/dev/login.
	DevAuth  bool
	TokenTTL time.Duration
	Logger   logrus.FieldLogger
}

type principalKey struct{}

func withActor(ctx context.Context, a auth.Actor) context.Context {
	return context.WithValue(ctx, principalKey{}, a)
}

func actorFromContext(ctx context.Context) (auth.Actor, huma.StatusError) {
	if a, ok := ctx.Value(principalKey{}).(auth.Actor); ok && a.EmployeeID != 0 {
		return a, nil
	}
	return auth.Actor{}, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
}

type jwtClaims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

// authenticateJWT validates an HS256 token whose subject is an employee id.
func authenticateJWT(token string, secret string) (auth.Actor, error) {
	if strings.TrimSpace(secret) == "" {
		return auth.Actor{}, errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwtClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return auth.Actor{}, err
	}
	if !parsed.Valid {
		return auth.Actor{}, errors.New("invalid token")
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return auth.Actor{}, errors.New("subject must be an employee id")
	}
	return auth.Actor{EmployeeID: id, Roles: claims.Roles}, nil
}

// SignToken mints an HS256 token for an employee.
func SignToken(secret string, employeeID int64, roles []string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	now := time.Now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(employeeID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles: roles,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func newAuthMiddleware(basePath string, cfg AuthConfig) func(http.Handler) http.Handler {
	open := map[string]bool{
		path.Join(basePath, "health"): true,
	}
	if cfg.DevAuth {
		open[path.Join(basePath, "auth/dev/login")] = true
	}
	log := logger.OrDiscard(cfg.Logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if basePath != "" && !strings.HasPrefix(req.URL.Path, basePath) {
				next.ServeHTTP(w, req)
				return
			}
			if open[req.URL.Path] {
				next.ServeHTTP(w, req)
				return
			}
			token, ok := bearerToken(strings.TrimSpace(req.Header.Get("Authorization")))
			if !ok {
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil))
				return
			}
			actor, err := authenticateJWT(token, cfg.JWTSecret)
			if err != nil {
				logger.FromContext(req.Context(), log).WithError(err).Warn("rejected bearer token")
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
				return
			}
			next.ServeHTTP(w, req.WithContext(withActor(req.Context(), actor)))
		})
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	status := http.StatusInternalServerError
	if e, ok := err.(interface{ GetStatus() int }); ok {
		status = e.GetStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err)
}
