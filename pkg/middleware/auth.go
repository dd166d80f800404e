package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"vidstory-server/internal/models"

	"go.uber.org/zap"
)

// TokenVerifier определяет функцию, которая проверяет строку токена и возвращает claims.
// Ошибки могут быть models.ErrTokenInvalid, models.ErrTokenExpired, models.ErrTokenMalformed и т.д.
type TokenVerifier func(ctx context.Context, tokenString string) (*models.Claims, error)

// AuthMiddleware создает HTTP middleware для проверки JWT.
// Оно извлекает токен, верифицирует его с помощью предоставленного verifier
// и добавляет UserID/Roles в контекст запроса.
func AuthMiddleware(verifier TokenVerifier, logger *zap.Logger, requiredRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := logger.With(zap.String("path", r.URL.Path))

			tokenString, ok := bearerToken(r)
			if !ok {
				log.Warn("Authorization header missing or malformed")
				models.SendJSONError(w, "Unauthorized: Missing token", http.StatusUnauthorized)
				return
			}

			claims, err := verifier(ctx, tokenString)
			if err != nil {
				status := http.StatusUnauthorized
				msg := "Unauthorized: Invalid token"
				if errors.Is(err, models.ErrTokenExpired) {
					msg = "Unauthorized: Token expired"
				} else if errors.Is(err, models.ErrTokenMalformed) || errors.Is(err, models.ErrTokenInvalid) {
					// Используем одинаковое сообщение для невалидного и некорректного формата
				} else {
					log.Error("Unexpected token verification error", zap.Error(err))
					status = http.StatusInternalServerError
					msg = "Internal server error during token verification"
				}
				log.Warn("Token verification failed", zap.Error(err))
				models.SendJSONError(w, msg, status)
				return
			}

			if len(requiredRoles) > 0 {
				hasRequiredRole := false
				for _, requiredRole := range requiredRoles {
					if models.HasRole(claims.Roles, requiredRole) {
						hasRequiredRole = true
						break
					}
				}
				if !hasRequiredRole {
					log.Warn("User does not have required role",
						zap.String("userID", claims.UserID.String()),
						zap.Strings("userRoles", claims.Roles),
						zap.Strings("requiredRoles", requiredRoles),
					)
					models.SendJSONError(w, "Forbidden: Insufficient permissions", http.StatusForbidden)
					return
				}
			}

			ctx = context.WithValue(ctx, models.UserContextKey, claims.UserID)
			ctx = context.WithValue(ctx, models.RolesContextKey, claims.Roles)

			log.Debug("User authorized", zap.String("userID", claims.UserID.String()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware работает как AuthMiddleware, но пропускает запросы без
// токена как анонимные. Используется для публичных ручек, где авторизованному
// пользователю нужно показать дополнительные данные (например, флаг покупки).
// Невалидный токен все равно отклоняется, чтобы клиент заметил протухшую сессию.
func OptionalAuthMiddleware(verifier TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := logger.With(zap.String("path", r.URL.Path))

			tokenString, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier(ctx, tokenString)
			if err != nil {
				log.Warn("Optional token verification failed", zap.Error(err))
				models.SendJSONError(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, models.UserContextKey, claims.UserID)
			ctx = context.WithValue(ctx, models.RolesContextKey, claims.Roles)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken извлекает токен из заголовка Authorization.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	return parts[1], true
}
