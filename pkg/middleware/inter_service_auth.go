package middleware

import (
	"errors"
	"net/http"

	"vidstory-server/internal/models"
	"vidstory-server/pkg/authutils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// InterServiceAuthMiddleware создает Echo middleware для проверки межсервисного JWT.
// Используется для внутренних ручек (запись покупок от биллинг-сервиса).
func InterServiceAuthMiddleware(verifier *authutils.JWTVerifier, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.With(zap.String("path", c.Request().URL.Path))

			tokenString := c.Request().Header.Get("X-Internal-Service-Token")
			if tokenString == "" {
				log.Warn("X-Internal-Service-Token header missing")
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized: Missing inter-service token")
			}

			claims, err := verifier.VerifyServiceToken(c.Request().Context(), tokenString)
			if err != nil {
				status := http.StatusUnauthorized
				msg := "Unauthorized: Invalid inter-service token"
				if errors.Is(err, models.ErrTokenExpired) {
					msg = "Unauthorized: Inter-service token expired"
				} else if errors.Is(err, models.ErrTokenMalformed) || errors.Is(err, models.ErrTokenInvalid) {
					// Используем общее сообщение
				} else {
					log.Error("Unexpected inter-service token verification error", zap.Error(err))
					status = http.StatusInternalServerError
					msg = "Internal server error during inter-service token verification"
				}
				log.Warn("Inter-service token verification failed", zap.Error(err))
				return echo.NewHTTPError(status, msg)
			}

			// UserID/Roles в контекст не добавляем, это межсервисный вызов.
			c.Set(string(models.SourceServiceContextKey), claims.Subject)
			log.Debug("Inter-service request authorized", zap.String("sourceService", claims.Subject))

			return next(c)
		}
	}
}
