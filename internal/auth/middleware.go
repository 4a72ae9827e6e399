package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/logger"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// Middleware guards the scrape and task routes: it validates the bearer
// token and stores the caller's user id in the request context. Rejections
// carry one generic message; the detail goes to the debug log only.
func Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.ForComponent("auth")

		raw, ok := bearerToken(c.Request().Header.Get("Authorization"))
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed bearer token")
		}

		secretKey, err := jwtSecretFromEnv()
		if err != nil {
			log.WithError(err).Error().Msg("jwt secret unavailable")
			return echo.NewHTTPError(http.StatusInternalServerError, "auth misconfigured")
		}

		token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secretKey, nil
		})
		if err != nil || !token.Valid {
			log.WithError(err).Debug().Str("path", c.Path()).Msg("token rejected")
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		userID, err := subjectID(token)
		if err != nil {
			log.WithError(err).Debug().Str("path", c.Path()).Msg("token subject rejected")
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Set(string(UserIDKey), userID)
		return next(c)
	}
}

func bearerToken(header string) (string, bool) {
	raw, found := strings.CutPrefix(header, "Bearer ")
	raw = strings.TrimSpace(raw)
	return raw, found && raw != ""
}

func subjectID(token *jwt.Token) (uuid.UUID, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("unexpected claims type")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(sub)
}

// GetUserIDFromContext retrieves the authenticated user id.
func GetUserIDFromContext(c echo.Context) (uuid.UUID, error) {
	val := c.Get(string(UserIDKey))
	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.New("user ID not found in context")
	}
	return id, nil
}
