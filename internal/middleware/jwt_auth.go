package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anonto42/warbler/internal/models"
	"github.com/anonto42/warbler/internal/repositories"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

// TokenTTL is how long an issued API token stays valid
const TokenTTL = 72 * time.Hour

const claimsContextKey = "user"

// GenerateToken signs an HS256 token for user
func GenerateToken(user *models.User, secret string) (string, error) {
	now := time.Now()
	claims := &models.JwtCustomClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// JWTAuthMiddleware checks for a valid JWT and extracts user claims.
func JWTAuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
			}

			// Expecting "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
			}

			claims := &models.JwtCustomClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				if errors.Is(err, jwt.ErrTokenExpired) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Token expired")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			c.Set(claimsContextKey, claims)
			return next(c)
		}
	}
}

// RequireTokenUser rejects tokens whose account no longer exists.
// It runs after JWTAuthMiddleware.
func RequireTokenUser(users repositories.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := Claims(c)
			if claims == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}
			user, err := users.GetUserByID(c.Request().Context(), claims.UserID)
			if errors.Is(err, repositories.ErrNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}
			if err != nil {
				return err
			}
			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// Claims returns the token claims stored by JWTAuthMiddleware
func Claims(c echo.Context) *models.JwtCustomClaims {
	claims, _ := c.Get(claimsContextKey).(*models.JwtCustomClaims)
	return claims
}
