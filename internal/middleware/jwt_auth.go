package middleware

import (
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/gitdev-app/backend/internal/apperr"
	"github.com/gitdev-app/backend/internal/models"
)

// AccessTokenCookie is the name of the HttpOnly cookie carrying the access
// token.
const AccessTokenCookie = "access_token"

// RefreshTokenCookie is the name of the HttpOnly cookie carrying the
// refresh token.
const RefreshTokenCookie = "refresh_token"

// JWTAuthMiddleware checks for a valid access token and extracts the user
// claims. The token is read from the HttpOnly cookie, with an
// Authorization Bearer header as fallback for non-browser clients.
func JWTAuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := tokenFromRequest(c)
			if tokenString == "" {
				return apperr.Unauthorized("missing access token")
			}

			claims := &models.JwtCustomClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, apperr.Unauthorized("unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return apperr.Unauthorized("invalid or expired access token")
			}

			c.Set("user", claims)
			c.Set("userID", claims.UserID)
			return next(c)
		}
	}
}

func tokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := c.Request().Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}

// CurrentUser returns the claims placed by JWTAuthMiddleware, nil on
// unprotected routes.
func CurrentUser(c echo.Context) *models.JwtCustomClaims {
	claims, _ := c.Get("user").(*models.JwtCustomClaims)
	return claims
}
