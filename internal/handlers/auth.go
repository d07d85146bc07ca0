package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/gitdev-app/backend/internal/apperr"
	"github.com/gitdev-app/backend/internal/cache"
	"github.com/gitdev-app/backend/internal/mail"
	"github.com/gitdev-app/backend/internal/middleware"
	"github.com/gitdev-app/backend/internal/models"
	"github.com/gitdev-app/backend/internal/queue"
	"github.com/gitdev-app/backend/internal/repositories"
	"github.com/gitdev-app/backend/pkg/config"
	"github.com/gitdev-app/backend/pkg/firebase"
)

// AuthHandler handles account creation, sign-in and token rotation.
type AuthHandler struct {
	auth      repositories.AuthRepository
	users     repositories.UserRepository
	userCache *cache.UserCache
	firebase  *firebase.App
	emails    Enqueuer
	cfg       *config.Config
	log       zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler. The firebase app may be nil
// when social sign-in is not configured.
func NewAuthHandler(auth repositories.AuthRepository, users repositories.UserRepository, userCache *cache.UserCache, fb *firebase.App, emails Enqueuer, cfg *config.Config, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		users:     users,
		userCache: userCache,
		firebase:  fb,
		emails:    emails,
		cfg:       cfg,
		log:       log.With().Str("component", "auth").Logger(),
	}
}

// RegisterRoutes registers auth endpoints.
func (h *AuthHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/auth/signup", h.Signup)
	g.POST("/auth/signin", h.Signin)
	g.POST("/auth/signout", h.Signout)
	g.POST("/auth/signout/all", h.SignoutAll)
	g.POST("/auth/refresh", h.Refresh)
	g.POST("/auth/social", h.SocialSignin)
}

// Signup creates the credential row, the profile document and the cache
// projection, then signs the user in.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if _, err := h.auth.GetAuthUserByEmail(req.Email); err == nil {
		return apperr.Conflict("AccountExists", "email already in use")
	}
	if _, err := h.auth.GetAuthUserByUsername(req.Username); err == nil {
		return apperr.Conflict("AccountExists", "username already in use")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	profileID := primitive.NewObjectID()
	authUser := &models.AuthUser{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		UserID:       profileID.Hex(),
		Provider:     "local",
	}
	if err := h.auth.CreateAuthUser(authUser); err != nil {
		return err
	}

	user := &models.User{
		ID:            profileID,
		AuthUserID:    authUser.ID,
		Notifications: models.DefaultNotificationPrefs(),
		Username:      authUser.Username,
	}
	if err := h.users.CreateUser(c.Request().Context(), user); err != nil {
		return err
	}

	if err := h.userCache.Save(c.Request().Context(), "users", profileID.Hex(), int64(authUser.ID), user); err != nil {
		h.log.Error().Err(err).Str("user", profileID.Hex()).Msg("failed to cache new user")
	}

	h.sendWelcomeEmail(c, authUser)

	if err := h.issueTokens(c, authUser); err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "account created", user)
}

// Signin verifies credentials and issues the cookie pair.
func (h *AuthHandler) Signin(c echo.Context) error {
	var req models.SigninRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	authUser, err := h.auth.GetAuthUserByEmail(req.Email)
	if err != nil {
		return apperr.Unauthorized("invalid email or password")
	}
	if bcrypt.CompareHashAndPassword([]byte(authUser.PasswordHash), []byte(req.Password)) != nil {
		return apperr.Unauthorized("invalid email or password")
	}

	user, err := h.users.GetUserByID(c.Request().Context(), authUser.UserID)
	if err != nil {
		return err
	}
	user.Username = authUser.Username

	if err := h.issueTokens(c, authUser); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "signed in", user)
}

// Signout deletes the rotation record and clears both cookies.
func (h *AuthHandler) Signout(c echo.Context) error {
	if cookie, err := c.Cookie(middleware.RefreshTokenCookie); err == nil && cookie.Value != "" {
		if err := h.auth.DeleteAuthToken(cookie.Value); err != nil {
			h.log.Warn().Err(err).Msg("failed to delete refresh token record")
		}
	}
	clearCookie(c, middleware.AccessTokenCookie)
	clearCookie(c, middleware.RefreshTokenCookie)
	return c.NoContent(http.StatusNoContent)
}

// SignoutAll revokes every refresh token issued to the account, ending all
// sessions, and clears the cookie pair on this client. The caller proves
// ownership with a valid refresh token.
func (h *AuthHandler) SignoutAll(c echo.Context) error {
	cookie, err := c.Cookie(middleware.RefreshTokenCookie)
	if err != nil || cookie.Value == "" {
		return apperr.Unauthorized("missing refresh token")
	}

	record, err := h.auth.GetAuthToken(cookie.Value)
	if err != nil {
		return err
	}
	if err := h.validRefreshToken(cookie.Value); err != nil {
		return err
	}

	if err := h.auth.DeleteAuthTokensForUser(record.AuthUserID); err != nil {
		return err
	}
	clearCookie(c, middleware.AccessTokenCookie)
	clearCookie(c, middleware.RefreshTokenCookie)
	return c.NoContent(http.StatusNoContent)
}

// Refresh rotates the refresh token and issues a fresh cookie pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(middleware.RefreshTokenCookie)
	if err != nil || cookie.Value == "" {
		return apperr.Unauthorized("missing refresh token")
	}

	record, err := h.auth.GetAuthToken(cookie.Value)
	if err != nil {
		return err
	}
	if err := h.validRefreshToken(cookie.Value); err != nil {
		return err
	}

	authUser, err := h.auth.GetAuthUserByID(record.AuthUserID)
	if err != nil {
		return err
	}

	// rotation: the old record dies with the old token
	if err := h.auth.DeleteAuthToken(cookie.Value); err != nil {
		h.log.Warn().Err(err).Msg("failed to delete rotated refresh token")
	}

	if err := h.issueTokens(c, authUser); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "tokens refreshed", nil)
}

// SocialSignin exchanges a Firebase ID token for a local session, creating
// the account on first sign-in.
func (h *AuthHandler) SocialSignin(c echo.Context) error {
	if h.firebase == nil {
		return apperr.New("SocialSigninDisabled", http.StatusNotImplemented, "social sign-in is not configured")
	}

	var req models.SocialSigninRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	decoded, err := h.firebase.AuthClient.VerifyIDToken(c.Request().Context(), req.IDToken)
	if err != nil {
		return apperr.Unauthorized("invalid social token")
	}

	email, _ := decoded.Claims["email"].(string)
	if email == "" {
		return apperr.Validation("social token has no email")
	}

	authUser, err := h.auth.GetAuthUserByEmail(email)
	if err != nil {
		authUser, err = h.createSocialAccount(c, email, decoded.Claims)
		if err != nil {
			return err
		}
	}

	user, err := h.users.GetUserByID(c.Request().Context(), authUser.UserID)
	if err != nil {
		return err
	}
	user.Username = authUser.Username

	if err := h.issueTokens(c, authUser); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "signed in", user)
}

func (h *AuthHandler) createSocialAccount(c echo.Context, email string, claims map[string]any) (*models.AuthUser, error) {
	username := strings.SplitN(email, "@", 2)[0]
	if name, ok := claims["name"].(string); ok && name != "" {
		username = strings.ToLower(strings.ReplaceAll(name, " ", ""))
	}
	// usernames are unique, suffix with a timestamp on collision
	if _, err := h.auth.GetAuthUserByUsername(username); err == nil {
		username = username + time.Now().Format("0102150405")
	}

	profileID := primitive.NewObjectID()
	authUser := &models.AuthUser{
		Username: username,
		Email:    email,
		UserID:   profileID.Hex(),
		Provider: "firebase",
	}
	if err := h.auth.CreateAuthUser(authUser); err != nil {
		return nil, err
	}

	avatar, _ := claims["picture"].(string)
	user := &models.User{
		ID:            profileID,
		AuthUserID:    authUser.ID,
		Avatar:        avatar,
		Notifications: models.DefaultNotificationPrefs(),
		Username:      username,
	}
	if err := h.users.CreateUser(c.Request().Context(), user); err != nil {
		return nil, err
	}

	if err := h.userCache.Save(c.Request().Context(), "users", profileID.Hex(), int64(authUser.ID), user); err != nil {
		h.log.Error().Err(err).Str("user", profileID.Hex()).Msg("failed to cache new user")
	}

	h.sendWelcomeEmail(c, authUser)
	return authUser, nil
}

func (h *AuthHandler) sendWelcomeEmail(c echo.Context, authUser *models.AuthUser) {
	html, err := mail.Render("welcome.html", mail.TemplateData{
		Username: authUser.Username,
		Message:  "Your account is ready. Set up your profile and find people to follow.",
		Link:     h.cfg.ClientURL,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to render welcome email")
		return
	}
	email := mail.Email{To: authUser.Email, Subject: "[GitDev] Welcome to GitDev", HTML: html}
	if err := h.emails.Enqueue(c.Request().Context(), queue.JobEmailSend, email); err != nil {
		h.log.Error().Err(err).Msg("failed to enqueue welcome email")
	}
}

// validRefreshToken checks the signature and expiry of a refresh token.
func (h *AuthHandler) validRefreshToken(raw string) error {
	claims := &models.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Unauthorized("unexpected signing method")
		}
		return []byte(h.cfg.JWTRefreshSecret), nil
	})
	if err != nil || !token.Valid {
		return apperr.Unauthorized("invalid refresh token")
	}
	return nil
}

func (h *AuthHandler) issueTokens(c echo.Context, authUser *models.AuthUser) error {
	now := time.Now()

	claims := func(ttl time.Duration) *models.JwtCustomClaims {
		return &models.JwtCustomClaims{
			UserID:     authUser.UserID,
			AuthUserID: authUser.ID,
			Username:   authUser.Username,
			RedisID:    int64(authUser.ID),
			RegisteredClaims: jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			},
		}
	}

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims(h.cfg.AccessTokenTTL)).SignedString([]byte(h.cfg.JWTAccessSecret))
	if err != nil {
		return err
	}
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims(h.cfg.RefreshTokenTTL)).SignedString([]byte(h.cfg.JWTRefreshSecret))
	if err != nil {
		return err
	}

	if err := h.auth.CreateAuthToken(&models.AuthToken{
		AuthUserID: authUser.ID,
		Token:      refresh,
		ExpiresAt:  now.Add(h.cfg.RefreshTokenTTL),
	}); err != nil {
		return err
	}

	h.setCookie(c, middleware.AccessTokenCookie, access, h.cfg.AccessTokenTTL)
	h.setCookie(c, middleware.RefreshTokenCookie, refresh, h.cfg.RefreshTokenTTL)
	return nil
}

func (h *AuthHandler) setCookie(c echo.Context, name, value string, ttl time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
