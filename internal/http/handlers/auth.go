package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/todohub/internal/auth"
	"github.com/geocoder89/todohub/internal/config"
	"github.com/geocoder89/todohub/internal/domain/session"
	"github.com/geocoder89/todohub/internal/domain/user"
	"github.com/geocoder89/todohub/internal/http/middlewares"
	"github.com/geocoder89/todohub/internal/security"
	"github.com/gin-gonic/gin"
)

type UsersStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

type RefreshTokenStore interface {
	Create(ctx context.Context, row session.RefreshToken) error
	Rotate(ctx context.Context, oldID, presentedHash string, next session.RefreshToken, now time.Time) error
	Revoke(ctx context.Context, id string) error
}

type AuthHandler struct {
	users        UsersStore
	jwt          *auth.Manager
	refreshStore RefreshTokenStore
	cfg          config.Config
}

func NewAuthHandler(users UsersStore, jwtManager *auth.Manager, refreshStore RefreshTokenStore, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users:        users,
		jwt:          jwtManager,
		refreshStore: refreshStore,
		cfg:          cfg,
	}
}

type RegisterRequest struct {
	Name            string `json:"name" binding:"required,min=2"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=6,maxbytes=72,strongpassword"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type authResponse struct {
	User        user.User `json:"user"`
	AccessToken string    `json:"accessToken"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user", err)
		return
	}

	u, err := h.users.Create(cctx, user.New(user.CreateParams{
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
		PasswordHash: &hash,
	}))

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}

		RespondInternal(ctx, "Could not create user", err)
		return
	}

	accessToken, err := h.issueSession(cctx, ctx, u)
	if err != nil {
		RespondInternal(ctx, "Could not create session", err)
		return
	}

	ctx.JSON(http.StatusCreated, authResponse{User: u, AccessToken: accessToken})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, normalizeEmail(req.Email))
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			RespondInternal(ctx, "Could not sign in", err)
			return
		}
		RespondUnauthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	// Google-only accounts have no password to compare against
	if !foundUser.HasPassword() {
		RespondUnauthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	if err := security.CheckPassword(*foundUser.PasswordHash, req.Password); err != nil {
		RespondUnauthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	accessToken, err := h.issueSession(cctx, ctx, foundUser)
	if err != nil {
		RespondInternal(ctx, "Could not create session", err)
		return
	}

	ctx.JSON(http.StatusOK, authResponse{User: foundUser, AccessToken: accessToken})
}

// Refresh rotates the refresh cookie. A token can be rotated once; replaying
// it afterwards fails as revoked.
func (h *AuthHandler) Refresh(ctx *gin.Context) {
	raw, err := ctx.Cookie(refreshCookieName)

	if err != nil || raw == "" {
		RespondUnauthorized(ctx, "no_refresh", "Missing refresh token")
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)

	if err != nil {
		RespondUnauthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	u, err := h.users.GetByID(cctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnauthorized(ctx, "invalid_refresh", "Invalid refresh token")
			return
		}
		RespondInternal(ctx, "Could not refresh session", err)
		return
	}

	identity := identityOf(u)

	newRaw, newJTI, newExpiresAt, err := h.jwt.GenerateRefreshToken(identity)
	if err != nil {
		RespondInternal(ctx, "Could not refresh session", err)
		return
	}

	now := time.Now().UTC()
	next := session.RefreshToken{
		ID:        newJTI,
		UserID:    u.ID,
		TokenHash: h.jwt.HashRefreshToken(newRaw),
		ExpiresAt: newExpiresAt,
		CreatedAt: now,
	}

	err = h.refreshStore.Rotate(cctx, claims.JTI, h.jwt.HashRefreshToken(raw), next, now)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrExpired):
			RespondUnauthorized(ctx, "expired_refresh", "Refresh token expired.")
		case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrRevoked), errors.Is(err, session.ErrMismatch):
			RespondUnauthorized(ctx, "invalid_refresh", "Invalid refresh token.")
		default:
			RespondInternal(ctx, "Could not refresh session", err)
		}
		return
	}

	accessToken, accessExpiresAt, err := h.jwt.GenerateAccessToken(identity)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token", err)
		return
	}

	h.setSessionCookies(ctx, accessToken, accessExpiresAt, newRaw, newExpiresAt)

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
	})
}

// Logout is idempotent and always clears the cookies.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	defer func() {
		h.clearSessionCookies(ctx)
		ctx.Status(http.StatusNoContent)
	}()

	raw, err := ctx.Cookie(refreshCookieName)
	if err != nil || raw == "" {
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)
	if err != nil {
		return
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	if err := h.refreshStore.Revoke(cctx, claims.JTI); err != nil {
		// the cookie is cleared regardless; the row simply expires later
		slog.Default().WarnContext(cctx, "refresh token revoke failed", "err", err)
	}
}

// Session returns the signed-in user.
func (h *AuthHandler) Session(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "You must be signed in")
		return
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	u, err := h.users.GetByID(cctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnauthorized(ctx, "unauthorized", "You must be signed in")
			return
		}
		RespondInternal(ctx, "Could not load session", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u})
}

// Helper functions

func identityOf(u user.User) auth.Identity {
	return auth.Identity{UserID: u.ID, Email: u.Email, Name: u.Name}
}

// issueSession mints both tokens, stores the refresh half and sets cookies.
func (h *AuthHandler) issueSession(cctx context.Context, ctx *gin.Context, u user.User) (string, error) {
	identity := identityOf(u)

	accessToken, accessExpiresAt, err := h.jwt.GenerateAccessToken(identity)
	if err != nil {
		return "", err
	}

	rawRefreshToken, jti, refreshExpiresAt, err := h.jwt.GenerateRefreshToken(identity)
	if err != nil {
		return "", err
	}

	err = h.refreshStore.Create(cctx, session.RefreshToken{
		ID:        jti,
		UserID:    u.ID,
		TokenHash: h.jwt.HashRefreshToken(rawRefreshToken),
		ExpiresAt: refreshExpiresAt,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}

	h.setSessionCookies(ctx, accessToken, accessExpiresAt, rawRefreshToken, refreshExpiresAt)

	return accessToken, nil
}

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/auth"
)

func (h *AuthHandler) secureCookies() bool {
	return h.cfg.Env == "prod"
}

func (h *AuthHandler) setSessionCookies(ctx *gin.Context, access string, accessExpiresAt time.Time, refresh string, refreshExpiresAt time.Time) {
	secure := h.secureCookies()

	// Lax so the cookies survive the top-level redirect back from Google
	ctx.SetSameSite(http.SameSiteLaxMode)

	ctx.SetCookie(middlewares.SessionCookieName, access, int(time.Until(accessExpiresAt).Seconds()), "/", "", secure, true)
	ctx.SetCookie(refreshCookieName, refresh, int(time.Until(refreshExpiresAt).Seconds()), refreshCookiePath, "", secure, true)
}

func (h *AuthHandler) clearSessionCookies(ctx *gin.Context) {
	secure := h.secureCookies()
	ctx.SetSameSite(http.SameSiteLaxMode)

	ctx.SetCookie(middlewares.SessionCookieName, "", -1, "/", "", secure, true)
	ctx.SetCookie(refreshCookieName, "", -1, refreshCookiePath, "", secure, true)
}
