package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/todohub/internal/auth"
	"github.com/geocoder89/todohub/internal/domain/user"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type GoogleAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (auth.GoogleProfile, error)
}

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 10 * 60
)

// GoogleAuthHandler signs users in through Google. Accounts are matched by
// email, so a Google sign-in reuses an existing credentials account.
type GoogleAuthHandler struct {
	provider GoogleAuthProvider
	auth     *AuthHandler
}

func NewGoogleAuthHandler(provider GoogleAuthProvider, authHandler *AuthHandler) *GoogleAuthHandler {
	return &GoogleAuthHandler{provider: provider, auth: authHandler}
}

func (h *GoogleAuthHandler) Login(ctx *gin.Context) {
	state := uuid.NewString()

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(oauthStateCookie, state, oauthStateMaxAge, "/api/auth/google", "", h.auth.secureCookies(), true)

	ctx.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

func (h *GoogleAuthHandler) Callback(ctx *gin.Context) {
	expected, err := ctx.Cookie(oauthStateCookie)
	if err != nil || expected == "" || ctx.Query("state") != expected {
		RespondError(ctx, http.StatusBadRequest, "invalid_state", "OAuth state mismatch", nil)
		return
	}

	// one-shot
	ctx.SetCookie(oauthStateCookie, "", -1, "/api/auth/google", "", h.auth.secureCookies(), true)

	code := ctx.Query("code")
	if code == "" {
		RespondBadQuery(ctx, "code is required")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*storeTimeout)
	defer cancel()

	profile, err := h.provider.Exchange(cctx, code)
	if err != nil {
		slog.Default().WarnContext(cctx, "google exchange failed", "err", err)
		RespondUnauthorized(ctx, "oauth_failed", "Google sign-in failed")
		return
	}

	// accounts are matched by email, so an unverified address could claim
	// someone else's account
	if !profile.Verified {
		slog.Default().WarnContext(cctx, "google email not verified", "email", profile.Email)
		RespondUnauthorized(ctx, "oauth_failed", "Google email is not verified")
		return
	}

	u, err := h.findOrCreate(cctx, profile)
	if err != nil {
		RespondInternal(ctx, "Could not sign in with Google", err)
		return
	}

	if _, err := h.auth.issueSession(cctx, ctx, u); err != nil {
		RespondInternal(ctx, "Could not create session", err)
		return
	}

	ctx.Redirect(http.StatusFound, h.auth.cfg.FrontendURL)
}

func (h *GoogleAuthHandler) findOrCreate(ctx context.Context, profile auth.GoogleProfile) (user.User, error) {
	u, err := h.auth.users.GetByEmail(ctx, profile.Email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return user.User{}, err
	}

	var image *string
	if profile.Picture != "" {
		image = &profile.Picture
	}

	created, err := h.auth.users.Create(ctx, user.New(user.CreateParams{
		Name:  profile.Name,
		Email: profile.Email,
		Image: image,
	}))

	// lost a race with a concurrent first sign-in
	if errors.Is(err, user.ErrEmailTaken) {
		return h.auth.users.GetByEmail(ctx, profile.Email)
	}

	return created, err
}
