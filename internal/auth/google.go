package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleOAuth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var ErrGoogleEmailMissing = errors.New("google profile has no email")

// GoogleProfile is the part of the userinfo response we keep.
type GoogleProfile struct {
	Email    string
	Name     string
	Picture  string
	Verified bool
}

type GoogleProvider struct {
	oauth2Config *oauth2.Config
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
}

// AuthCodeURL is the consent page the browser is redirected to.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the callback code for a token and loads the profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (GoogleProfile, error) {
	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("exchange code: %w", err)
	}

	service, err := googleOAuth2.NewService(ctx, option.WithTokenSource(p.oauth2Config.TokenSource(ctx, token)))
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("userinfo service: %w", err)
	}

	info, err := service.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("fetch userinfo: %w", err)
	}

	if strings.TrimSpace(info.Email) == "" {
		return GoogleProfile{}, ErrGoogleEmailMissing
	}

	verified := false
	if info.VerifiedEmail != nil {
		verified = *info.VerifiedEmail
	}

	name := info.Name
	if name == "" {
		name = strings.SplitN(info.Email, "@", 2)[0]
	}

	return GoogleProfile{
		Email:    strings.ToLower(strings.TrimSpace(info.Email)),
		Name:     name,
		Picture:  info.Picture,
		Verified: verified,
	}, nil
}
