package auth

import (
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	apperrors "authservice/internal/errors"
	"authservice/internal/model"
)

// googleAuthURL is the v2 consent endpoint; endpoints.Google still points at v1.
const googleAuthURL = "https://accounts.google.com/o/oauth2/v2/auth"

// Profile is the identity a provider asserts about the signed-in user.
type Profile struct {
	Provider  string
	SubjectID string
	Email     string
	Name      string
}

// Provider describes one external identity provider: where to send the user
// and how to read the profile back from the callback.
type Provider struct {
	Name string

	oauth       oauth2.Config
	subjectKeys []string
	defaultName string
	// errCodeOnly is returned when the callback carries only an authorization
	// code; no code exchange is implemented.
	errCodeOnly error
	// errNoProfile is returned when the callback carries neither profile nor code.
	errNoProfile error
}

// AuthURL returns the provider consent URL carrying client id, callback and scope.
func (p *Provider) AuthURL() string {
	return p.oauth.AuthCodeURL("")
}

// CallbackURL returns the address the provider redirects back to.
func (p *Provider) CallbackURL() string {
	return p.oauth.RedirectURL
}

// Profile extracts the pre-resolved profile from callback query parameters.
func (p *Provider) Profile(q url.Values) (Profile, error) {
	if q.Get("error") != "" {
		return Profile{}, apperrors.ErrAuthorizationFailed
	}

	var subject string
	for _, key := range p.subjectKeys {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			subject = v
			break
		}
	}
	email := strings.TrimSpace(q.Get("email"))

	if subject != "" && email != "" {
		name := strings.TrimSpace(q.Get("name"))
		if name == "" {
			name = p.defaultName
		}
		return Profile{Provider: p.Name, SubjectID: subject, Email: email, Name: name}, nil
	}
	if q.Get("code") != "" {
		return Profile{}, p.errCodeOnly
	}
	return Profile{}, p.errNoProfile
}

// Providers is the registry of supported identity providers.
type Providers struct {
	byName map[string]*Provider
}

// NewProviders builds the Google and GitHub providers. Callback addresses are
// <publicURL>/api/auth/<provider>/callback.
func NewProviders(publicURL, googleClientID, githubClientID string) *Providers {
	publicURL = strings.TrimRight(publicURL, "/")
	callback := func(name string) string {
		return publicURL + "/api/auth/" + name + "/callback"
	}

	google := &Provider{
		Name: model.ProviderGoogle,
		oauth: oauth2.Config{
			ClientID:    googleClientID,
			RedirectURL: callback(model.ProviderGoogle),
			Scopes:      []string{"email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  googleAuthURL,
				TokenURL: endpoints.Google.TokenURL,
			},
		},
		subjectKeys:  []string{"id", "sub"},
		defaultName:  "Test User",
		errCodeOnly:  apperrors.ErrCodeExchangeUnsupported,
		errNoProfile: apperrors.ErrAuthorizationFailed,
	}

	github := &Provider{
		Name: model.ProviderGitHub,
		oauth: oauth2.Config{
			ClientID:    githubClientID,
			RedirectURL: callback(model.ProviderGitHub),
			Scopes:      []string{"user:email"},
			Endpoint:    endpoints.GitHub,
		},
		subjectKeys:  []string{"id", "login"},
		defaultName:  "GitHub User",
		errCodeOnly:  apperrors.ErrCodeExchangeNotImplemented,
		errNoProfile: apperrors.ErrCodeExchangeNotImplemented,
	}

	return &Providers{byName: map[string]*Provider{
		google.Name: google,
		github.Name: github,
	}}
}

// Get looks up a provider by name.
func (p *Providers) Get(name string) (*Provider, error) {
	provider, ok := p.byName[name]
	if !ok {
		return nil, apperrors.ErrUnknownProvider
	}
	return provider, nil
}
