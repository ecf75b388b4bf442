package spotify

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/sydlexius/trackyear/internal/provider"
)

// Credentials configure the client-credentials flow against the Spotify
// accounts service. TokenURL and BaseURL default to the public endpoints.
type Credentials struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	BaseURL      string
}

// NewClient builds a Spotify Web API client that fetches and refreshes app
// tokens on demand. Token failures surface on the first API call.
func NewClient(ctx context.Context, creds Credentials) (*spotifyapi.Client, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, &provider.ErrAuthFailed{
			Provider: provider.NameSpotify,
			Cause:    errors.New("client ID and secret are required"),
		}
	}
	tokenURL := creds.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}
	config := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     tokenURL,
	}

	base := &http.Client{Timeout: 15 * time.Second}
	httpClient := config.Client(context.WithValue(ctx, oauth2.HTTPClient, base))

	var opts []spotifyapi.ClientOption
	if creds.BaseURL != "" {
		opts = append(opts, spotifyapi.WithBaseURL(strings.TrimRight(creds.BaseURL, "/")+"/"))
	}
	return spotifyapi.New(httpClient, opts...), nil
}
