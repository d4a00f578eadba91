package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmelo/outfit-studio/internal/logger"
)

// Google OAuth token endpoint
const googleOAuthURL = "https://oauth2.googleapis.com/token"

// GoogleProvider obtains an ID token by redeeming a long-lived refresh
// token at Google's OAuth endpoint.
type GoogleProvider struct {
	ClientID     string
	ClientSecret string
	RefreshToken string

	// HTTPClient is replaceable for tests; nil means a default client.
	HTTPClient *http.Client
}

// tokenResponse is the OAuth token response from Google.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
	IDToken     string `json:"id_token,omitempty"`
}

// ObtainIDToken implements IdentityProvider.
func (p *GoogleProvider) ObtainIDToken(ctx context.Context) (string, error) {
	if p.RefreshToken == "" {
		return "", errors.New("no google refresh token configured")
	}

	data := url.Values{}
	data.Set("client_id", p.ClientID)
	data.Set("client_secret", p.ClientSecret)
	data.Set("refresh_token", p.RefreshToken)
	data.Set("grant_type", "refresh_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, googleOAuthURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token refresh failed (status %d): %s", resp.StatusCode, string(body))
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.IDToken == "" {
		return "", errors.New("token response carried no id_token")
	}

	return tokenResp.IDToken, nil
}
