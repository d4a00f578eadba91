// Package api wraps outbound requests to the image-generation backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmelo/outfit-studio/internal/logger"
	"github.com/dmelo/outfit-studio/internal/models"
)

// Backend paths.
const (
	pathOutfitSwap    = "/api/edit-image-dual"
	pathGenerateImage = "/api/generate-image/"
	pathValidateKey   = "/api/validate-key/"
	pathLoginGoogle   = "/api/auth/google"
	pathUserMe        = "/api/user/me"
	pathUserUsage     = "/api/user/usage"
	pathCheckout      = "/api/create-checkout-session"
)

// CredentialSource resolves the optional auth headers. It is consulted
// immediately before every send, so a token or key change takes effect on
// the next call with no propagation step.
type CredentialSource interface {
	AuthToken(ctx context.Context) (string, error)
	APIKey(ctx context.Context) (string, error)
}

// Client is the single configured transport to one backend origin.
type Client struct {
	baseURL string
	creds   CredentialSource
	http    *http.Client
}

// New creates a client for the given origin.
func New(baseURL string, timeout time.Duration, creds CredentialSource) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		http:    &http.Client{Timeout: timeout},
	}
}

// SetTransport replaces the underlying round tripper. Used by tests.
func (c *Client) SetTransport(rt http.RoundTripper) {
	c.http.Transport = rt
}

// send performs one request. Transport failures surface as *NetworkError,
// non-2xx statuses as *HTTPError. No retries.
func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string, extraHeaders map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	if c.creds != nil {
		if token, err := c.creds.AuthToken(ctx); err != nil {
			logger.Error("failed to resolve auth token", "error", err)
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		if key, err := c.creds.APIKey(ctx); err != nil {
			logger.Error("failed to resolve api key", "error", err)
		} else if key != "" {
			req.Header.Set("X-API-Key", key)
		}
	}

	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	return respBody, nil
}

// TransformResponse is the backend payload for both transform endpoints.
type TransformResponse struct {
	Image    string `json:"image,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Text     string `json:"text,omitempty"`
}

// DataURI composes a displayable data URI from the base64 payload. The
// MIME type defaults to image/jpeg when the backend omits it.
func (r *TransformResponse) DataURI() string {
	if r.Image == "" {
		return ""
	}
	mime := r.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, r.Image)
}

// OutfitSwap submits the dual-image edit request.
func (c *Client) OutfitSwap(ctx context.Context, primary, secondary models.ImageRef, prompt string) (*TransformResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := writeImagePart(w, "primary_image", primary); err != nil {
		return nil, err
	}
	if err := writeImagePart(w, "secondary_image", secondary); err != nil {
		return nil, err
	}
	if err := w.WriteField("prompt", prompt); err != nil {
		return nil, fmt.Errorf("failed to write prompt field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	body, err := c.send(ctx, http.MethodPost, pathOutfitSwap, &buf, w.FormDataContentType(), nil)
	if err != nil {
		return nil, err
	}
	return decodeTransform(body)
}

// GenerateImage submits the text-to-image request.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (*TransformResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("prompt", prompt); err != nil {
		return nil, fmt.Errorf("failed to write prompt field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	body, err := c.send(ctx, http.MethodPost, pathGenerateImage, &buf, w.FormDataContentType(), nil)
	if err != nil {
		return nil, err
	}
	return decodeTransform(body)
}

func decodeTransform(body []byte) (*TransformResponse, error) {
	var resp TransformResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ResponseFormatError{Reason: fmt.Sprintf("failed to parse transform response: %v", err)}
	}
	return &resp, nil
}

// writeImagePart streams one image file into the form.
func writeImagePart(w *multipart.Writer, field string, ref models.ImageRef) error {
	f, err := os.Open(ref.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", field, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Error("failed to close image file", "path", ref.Path, "error", err)
		}
	}()

	part, err := w.CreateFormFile(field, filepath.Base(ref.Path))
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", field, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to copy %s: %w", field, err)
	}
	return nil
}

// ValidateKey checks a personal API key against the backend. The candidate
// key overrides any stored key for this one request.
func (c *Client) ValidateKey(ctx context.Context, key string) (bool, error) {
	body, err := c.send(ctx, http.MethodPost, pathValidateKey, nil, "",
		map[string]string{"X-API-Key": key})
	if err != nil {
		return false, err
	}

	var resp struct {
		Valid bool `json:"valid"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, &ResponseFormatError{Reason: fmt.Sprintf("failed to parse validation response: %v", err)}
	}
	return resp.Valid, nil
}

// LoginResponse is the token exchange payload.
type LoginResponse struct {
	AccessToken string              `json:"access_token"`
	User        *models.UserProfile `json:"user"`
}

// LoginWithGoogle exchanges a Google ID token for a backend session.
func (c *Client) LoginWithGoogle(ctx context.Context, idToken string) (*LoginResponse, error) {
	payload, err := json.Marshal(map[string]string{"id_token": idToken})
	if err != nil {
		return nil, fmt.Errorf("failed to encode login payload: %w", err)
	}

	body, err := c.send(ctx, http.MethodPost, pathLoginGoogle, bytes.NewReader(payload), "application/json", nil)
	if err != nil {
		return nil, err
	}

	var resp LoginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ResponseFormatError{Reason: fmt.Sprintf("failed to parse login response: %v", err)}
	}
	if resp.AccessToken == "" || resp.User == nil {
		return nil, &ResponseFormatError{Reason: "login response missing access_token or user"}
	}
	return &resp, nil
}

// GetUser fetches the current profile.
func (c *Client) GetUser(ctx context.Context) (*models.UserProfile, error) {
	body, err := c.send(ctx, http.MethodGet, pathUserMe, nil, "", nil)
	if err != nil {
		return nil, err
	}

	var profile models.UserProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, &ResponseFormatError{Reason: fmt.Sprintf("failed to parse profile: %v", err)}
	}
	return &profile, nil
}

// GetUsage fetches the current usage snapshot.
func (c *Client) GetUsage(ctx context.Context) (*models.UsageSnapshot, error) {
	body, err := c.send(ctx, http.MethodGet, pathUserUsage, nil, "", nil)
	if err != nil {
		return nil, err
	}

	var snapshot models.UsageSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, &ResponseFormatError{Reason: fmt.Sprintf("failed to parse usage: %v", err)}
	}
	return &snapshot, nil
}

// CreateCheckoutSession requests a subscription checkout URL. The URL is
// returned unopened; launching a browser is the caller's business.
func (c *Client) CreateCheckoutSession(ctx context.Context) (string, error) {
	body, err := c.send(ctx, http.MethodPost, pathCheckout, nil, "", nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		CheckoutURL string `json:"checkout_url"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &ResponseFormatError{Reason: fmt.Sprintf("failed to parse checkout response: %v", err)}
	}
	if resp.CheckoutURL == "" {
		return "", &ResponseFormatError{Reason: "checkout response missing checkout_url"}
	}
	return resp.CheckoutURL, nil
}
