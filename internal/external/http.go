package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dwelora/api/internal/models"
)

const defaultHTTPTimeout = 15 * time.Second

func newClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

func postJSON(ctx context.Context, client *http.Client, url, apiKey string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// HTTPVerifier is an IdentityVerifier backed by a hosted identity-check
// provider's REST API.
type HTTPVerifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPVerifier creates an IdentityVerifier client for the given endpoint.
func NewHTTPVerifier(baseURL, apiKey string) *HTTPVerifier {
	return &HTTPVerifier{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  newClient(),
	}
}

func (v *HTTPVerifier) StartSession(ctx context.Context, user *models.User) (*VerificationSession, error) {
	var out struct {
		SessionID string `json:"session_id"`
		URL       string `json:"url"`
	}
	body := map[string]string{
		"reference": user.ID.String(),
		"role":      string(user.Role),
	}
	if err := postJSON(ctx, v.client, v.baseURL+"/v1/sessions", v.apiKey, body, &out); err != nil {
		return nil, fmt.Errorf("failed to start verification session: %w", err)
	}
	return &VerificationSession{SessionID: out.SessionID, URL: out.URL}, nil
}

func (v *HTTPVerifier) CheckStatus(ctx context.Context, sessionID string) (VerificationStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/v1/sessions/"+sessionID, nil)
	if err != nil {
		return VerificationError, fmt.Errorf("failed to build request: %w", err)
	}
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return VerificationError, fmt.Errorf("verification status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return VerificationError, fmt.Errorf("unexpected status %d checking session", resp.StatusCode)
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return VerificationError, fmt.Errorf("failed to decode status response: %w", err)
	}

	switch VerificationStatus(out.Status) {
	case VerificationPending, VerificationApproved, VerificationRejected:
		return VerificationStatus(out.Status), nil
	default:
		return VerificationError, fmt.Errorf("unknown verification status %q", out.Status)
	}
}

// HTTPExtractor is an Extractor backed by a parsing service that accepts
// free-text addresses, listing URLs, or uploaded images.
type HTTPExtractor struct {
	baseURL string
	client  *http.Client
}

// NewHTTPExtractor creates an Extractor client for the given endpoint.
func NewHTTPExtractor(baseURL string) *HTTPExtractor {
	return &HTTPExtractor{
		baseURL: baseURL,
		client:  newClient(),
	}
}

func (e *HTTPExtractor) Extract(ctx context.Context, input string) (PropertyDetails, error) {
	var out struct {
		Street string `json:"street"`
		City   string `json:"city"`
		State  string `json:"state"`
		Zip    string `json:"zip"`
	}
	body := map[string]string{"input": input}
	if err := postJSON(ctx, e.client, e.baseURL+"/v1/extract", "", body, &out); err != nil {
		return PropertyDetails{}, fmt.Errorf("extraction request failed: %w", err)
	}
	return PropertyDetails{
		Street: out.Street,
		City:   out.City,
		State:  out.State,
		Zip:    out.Zip,
	}, nil
}

// HTTPRenderer is a Renderer backed by a document templating service.
type HTTPRenderer struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRenderer creates a Renderer client for the given endpoint.
func NewHTTPRenderer(baseURL string) *HTTPRenderer {
	return &HTTPRenderer{
		baseURL: baseURL,
		client:  newClient(),
	}
}

func (r *HTTPRenderer) Fill(ctx context.Context, kind models.AgreementType, fields map[string]string, prior []byte) ([]byte, error) {
	body := map[string]interface{}{
		"template": string(kind),
		"fields":   fields,
		"prior":    prior,
	}
	return r.renderCall(ctx, "/v1/fill", body)
}

func (r *HTTPRenderer) OverlaySignature(ctx context.Context, document []byte, signature []byte, slot string) ([]byte, error) {
	body := map[string]interface{}{
		"document":  document,
		"signature": signature,
		"slot":      slot,
	}
	return r.renderCall(ctx, "/v1/overlay", body)
}

func (r *HTTPRenderer) renderCall(ctx context.Context, path string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d from renderer", resp.StatusCode)
	}

	document, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered document: %w", err)
	}
	return document, nil
}
