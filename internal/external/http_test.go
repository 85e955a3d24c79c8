package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dwelora/api/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPVerifier_StartSession(t *testing.T) {
	// Arrange
	user := &models.User{ID: uuid.New(), Role: models.RoleAgent}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/sessions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, user.ID.String(), body["reference"])
		assert.Equal(t, "agent", body["role"])

		json.NewEncoder(w).Encode(map[string]string{
			"session_id": "sess-42",
			"url":        "https://verify.example.com/sess-42",
		})
	}))
	defer server.Close()

	verifier := NewHTTPVerifier(server.URL, "test-key")

	// Act
	session, err := verifier.StartSession(context.Background(), user)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "sess-42", session.SessionID)
	assert.Equal(t, "https://verify.example.com/sess-42", session.URL)
}

func TestHTTPVerifier_CheckStatus(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		statusCode int
		want       VerificationStatus
		wantErr    bool
	}{
		{"approved", `{"status":"approved"}`, http.StatusOK, VerificationApproved, false},
		{"pending", `{"status":"pending"}`, http.StatusOK, VerificationPending, false},
		{"rejected", `{"status":"rejected"}`, http.StatusOK, VerificationRejected, false},
		{"unknown status", `{"status":"weird"}`, http.StatusOK, VerificationError, true},
		{"server error", `{}`, http.StatusInternalServerError, VerificationError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/sessions/sess-1", r.URL.Path)
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			verifier := NewHTTPVerifier(server.URL, "")

			status, err := verifier.CheckStatus(context.Background(), "sess-1")

			assert.Equal(t, tt.want, status)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHTTPExtractor_Extract(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/extract", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "123 Main St, Sacramento", body["input"])

		json.NewEncoder(w).Encode(map[string]string{
			"street": "123 Main St",
			"city":   "Sacramento",
			"state":  "CA",
			"zip":    "95814",
		})
	}))
	defer server.Close()

	extractor := NewHTTPExtractor(server.URL)

	// Act
	details, err := extractor.Extract(context.Background(), "123 Main St, Sacramento")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, PropertyDetails{
		Street: "123 Main St",
		City:   "Sacramento",
		State:  "CA",
		Zip:    "95814",
	}, details)
}

func TestHTTPExtractor_ServerFailure(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	extractor := NewHTTPExtractor(server.URL)

	// Act
	_, err := extractor.Extract(context.Background(), "garbage")

	// Assert
	assert.Error(t, err)
}

func TestHTTPRenderer_Fill(t *testing.T) {
	// Arrange
	rendered := []byte("%PDF-1.7 filled")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/fill", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "agency_disclosure", body["template"])

		w.Write(rendered)
	}))
	defer server.Close()

	renderer := NewHTTPRenderer(server.URL)

	// Act
	document, err := renderer.Fill(context.Background(), models.AgreementAgencyDisclosure,
		map[string]string{"buyer": "Pat"}, nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, rendered, document)
}

func TestHTTPRenderer_OverlaySignature(t *testing.T) {
	// Arrange
	signed := []byte("%PDF-1.7 signed")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/overlay", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "buyer", body["slot"])

		w.Write(signed)
	}))
	defer server.Close()

	renderer := NewHTTPRenderer(server.URL)

	// Act
	document, err := renderer.OverlaySignature(context.Background(),
		[]byte("doc"), []byte("sig"), "buyer")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, signed, document)
}
