package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "v", r.Header.Get("X-Test"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at"}`))
	}))
	defer server.Close()

	var out struct {
		AccessToken string `json:"access_token"`
	}
	err := SendRequest(context.Background(), New(time.Second), http.MethodPost, server.URL,
		map[string]string{"X-Test": "v"}, map[string]string{"grant_type": "refresh_token"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "at", out.AccessToken)
}

func TestSendRequestUpstreamError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"oauth error", `{"error":"invalid_grant","error_description":"Refresh token revoked"}`, "invalid_grant: Refresh token revoked"},
		{"nested error", `{"error":{"type":"rate_limit","message":"slow down"}}`, "rate_limit: slow down"},
		{"plain text", `bad gateway`, "bad gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := SendRequest(context.Background(), http.DefaultClient, http.MethodPost, server.URL, nil, nil, nil)
			var upstream *UpstreamError
			require.ErrorAs(t, err, &upstream)
			assert.Equal(t, http.StatusBadRequest, upstream.StatusCode)
			assert.Equal(t, tt.want, upstream.Message())
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
