package httpclient

import (
	"encoding/json"
	"fmt"
	"strings"
)

const maxBodyInError = 512

// UpstreamError represents an error returned by an upstream service
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("upstream error: status %d from %s: %s", e.StatusCode, e.URL, msg)
	}
	return fmt.Sprintf("upstream error: status %d from %s", e.StatusCode, e.URL)
}

// Message extracts the provider's own error text from the body. OAuth
// endpoints use {"error","error_description"}; others nest {"error":{"message"}}.
func (e *UpstreamError) Message() string {
	var oauthErr struct {
		Error            json.RawMessage `json:"error"`
		ErrorDescription string          `json:"error_description"`
		Message          string          `json:"message"`
	}
	if err := json.Unmarshal(e.Body, &oauthErr); err == nil {
		var code string
		var nested struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		}
		if json.Unmarshal(oauthErr.Error, &code) != nil && json.Unmarshal(oauthErr.Error, &nested) == nil {
			code = nested.Type
			if oauthErr.ErrorDescription == "" {
				oauthErr.ErrorDescription = nested.Message
			}
		}
		switch {
		case code != "" && oauthErr.ErrorDescription != "":
			return code + ": " + oauthErr.ErrorDescription
		case oauthErr.ErrorDescription != "":
			return oauthErr.ErrorDescription
		case code != "":
			return code
		case oauthErr.Message != "":
			return oauthErr.Message
		}
	}

	body := strings.TrimSpace(string(e.Body))
	if len(body) > maxBodyInError {
		body = body[:maxBodyInError] + "..."
	}
	return body
}
