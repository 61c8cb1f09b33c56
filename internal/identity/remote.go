package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RemoteVerifier calls the identity provider's verification endpoint. It is
// the fallback for token kinds the local verifier cannot check, such as
// opaque session tokens.
type RemoteVerifier struct {
	url    string
	client *http.Client
}

// NewRemoteVerifier bounds every verification call with the given timeout.
func NewRemoteVerifier(url string, timeout time.Duration) *RemoteVerifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemoteVerifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type remoteVerifyResponse struct {
	SignedIn bool           `json:"signed_in"`
	Claims   map[string]any `json:"claims"`
}

// Verify posts the token for remote validation.
func (v *RemoteVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	payload, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return Identity{}, fmt.Errorf("remote verification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(payload))
	if err != nil {
		return Identity{}, fmt.Errorf("remote verification: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("remote verification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("remote verification: provider returned %d", resp.StatusCode)
	}

	var body remoteVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Identity{}, fmt.Errorf("remote verification: decode response: %w", err)
	}
	if !body.SignedIn {
		return Identity{}, fmt.Errorf("remote verification: not signed in")
	}

	return identityFromClaims(body.Claims), nil
}
