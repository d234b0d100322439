package token

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"volley/internal/transport"
)

// Spec describes the refresh endpoint and where the new token pair lives
// inside its JSON response.
type Spec struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	RefreshToken     string
	AccessTokenPath  Path
	RefreshTokenPath Path

	// Header slot the access token is injected into. Defaults to
	// "Authorization" with a "Bearer" scheme.
	Header string
	Scheme string
}

// RefreshError means the token pair could not be renewed. The previous pair
// is left untouched.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string { return fmt.Sprintf("token refresh failed: %v", e.Err) }
func (e *RefreshError) Unwrap() error { return e.Err }

// Manager owns the current access/refresh token pair. Refresh is purely
// reactive: it is called when the engine sees a 401-class signal, never on a
// timer or expiry guess.
type Manager struct {
	client transport.Client
	spec   Spec

	mu      sync.Mutex
	access  string
	refresh string
}

func NewManager(client transport.Client, spec Spec) *Manager {
	if spec.Header == "" {
		spec.Header = "Authorization"
	}
	if spec.Scheme == "" {
		spec.Scheme = "Bearer"
	}
	if len(spec.AccessTokenPath) == 0 {
		spec.AccessTokenPath = Path{"access_token"}
	}
	if len(spec.RefreshTokenPath) == 0 {
		spec.RefreshTokenPath = Path{"refresh_token"}
	}
	return &Manager{
		client:  client,
		spec:    spec,
		refresh: spec.RefreshToken,
	}
}

// AccessToken returns the current access token, empty until the first
// successful refresh.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access
}

// HeaderValue returns the header slot and value to inject into a request.
// ok is false while no access token has been obtained yet.
func (m *Manager) HeaderValue() (key, value string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.access == "" {
		return "", "", false
	}
	value = m.access
	if m.spec.Scheme != "" {
		value = m.spec.Scheme + " " + m.access
	}
	return m.spec.Header, value, true
}

// Refresh calls the token endpoint with the current refresh token and swaps
// in the new pair. On any failure the stored pair is left unchanged; there is
// no partial update.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	refresh := m.refresh
	m.mu.Unlock()

	resp, err := m.client.Do(ctx, transport.Request{
		Method: "POST",
		URL:    m.spec.Endpoint,
		Body: map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": refresh,
			"client_id":     m.spec.ClientID,
			"client_secret": m.spec.ClientSecret,
		},
	})
	if err != nil {
		return &RefreshError{Err: err}
	}
	if resp.Status != 200 {
		return &RefreshError{Err: fmt.Errorf("endpoint returned status %d", resp.Status)}
	}

	var tree any
	if err := json.Unmarshal(resp.Body, &tree); err != nil {
		return &RefreshError{Err: fmt.Errorf("decode response: %w", err)}
	}

	access, err := Extract(tree, m.spec.AccessTokenPath)
	if err != nil {
		return &RefreshError{Err: fmt.Errorf("access token: %w", err)}
	}
	newRefresh, err := Extract(tree, m.spec.RefreshTokenPath)
	if err != nil {
		return &RefreshError{Err: fmt.Errorf("refresh token: %w", err)}
	}

	m.mu.Lock()
	m.access = access
	m.refresh = newRefresh
	m.mu.Unlock()
	return nil
}
