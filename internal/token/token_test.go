package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"volley/internal/transport"
)

type fakeClient struct {
	mu      sync.Mutex
	calls   []transport.Request
	handler func(req transport.Request) (*transport.Response, error)
}

func (f *fakeClient) Do(ctx context.Context, req transport.Request) (*transport.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.handler(req)
}

func jsonResponse(status int, v any) (*transport.Response, error) {
	b, _ := json.Marshal(v)
	return &transport.Response{Status: status, Body: b}, nil
}

func TestRefreshSwapsPair(t *testing.T) {
	client := &fakeClient{handler: func(req transport.Request) (*transport.Response, error) {
		return jsonResponse(200, map[string]string{"access_token": "A2", "refresh_token": "R2"})
	}}
	m := NewManager(client, Spec{Endpoint: "http://auth/token", RefreshToken: "R1"})

	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if got := m.AccessToken(); got != "A2" {
		t.Fatalf("expected access token A2, got %q", got)
	}

	// The next refresh must carry the newly issued refresh token.
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh failed: %v", err)
	}
	body := client.calls[1].Body.(map[string]string)
	if body["refresh_token"] != "R2" {
		t.Fatalf("expected second refresh to use R2, got %q", body["refresh_token"])
	}
}

func TestRefreshTransportFailureKeepsPair(t *testing.T) {
	fail := false
	client := &fakeClient{handler: func(req transport.Request) (*transport.Response, error) {
		if fail {
			return nil, &transport.Error{Kind: transport.KindNetwork, Err: fmt.Errorf("connection refused")}
		}
		return jsonResponse(200, map[string]string{"access_token": "A2", "refresh_token": "R2"})
	}}
	m := NewManager(client, Spec{Endpoint: "http://auth/token", RefreshToken: "R1"})

	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	fail = true
	err := m.Refresh(context.Background())
	var rerr *RefreshError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RefreshError, got %v", err)
	}
	if got := m.AccessToken(); got != "A2" {
		t.Fatalf("failed refresh must keep previous pair, got %q", got)
	}
}

func TestRefreshExtractionFailureKeepsPair(t *testing.T) {
	responses := []map[string]string{
		{"access_token": "A2", "refresh_token": "R2"},
		{"access_token": "A3"}, // refresh token missing
	}
	i := 0
	client := &fakeClient{handler: func(req transport.Request) (*transport.Response, error) {
		resp := responses[i]
		i++
		return jsonResponse(200, resp)
	}}
	m := NewManager(client, Spec{Endpoint: "http://auth/token", RefreshToken: "R1"})

	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	err := m.Refresh(context.Background())
	var perr *PathError
	if !errors.As(err, &perr) {
		t.Fatalf("expected wrapped PathError, got %v", err)
	}
	if got := m.AccessToken(); got != "A2" {
		t.Fatalf("partial response must not update the pair, got %q", got)
	}
}

func TestRefreshNon200(t *testing.T) {
	client := &fakeClient{handler: func(req transport.Request) (*transport.Response, error) {
		return &transport.Response{Status: 500, Body: []byte("boom")}, nil
	}}
	m := NewManager(client, Spec{Endpoint: "http://auth/token", RefreshToken: "R1"})

	var rerr *RefreshError
	if err := m.Refresh(context.Background()); !errors.As(err, &rerr) {
		t.Fatalf("expected RefreshError, got %v", err)
	}
	if m.AccessToken() != "" {
		t.Fatal("access token must stay empty after failed refresh")
	}
}

func TestHeaderValue(t *testing.T) {
	client := &fakeClient{handler: func(req transport.Request) (*transport.Response, error) {
		return jsonResponse(200, map[string]string{"access_token": "A2", "refresh_token": "R2"})
	}}
	m := NewManager(client, Spec{Endpoint: "http://auth/token", RefreshToken: "R1"})

	if _, _, ok := m.HeaderValue(); ok {
		t.Fatal("no header expected before first refresh")
	}

	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	key, value, ok := m.HeaderValue()
	if !ok || key != "Authorization" || value != "Bearer A2" {
		t.Fatalf("unexpected header %q: %q (ok=%v)", key, value, ok)
	}
}

func TestHeaderValueCustomSlot(t *testing.T) {
	client := &fakeClient{handler: func(req transport.Request) (*transport.Response, error) {
		return jsonResponse(200, map[string]string{"access_token": "A2", "refresh_token": "R2"})
	}}
	m := NewManager(client, Spec{
		Endpoint:     "http://auth/token",
		RefreshToken: "R1",
		Header:       "X-Api-Token",
		Scheme:       "Token",
	})
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	key, value, _ := m.HeaderValue()
	if key != "X-Api-Token" || value != "Token A2" {
		t.Fatalf("unexpected header %q: %q", key, value)
	}
}

func TestRefreshCustomPaths(t *testing.T) {
	client := &fakeClient{handler: func(req transport.Request) (*transport.Response, error) {
		return jsonResponse(200, map[string]any{
			"data": map[string]any{
				"access":  "A9",
				"refresh": "R9",
			},
		})
	}}
	m := NewManager(client, Spec{
		Endpoint:         "http://auth/token",
		RefreshToken:     "R1",
		AccessTokenPath:  Path{"data", "access"},
		RefreshTokenPath: Path{"data", "refresh"},
	})
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if m.AccessToken() != "A9" {
		t.Fatalf("expected A9, got %q", m.AccessToken())
	}
}
