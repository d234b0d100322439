package target

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// SeedRefreshToken is the refresh token the server accepts on its first
// /token call. Point a run's token.refresh_token at this value.
const SeedRefreshToken = "seed-refresh"

type ServerConfig struct {
	Port int
}

// Handler is a practice target for trying out runs locally: plain endpoints
// plus a bearer-protected one with a rotating token pair behind /token.
type Handler struct {
	mux *http.ServeMux

	mu      sync.Mutex
	n       int
	access  string
	refresh string
}

func NewHandler() *Handler {
	h := &Handler{
		mux:     http.NewServeMux(),
		refresh: SeedRefreshToken,
	}

	// 1. Always succeeds
	h.mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	})

	// 2. Random failures, good for exercising condition rules
	h.mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		rnd := rand.Float32()
		if rnd < 0.2 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("internal error"))
		} else if rnd < 0.4 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("too many requests"))
		} else {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("success"))
		}
	})

	// 3. Slow responses (300-800ms)
	h.mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		jitter := time.Duration(rand.Intn(500)+300) * time.Millisecond
		time.Sleep(jitter)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("slow success"))
	})

	// 4. Bearer-protected endpoint, 401 until a token from /token is used
	h.mux.HandleFunc("/secure", h.handleSecure)

	// 5. Token endpoint with a rotating access/refresh pair
	h.mux.HandleFunc("/token", h.handleToken)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleSecure(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	access := h.access
	h.mu.Unlock()

	if access == "" || r.Header.Get("Authorization") != "Bearer "+access {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("unauthorized"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("authorized"))
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		GrantType    string `json:"grant_type"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad request"))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if req.GrantType != "refresh_token" || req.RefreshToken != h.refresh {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("invalid refresh token"))
		return
	}

	h.n++
	h.access = fmt.Sprintf("access-%d", h.n)
	h.refresh = fmt.Sprintf("refresh-%d", h.n)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"access_token":  h.access,
		"refresh_token": h.refresh,
	})
}

// Start runs the practice server in the background.
func Start(cfg ServerConfig) {
	addr := fmt.Sprintf(":%d", cfg.Port)
	fmt.Printf("👻 Practice target running on http://localhost%s\n", addr)
	fmt.Println("   Endpoints: /ok, /flaky, /slow, /secure, /token")
	fmt.Printf("   Seed refresh token: %q\n", SeedRefreshToken)

	server := &http.Server{
		Addr:    addr,
		Handler: NewHandler(),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Server failed: %v\n", err)
		}
	}()
}
