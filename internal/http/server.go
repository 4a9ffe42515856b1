// Package http exposes the ledger, sentinel and advisor over a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"smartbudgets/internal/advisor"
	"smartbudgets/internal/auth"
	"smartbudgets/internal/cache"
	"smartbudgets/internal/ledger"
	"smartbudgets/internal/log"
)

const (
	requestsPerMinute = 60
	summaryCacheSize  = 256
	summaryCacheTTL   = 30 * time.Second
)

type Server struct {
	httpServer *http.Server
	ledger     *ledger.Service
	auth       *auth.Service
	bridge     *advisor.Bridge

	summaries *cache.LRUCache[summaryResponse]
	limiter   *rateLimiter

	shutdownOnce sync.Once
}

// NewServer wires the API routes. bridge may be nil when no advisor is
// configured; the chat endpoint then answers 503.
func NewServer(port string, ledgerSvc *ledger.Service, authSvc *auth.Service, bridge *advisor.Bridge) *Server {
	s := &Server{
		ledger:    ledgerSvc,
		auth:      authSvc,
		bridge:    bridge,
		summaries: cache.NewLRUCache[summaryResponse](summaryCacheSize, summaryCacheTTL),
		limiter:   newRateLimiter(requestsPerMinute),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)

	mux.HandleFunc("GET /api/state", s.authed(s.handleState))
	mux.HandleFunc("GET /api/summary", s.authed(s.handleSummary))

	mux.HandleFunc("POST /api/expenses", s.authed(s.handleAddExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.authed(s.handleDeleteExpense))

	mux.HandleFunc("PUT /api/budgets/{category}", s.authed(s.handleUpdateBudget))

	mux.HandleFunc("PUT /api/income", s.authed(s.handleUpdateIncome))
	mux.HandleFunc("POST /api/income/sources", s.authed(s.handleAddIncomeSource))
	mux.HandleFunc("DELETE /api/income/sources/{id}", s.authed(s.handleDeleteIncomeSource))

	mux.HandleFunc("POST /api/goals", s.authed(s.handleAddGoal))
	mux.HandleFunc("POST /api/goals/{id}/contributions", s.authed(s.handleContributeToGoal))
	mux.HandleFunc("DELETE /api/goals/{id}", s.authed(s.handleDeleteGoal))

	mux.HandleFunc("POST /api/reminders", s.authed(s.handleAddReminder))
	mux.HandleFunc("DELETE /api/reminders/{id}", s.authed(s.handleDeleteReminder))

	mux.HandleFunc("PUT /api/settings/currency", s.authed(s.handleUpdateCurrency))
	mux.HandleFunc("PUT /api/settings/theme", s.authed(s.handleUpdateTheme))
	mux.HandleFunc("PUT /api/settings/preferences", s.authed(s.handleUpdatePreferences))
	mux.HandleFunc("PUT /api/settings/autonomy", s.authed(s.handleSetAutonomy))

	mux.HandleFunc("POST /api/advisor/chat", s.authed(s.handleAdvisorChat))

	s.httpServer = &http.Server{
		Addr:         ":" + port,
		Handler:      s.withRequestLogging(s.withRateLimit(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	slog.Info("Starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		slog.Info("Shutting down HTTP server")
		s.limiter.stop()
		err = s.httpServer.Shutdown(ctx)
	})
	return err
}

// InvalidateSummary drops the cached summary for one user. Wired to the
// ledger's change callback so a mutation is never followed by a stale read.
func (s *Server) InvalidateSummary(userID string) {
	s.summaries.Delete(userID)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type contextKey string

const userIDKey contextKey = "user_id"

// authed resolves the bearer token to a user id and stores it in the request
// context. Anything behind it can assume userID(r) is non-empty.
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		uid, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, uid)))
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

func userID(r *http.Request) string {
	uid, _ := r.Context().Value(userIDKey).(string)
	return uid
}

// withRequestLogging adds a request id and security headers, then logs start
// and completion with the response status.
func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()

		w.Header().Set("X-Request-ID", requestID)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		slog.Debug("Request started",
			log.FieldComponent, log.ComponentHTTP,
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP(r))

		next.ServeHTTP(rw, r)

		slog.Info("Request completed",
			log.FieldComponent, log.ComponentHTTP,
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.status,
			log.FieldDuration, time.Since(start).Milliseconds())
	})
}

// withRateLimit throttles mutating requests per client IP.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			if !s.limiter.allow(clientIP(r)) {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}

// rateLimiter counts requests per client IP over a one minute window. Stale
// windows are swept by a background goroutine until stop is called.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	windows map[string]*rateWindow
	done    chan struct{}
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

func newRateLimiter(limit int) *rateLimiter {
	rl := &rateLimiter{
		limit:   limit,
		windows: make(map[string]*rateWindow),
		done:    make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.windows[ip]
	if !ok || now.After(w.resetAt) {
		rl.windows[ip] = &rateWindow{count: 1, resetAt: now.Add(time.Minute)}
		return true
	}
	if w.count >= rl.limit {
		return false
	}
	w.count++
	return true
}

func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for ip, w := range rl.windows {
				if now.After(w.resetAt) {
					delete(rl.windows, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) stop() {
	close(rl.done)
}
