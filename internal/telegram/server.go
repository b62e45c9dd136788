package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/zombor/ledger-bot/internal/conversation"
)

// secretHeader carries the secret registered with setWebhook.
const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Handler consumes inbound messages.
type Handler interface {
	Handle(ctx context.Context, msg conversation.Message)
}

// Server receives webhook deliveries.
type Server struct {
	handler Handler
	secret  string
	router  chi.Router
}

// NewServer creates a Server. metrics may be nil.
func NewServer(handler Handler, secret string, metrics http.Handler) *Server {
	s := &Server{
		handler: handler,
		secret:  secret,
		router:  chi.NewRouter(),
	}
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", metrics)
	}
	s.router.Post("/", s.handleUpdate)
	s.router.Post("/webhook", s.handleUpdate)
	return s
}

// handleUpdate runs the update to completion before replying. Malformed
// updates are acknowledged so Telegram does not redeliver them.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if s.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(secretHeader)), []byte(s.secret)) != 1 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		slog.Warn("decoding update", "error", err)
		writeOK(w)
		return
	}

	if msg, ok := MessageFromUpdate(update); ok {
		s.handler.Handle(context.WithoutCancel(r.Context()), msg)
	} else {
		slog.Debug("skipping update", "update_id", update.UpdateID)
	}
	writeOK(w)
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]bool{"ok": true}); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start serves on addr until ctx is cancelled, then drains in-flight updates.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
