package oauth

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"coaclient/internal/credstore"
	"coaclient/pkg/logging"
)

//go:embed templates/callback_success.html
var callbackSuccessHTML string

//go:embed templates/callback_error.html
var callbackErrorHTML string

var (
	successTemplate = template.Must(template.New("success").Parse(callbackSuccessHTML))
	errorTemplate   = template.Must(template.New("error").Parse(callbackErrorHTML))
)

// AuthOutcome is the result of one authorization callback: either tokens were
// exchanged and persisted for the named client, or Err explains why not.
type AuthOutcome struct {
	ClientName string
	ClientID   string
	Err        error
}

// CallbackServer is the local HTTP listener that captures the authorization
// code the provider redirects back after user consent. The handler performs
// the code-for-token exchange synchronously and persists the result; it has
// no caller to report failures to, so they are logged and published on the
// outcome channel only.
//
// Start and Stop are idempotent. The server handles one callback at a time;
// at most one authorization flow is expected in flight per process.
type CallbackServer struct {
	port      int
	store     credstore.Store
	exchanger *ExchangeClient

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener

	// handlerMu serializes callback processing.
	handlerMu sync.Mutex

	outcomeCh chan AuthOutcome
}

// NewCallbackServer creates a callback server on the given port. Port 0
// selects the default registered with the provider.
func NewCallbackServer(port int, store credstore.Store, exchanger *ExchangeClient) *CallbackServer {
	if port == 0 {
		port = DefaultCallbackPort
	}
	return &CallbackServer{
		port:      port,
		store:     store,
		exchanger: exchanger,
		outcomeCh: make(chan AuthOutcome, 1),
	}
}

// Start binds the listener and begins serving callbacks. Starting a running
// server is a no-op, not an error.
func (s *CallbackServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		logging.Info("Callback", "Listener already running on port %d", s.port)
		return nil
	}

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return &ListenerStartError{Port: s.port, Err: err}
	}

	// Drop an undelivered outcome from an earlier flow so waiters only see
	// results produced after this start.
	select {
	case <-s.outcomeCh:
	default:
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handleCallback)

	s.listener = listener
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func(server *http.Server, l net.Listener) {
		if err := server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Callback", err, "Callback listener stopped unexpectedly")
		}
	}(s.server, listener)

	logging.Info("Callback", "Listener started on port %d", s.port)
	return nil
}

// Running reports whether the listener is currently serving.
func (s *CallbackServer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server != nil
}

// Stop shuts the listener down. Stopping a stopped server is a no-op.
func (s *CallbackServer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(ctx)
	_ = s.listener.Close()

	s.server = nil
	s.listener = nil
	logging.Info("Callback", "Listener stopped")
}

// Port returns the configured callback port.
func (s *CallbackServer) Port() int {
	return s.port
}

// RedirectBase returns the callback URI up to and including "?client_id=",
// matching the redirect URI registered with the provider.
func (s *CallbackServer) RedirectBase() string {
	return fmt.Sprintf("http://localhost:%d/callback?client_id=", s.port)
}

// WaitForOutcome blocks until an authorization callback has been fully
// processed or the context is done. The listener keeps running either way.
func (s *CallbackServer) WaitForOutcome(ctx context.Context) (AuthOutcome, error) {
	select {
	case outcome := <-s.outcomeCh:
		return outcome, nil
	case <-ctx.Done():
		return AuthOutcome{}, ctx.Err()
	}
}

// handleCallback processes the provider redirect. The query parameters are
// looked up by name; reordered parameters are fine, missing ones are rejected
// without touching program state.
func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()

	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")

	query := r.URL.Query()
	clientID := query.Get("client_id")
	code := query.Get("code")

	if clientID == "" || code == "" {
		logging.Error("Callback", nil, "Malformed callback: client_id or code missing from query")
		http.Error(w, "client_id and code query parameters are required", http.StatusBadRequest)
		return
	}

	reg, ok, err := s.store.Get(clientID)
	if err == nil && !ok {
		err = fmt.Errorf("%w: client id %s", ErrRegistrationNotFound, clientID)
	}
	if err != nil {
		logging.Error("Callback", err, "Cannot resolve registration for callback")
		s.renderError(w, "No matching client registration was found for this callback.")
		s.publish(AuthOutcome{ClientID: clientID, Err: err})
		return
	}

	tokens, err := s.exchanger.Exchange(r.Context(), reg, code)
	if err != nil {
		var exchangeErr *TokenExchangeError
		if errors.As(err, &exchangeErr) && exchangeErr.Body != "" {
			logging.Error("Callback", err, "Auth tokens are not generated: %s", exchangeErr.Body)
		} else {
			logging.Error("Callback", err, "Auth tokens are not generated")
		}
		s.renderError(w, "The authorization code could not be exchanged for tokens.")
		s.publish(AuthOutcome{ClientName: reg.Name, ClientID: clientID, Err: err})
		return
	}

	if err := s.store.SaveTokens(reg.Name, tokens); err != nil {
		logging.Error("Callback", err, "Failed to persist auth tokens for %s", reg.Name)
		s.renderError(w, "Tokens were issued but could not be saved.")
		s.publish(AuthOutcome{ClientName: reg.Name, ClientID: clientID, Err: err})
		return
	}

	logging.Info("Callback", "Auth tokens successfully saved for %s", reg.Name)
	s.renderSuccess(w, reg.Name)
	s.publish(AuthOutcome{ClientName: reg.Name, ClientID: clientID})
}

func (s *CallbackServer) renderSuccess(w http.ResponseWriter, clientName string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := map[string]string{"ClientName": clientName}
	if err := successTemplate.Execute(w, data); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *CallbackServer) renderError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := map[string]string{"Message": message}
	if err := errorTemplate.Execute(w, data); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// publish delivers an outcome without blocking; if nobody is waiting the
// previous undelivered outcome is kept.
func (s *CallbackServer) publish(outcome AuthOutcome) {
	select {
	case s.outcomeCh <- outcome:
	default:
	}
}
