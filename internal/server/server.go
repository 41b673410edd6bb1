// Package server is the HTTP boundary. It authenticates projects, enforces
// request hygiene limits and maps guard rejections onto status codes without
// leaking detection details.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/memberwise-ai/memberwise/internal/auth"
	"github.com/memberwise-ai/memberwise/internal/config"
	"github.com/memberwise-ai/memberwise/internal/guard"
	"github.com/memberwise-ai/memberwise/internal/insight"
	"github.com/memberwise-ai/memberwise/internal/ratelimit"
)

// Server wires the HTTP routes for memberwise.
type Server struct {
	mux      *http.ServeMux
	cfg      *config.Config
	auth     *auth.Auth
	insights *insight.Service
}

// New registers all routes.
func New(cfg *config.Config, authz *auth.Auth, insights *insight.Service) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		cfg:      cfg,
		auth:     authz,
		insights: insights,
	}

	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/v1/insights", s.handleInsights)
	return s
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type insightRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token, ok := parseBearerToken(r.Header.Get("Authorization"))
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing or malformed Authorization header", "auth_error")
		return
	}
	project, ok := s.auth.Lookup(token)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid API key", "auth_error")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxRequestBodyBytes)
	var reqBody insightRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", "request_error")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON body", "request_error")
		return
	}

	ins, err := s.insights.Analyze(r.Context(), reqBody.Question, project)
	if err != nil {
		s.writeRejection(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ins); err != nil {
		log.Printf("failed to write insight response: %v", err)
	}
}

// writeRejection maps guard errors onto responses. Validation reasons are
// safe to echo; injection and personal-data rejections stay generic so the
// response never teaches a probing caller which pattern fired.
func (s *Server) writeRejection(w http.ResponseWriter, err error) {
	var le *ratelimit.LimitError
	var ve *guard.ValidationError
	var ie *guard.InjectionError
	var pe *guard.PIIError
	switch {
	case errors.As(err, &le):
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded, try again later", "rate_limit_error")
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, "Invalid question: "+strings.Join(ve.Reasons, "; "), "validation_error")
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, "This question cannot be processed", "policy_error")
	case errors.As(err, &pe):
		writeError(w, http.StatusBadRequest, "Questions must not contain personal data; please rephrase", "policy_error")
	default:
		log.Printf("unexpected analyze error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal error", "internal_error")
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func writeError(w http.ResponseWriter, status int, message, typ string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{Message: message, Type: typ}})
}

// parseBearerToken extracts the token from an Authorization: Bearer header.
func parseBearerToken(h string) (string, bool) {
	if h == "" {
		return "", false
	}
	parts := strings.Fields(h)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
