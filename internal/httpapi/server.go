// Package httpapi exposes the Grimoire HTTP API: the NPC chat endpoint, the
// content generation endpoints, and CRUD access to the campaign document.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spielleiter/grimoire/internal/campaign"
	"github.com/spielleiter/grimoire/internal/chat"
	"github.com/spielleiter/grimoire/internal/generate"
	"github.com/spielleiter/grimoire/internal/observe"
)

// Server bundles the HTTP handlers with their dependencies.
type Server struct {
	store        campaign.Store
	orchestrator *chat.Orchestrator
	generator    *generate.Generator
	metrics      *observe.Metrics
}

// New creates a Server. All dependencies are required except metrics, which
// defaults to the package-level instruments.
func New(store campaign.Store, orchestrator *chat.Orchestrator, generator *generate.Generator, metrics *observe.Metrics) *Server {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Server{
		store:        store,
		orchestrator: orchestrator,
		generator:    generator,
		metrics:      metrics,
	}
}

// Router builds the chi router with all API routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(observe.Middleware(s.metrics))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/api/npc-chat", s.handleNPCChat)

	r.Post("/api/generate-npc", s.handleGenerateNPC)
	r.Post("/api/generate-monster", s.handleGenerateMonster)
	r.Post("/api/generate-character", s.handleGenerateCharacter)
	r.Post("/api/generate-table-rows", s.handleGenerateTableRows)

	r.Get("/api/data", s.handleGetData)
	r.Put("/api/data", s.handlePutData)
	s.mountEntityRoutes(r)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondDomainError maps the chat and generation error taxonomy onto HTTP
// statuses and the German user-facing messages the frontend displays.
func respondDomainError(w http.ResponseWriter, err error) {
	var chatVErr *chat.ValidationError
	var genVErr *generate.ValidationError
	var genErr *chat.GenerationError
	var parseErr *generate.ParseError
	var persistErr *chat.PersistenceError

	switch {
	case errors.As(err, &chatVErr):
		respondError(w, http.StatusBadRequest, "validation_error", chatVErr.Field+" ist erforderlich.")
	case errors.As(err, &genVErr):
		respondError(w, http.StatusBadRequest, "validation_error", genVErr.Field+" ist erforderlich.")
	case errors.Is(err, chat.ErrNPCNotFound), errors.Is(err, campaign.ErrNPCNotFound):
		respondError(w, http.StatusNotFound, "npc_not_found", "NPC nicht gefunden.")
	case errors.As(err, &genErr):
		switch genErr.Kind {
		case chat.GenerationUnauthenticated:
			respondError(w, http.StatusUnauthorized, string(genErr.Kind), "Ungültiger API-Schlüssel. Bitte überprüfe deinen API-Schlüssel.")
		case chat.GenerationQuotaExhausted:
			respondError(w, http.StatusTooManyRequests, string(genErr.Kind), "API-Kontingent erschöpft. Bitte versuche es später erneut.")
		case chat.GenerationModelUnavailable:
			respondError(w, http.StatusNotFound, string(genErr.Kind), "Modell nicht gefunden. Die API hat sich möglicherweise geändert.")
		case chat.GenerationEmptyResponse:
			respondError(w, http.StatusInternalServerError, string(genErr.Kind), "Leere Antwort von der KI. Bitte versuche es erneut.")
		default:
			respondError(w, http.StatusInternalServerError, string(genErr.Kind), "Generierung fehlgeschlagen. Bitte versuche es erneut.")
		}
	case errors.As(err, &parseErr):
		respondError(w, http.StatusInternalServerError, "parse_error", "KI-Antwort konnte nicht verarbeitet werden. Bitte versuche es erneut.")
	case errors.As(err, &persistErr):
		respondError(w, http.StatusInternalServerError, "persistence_error", "Speichern fehlgeschlagen. Bitte versuche es erneut.")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "Interner Fehler. Bitte versuche es erneut.")
	}
}
