package httpapi

import (
	"errors"
	"net/http"

	"github.com/spielleiter/grimoire/internal/generate"
)

// The generation endpoints return the generated entity without persisting
// it; the frontend reviews the result and saves it through the data API.

func (s *Server) handleGenerateNPC(w http.ResponseWriter, r *http.Request) {
	var req generate.NPCRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", "Ungültiger Anfragetext.")
		return
	}

	doc, err := s.store.Load(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", "Daten konnten nicht geladen werden.")
		return
	}

	npc, err := s.generator.NPC(r.Context(), doc, req)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"npc": npc})
}

func (s *Server) handleGenerateMonster(w http.ResponseWriter, r *http.Request) {
	var req generate.MonsterRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", "Ungültiger Anfragetext.")
		return
	}

	doc, err := s.store.Load(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", "Daten konnten nicht geladen werden.")
		return
	}

	monster, err := s.generator.Monster(r.Context(), doc, req)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"monster": monster})
}

func (s *Server) handleGenerateCharacter(w http.ResponseWriter, r *http.Request) {
	var req generate.CharacterRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", "Ungültiger Anfragetext.")
		return
	}

	character, err := s.generator.Character(r.Context(), req)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"character": character})
}

func (s *Server) handleGenerateTableRows(w http.ResponseWriter, r *http.Request) {
	var req generate.TableRowsRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", "Ungültiger Anfragetext.")
		return
	}

	doc, err := s.store.Load(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", "Daten konnten nicht geladen werden.")
		return
	}

	rows, err := s.generator.TableRows(r.Context(), doc, req)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"rows": rows})
}
