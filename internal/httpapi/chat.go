package httpapi

import (
	"errors"
	"net/http"
)

type npcChatRequest struct {
	NPCID   string `json:"npcId"`
	Message string `json:"message"`
}

type npcChatResponse struct {
	Response string `json:"response"`
	NPCName  string `json:"npcName"`
}

// handleNPCChat processes one chat turn: the player speaks to an NPC and
// gets the NPC's reply back. Memory updates and compaction happen inside the
// orchestrator before the reply is returned.
func (s *Server) handleNPCChat(w http.ResponseWriter, r *http.Request) {
	var req npcChatRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", "Ungültiger Anfragetext.")
		return
	}

	result, err := s.orchestrator.HandleTurn(r.Context(), req.NPCID, req.Message)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, npcChatResponse{
		Response: result.Reply,
		NPCName:  result.NPCName,
	})
}
