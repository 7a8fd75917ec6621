package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/spielleiter/grimoire/internal/campaign"
)

// handleGetData returns the whole campaign document.
func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Load(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", "Daten konnten nicht geladen werden.")
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// partialDocument mirrors campaign.Document with pointer fields so a bulk
// update only touches the collections the request actually carries.
type partialDocument struct {
	WorldDescription *string                 `json:"worldDescription"`
	Areas            *[]campaign.Area        `json:"areas"`
	Monsters         *[]campaign.Monster     `json:"monsters"`
	Characters       *[]campaign.Character   `json:"characters"`
	NPCs             *[]campaign.NPC         `json:"npcs"`
	Tables           *[]campaign.RandomTable `json:"tables"`
	MonsterTypes     *[]string               `json:"monsterTypes"`
}

// handlePutData bulk-updates the campaign document. Absent fields keep their
// stored values.
func (s *Server) handlePutData(w http.ResponseWriter, r *http.Request) {
	var partial partialDocument
	if err := decodeJSON(r, &partial); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Ungültiger Anfragetext.")
		return
	}

	doc, err := s.store.Load(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", "Daten konnten nicht geladen werden.")
		return
	}

	if partial.WorldDescription != nil {
		doc.WorldDescription = *partial.WorldDescription
	}
	if partial.Areas != nil {
		doc.Areas = *partial.Areas
	}
	if partial.Monsters != nil {
		doc.Monsters = *partial.Monsters
	}
	if partial.Characters != nil {
		doc.Characters = *partial.Characters
	}
	if partial.NPCs != nil {
		doc.NPCs = *partial.NPCs
	}
	if partial.Tables != nil {
		doc.Tables = *partial.Tables
	}
	if partial.MonsterTypes != nil {
		doc.MonsterTypes = *partial.MonsterTypes
	}

	if err := s.store.Save(r.Context(), doc); err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", "Daten konnten nicht gespeichert werden.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "data": doc})
}

// entityRoutes implements the CRUD handler set for one entity collection of
// the campaign document. All mutations go through load-modify-save on the
// whole document.
type entityRoutes[T any] struct {
	server *Server

	// listKey and itemKey name the JSON envelope fields ("npcs" / "npc").
	listKey string
	itemKey string

	slice func(*campaign.Document) *[]T
	getID func(*T) string
	setID func(*T, string)

	// validate, when non-nil, vets a created or updated entity.
	validate func(*T) error
}

func (e entityRoutes[T]) mount(r chi.Router, path string) {
	r.Route(path, func(r chi.Router) {
		r.Get("/", e.handleGet)
		r.Post("/", e.handlePost)
		r.Put("/", e.handlePut)
		r.Delete("/", e.handleDelete)
	})
}

func (e entityRoutes[T]) handleGet(w http.ResponseWriter, r *http.Request) {
	doc, err := e.server.store.Load(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", "Daten konnten nicht geladen werden.")
		return
	}

	items := *e.slice(doc)
	if id := r.URL.Query().Get("id"); id != "" {
		for i := range items {
			if e.getID(&items[i]) == id {
				respondJSON(w, http.StatusOK, map[string]any{e.itemKey: items[i]})
				return
			}
		}
		respondError(w, http.StatusNotFound, "not_found", "Eintrag nicht gefunden.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{e.listKey: items})
}

func (e entityRoutes[T]) handlePost(w http.ResponseWriter, r *http.Request) {
	var item T
	if err := decodeJSON(r, &item); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Ungültiger Anfragetext.")
		return
	}
	if e.getID(&item) == "" {
		e.setID(&item, uuid.NewString())
	}
	if e.validate != nil {
		if err := e.validate(&item); err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
	}

	doc, err := e.server.store.Load(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", "Daten konnten nicht geladen werden.")
		return
	}

	items := e.slice(doc)
	for i := range *items {
		if e.getID(&(*items)[i]) == e.getID(&item) {
			respondError(w, http.StatusBadRequest, "duplicate_id", "Eintrag mit dieser ID existiert bereits.")
			return
		}
	}
	*items = append(*items, item)

	if err := e.server.store.Save(r.Context(), doc); err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", "Daten konnten nicht gespeichert werden.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, e.itemKey: item})
}

// handlePut applies a partial update: the request body must carry the entity
// ID, and only the fields present in the body change. Fields the body omits,
// including an NPC's conversational memory, keep their stored values.
func (e entityRoutes[T]) handlePut(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Ungültiger Anfragetext.")
		return
	}

	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || probe.ID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "id ist erforderlich.")
		return
	}

	doc, err := e.server.store.Load(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", "Daten konnten nicht geladen werden.")
		return
	}

	items := e.slice(doc)
	idx := -1
	for i := range *items {
		if e.getID(&(*items)[i]) == probe.ID {
			idx = i
			break
		}
	}
	if idx == -1 {
		respondError(w, http.StatusNotFound, "not_found", "Eintrag nicht gefunden.")
		return
	}

	updated := (*items)[idx]
	if err := json.Unmarshal(body, &updated); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Ungültiger Anfragetext.")
		return
	}
	e.setID(&updated, probe.ID)
	if e.validate != nil {
		if err := e.validate(&updated); err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
	}
	(*items)[idx] = updated

	if err := e.server.store.Save(r.Context(), doc); err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", "Daten konnten nicht gespeichert werden.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (e entityRoutes[T]) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "id ist erforderlich.")
		return
	}

	doc, err := e.server.store.Load(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", "Daten konnten nicht geladen werden.")
		return
	}

	items := e.slice(doc)
	idx := -1
	for i := range *items {
		if e.getID(&(*items)[i]) == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		respondError(w, http.StatusNotFound, "not_found", "Eintrag nicht gefunden.")
		return
	}
	*items = append((*items)[:idx], (*items)[idx+1:]...)

	if err := e.server.store.Save(r.Context(), doc); err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", "Daten konnten nicht gespeichert werden.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// mountEntityRoutes registers the CRUD routes for every entity collection.
func (s *Server) mountEntityRoutes(r chi.Router) {
	entityRoutes[campaign.Area]{
		server: s, listKey: "areas", itemKey: "area",
		slice: func(d *campaign.Document) *[]campaign.Area { return &d.Areas },
		getID: func(a *campaign.Area) string { return a.ID },
		setID: func(a *campaign.Area, id string) { a.ID = id },
	}.mount(r, "/api/data/areas")

	entityRoutes[campaign.Monster]{
		server: s, listKey: "monsters", itemKey: "monster",
		slice: func(d *campaign.Document) *[]campaign.Monster { return &d.Monsters },
		getID: func(m *campaign.Monster) string { return m.ID },
		setID: func(m *campaign.Monster, id string) { m.ID = id },
	}.mount(r, "/api/data/monsters")

	entityRoutes[campaign.Character]{
		server: s, listKey: "characters", itemKey: "character",
		slice: func(d *campaign.Document) *[]campaign.Character { return &d.Characters },
		getID: func(c *campaign.Character) string { return c.ID },
		setID: func(c *campaign.Character, id string) { c.ID = id },
	}.mount(r, "/api/data/characters")

	entityRoutes[campaign.NPC]{
		server: s, listKey: "npcs", itemKey: "npc",
		slice:    func(d *campaign.Document) *[]campaign.NPC { return &d.NPCs },
		getID:    func(n *campaign.NPC) string { return n.ID },
		setID:    func(n *campaign.NPC, id string) { n.ID = id },
		validate: func(n *campaign.NPC) error { return n.Validate() },
	}.mount(r, "/api/data/npcs")

	entityRoutes[campaign.RandomTable]{
		server: s, listKey: "tables", itemKey: "table",
		slice: func(d *campaign.Document) *[]campaign.RandomTable { return &d.Tables },
		getID: func(t *campaign.RandomTable) string { return t.ID },
		setID: func(t *campaign.RandomTable, id string) { t.ID = id },
	}.mount(r, "/api/data/tables")
}
