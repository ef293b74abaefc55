package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/katori-hub/Cortex/internal/capture"
	"github.com/katori-hub/Cortex/internal/db"
	"github.com/katori-hub/Cortex/internal/graph"
)

const semanticFloor = 0.35 // looser than the auto-link threshold on purpose

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func queryLimit(r *http.Request, def, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := s.db.ListItems(db.ItemFilter{
		Status:   q.Get("status"),
		Platform: q.Get("platform"),
		Project:  q.Get("project"),
		Limit:    queryLimit(r, 50, 500),
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []db.Item{}
	}
	s.writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	item, err := s.db.GetItem(id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if item == nil {
		s.writeError(w, http.StatusNotFound, "item not found")
		return
	}
	conns, err := s.db.ConnectionsForItem(id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if conns == nil {
		conns = []db.Connection{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"item":        item,
		"connections": conns,
	})
}

type flagsRequest struct {
	IsRead   *bool `json:"is_read"`
	Starred  *bool `json:"starred"`
	Priority *bool `json:"priority"`
}

func (s *Server) handleItemFlags(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var req flagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := s.db.SetItemFlags(id, req.IsRead, req.Starred, req.Priority); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if _, err := s.db.AppendEvent(db.Event{
		EventType:      db.EventItemUpdated,
		EntityType:     "item",
		EntityID:       strconv.FormatInt(id, 10),
		Source:         "user",
		IdempotencyKey: "item_updated:" + strconv.FormatInt(id, 10) + ":" + uuid.NewString(),
	}); err != nil {
		s.logger.Error("appending item_updated event", "item_id", id, "error", err)
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		s.writeError(w, http.StatusBadRequest, "missing q")
		return
	}
	items, err := s.db.SearchItems(q, queryLimit(r, 20, 100))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []db.Item{}
	}
	s.writeJSON(w, http.StatusOK, items)
}

type semanticResult struct {
	Item       db.Item `json:"item"`
	Similarity float32 `json:"similarity"`
}

func (s *Server) handleSemanticSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		s.writeError(w, http.StatusBadRequest, "missing q")
		return
	}
	vec, err := s.embed.Embed(r.Context(), q)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	candidates, err := s.db.AllEmbeddings()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	matches := graph.FindSimilar(graph.Normalize(vec), candidates, 0, queryLimit(r, 20, 100), semanticFloor)

	results := make([]semanticResult, 0, len(matches))
	for _, m := range matches {
		item, err := s.db.GetItem(m.ItemID)
		if err != nil || item == nil {
			continue
		}
		results = append(results, semanticResult{Item: *item, Similarity: m.Similarity})
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.db.ListTasks(r.URL.Query().Get("status"), queryLimit(r, 50, 500))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tasks == nil {
		tasks = []db.Task{}
	}
	s.writeJSON(w, http.StatusOK, tasks)
}

type taskStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	var req taskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := s.db.SetTaskStatus(id, req.Status); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.db.AppendEvent(db.Event{
		EventType:      db.EventTaskUpdated,
		EntityType:     "task",
		EntityID:       strconv.FormatInt(id, 10),
		Source:         "user",
		IdempotencyKey: db.IdempotencyKey(db.EventTaskUpdated, "task", strconv.FormatInt(id, 10), "user") + ":" + req.Status,
	}); err != nil {
		s.logger.Error("appending task_updated event", "task_id", id, "error", err)
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.db.ListProjects()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if projects == nil {
		projects = []db.Project{}
	}
	s.writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.db.RecentEvents(queryLimit(r, 50, 500))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []db.Event{}
	}
	s.writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.db.CountItemsByStatus()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	events, _ := s.db.CountEvents()
	embeddings, _ := s.db.CountEmbeddings()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"items":      counts,
		"events":     events,
		"embeddings": embeddings,
	})
}

type captureRequest struct {
	URL             string            `json:"url"`
	Title           string            `json:"title"`
	Source          string            `json:"source"`
	PlatformPayload map[string]string `json:"platform_payload"`
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	itemID, err := s.intake.Capture(r.Context(), capture.Request{
		URL:             req.URL,
		Title:           req.Title,
		Source:          req.Source,
		PlatformPayload: req.PlatformPayload,
	})
	if err != nil {
		if errors.Is(err, capture.ErrInvalidURL) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Kick enrichment off the request path; the capture response never
	// waits for the pipeline.
	if s.queue != nil {
		go func() {
			if _, err := s.queue.ProcessQueue(context.Background()); err != nil {
				s.logger.Error("enrichment run failed", "error", err)
			}
		}()
	}
	s.writeJSON(w, http.StatusAccepted, map[string]int64{"item_id": itemID})
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid connection id")
		return
	}
	if err := s.engine.Dismiss(id); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
