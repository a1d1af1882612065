package httpapi

import (
	"net/http"
	"time"

	"taskboard/internal/model"
)

type checklistItemJSON struct {
	ID        uint      `json:"id"`
	TaskID    uint      `json:"task_id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

func toChecklistItemJSON(item model.ChecklistItem) checklistItemJSON {
	return checklistItemJSON{
		ID: item.ID, TaskID: item.TaskID, Text: item.Text,
		Completed: item.Completed, CreatedAt: item.CreatedAt,
	}
}

func (s *Server) handleListChecklist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	items, err := s.checklists.ListForTask(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]checklistItemJSON, 0, len(items))
	for _, item := range items {
		out = append(out, toChecklistItemJSON(item))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddChecklistItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	item, err := s.checklists.Add(r.Context(), actorFrom(r), id, body.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toChecklistItemJSON(*item))
}

func (s *Server) handleUpdateChecklistItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Completed bool `json:"completed"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	item, err := s.checklists.SetCompleted(r.Context(), actorFrom(r), id, body.Completed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChecklistItemJSON(*item))
}

func (s *Server) handleDeleteChecklistItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.checklists.Delete(r.Context(), actorFrom(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
