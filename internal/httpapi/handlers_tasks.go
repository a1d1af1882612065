package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"taskboard/internal/model"
	"taskboard/internal/service"
)

type taskJSON struct {
	ID          uint       `json:"id"`
	Text        string     `json:"text"`
	Date        string     `json:"date,omitempty"`
	Time        string     `json:"time,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CreatorID   uint       `json:"creator_id"`
	AssigneeID  *uint      `json:"assignee_id,omitempty"`
	Visibility  string     `json:"visibility"`
	Recurrence  string     `json:"recurrence,omitempty"`
	ParentID    *uint      `json:"parent_id,omitempty"`
}

func toTaskJSON(t model.Task) taskJSON {
	out := taskJSON{
		ID:          t.ID,
		Text:        t.Text,
		Time:        t.TimeOfDay,
		Completed:   t.Completed,
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
		CreatorID:   t.CreatorID,
		AssigneeID:  t.AssigneeID,
		Visibility:  t.Visibility,
		Recurrence:  t.Recurrence,
		ParentID:    t.ParentID,
	}
	if t.Date != nil {
		out.Date = t.Date.Format(time.DateOnly)
	}
	return out
}

func toTaskListJSON(tasks []model.Task) []taskJSON {
	out := make([]taskJSON, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskJSON(t))
	}
	return out
}

type createTaskRequest struct {
	Text       string `json:"text"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Visibility string `json:"visibility"`
	AssigneeID *uint  `json:"assignee_id"`
	Recurrence string `json:"recurrence"`
}

type updateTaskRequest struct {
	Completed  *bool   `json:"completed"`
	Text       *string `json:"text"`
	Date       *string `json:"date"`
	Time       *string `json:"time"`
	Visibility *string `json:"visibility"`
	AssigneeID *uint   `json:"assignee_id"`
	Unassign   bool    `json:"unassign"`
	Recurrence *string `json:"recurrence"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	completed := r.URL.Query().Get("completed") == "true"
	tasks, err := s.tasks.List(r.Context(), actorFrom(r), completed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskListJSON(tasks))
}

func (s *Server) handleListByDate(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse(time.DateOnly, chi.URLParam(r, "date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date must be YYYY-MM-DD"})
		return
	}
	tasks, err := s.tasks.ListByDate(r.Context(), actorFrom(r), date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskListJSON(tasks))
}

func (s *Server) handleListDates(w http.ResponseWriter, r *http.Request) {
	var monthHint *time.Time
	if raw := r.URL.Query().Get("month"); raw != "" {
		m, err := time.Parse("2006-01", raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "month must be YYYY-MM"})
			return
		}
		monthHint = &m
	}
	dates, err := s.tasks.ListDates(r.Context(), actorFrom(r), monthHint)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(time.DateOnly))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	task, err := s.tasks.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskJSON(*task))
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var body createTaskRequest
	if !decodeBody(w, r, &body) {
		return
	}
	input := service.TaskInput{
		Text:       body.Text,
		TimeOfDay:  body.Time,
		Visibility: body.Visibility,
		AssigneeID: body.AssigneeID,
		Recurrence: body.Recurrence,
	}
	if body.Date != "" {
		d, err := time.Parse(time.DateOnly, body.Date)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date must be YYYY-MM-DD"})
			return
		}
		input.Date = &d
	}
	task, err := s.tasks.Create(r.Context(), actorFrom(r), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskJSON(*task))
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body updateTaskRequest
	if !decodeBody(w, r, &body) {
		return
	}
	upd := service.TaskUpdate{
		Completed:  body.Completed,
		Text:       body.Text,
		TimeOfDay:  body.Time,
		Visibility: body.Visibility,
		AssigneeID: body.AssigneeID,
		Unassign:   body.Unassign,
		Recurrence: body.Recurrence,
	}
	if body.Date != nil {
		d, err := time.Parse(time.DateOnly, *body.Date)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date must be YYYY-MM-DD"})
			return
		}
		upd.Date = &d
	}
	task, err := s.tasks.Update(r.Context(), actorFrom(r), id, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskJSON(*task))
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	scope := service.DeleteSingle
	if r.URL.Query().Get("scope") == string(service.DeleteAll) {
		scope = service.DeleteAll
	}
	if err := s.tasks.Delete(r.Context(), actorFrom(r), id, scope); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type completionRequestJSON struct {
	ID          uint      `json:"id"`
	TaskID      uint      `json:"task_id"`
	RequesterID uint      `json:"requester_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func toCompletionRequestJSON(req model.CompletionRequest) completionRequestJSON {
	return completionRequestJSON{
		ID: req.ID, TaskID: req.TaskID, RequesterID: req.RequesterID,
		Status: req.Status, CreatedAt: req.CreatedAt,
	}
}

func (s *Server) handleRequestCompletion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, err := s.tasks.RequestCompletion(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCompletionRequestJSON(*req))
}

func (s *Server) handleListCompletionRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.tasks.ListCompletionRequests(r.Context(), actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]completionRequestJSON, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, toCompletionRequestJSON(req))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) resolveCompletion(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := s.tasks.ResolveCompletion(r.Context(), actorFrom(r), id, approve); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusNoContent, nil)
	}
}

// pathID parses the {id} route parameter.
func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return 0, false
	}
	return uint(id), true
}
