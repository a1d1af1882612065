package httpapi

import (
	"net/http"
	"time"

	"taskboard/internal/model"
)

type credentialsRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type userJSON struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}

func toUserJSON(u model.User) userJSON {
	return userJSON{ID: u.ID, Name: u.Name, IsAdmin: u.IsAdmin}
}

type accountRequestJSON struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if !decodeBody(w, r, &body) {
		return
	}
	req, err := s.auth.SignUp(r.Context(), body.Name, body.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, accountRequestJSON{
		ID: req.ID, Name: req.Name, Status: req.Status, CreatedAt: req.CreatedAt,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if !decodeBody(w, r, &body) {
		return
	}
	session, user, err := s.auth.Login(r.Context(), body.Name, body.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       toUserJSON(*user),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), bearerToken(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toUserJSON(actorFrom(r)))
}

func (s *Server) handleLinkTelegram(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ChatID int64 `json:"chat_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.auth.LinkTelegramChat(r.Context(), actorFrom(r), body.ChatID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListAccountRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.auth.ListAccountRequests(r.Context(), actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]accountRequestJSON, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, accountRequestJSON{
			ID: req.ID, Name: req.Name, Status: req.Status, CreatedAt: req.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) resolveAccount(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		user, err := s.auth.ResolveAccountRequest(r.Context(), actorFrom(r), id, approve)
		if err != nil {
			writeError(w, err)
			return
		}
		if user == nil {
			writeJSON(w, http.StatusNoContent, nil)
			return
		}
		writeJSON(w, http.StatusCreated, toUserJSON(*user))
	}
}
