package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mtzanidakis/tripdesk/internal/agent"
	"github.com/mtzanidakis/tripdesk/internal/store"
)

func (s *Server) registerAPI(mux *http.ServeMux) {
	// Conversation
	mux.HandleFunc("POST /api/chat", s.chat)

	// Handlers and tools
	mux.HandleFunc("GET /api/handlers", s.listHandlers)
	mux.HandleFunc("GET /api/tools", s.listTools)
	mux.HandleFunc("POST /api/tools/{name}", s.callTool)

	// Ledger
	mux.HandleFunc("GET /api/sessions", s.listSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.getSession)
	mux.HandleFunc("GET /api/sessions/{id}/tasks", s.getSessionTasks)
	mux.HandleFunc("GET /api/sessions/{id}/tasks/{task}", s.getSessionTask)
	mux.HandleFunc("GET /api/sessions/{id}/requests", s.getSessionRequests)
	mux.HandleFunc("GET /api/sessions/{id}/requests/{request}", s.getSessionRequest)
	mux.HandleFunc("GET /api/sessions/{id}/messages", s.getSessionMessages)

	// System
	mux.HandleFunc("GET /api/status", s.getStatus)
}

type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	SessionID string     `json:"session_id"`
	Messages  []chatTurn `json:"messages"`
}

// lastUserTurn returns the content of the latest user message.
func lastUserTurn(turns []chatTurn) (string, bool) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == store.RoleUser {
			return turns[i].Content, true
		}
	}
	return "", false
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	msg, ok := lastUserTurn(body.Messages)
	if !ok {
		jsonError(w, "no user message", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(msg) == "" {
		jsonError(w, "empty message", http.StatusBadRequest)
		return
	}

	orch, err := s.sessions.Get(body.SessionID, "web")
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp, err := orch.ProcessRequest(r.Context(), msg)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, resp)
}

func (s *Server) listHandlers(w http.ResponseWriter, r *http.Request) {
	out := make([]map[string]any, 0, len(agent.Kinds))
	for _, k := range agent.Kinds {
		card, _ := s.registry.Card(k)
		out = append(out, map[string]any{
			"id":           k.String(),
			"name":         card.Name,
			"description":  card.Description,
			"capabilities": card.Capabilities,
		})
	}
	jsonResponse(w, out)
}

func (s *Server) listTools(w http.ResponseWriter, r *http.Request) {
	descs, err := s.tools.Tools(r.Context())
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	jsonResponse(w, descs)
}

// callTool invokes a tool directly. Tool failures are part of the
// envelope, so the status is 200 whenever the body parses.
func (s *Server) callTool(w http.ResponseWriter, r *http.Request) {
	params := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	jsonResponse(w, s.tools.CallTool(r.Context(), r.PathValue("name"), params))
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		out := make([]map[string]any, 0)
		for _, id := range s.sessions.IDs() {
			out = append(out, map[string]any{"id": id, "active": true})
		}
		jsonResponse(w, out)
		return
	}

	sessions, err := s.store.ListSessions(100)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	msgStats, _ := s.store.GetSessionMessageStats()

	out := make([]map[string]any, 0, len(sessions))
	for _, sess := range sessions {
		_, active := s.sessions.Lookup(sess.ID)
		out = append(out, map[string]any{
			"id":            sess.ID,
			"channel":       sess.Channel,
			"active":        active,
			"message_count": msgStats[sess.ID].MessageCount,
			"last_active":   formatMessageTime(sess.LastActive),
		})
	}
	jsonResponse(w, out)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	orch, active := s.sessions.Lookup(id)

	if s.store == nil {
		if !active {
			jsonError(w, "session not found", http.StatusNotFound)
			return
		}
		jsonResponse(w, map[string]any{
			"id":         id,
			"active":     true,
			"task_count": len(orch.Tasks()),
		})
		return
	}

	sess, err := s.store.GetSession(id)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if sess == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, map[string]any{
		"id":          sess.ID,
		"channel":     sess.Channel,
		"active":      active,
		"created_at":  formatMessageTime(sess.CreatedAt),
		"last_active": formatMessageTime(sess.LastActive),
	})
}

func (s *Server) getSessionTasks(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if s.store == nil {
		orch, ok := s.sessions.Lookup(id)
		if !ok {
			jsonError(w, "session not found", http.StatusNotFound)
			return
		}
		jsonResponse(w, orch.Tasks())
		return
	}

	tasks, err := s.store.ListTasks(id)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []store.Task{}
	}
	jsonResponse(w, tasks)
}

func (s *Server) getSessionTask(w http.ResponseWriter, r *http.Request) {
	id, taskID := r.PathValue("id"), r.PathValue("task")

	if s.store == nil {
		if orch, ok := s.sessions.Lookup(id); ok {
			for _, t := range orch.Tasks() {
				if t.ID == taskID {
					jsonResponse(w, t)
					return
				}
			}
		}
		jsonError(w, "task not found", http.StatusNotFound)
		return
	}

	task, err := s.store.GetTask(id, taskID)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if task == nil {
		jsonError(w, "task not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, task)
}

func (s *Server) getSessionRequests(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		jsonResponse(w, []store.Request{})
		return
	}

	requests, err := s.store.ListRequests(r.PathValue("id"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if requests == nil {
		requests = []store.Request{}
	}
	jsonResponse(w, requests)
}

func (s *Server) getSessionRequest(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		jsonError(w, "request not found", http.StatusNotFound)
		return
	}

	req, err := s.store.GetRequest(r.PathValue("request"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if req == nil || req.SessionID != r.PathValue("id") {
		jsonError(w, "request not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, req)
}

func (s *Server) getSessionMessages(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		jsonResponse(w, []map[string]string{})
		return
	}

	messages, err := s.store.GetMessages(r.PathValue("id"), 100)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]map[string]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, map[string]string{
			"id":   fmt.Sprintf("%d", m.ID),
			"role": m.Role,
			"text": m.Content,
			"time": formatMessageTime(m.CreatedAt),
		})
	}
	jsonResponse(w, out)
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	natsStatus := "disabled"
	if s.bus != nil {
		natsStatus = "down"
		if s.bus.Healthy() {
			natsStatus = "ok"
		}
	}

	status := map[string]any{
		"status":          "ok",
		"active_sessions": s.sessions.Len(),
		"ws_clients":      s.hub.Len(),
		"uptime":          formatUptime(time.Since(s.startedAt)),
		"nats":            natsStatus,
		"timestamp":       time.Now().UTC(),
		"version":         s.version,
	}

	if s.store != nil {
		counts, err := s.store.CountRequestsByStatus()
		if err == nil {
			status["requests"] = counts
		}
	}

	jsonResponse(w, status)
}

func formatMessageTime(t time.Time) string {
	local := t.Local()
	now := time.Now()
	if local.Year() == now.Year() && local.YearDay() == now.YearDay() {
		return local.Format("15:04")
	}
	return local.Format("Jan 2 15:04")
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

func jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
