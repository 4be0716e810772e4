package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mtzanidakis/tripdesk/internal/config"
	"github.com/mtzanidakis/tripdesk/internal/natsbus"
	"github.com/mtzanidakis/tripdesk/internal/orchestrator"
	"github.com/mtzanidakis/tripdesk/internal/registry"
	"github.com/mtzanidakis/tripdesk/internal/store"
	"github.com/mtzanidakis/tripdesk/internal/tools"
)

func newTestServer(t *testing.T, withStore bool) (*Server, *httptest.Server) {
	t.Helper()

	var s *store.Store
	if withStore {
		var err error
		s, err = store.New(config.StoreConfig{Path: filepath.Join(t.TempDir(), "test.db")})
		if err != nil {
			t.Fatalf("failed to create store: %v", err)
		}
		t.Cleanup(func() { s.Close() })
	}

	cfg := &config.Config{Router: config.DefaultRouter(), Defaults: config.DefaultPlanning()}
	reg := registry.New(s)
	provider := tools.NewServer()
	b := orchestrator.NewBuilder(cfg, reg, provider, s, nil)

	srv := NewServer(s, nil, orchestrator.NewSessions(b.New), reg, provider, config.WebConfig{}, "test")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

type chatReply struct {
	SessionID       string                    `json:"session_id"`
	RequestID       string                    `json:"request_id"`
	Status          string                    `json:"status"`
	Message         string                    `json:"message"`
	DetailedResults map[string]map[string]any `json:"detailed_results"`
}

func chat(t *testing.T, ts *httptest.Server, sessionID string, turns ...chatTurn) chatReply {
	t.Helper()
	resp := postJSON(t, ts.URL+"/api/chat", chatRequest{SessionID: sessionID, Messages: turns})
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("chat: status %d: %s", resp.StatusCode, body)
	}
	var reply chatReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		t.Fatalf("decode chat reply: %v", err)
	}
	return reply
}

func TestChatPlanTrip(t *testing.T) {
	_, ts := newTestServer(t, false)

	reply := chat(t, ts, "",
		chatTurn{Role: "user", Content: "hello"},
		chatTurn{Role: "assistant", Content: "Hi!"},
		chatTurn{Role: "user", Content: "Plan a trip to Hawaii with flights and hotel"},
	)
	if reply.Status != "completed" {
		t.Fatalf("expected completed, got %s: %s", reply.Status, reply.Message)
	}
	if reply.SessionID == "" {
		t.Error("expected a generated session id")
	}
	plan := reply.DetailedResults["Travel Agent"]
	if plan["total_cost"] != float64(2050) {
		t.Errorf("expected total_cost 2050, got %v", plan["total_cost"])
	}
}

func TestChatKeepsSession(t *testing.T) {
	_, ts := newTestServer(t, false)

	first := chat(t, ts, "", chatTurn{Role: "user", Content: "calculate my budget"})
	second := chat(t, ts, first.SessionID, chatTurn{Role: "user", Content: "optimize my budget"})
	if second.SessionID != first.SessionID {
		t.Fatalf("expected session %s, got %s", first.SessionID, second.SessionID)
	}

	var tasks []map[string]any
	getJSON(t, ts.URL+"/api/sessions/"+first.SessionID+"/tasks", &tasks)
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[1]["id"] != "task_2" {
		t.Errorf("expected task_2, got %v", tasks[1]["id"])
	}
}

func TestChatRejectsBadInput(t *testing.T) {
	_, ts := newTestServer(t, false)

	tests := []struct {
		name string
		body any
	}{
		{"no user turn", chatRequest{Messages: []chatTurn{{Role: "assistant", Content: "hi"}}}},
		{"empty message", chatRequest{Messages: []chatTurn{{Role: "user", Content: "  "}}}},
		{"not json", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/chat", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestListHandlers(t *testing.T) {
	_, ts := newTestServer(t, false)

	var handlers []map[string]any
	getJSON(t, ts.URL+"/api/handlers", &handlers)
	if len(handlers) != 3 {
		t.Fatalf("expected 3 handlers, got %d", len(handlers))
	}
	want := []string{"travel", "weather", "budget"}
	for i, h := range handlers {
		if h["id"] != want[i] {
			t.Errorf("handler %d: expected %s, got %v", i, want[i], h["id"])
		}
	}
}

func TestTools(t *testing.T) {
	_, ts := newTestServer(t, false)

	var descs map[string]tools.Descriptor
	getJSON(t, ts.URL+"/api/tools", &descs)
	if len(descs) != 4 {
		t.Fatalf("expected 4 tools, got %d", len(descs))
	}
	if _, ok := descs[tools.CalculateBudget]; !ok {
		t.Error("expected calculate_budget")
	}

	resp := postJSON(t, ts.URL+"/api/tools/"+tools.CalculateBudget, map[string]any{
		"total_budget": 1000, "flight_cost": 300, "hotel_cost": 200,
	})
	var res struct {
		Result map[string]float64 `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Result["activities_budget"] != 500 {
		t.Errorf("expected activities_budget 500, got %v", res.Result)
	}

	resp = postJSON(t, ts.URL+"/api/tools/nope", map[string]any{})
	var missing tools.Result
	if err := json.NewDecoder(resp.Body).Decode(&missing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if missing.Kind != tools.KindNotFound || missing.Error != "Tool 'nope' not found" {
		t.Errorf("unexpected envelope: %+v", missing)
	}
}

func TestLedgerEndpoints(t *testing.T) {
	_, ts := newTestServer(t, true)

	reply := chat(t, ts, "web-1", chatTurn{Role: "user", Content: "calculate my budget"})

	var sessions []map[string]any
	getJSON(t, ts.URL+"/api/sessions", &sessions)
	if len(sessions) != 1 || sessions[0]["id"] != "web-1" {
		t.Fatalf("unexpected sessions: %v", sessions)
	}
	if sessions[0]["active"] != true || sessions[0]["message_count"] != float64(2) {
		t.Errorf("unexpected session entry: %v", sessions[0])
	}

	var tasks []store.Task
	getJSON(t, ts.URL+"/api/sessions/web-1/tasks", &tasks)
	if len(tasks) != 1 || tasks[0].Handler != "Budget Planner" {
		t.Errorf("unexpected tasks: %+v", tasks)
	}

	var msgs []map[string]string
	getJSON(t, ts.URL+"/api/sessions/web-1/messages", &msgs)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[1]["role"] != "assistant" || msgs[1]["text"] != reply.Message {
		t.Errorf("unexpected assistant message: %v", msgs[1])
	}

	var status map[string]any
	getJSON(t, ts.URL+"/api/status", &status)
	if status["active_sessions"] != float64(1) || status["nats"] != "disabled" {
		t.Errorf("unexpected status: %v", status)
	}
	if reqs, ok := status["requests"].(map[string]any); !ok || reqs["completed"] != float64(1) {
		t.Errorf("unexpected request counts: %v", status["requests"])
	}
}

func TestSessionDetailEndpoints(t *testing.T) {
	_, ts := newTestServer(t, true)

	reply := chat(t, ts, "web-2", chatTurn{Role: "user", Content: "@budget calculate my budget"})

	var sess map[string]any
	getJSON(t, ts.URL+"/api/sessions/web-2", &sess)
	if sess["id"] != "web-2" || sess["channel"] != "web" || sess["active"] != true {
		t.Errorf("unexpected session: %v", sess)
	}

	var task store.Task
	getJSON(t, ts.URL+"/api/sessions/web-2/tasks/task_1", &task)
	if task.Handler != "Budget Planner" || task.Status != "completed" {
		t.Errorf("unexpected task: %+v", task)
	}
	if task.Message != "@budget calculate my budget" {
		t.Errorf("expected the message as received, got %q", task.Message)
	}

	var requests []store.Request
	getJSON(t, ts.URL+"/api/sessions/web-2/requests", &requests)
	if len(requests) != 1 || requests[0].ID != reply.RequestID {
		t.Fatalf("unexpected requests: %+v", requests)
	}

	var req store.Request
	getJSON(t, ts.URL+"/api/sessions/web-2/requests/"+reply.RequestID, &req)
	if req.Status != "completed" || req.Response != reply.Message {
		t.Errorf("unexpected request: %+v", req)
	}

	for _, path := range []string{
		"/api/sessions/nope",
		"/api/sessions/web-2/tasks/task_9",
		"/api/sessions/nope/requests/" + reply.RequestID,
	} {
		if resp := getJSON(t, ts.URL+path, nil); resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, resp.StatusCode)
		}
	}
}

func TestUnknownSessionTasks(t *testing.T) {
	_, ts := newTestServer(t, false)

	resp := getJSON(t, ts.URL+"/api/sessions/missing/tasks", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, false)

	resp := getJSON(t, ts.URL+"/metrics", nil)
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "tripdesk_request_duration_seconds") {
		t.Error("expected tripdesk metrics in output")
	}
}

func TestCORSPreflight(t *testing.T) {
	_, ts := newTestServer(t, false)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/chat", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("unexpected preflight response: %d %v", resp.StatusCode, resp.Header)
	}
}

func dialWS(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketSessionFilter(t *testing.T) {
	srv, ts := newTestServer(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.hub.Run(ctx)

	all := dialWS(t, ts, "")
	only := dialWS(t, ts, "?session=b")

	deadline := time.Now().Add(2 * time.Second)
	for srv.hub.Len() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("timeout waiting for websocket registration")
		}
		time.Sleep(10 * time.Millisecond)
	}

	srv.hub.Broadcast(natsbus.Event{Type: "task_created", SessionID: "a"})
	srv.hub.Broadcast(natsbus.Event{Type: "request_completed", SessionID: "b"})

	read := func(conn *websocket.Conn) natsbus.Event {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var ev natsbus.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		return ev
	}

	if ev := read(all); ev.SessionID != "a" {
		t.Errorf("expected event for a first, got %+v", ev)
	}
	if ev := read(all); ev.SessionID != "b" {
		t.Errorf("expected event for b, got %+v", ev)
	}
	if ev := read(only); ev.SessionID != "b" || ev.Type != "request_completed" {
		t.Errorf("filtered client got %+v", ev)
	}
}
