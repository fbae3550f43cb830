package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pdiddy/framingbot/internal/chat"
	"github.com/pdiddy/framingbot/internal/notion"
	"github.com/pdiddy/framingbot/internal/pipeline"
	"github.com/pdiddy/framingbot/pkg/types"
)

// --- fakes ---

type fakeStore struct {
	sessions     map[string]*types.Session
	observations []types.KeywordObservation
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]*types.Session)}
}

func (f *fakeStore) SaveSession(_ context.Context, s *types.Session) error {
	copied := *s
	f.sessions[s.ID] = &copied
	return nil
}

func (f *fakeStore) LoadSession(_ context.Context, id string) (*types.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, chat.ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeStore) LoadObservations(_ context.Context) ([]types.KeywordObservation, error) {
	return f.observations, nil
}

type fakeNotion struct {
	written []types.Framing
	page    types.Framing
}

func (f *fakeNotion) WriteFraming(_ context.Context, framing types.Framing) (notion.PageRef, error) {
	f.written = append(f.written, framing)
	return notion.PageRef{ID: "page-1", URL: "https://notion.so/page-1"}, nil
}

func (f *fakeNotion) ReadFraming(_ context.Context, _ string) (types.Framing, error) {
	return f.page, nil
}

// scriptedBackend answers skill prompts by substring.
type scriptedBackend struct {
	replies map[string]string
}

func (s *scriptedBackend) Complete(_ context.Context, _ string, _ []types.ChatMessage) (string, error) {
	return "Tell me more.", nil
}

func (s *scriptedBackend) CompleteJSON(_ context.Context, prompt, _ string) (string, error) {
	for sub, resp := range s.replies {
		if strings.Contains(prompt, sub) {
			return resp, nil
		}
	}
	return "{}", nil
}

func fullScript() *scriptedBackend {
	return &scriptedBackend{replies: map[string]string{
		"mode classifier":           `{"mode": "exploratory"}`,
		"tension extractor":         `{"dominant_assumption": "A", "blind_spot": "B", "core_gap": "C"}`,
		"position builder":          `{"research_position": "P"}`,
		"question generator":        `{"research_questions": [{"question": "Q1"}, {"question": "Q2"}]}`,
		"method aligner":            `{"method": "M"}`,
		"result inferrer":           `{"result": "R"}`,
		"contribution claimer":      `{"result_type": "RT", "contribution": "CO"}`,
		"coherence checker":         `{"logical_gaps": [], "scope_issues": [], "alignment_assessment": "ok"}`,
		"abstract generator":        `{"abstract_en": "EN", "abstract_zh": "ZH"}`,
		"paper epistemic profiler":  `{"keywords": [{"term": "alert fatigue", "orientation": "exploratory", "weight": 1}]}`,
	}}
}

func testServer(t *testing.T) (*Server, *fakeStore, *fakeNotion) {
	t.Helper()
	backend := fullScript()
	store := newFakeStore()
	fn := &fakeNotion{}
	srv := &Server{
		Pipeline: &pipeline.Runner{Backend: backend, MaxRetries: 1},
		Chat:     &chat.Engine{Backend: backend, Store: store, MaxRetries: 1},
		Store:    store,
		Notion:   fn,
	}
	return srv, store, fn
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

// --- tests ---

func TestHealth(t *testing.T) {
	srv, _, _ := testServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	decode(t, rec, &resp)
	if resp["status"] != "ok" {
		t.Errorf("resp = %v", resp)
	}
}

func TestRunEmptyInput(t *testing.T) {
	srv, _, _ := testServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/run", map[string]string{"raw_input": "  "})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRunPipeline(t *testing.T) {
	srv, store, _ := testServer(t)
	store.observations = []types.KeywordObservation{
		{Term: "alert fatigue", Orientation: types.OrientationExploratory, Weight: 1},
	}

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/run",
		map[string]string{"raw_input": "alert fatigue in on-call work"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var state types.FramingState
	decode(t, rec, &state)
	if state.ResearchPosition != "P" || state.SelectedRQ == "" {
		t.Errorf("state = %+v", state)
	}
}

func TestNotionRunWrites(t *testing.T) {
	srv, _, fn := testServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/notion-run",
		map[string]any{"raw_input": "alert fatigue", "owner": "ada"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		FramingOutput types.Framing  `json:"framing_output"`
		Notion        map[string]any `json:"notion"`
	}
	decode(t, rec, &resp)

	if resp.FramingOutput.Owner != "ada" {
		t.Errorf("owner = %q", resp.FramingOutput.Owner)
	}
	if resp.Notion["written"] != true || resp.Notion["page_id"] != "page-1" {
		t.Errorf("notion = %v", resp.Notion)
	}
	if len(fn.written) != 1 {
		t.Errorf("wrote %d pages", len(fn.written))
	}
}

func TestNotionRunSkipsWrite(t *testing.T) {
	srv, _, fn := testServer(t)

	write := false
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/notion-run",
		map[string]any{"raw_input": "alert fatigue", "write_to_notion": write})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(fn.written) != 0 {
		t.Errorf("unexpected Notion write")
	}
}

func TestChatFlow(t *testing.T) {
	srv, _, _ := testServer(t)
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/chat/start", map[string]string{"owner": "ada"})
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d", rec.Code)
	}
	var started map[string]any
	decode(t, rec, &started)
	sessionID, _ := started["session_id"].(string)
	if sessionID == "" || started["agent_message"] == "" {
		t.Fatalf("start resp = %v", started)
	}

	rec = doJSON(t, handler, http.MethodPost, "/chat/message",
		map[string]string{"session_id": sessionID, "message": "I study alert fatigue"})
	if rec.Code != http.StatusOK {
		t.Fatalf("message status = %d: %s", rec.Code, rec.Body.String())
	}
	var turn chat.TurnResult
	decode(t, rec, &turn)
	if turn.Phase != types.PhaseTensionDiscovery {
		t.Errorf("phase = %s", turn.Phase)
	}

	rec = doJSON(t, handler, http.MethodPost, "/chat/logic-check",
		map[string]string{"session_id": sessionID})
	if rec.Code != http.StatusOK {
		t.Fatalf("logic-check status = %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/chat/generate-abstract",
		map[string]string{"session_id": sessionID})
	if rec.Code != http.StatusOK {
		t.Fatalf("abstract status = %d", rec.Code)
	}
	var abstract map[string]string
	decode(t, rec, &abstract)
	if abstract["abstract_en"] != "EN" || abstract["abstract_zh"] != "ZH" {
		t.Errorf("abstract = %v", abstract)
	}
}

func TestChatMessageValidation(t *testing.T) {
	srv, _, _ := testServer(t)
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/chat/message",
		map[string]string{"session_id": "s1", "message": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty message status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/chat/message",
		map[string]string{"session_id": "missing", "message": "hello"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown session status = %d, want 404", rec.Code)
	}
}

func TestUpdateProfile(t *testing.T) {
	srv, _, _ := testServer(t)
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/chat/start", map[string]string{})
	var started map[string]any
	decode(t, rec, &started)
	sessionID := started["session_id"].(string)

	keywordMap := types.EmptyKeywordMap()
	keywordMap[types.OrientationCritical] = []string{"platform power"}

	rec = doJSON(t, handler, http.MethodPost, "/chat/update-profile", map[string]any{
		"session_id":        sessionID,
		"epistemic_profile": types.EpistemicProfile{Critical: 0.7, Exploratory: 0.3},
		"keyword_map":       keywordMap,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		RuleOutput types.RuleEngineOutput `json:"rule_output"`
	}
	decode(t, rec, &resp)
	if resp.RuleOutput.DominantOrientation != types.OrientationCritical {
		t.Errorf("dominant = %s", resp.RuleOutput.DominantOrientation)
	}
}

func TestSaveNotion(t *testing.T) {
	srv, store, fn := testServer(t)
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/chat/start", map[string]string{"owner": "ada"})
	var started map[string]any
	decode(t, rec, &started)
	sessionID := started["session_id"].(string)
	store.sessions[sessionID].Framing.ProjectName = "Alert fatigue study"

	rec = doJSON(t, handler, http.MethodPost, "/chat/save-notion",
		map[string]string{"session_id": sessionID})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	decode(t, rec, &resp)
	if resp["status"] != "saved" || resp["page_id"] != "page-1" {
		t.Errorf("resp = %v", resp)
	}
	if len(fn.written) != 1 || fn.written[0].ProjectName != "Alert fatigue study" {
		t.Errorf("written = %+v", fn.written)
	}
}

func TestNotionSync(t *testing.T) {
	srv, store, fn := testServer(t)
	handler := srv.Handler()
	fn.page = types.Framing{ProjectName: "Synced project", RQ: "How?"}

	rec := doJSON(t, handler, http.MethodPost, "/chat/start", map[string]string{})
	var started map[string]any
	decode(t, rec, &started)
	sessionID := started["session_id"].(string)

	rec = doJSON(t, handler, http.MethodPost, "/notion-sync",
		map[string]string{"session_id": sessionID, "notion_page_id": "page-9"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Status  string        `json:"status"`
		Framing types.Framing `json:"framing"`
	}
	decode(t, rec, &resp)
	if resp.Status != "synced" || resp.Framing.ProjectName != "Synced project" {
		t.Errorf("resp = %+v", resp)
	}
	if store.sessions[sessionID].Framing.RQ != "How?" {
		t.Errorf("session framing not updated: %+v", store.sessions[sessionID].Framing)
	}
}

func TestNotFound(t *testing.T) {
	srv, _, _ := testServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
