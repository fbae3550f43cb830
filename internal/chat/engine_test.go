package chat

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pdiddy/framingbot/pkg/types"
)

// memStore is an in-memory SessionStore.
type memStore struct {
	sessions map[string]*types.Session
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*types.Session)}
}

func (m *memStore) SaveSession(_ context.Context, s *types.Session) error {
	copied := *s
	m.sessions[s.ID] = &copied
	return nil
}

func (m *memStore) LoadSession(_ context.Context, id string) (*types.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

// chatBackend scripts both conversation replies and skill responses.
type chatBackend struct {
	chatReplies []string // consumed in order by Complete
	chatCalls   int
	skillJSON   map[string]string // prompt substring → JSON
}

func (c *chatBackend) Complete(_ context.Context, _ string, _ []types.ChatMessage) (string, error) {
	if c.chatCalls >= len(c.chatReplies) {
		return "Tell me more.", nil
	}
	reply := c.chatReplies[c.chatCalls]
	c.chatCalls++
	return reply, nil
}

func (c *chatBackend) CompleteJSON(_ context.Context, prompt, _ string) (string, error) {
	for sub, resp := range c.skillJSON {
		if strings.Contains(prompt, sub) {
			return resp, nil
		}
	}
	return "{}", nil
}

func defaultSkills() map[string]string {
	return map[string]string{
		"mode classifier":      `{"mode": "exploratory"}`,
		"tension extractor":    `{"dominant_assumption": "A", "blind_spot": "B", "core_gap": "C"}`,
		"position builder":     `{"research_position": "P"}`,
		"question generator":   `{"research_questions": [{"question": "Q1"}, {"question": "Q2"}, {"question": "Q3"}]}`,
		"method aligner":       `{"method": "M"}`,
		"result inferrer":      `{"result": "R"}`,
		"contribution claimer": `{"result_type": "RT", "contribution": "CO"}`,
		"coherence checker":    `{"logical_gaps": ["gap"], "scope_issues": [], "alignment_assessment": "ok"}`,
		"abstract generator":   `{"abstract_en": "EN", "abstract_zh": "ZH"}`,
	}
}

func newEngine(backend *chatBackend) (*Engine, *memStore) {
	store := newMemStore()
	return &Engine{Backend: backend, Store: store, MaxRetries: 1}, store
}

func TestStartSession(t *testing.T) {
	engine, store := newEngine(&chatBackend{})

	session, err := engine.Start(context.Background(), "ada")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if session.Phase != types.PhaseGreeting {
		t.Errorf("phase = %s, want greeting", session.Phase)
	}
	if session.Framing.Owner != "ada" {
		t.Errorf("owner = %q", session.Framing.Owner)
	}
	if len(session.Messages) != 1 || session.Messages[0].Role != "assistant" {
		t.Errorf("opening message not recorded: %+v", session.Messages)
	}
	if _, ok := store.sessions[session.ID]; !ok {
		t.Error("session not persisted")
	}
}

func TestMessageAdvancesFromGreeting(t *testing.T) {
	backend := &chatBackend{chatReplies: []string{"Interesting! What bothers you about it?"}}
	engine, _ := newEngine(backend)

	session, _ := engine.Start(context.Background(), "")
	result, err := engine.Message(context.Background(), session.ID, "I study alert fatigue")
	if err != nil {
		t.Fatalf("Message: %v", err)
	}

	if result.Phase != types.PhaseTensionDiscovery {
		t.Errorf("phase = %s, want tension_discovery", result.Phase)
	}
	if result.ExtractionHappened {
		t.Error("no extraction expected on a plain reply")
	}
}

func TestMessageExtractionTransition(t *testing.T) {
	backend := &chatBackend{
		chatReplies: []string{
			`So the field assumes more alerts are safer. <extract>{"phase": "tension", "ready": true}</extract>`,
		},
		skillJSON: defaultSkills(),
	}
	engine, _ := newEngine(backend)

	session, _ := engine.Start(context.Background(), "")
	result, err := engine.Message(context.Background(), session.ID, "everyone assumes more alerts help")
	if err != nil {
		t.Fatalf("Message: %v", err)
	}

	if !result.ExtractionHappened {
		t.Fatal("extraction should have run")
	}
	if result.Phase != types.PhasePositioning {
		t.Errorf("phase = %s, want positioning", result.Phase)
	}
	if strings.Contains(result.AgentMessage, "<extract>") {
		t.Errorf("extract tag leaked into reply: %q", result.AgentMessage)
	}
	if result.Framing.ResearchType != "exploratory" {
		t.Errorf("research type = %q", result.Framing.ResearchType)
	}
	if !strings.Contains(result.Framing.Background, "Dominant assumption: A") {
		t.Errorf("background = %q", result.Framing.Background)
	}
}

func TestQuestionSelectionIndex(t *testing.T) {
	backend := &chatBackend{
		chatReplies: []string{
			`The second one it is. <extract>{"phase": "question", "ready": true, "selected_index": 1}</extract>`,
		},
		skillJSON: defaultSkills(),
	}
	engine, store := newEngine(backend)

	session, _ := engine.Start(context.Background(), "")
	stored := store.sessions[session.ID]
	stored.Phase = types.PhaseQuestionSharpening
	stored.Framing.Purpose = "P"

	result, err := engine.Message(context.Background(), session.ID, "the second")
	if err != nil {
		t.Fatalf("Message: %v", err)
	}

	if result.Framing.RQ != "Q2" {
		t.Errorf("RQ = %q, want Q2", result.Framing.RQ)
	}
	if result.Phase != types.PhaseMethodContribution {
		t.Errorf("phase = %s", result.Phase)
	}
}

func TestMethodContributionExtraction(t *testing.T) {
	backend := &chatBackend{
		chatReplies: []string{
			`Sounds like a plan. <extract>{"phase": "method_contribution", "ready": true}</extract>`,
		},
		skillJSON: defaultSkills(),
	}
	engine, store := newEngine(backend)

	session, _ := engine.Start(context.Background(), "")
	stored := store.sessions[session.ID]
	stored.Phase = types.PhaseMethodContribution
	stored.Framing.RQ = "Q1"

	result, err := engine.Message(context.Background(), session.ID, "maybe a diary study")
	if err != nil {
		t.Fatalf("Message: %v", err)
	}

	if result.Framing.Method != "M" || result.Framing.Result != "R" || result.Framing.Contribution != "CO" {
		t.Errorf("framing = %+v", result.Framing)
	}
	if result.Framing.ProjectName == "" {
		t.Error("project name not derived")
	}
	if result.Phase != types.PhaseComplete {
		t.Errorf("phase = %s, want complete", result.Phase)
	}
}

func TestMessageUnknownSession(t *testing.T) {
	engine, _ := newEngine(&chatBackend{})
	_, err := engine.Message(context.Background(), "nope", "hello")
	if err != ErrSessionNotFound {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestLogicCheck(t *testing.T) {
	backend := &chatBackend{skillJSON: defaultSkills()}
	engine, _ := newEngine(backend)

	session, _ := engine.Start(context.Background(), "")
	notes, err := engine.LogicCheck(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("LogicCheck: %v", err)
	}
	if notes.AlignmentAssessment != "ok" || len(notes.LogicalGaps) != 1 {
		t.Errorf("notes = %+v", notes)
	}
}

func TestApplyObservations(t *testing.T) {
	backend := &chatBackend{skillJSON: defaultSkills()}
	engine, _ := newEngine(backend)

	session, _ := engine.Start(context.Background(), "")
	updated, err := engine.ApplyObservations(context.Background(), session.ID, []types.KeywordObservation{
		{Term: "prototype", Orientation: types.OrientationConstructive, Weight: 1},
		{Term: "toolchain", Orientation: types.OrientationConstructive, Weight: 0.8},
	})
	if err != nil {
		t.Fatalf("ApplyObservations: %v", err)
	}

	if updated.RuleOutput.DominantOrientation != types.OrientationConstructive {
		t.Errorf("dominant = %s", updated.RuleOutput.DominantOrientation)
	}
	if updated.Profile.Constructive != 1.0 {
		t.Errorf("constructive score = %g, want 1.0", updated.Profile.Constructive)
	}
}

// An edited profile re-derives rule output, and question/method when a
// position already exists.
func TestApplyProfileRerunsDownstream(t *testing.T) {
	backend := &chatBackend{skillJSON: defaultSkills()}
	engine, store := newEngine(backend)

	session, _ := engine.Start(context.Background(), "")
	store.sessions[session.ID].Framing.Purpose = "P"

	profile := types.EpistemicProfile{Critical: 0.7, Exploratory: 0.1, ProblemSolving: 0.1, Constructive: 0.1}
	keywordMap := types.EmptyKeywordMap()
	keywordMap[types.OrientationCritical] = []string{"platform power"}

	updated, err := engine.ApplyProfile(context.Background(), session.ID, profile, keywordMap)
	if err != nil {
		t.Fatalf("ApplyProfile: %v", err)
	}

	if updated.RuleOutput.DominantOrientation != types.OrientationCritical {
		t.Errorf("dominant = %s", updated.RuleOutput.DominantOrientation)
	}
	if updated.Framing.RQ != "Q1" {
		t.Errorf("RQ = %q, want regenerated Q1", updated.Framing.RQ)
	}
	if updated.Framing.Method != "M" {
		t.Errorf("method = %q, want regenerated M", updated.Framing.Method)
	}
}

// --- extract signal parsing ---

func TestParseExtractSignal(t *testing.T) {
	tests := []struct {
		name string
		text string
		want *extractSignal
	}{
		{
			name: "valid signal",
			text: `Good. <extract>{"phase": "tension", "ready": true}</extract>`,
			want: &extractSignal{Phase: "tension", Ready: true},
		},
		{
			name: "multiline payload",
			text: "Reply\n<extract>\n{\"phase\": \"question\", \"ready\": true, \"selected_index\": 2}\n</extract>",
			want: &extractSignal{Phase: "question", Ready: true, SelectedIndex: 2},
		},
		{name: "no tag", text: "Just a reply.", want: nil},
		{name: "malformed json", text: `<extract>{not json}</extract>`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseExtractSignal(tt.text)
			if tt.want == nil {
				if got != nil {
					t.Errorf("got %+v, want nil", got)
				}
				return
			}
			if got == nil || *got != *tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStripExtractTags(t *testing.T) {
	in := `Before. <extract>{"phase": "tension", "ready": true}</extract> After.`
	got := stripExtractTags(in)
	if strings.Contains(got, "extract") {
		t.Errorf("tag not stripped: %q", got)
	}
	if !strings.Contains(got, "Before.") || !strings.Contains(got, "After.") {
		t.Errorf("surrounding text lost: %q", got)
	}
}

func TestSessionIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newSessionID()
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("id %q: %v", id, err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestProjectNameFromMultibyteInput(t *testing.T) {
	long := strings.Repeat("研究框架", 30)
	name := projectNameFrom(long)
	if !utf8.ValidString(name) {
		t.Fatalf("truncated name is not valid UTF-8: %q", name)
	}
	if got := len([]rune(name)); got != 100 {
		t.Errorf("rune length = %d, want 100", got)
	}

	short := strings.Repeat("框架", 40) // 80 runes, 240 bytes
	if got := projectNameFrom(short); got != short {
		t.Errorf("short multi-byte input truncated: %q", got)
	}
}
