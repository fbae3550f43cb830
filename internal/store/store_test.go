package store

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/framingbot/internal/chat"
	"github.com/pdiddy/framingbot/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(types.StoreConfig{DataDir: t.TempDir(), MaxResults: 20})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSession(id string) *types.Session {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	keywordMap := types.EmptyKeywordMap()
	keywordMap[types.OrientationExploratory] = []string{"alert fatigue"}

	return &types.Session{
		ID:    id,
		Owner: "ada",
		Phase: types.PhasePositioning,
		Messages: []types.ChatMessage{
			{Role: "assistant", Content: "What have you been working on?"},
			{Role: "user", Content: "Alert fatigue in on-call rotations"},
		},
		RawInputParts: []string{"Alert fatigue in on-call rotations"},
		Framing: types.Framing{
			Owner:        "ada",
			ResearchType: "exploratory",
			Background:   "Dominant assumption: more alerts are safer",
		},
		Tension: types.Tension{
			DominantAssumption: "more alerts are safer",
			BlindSpot:          "operator attention is finite",
			CoreGap:            "no account of habituation",
		},
		Profile: types.EpistemicProfile{
			Exploratory: 0.6, ProblemSolving: 0.4,
		},
		KeywordMap: keywordMap,
		RQCandidates: []types.ResearchQuestion{
			{Question: "How do on-call engineers experience alert fatigue?"},
		},
		RuleOutput: types.RuleEngineOutput{
			DominantOrientation: types.OrientationExploratory,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// --- sessions ---

func TestSaveLoadSessionRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	want := sampleSession("s1")
	if err := store.SaveSession(ctx, want); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, err := store.LoadSession(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}

	if got.Owner != "ada" || got.Phase != types.PhasePositioning {
		t.Errorf("session header = %q/%s", got.Owner, got.Phase)
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != want.Messages[1].Content {
		t.Errorf("messages = %+v", got.Messages)
	}
	if got.Tension.BlindSpot != want.Tension.BlindSpot {
		t.Errorf("tension = %+v", got.Tension)
	}
	if got.Profile.Exploratory != 0.6 {
		t.Errorf("profile = %+v", got.Profile)
	}
	if got.KeywordMap[types.OrientationExploratory][0] != "alert fatigue" {
		t.Errorf("keyword map = %+v", got.KeywordMap)
	}
	if got.RuleOutput.DominantOrientation != types.OrientationExploratory {
		t.Errorf("rule output = %+v", got.RuleOutput)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("created at = %s, want %s", got.CreatedAt, want.CreatedAt)
	}
}

func TestSaveSessionUpdateRewritesMessages(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	session := sampleSession("s1")
	if err := store.SaveSession(ctx, session); err != nil {
		t.Fatal(err)
	}

	session.Phase = types.PhaseQuestionSharpening
	session.Messages = append(session.Messages,
		types.ChatMessage{Role: "assistant", Content: "So what bothers you about that assumption?"})
	if err := store.SaveSession(ctx, session); err != nil {
		t.Fatal(err)
	}

	got, err := store.LoadSession(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Phase != types.PhaseQuestionSharpening {
		t.Errorf("phase = %s", got.Phase)
	}
	if len(got.Messages) != 3 {
		t.Errorf("message count = %d, want 3", len(got.Messages))
	}
}

func TestLoadSessionNotFound(t *testing.T) {
	store := testStore(t)
	_, err := store.LoadSession(context.Background(), "missing")
	if err != chat.ErrSessionNotFound {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestListSessions(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	older := sampleSession("s-old")
	older.UpdatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := sampleSession("s-new")
	newer.UpdatedAt = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, s := range []*types.Session{older, newer} {
		if err := store.SaveSession(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	summaries, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries", len(summaries))
	}
	if summaries[0].ID != "s-new" {
		t.Errorf("first summary = %s, want most recent", summaries[0].ID)
	}
	if summaries[0].MessageCount != 2 {
		t.Errorf("message count = %d", summaries[0].MessageCount)
	}
}

// --- message search ---

func TestSearchMessages(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	session := sampleSession("s1")
	if err := store.SaveSession(ctx, session); err != nil {
		t.Fatal(err)
	}

	hits, err := store.SearchMessages(ctx, "fatigue", 0)
	if err != nil {
		t.Fatalf("SearchMessages: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if hits[0].SessionID != "s1" || hits[0].Role != "user" {
		t.Errorf("hit = %+v", hits[0])
	}

	hits, err = store.SearchMessages(ctx, "nonexistent", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("got %d hits for absent term", len(hits))
	}
}

func TestSearchMessagesAfterUpdate(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	session := sampleSession("s1")
	if err := store.SaveSession(ctx, session); err != nil {
		t.Fatal(err)
	}

	// Rewriting the session must not leave stale FTS rows behind.
	session.Messages = []types.ChatMessage{
		{Role: "user", Content: "Actually I care about deployment cadence"},
	}
	if err := store.SaveSession(ctx, session); err != nil {
		t.Fatal(err)
	}

	hits, err := store.SearchMessages(ctx, "fatigue", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("stale hit after rewrite: %+v", hits)
	}

	hits, err = store.SearchMessages(ctx, "cadence", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Errorf("got %d hits for new content", len(hits))
	}
}

// --- keyword library ---

func TestImportObservations(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	var buf bytes.Buffer
	summary, err := store.ImportObservations(ctx, &buf, []types.KeywordObservation{
		{Term: "alert fatigue", Orientation: types.OrientationExploratory, Weight: 0.9},
		{Term: "triage latency", Orientation: types.OrientationProblemSolving, Weight: 0.7},
		{Term: "bad role", Orientation: "unknown", Weight: 0.5},
	})
	if err != nil {
		t.Fatalf("ImportObservations: %v", err)
	}

	if summary.Added != 2 || summary.Invalid != 1 || summary.Updated != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if !strings.Contains(buf.String(), "invalid") {
		t.Errorf("progress output missing invalid line: %q", buf.String())
	}

	loaded, err := store.LoadObservations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 2 {
		t.Fatalf("got %d observations", len(loaded))
	}
	if loaded[0].Term != "alert fatigue" || loaded[0].Weight != 0.9 {
		t.Errorf("first observation = %+v", loaded[0])
	}
}

func TestImportObservationsUpdate(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	obs := []types.KeywordObservation{
		{Term: "alert fatigue", Orientation: types.OrientationExploratory, Weight: 0.5},
	}
	if _, err := store.ImportObservations(ctx, io.Discard, obs); err != nil {
		t.Fatal(err)
	}

	obs[0].Weight = 0.8
	summary, err := store.ImportObservations(ctx, io.Discard, obs)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Updated != 1 || summary.Added != 0 {
		t.Errorf("summary = %+v", summary)
	}

	loaded, err := store.LoadObservations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 || loaded[0].Weight != 0.8 {
		t.Errorf("loaded = %+v", loaded)
	}
}

// Store satisfies the chat engine's persistence interface.
var _ chat.SessionStore = (*Store)(nil)
