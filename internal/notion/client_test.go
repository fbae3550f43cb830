package notion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pdiddy/framingbot/pkg/types"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	old := notionAPIBase
	notionAPIBase = ts.URL
	t.Cleanup(func() { notionAPIBase = old })

	return &Client{
		Token:       "secret-token",
		FramingDBID: "framing-db",
		KeywordDBID: "keyword-db",
		HTTPClient:  ts.Client(),
	}
}

func keywordRow(term, role string, weight *float64) map[string]any {
	props := map[string]any{
		"Name": map[string]any{
			"type":  "title",
			"title": []map[string]any{{"plain_text": term}},
		},
	}
	if role != "" {
		props["Role"] = map[string]any{
			"type":   "select",
			"select": map[string]any{"name": role},
		}
	}
	if weight != nil {
		props["Weight"] = map[string]any{"type": "number", "number": *weight}
	}
	return map[string]any{"id": "row-" + term, "properties": props}
}

func TestFetchKeywords(t *testing.T) {
	w := 0.7
	client := testClient(t, func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/databases/keyword-db/query" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("auth header = %q", got)
		}
		if got := r.Header.Get("Notion-Version"); got == "" {
			t.Error("missing Notion-Version header")
		}

		json.NewEncoder(rw).Encode(map[string]any{
			"results": []map[string]any{
				keywordRow("alert fatigue", "Exploratory", &w),
				keywordRow("triage latency", "problem solving", nil),
				keywordRow("", "critical", nil),            // empty term skipped
				keywordRow("bad role", "speculative", nil), // unknown role skipped
				keywordRow("no role", "", nil),             // missing select skipped
			},
			"has_more": false,
		})
	})

	observations, err := client.FetchKeywords(context.Background())
	if err != nil {
		t.Fatalf("FetchKeywords: %v", err)
	}

	if len(observations) != 2 {
		t.Fatalf("got %d observations, want 2", len(observations))
	}
	if observations[0].Term != "alert fatigue" ||
		observations[0].Orientation != types.OrientationExploratory ||
		observations[0].Weight != 0.7 {
		t.Errorf("first observation = %+v", observations[0])
	}
	// Role labels normalize to canonical form; missing weight defaults to 1.
	if observations[1].Orientation != types.OrientationProblemSolving || observations[1].Weight != 1.0 {
		t.Errorf("second observation = %+v", observations[1])
	}
}

func TestFetchKeywordsPaginates(t *testing.T) {
	var calls int
	client := testClient(t, func(rw http.ResponseWriter, r *http.Request) {
		calls++
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)

		if calls == 1 {
			if _, ok := body["start_cursor"]; ok {
				t.Error("first page should not send start_cursor")
			}
			json.NewEncoder(rw).Encode(map[string]any{
				"results":     []map[string]any{keywordRow("first", "critical", nil)},
				"has_more":    true,
				"next_cursor": "cursor-2",
			})
			return
		}

		if body["start_cursor"] != "cursor-2" {
			t.Errorf("start_cursor = %v", body["start_cursor"])
		}
		json.NewEncoder(rw).Encode(map[string]any{
			"results":  []map[string]any{keywordRow("second", "critical", nil)},
			"has_more": false,
		})
	})

	observations, err := client.FetchKeywords(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(observations) != 2 || observations[1].Term != "second" {
		t.Errorf("observations = %+v", observations)
	}
}

func TestWriteFraming(t *testing.T) {
	var captured map[string]any
	client := testClient(t, func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pages" || r.Method != http.MethodPost {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(rw).Encode(map[string]any{
			"id":  "page-123",
			"url": "https://notion.so/page-123",
		})
	})

	ref, err := client.WriteFraming(context.Background(), types.Framing{
		ProjectName:  "Alert fatigue study",
		Owner:        "ada",
		ResearchType: "exploratory",
		Background:   strings.Repeat("b", 2500),
		RQ:           "How do engineers experience alert fatigue?",
		Year:         "2026",
	})
	if err != nil {
		t.Fatalf("WriteFraming: %v", err)
	}

	if ref.ID != "page-123" || ref.URL != "https://notion.so/page-123" {
		t.Errorf("ref = %+v", ref)
	}

	parent := captured["parent"].(map[string]any)
	if parent["database_id"] != "framing-db" {
		t.Errorf("parent = %v", parent)
	}

	props := captured["properties"].(map[string]any)
	title := props["Project Name"].(map[string]any)["title"].([]any)
	content := title[0].(map[string]any)["text"].(map[string]any)["content"].(string)
	if content != "Alert fatigue study" {
		t.Errorf("title content = %q", content)
	}

	background := props["Background"].(map[string]any)["rich_text"].([]any)
	bgContent := background[0].(map[string]any)["text"].(map[string]any)["content"].(string)
	if len(bgContent) != richTextLimit {
		t.Errorf("background length = %d, want truncated to %d", len(bgContent), richTextLimit)
	}

	sel := props["Research Type"].(map[string]any)["select"].(map[string]any)
	if sel["name"] != "exploratory" {
		t.Errorf("select = %v", sel)
	}
}

func TestReadFraming(t *testing.T) {
	client := testClient(t, func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pages/page-123" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(rw).Encode(map[string]any{
			"id": "page-123",
			"properties": map[string]any{
				"Project Name": map[string]any{
					"type":  "title",
					"title": []map[string]any{{"plain_text": "Alert fatigue study"}},
				},
				"Research Type": map[string]any{
					"type":   "select",
					"select": map[string]any{"name": "exploratory"},
				},
				"RQ": map[string]any{
					"type":      "rich_text",
					"rich_text": []map[string]any{{"plain_text": "How?"}},
				},
			},
		})
	})

	framing, err := client.ReadFraming(context.Background(), "page-123")
	if err != nil {
		t.Fatalf("ReadFraming: %v", err)
	}

	if framing.ProjectName != "Alert fatigue study" {
		t.Errorf("project name = %q", framing.ProjectName)
	}
	if framing.ResearchType != "exploratory" {
		t.Errorf("research type = %q", framing.ResearchType)
	}
	if framing.RQ != "How?" {
		t.Errorf("RQ = %q", framing.RQ)
	}
	if framing.Owner != "" {
		t.Errorf("missing property should read empty, got %q", framing.Owner)
	}
}

func TestAPIErrorSurfacesMessage(t *testing.T) {
	client := testClient(t, func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(rw).Encode(map[string]any{"message": "body failed validation"})
	})

	_, err := client.WriteFraming(context.Background(), types.Framing{})
	if err == nil || !strings.Contains(err.Error(), "body failed validation") {
		t.Errorf("err = %v", err)
	}
}

func TestPushKeywords(t *testing.T) {
	var created []string
	client := testClient(t, func(rw http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		props := body["properties"].(map[string]any)
		title := props["Name"].(map[string]any)["title"].([]any)
		created = append(created, title[0].(map[string]any)["text"].(map[string]any)["content"].(string))
		json.NewEncoder(rw).Encode(map[string]any{"id": "row"})
	})

	n, err := client.PushKeywords(context.Background(), []types.KeywordObservation{
		{Term: "Design Probe", Orientation: types.OrientationConstructive, Weight: 1},
		{Term: "design probe", Orientation: types.OrientationConstructive, Weight: 0.5},
		{Term: "alert fatigue", Orientation: types.OrientationExploratory, Weight: 1},
	})
	if err != nil {
		t.Fatalf("PushKeywords: %v", err)
	}

	if n != 2 {
		t.Errorf("n = %d, want 2", n)
	}
	if len(created) != 2 || created[0] != "Design Probe" || created[1] != "alert fatigue" {
		t.Errorf("created = %v", created)
	}
}

func TestPrepareKeywordRows(t *testing.T) {
	rows := PrepareKeywordRows([]types.KeywordObservation{
		{Term: "Probe", Orientation: types.OrientationConstructive},
		{Term: "probe", Orientation: types.OrientationExploratory},
		{Term: "  ", Orientation: types.OrientationCritical},
		{Term: "gap", Orientation: types.OrientationCritical},
	})

	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[0].Term != "Probe" || rows[0].Orientation != types.OrientationConstructive {
		t.Errorf("first row = %+v", rows[0])
	}
}
