// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notion reads the keyword library from and writes framing
// artifacts to Notion databases.
//
// Framing database field mapping:
//
//	Project Name  → title
//	Owner, Background, Purpose, RQ, Method, Result,
//	Contribution, Year → rich_text
//	Research Type → select
//
// Keyword database field mapping:
//
//	Name   → title  → term
//	Role   → select → orientation
//	Weight → number → weight (optional, defaults to 1.0)
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/framingbot/internal/httputil"
	"github.com/pdiddy/framingbot/pkg/types"
)

// notionAPIBase is the Notion REST API root. Declared as a var so tests can
// substitute an httptest server.
var notionAPIBase = "https://api.notion.com/v1"

const notionVersion = "2022-06-28"

// richTextLimit is Notion's per-block text content limit.
const richTextLimit = 2000

// Keyword database property names.
const (
	keywordPropTerm   = "Name"
	keywordPropRole   = "Role"
	keywordPropWeight = "Weight"
)

// framingFields lists the framing database property names in write order.
var framingFields = []string{
	"Project Name", "Owner", "Research Type", "Background",
	"Purpose", "RQ", "Method", "Result", "Contribution", "Year",
}

// Client talks to the Notion REST API.
type Client struct {
	Token       string
	FramingDBID string
	KeywordDBID string
	HTTPClient  *http.Client
	MaxRetries  int
}

// NewClient builds a Client from configuration.
func NewClient(cfg types.NotionConfig) *Client {
	client := &http.Client{}
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}
	return &Client{
		Token:       cfg.Token,
		FramingDBID: cfg.FramingDBID,
		KeywordDBID: cfg.KeywordDBID,
		HTTPClient:  client,
	}
}

// PageRef identifies a created or fetched Notion page.
type PageRef struct {
	ID  string `json:"id" yaml:"id"`
	URL string `json:"url" yaml:"url"`
}

// --- wire structures ---

type richTextItem struct {
	Type      string    `json:"type,omitempty"`
	Text      *textBody `json:"text,omitempty"`
	PlainText string    `json:"plain_text,omitempty"`
}

type textBody struct {
	Content string `json:"content"`
}

type selectOption struct {
	Name string `json:"name"`
}

type property struct {
	Type     string         `json:"type,omitempty"`
	Title    []richTextItem `json:"title,omitempty"`
	RichText []richTextItem `json:"rich_text,omitempty"`
	Select   *selectOption  `json:"select,omitempty"`
	Number   *float64       `json:"number,omitempty"`
}

type page struct {
	ID         string              `json:"id"`
	URL        string              `json:"url"`
	Properties map[string]property `json:"properties"`
}

type queryResponse struct {
	Results    []page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// --- property builders ---

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) > richTextLimit {
		return string(runes[:richTextLimit])
	}
	return s
}

func titleProp(value string) property {
	return property{Title: []richTextItem{{Type: "text", Text: &textBody{Content: truncate(value)}}}}
}

func richTextProp(value string) property {
	return property{RichText: []richTextItem{{Type: "text", Text: &textBody{Content: truncate(value)}}}}
}

func selectProp(value string) property {
	return property{Select: &selectOption{Name: value}}
}

func plainText(items []richTextItem) string {
	var parts []string
	for _, item := range items {
		if item.PlainText != "" {
			parts = append(parts, item.PlainText)
		}
	}
	return strings.Join(parts, "")
}

// --- request plumbing ---

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, notionAPIBase+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Notion-Version", notionVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httputil.DoWithRetry(ctx, c.HTTPClient, req, c.MaxRetries)
	if err != nil {
		return fmt.Errorf("Notion API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message != "" {
			return fmt.Errorf("Notion API returned HTTP %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("Notion API returned HTTP %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("parsing Notion response: %w", err)
		}
	}
	return nil
}

// FetchKeywords pages through the keyword database and returns weighted
// observations. Rows with an empty term or an unknown role are skipped.
func (c *Client) FetchKeywords(ctx context.Context) ([]types.KeywordObservation, error) {
	if c.KeywordDBID == "" {
		return nil, fmt.Errorf("keyword database ID not configured")
	}

	var observations []types.KeywordObservation
	cursor := ""

	for {
		body := map[string]any{"page_size": 100}
		if cursor != "" {
			body["start_cursor"] = cursor
		}

		var resp queryResponse
		if err := c.do(ctx, http.MethodPost, "/databases/"+c.KeywordDBID+"/query", body, &resp); err != nil {
			return nil, fmt.Errorf("querying keyword database: %w", err)
		}

		for _, row := range resp.Results {
			term := strings.TrimSpace(plainText(row.Properties[keywordPropTerm].Title))
			if term == "" {
				continue
			}

			roleProp := row.Properties[keywordPropRole]
			if roleProp.Select == nil {
				continue
			}
			orientation, ok := types.NormalizeOrientation(roleProp.Select.Name)
			if !ok {
				continue
			}

			weight := types.DefaultWeight
			if n := row.Properties[keywordPropWeight].Number; n != nil {
				weight = *n
			}

			observations = append(observations, types.KeywordObservation{
				Term:        term,
				Orientation: orientation,
				Weight:      weight,
			})
		}

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return observations, nil
}

// WriteFraming creates a page in the framing database from a framing
// artifact. Text values longer than Notion's 2000-character block limit are
// truncated.
func (c *Client) WriteFraming(ctx context.Context, f types.Framing) (PageRef, error) {
	if c.FramingDBID == "" {
		return PageRef{}, fmt.Errorf("framing database ID not configured")
	}

	body := map[string]any{
		"parent": map[string]string{"database_id": c.FramingDBID},
		"properties": map[string]property{
			"Project Name":  titleProp(f.ProjectName),
			"Owner":         richTextProp(f.Owner),
			"Research Type": selectProp(f.ResearchType),
			"Background":    richTextProp(f.Background),
			"Purpose":       richTextProp(f.Purpose),
			"RQ":            richTextProp(f.RQ),
			"Method":        richTextProp(f.Method),
			"Result":        richTextProp(f.Result),
			"Contribution":  richTextProp(f.Contribution),
			"Year":          richTextProp(f.Year),
		},
	}

	var created page
	if err := c.do(ctx, http.MethodPost, "/pages", body, &created); err != nil {
		return PageRef{}, fmt.Errorf("creating framing page: %w", err)
	}
	return PageRef{ID: created.ID, URL: created.URL}, nil
}

// ReadFraming fetches a framing page and maps its properties back to a
// framing artifact. Missing or unexpected properties read as empty strings.
func (c *Client) ReadFraming(ctx context.Context, pageID string) (types.Framing, error) {
	var p page
	if err := c.do(ctx, http.MethodGet, "/pages/"+pageID, nil, &p); err != nil {
		return types.Framing{}, fmt.Errorf("fetching framing page: %w", err)
	}

	values := make(map[string]string, len(framingFields))
	for _, field := range framingFields {
		prop, ok := p.Properties[field]
		if !ok {
			continue
		}
		switch prop.Type {
		case "title":
			values[field] = plainText(prop.Title)
		case "rich_text":
			values[field] = plainText(prop.RichText)
		case "select":
			if prop.Select != nil {
				values[field] = prop.Select.Name
			}
		}
	}

	return types.Framing{
		ProjectName:  values["Project Name"],
		Owner:        values["Owner"],
		ResearchType: values["Research Type"],
		Background:   values["Background"],
		Purpose:      values["Purpose"],
		RQ:           values["RQ"],
		Method:       values["Method"],
		Result:       values["Result"],
		Contribution: values["Contribution"],
		Year:         values["Year"],
	}, nil
}

// PushKeywords creates one keyword-database row per observation. Duplicate
// terms (case-insensitive) are collapsed first, keeping the first casing.
func (c *Client) PushKeywords(ctx context.Context, observations []types.KeywordObservation) (int, error) {
	if c.KeywordDBID == "" {
		return 0, fmt.Errorf("keyword database ID not configured")
	}

	rows := PrepareKeywordRows(observations)
	for i, obs := range rows {
		weight := obs.Weight
		body := map[string]any{
			"parent": map[string]string{"database_id": c.KeywordDBID},
			"properties": map[string]property{
				keywordPropTerm:   titleProp(obs.Term),
				keywordPropRole:   selectProp(string(obs.Orientation)),
				keywordPropWeight: {Number: &weight},
			},
		}
		if err := c.do(ctx, http.MethodPost, "/pages", body, nil); err != nil {
			return i, fmt.Errorf("creating keyword row %q: %w", obs.Term, err)
		}
	}
	return len(rows), nil
}

// PrepareKeywordRows collapses case-insensitive duplicate terms, keeping the
// first-seen casing and observation.
func PrepareKeywordRows(observations []types.KeywordObservation) []types.KeywordObservation {
	seen := make(map[string]bool, len(observations))
	var rows []types.KeywordObservation
	for _, obs := range observations {
		key := strings.ToLower(strings.TrimSpace(obs.Term))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		rows = append(rows, obs)
	}
	return rows
}
