package wizlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Wizline HTTP API client.
type Client struct {
	BaseURL    string
	ProjectID  string
	ActorID    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, projectID string) *Client {
	return &Client{
		BaseURL:   baseURL,
		ProjectID: projectID,
		Timeout:   10 * time.Second,
	}
}

// Project represents the API project model.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Mode        string `json:"mode"`
	Country     string `json:"country,omitempty"`
	Currency    string `json:"currency,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Description string `json:"description,omitempty"`
}

// Field is one input of a question.
type Field struct {
	Name         string            `json:"name"`
	Label        string            `json:"label"`
	Type         string            `json:"type"`
	Required     bool              `json:"required"`
	Options      []string          `json:"options,omitempty"`
	OptionLabels map[string]string `json:"option_labels,omitempty"`
	Recommended  any               `json:"recommended,omitempty"`
}

// Question is a configuration item presented for answering.
type Question struct {
	ConfigItemID string         `json:"config_item_id"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Why          string         `json:"why,omitempty"`
	Priority     string         `json:"priority"`
	Status       string         `json:"status"`
	DependsOn    []string       `json:"depends_on"`
	Fields       []Field        `json:"fields"`
	Progress     int            `json:"progress"`
	Total        int            `json:"total"`
	Answers      map[string]any `json:"answers,omitempty"`
}

// Next is the wizard's answer to "what should be asked now".
type Next struct {
	Complete    bool      `json:"complete"`
	Stuck       bool      `json:"stuck"`
	Unreachable []string  `json:"unreachable,omitempty"`
	Question    *Question `json:"question,omitempty"`
}

// Decision is recorded for every submitted answer.
type Decision struct {
	ID           string `json:"id"`
	Seq          int64  `json:"seq"`
	ConfigItemID string `json:"config_item_id"`
	Title        string `json:"title"`
	Rationale    string `json:"rationale,omitempty"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type Progress struct {
	Mode       string  `json:"mode"`
	Total      int     `json:"total"`
	Done       int     `json:"done"`
	Answered   int     `json:"answered"`
	Ready      int     `json:"ready"`
	Blocked    int     `json:"blocked"`
	Percentage float64 `json:"progress_percentage"`
	Complete   bool    `json:"complete"`
}

type BacklogEntry struct {
	ConfigItemID string   `json:"config_item_id"`
	Title        string   `json:"title"`
	Priority     string   `json:"priority"`
	Status       string   `json:"status"`
	Answered     bool     `json:"answered"`
	DependsOn    []string `json:"depends_on"`
}

type Artifact struct {
	ID        string `json:"id"`
	Type      string `json:"artifact_type"`
	Content   string `json:"content,omitempty"`
	TBDCount  int    `json:"tbd_count"`
	CreatedAt string `json:"created_at"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	ProjectID  string         `json:"project_id"`
	EntityID   string         `json:"entity_id"`
	EntityKind string         `json:"entity_kind"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// APIError wraps non-2xx responses. Code and Details are filled from the
// error envelope when the body carries one.
type APIError struct {
	StatusCode int
	Code       string
	Details    map[string]any
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s body=%s", e.StatusCode, e.Code, e.Body)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateProject creates a project; an empty id lets the server pick one.
func (c *Client) CreateProject(ctx context.Context, id, name, mode string) (Project, error) {
	body := map[string]any{"name": name}
	if id != "" {
		body["id"] = id
	}
	if mode != "" {
		body["mode"] = mode
	}
	var resp Project
	err := c.do(ctx, http.MethodPost, "v0/projects", body, &resp)
	return resp, err
}

// Project fetches the client's project.
func (c *Client) Project(ctx context.Context) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodGet, "v0/projects/"+url.PathEscape(c.ProjectID), nil, &resp)
	return resp, err
}

// Next returns the next question or the completion signal.
func (c *Client) Next(ctx context.Context) (Next, error) {
	var resp Next
	err := c.do(ctx, http.MethodGet, c.projectPath("wizard/next"), nil, &resp)
	return resp, err
}

// Question fetches any item by id, with its recorded answer.
func (c *Client) Question(ctx context.Context, itemID string) (Question, error) {
	var resp Question
	err := c.do(ctx, http.MethodGet, c.projectPath("wizard/questions/"+url.PathEscape(itemID)), nil, &resp)
	return resp, err
}

// SubmitAnswer records an answer. Missing required fields come back as an
// *APIError with Code "validation_failed".
func (c *Client) SubmitAnswer(ctx context.Context, itemID string, answers map[string]any) (Decision, error) {
	body := map[string]any{
		"config_item_id": itemID,
		"answers":        answers,
	}
	var resp Decision
	err := c.do(ctx, http.MethodPost, c.projectPath("wizard/answers"), body, &resp)
	return resp, err
}

func (c *Client) Decisions(ctx context.Context) ([]Decision, error) {
	var resp []Decision
	err := c.do(ctx, http.MethodGet, c.projectPath("wizard/decisions"), nil, &resp)
	return resp, err
}

func (c *Client) Progress(ctx context.Context) (Progress, error) {
	var resp Progress
	err := c.do(ctx, http.MethodGet, c.projectPath("wizard/progress"), nil, &resp)
	return resp, err
}

// Backlog lists items, optionally filtered by status.
func (c *Client) Backlog(ctx context.Context, status string) ([]BacklogEntry, error) {
	endpoint := c.projectPath("backlog")
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	var resp []BacklogEntry
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// GenerateArtifacts compiles the given types, or all of them when none are given.
func (c *Client) GenerateArtifacts(ctx context.Context, types ...string) ([]Artifact, error) {
	var body any
	if len(types) > 0 {
		body = map[string]any{"types": types}
	}
	var resp []Artifact
	err := c.do(ctx, http.MethodPost, c.projectPath("artifacts"), body, &resp)
	return resp, err
}

// Download returns the latest generation of an artifact type and the file
// name suggested by the server.
func (c *Client) Download(ctx context.Context, artifactType string) ([]byte, string, error) {
	endpoint := c.projectPath(fmt.Sprintf("artifacts/%s/download", url.PathEscape(artifactType)))
	res, err := c.send(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, "", err
	}
	var filename string
	if _, params, err := mime.ParseMediaType(res.Header.Get("Content-Disposition")); err == nil {
		filename = params["filename"]
	}
	return data, filename, nil
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	endpoint := c.projectPath("events")
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	if cursor != "" {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint = fmt.Sprintf("%s%scursor=%s", endpoint, sep, url.QueryEscape(cursor))
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	res, err := c.send(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if out != nil {
		return json.NewDecoder(res.Body).Decode(out)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, body any) (*http.Response, error) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.ActorID != "" {
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string         `json:"code"`
				Details map[string]any `json:"details"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Details = env.Error.Details
		}
		return nil, apiErr
	}
	return resp, nil
}

func (c *Client) projectPath(p string) string {
	project := url.PathEscape(c.ProjectID)
	return fmt.Sprintf("v0/projects/%s/%s", project, strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
