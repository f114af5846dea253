package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// ProjectResponse — проект из API.
type ProjectResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	RepoURL       string `json:"repo_url"`
	Branch        string `json:"branch"`
	Remote        string `json:"remote"`
	RegistryURL   string `json:"registry_url"`
	Package       string `json:"package"`
	InstallCmd    string `json:"install_cmd"`
	BuildCmd      string `json:"build_cmd"`
	TestCmd       string `json:"test_cmd"`
	GitName       string `json:"git_name"`
	GitEmail      string `json:"git_email"`
	CredentialRef string `json:"credential_ref"`
	RetentionDays int    `json:"retention_days"`
	IsActive      bool   `json:"is_active"`
	CreatedAt     string `json:"created_at"`
}

// RunResponse — run из API.
type RunResponse struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	TriggerKind string `json:"trigger_kind"`
	Branch      string `json:"branch"`
	Commit      string `json:"commit,omitempty"`
	Status      string `json:"status"`
	FailedStage string `json:"failed_stage,omitempty"`
	FailureKind string `json:"failure_kind,omitempty"`
	PrevVersion string `json:"prev_version,omitempty"`
	NewVersion  string `json:"new_version,omitempty"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// StageResponse — результат стадии из API.
type StageResponse struct {
	ID         string `json:"id"`
	RunID      string `json:"run_id"`
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	Stdout     string `json:"stdout,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
}

// --- Request types ---

// CreateProjectRequest — создание проекта.
type CreateProjectRequest struct {
	Name          string `json:"name"`
	RepoURL       string `json:"repo_url"`
	Branch        string `json:"branch"`
	Remote        string `json:"remote,omitempty"`
	RegistryURL   string `json:"registry_url"`
	Package       string `json:"package"`
	InstallCmd    string `json:"install_cmd"`
	BuildCmd      string `json:"build_cmd"`
	TestCmd       string `json:"test_cmd"`
	GitName       string `json:"git_name"`
	GitEmail      string `json:"git_email"`
	CredentialRef string `json:"credential_ref"`
	RetentionDays int    `json:"retention_days,omitempty"`
}

// UpdateProjectRequest — обновление проекта. Nil-поля не меняются.
type UpdateProjectRequest struct {
	Name          *string `json:"name,omitempty"`
	RepoURL       *string `json:"repo_url,omitempty"`
	Branch        *string `json:"branch,omitempty"`
	Remote        *string `json:"remote,omitempty"`
	RegistryURL   *string `json:"registry_url,omitempty"`
	Package       *string `json:"package,omitempty"`
	InstallCmd    *string `json:"install_cmd,omitempty"`
	BuildCmd      *string `json:"build_cmd,omitempty"`
	TestCmd       *string `json:"test_cmd,omitempty"`
	GitName       *string `json:"git_name,omitempty"`
	GitEmail      *string `json:"git_email,omitempty"`
	CredentialRef *string `json:"credential_ref,omitempty"`
	RetentionDays *int    `json:"retention_days,omitempty"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

// ListRunsOpts — параметры фильтрации runs.
type ListRunsOpts struct {
	ProjectID string
	Status    string
	Limit     int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для relman API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Projects ---

// ListProjects возвращает все проекты.
func (c *Client) ListProjects() ([]ProjectResponse, error) {
	var projects []ProjectResponse
	err := c.list("/api/v1/projects", nil, &projects)
	return projects, err
}

// CreateProject создаёт новый проект.
func (c *Client) CreateProject(req CreateProjectRequest) (*ProjectResponse, error) {
	var project ProjectResponse
	err := c.post("/api/v1/projects", req, &project)
	return &project, err
}

// GetProject возвращает проект по ID.
func (c *Client) GetProject(id string) (*ProjectResponse, error) {
	var project ProjectResponse
	err := c.get("/api/v1/projects/"+id, &project)
	return &project, err
}

// UpdateProject обновляет проект.
func (c *Client) UpdateProject(id string, req UpdateProjectRequest) (*ProjectResponse, error) {
	var project ProjectResponse
	err := c.put("/api/v1/projects/"+id, req, &project)
	return &project, err
}

// DeleteProject удаляет проект.
func (c *Client) DeleteProject(id string) error {
	return c.delete("/api/v1/projects/" + id)
}

// --- Runs ---

// ListRuns возвращает список runs с фильтрацией.
func (c *Client) ListRuns(opts ListRunsOpts) ([]RunResponse, error) {
	params := url.Values{}
	if opts.ProjectID != "" {
		params.Set("project_id", opts.ProjectID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var runs []RunResponse
	err := c.list("/api/v1/runs", params, &runs)
	return runs, err
}

// CreateRun запускает релиз вручную для проекта.
func (c *Client) CreateRun(projectID string) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/projects/"+projectID+"/runs", nil, &run)
	return &run, err
}

// GetRun возвращает run по ID.
func (c *Client) GetRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.get("/api/v1/runs/"+id, &run)
	return &run, err
}

// ListStages возвращает результаты стадий run.
func (c *Client) ListStages(runID string) ([]StageResponse, error) {
	var stages []StageResponse
	err := c.list("/api/v1/runs/"+runID+"/stages", nil, &stages)
	return stages, err
}

// ResumePush ставит run в PUBLISHED_NOT_PUSHED на повторный push.
func (c *Client) ResumePush(runID string) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/runs/"+runID+"/resume-push", nil, &run)
	return &run, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
