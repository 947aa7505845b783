package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// --- Response types (дублируются из api и worker, CLI не импортирует их) ---

// WorkerResponse — состояние воркера из API.
type WorkerResponse struct {
	Name                         string `json:"name"`
	Path                         string `json:"path"`
	URL                          string `json:"url"`
	Paused                       bool   `json:"paused,omitempty"`
	Parallel                     int    `json:"parallel,omitempty"`
	UpdateTx                     bool   `json:"updateTx,omitempty"`
	ForwardMetadata              bool   `json:"forwardMetadata,omitempty"`
	DisableAutoChannelManagement bool   `json:"disableAutoChannelManagement,omitempty"`
	Pending                      int    `json:"pending"`
	Active                       int    `json:"active"`
}

// HeartbeatResponse — ответ /heartbeat.
type HeartbeatResponse struct {
	Uptime float64 `json:"uptime"`
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

// Client — HTTP-клиент для API mediator'а.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Workers ---

// ListWorkers возвращает состояние всех воркеров.
func (c *Client) ListWorkers() ([]WorkerResponse, error) {
	var workers []WorkerResponse
	err := c.list("/workers", &workers)
	return workers, err
}

// GetWorker возвращает состояние воркера.
func (c *Client) GetWorker(name string) (*WorkerResponse, error) {
	var w WorkerResponse
	err := c.get(workerPath(name), &w)
	return &w, err
}

// SetPaused ставит воркер на паузу или снимает с неё.
// Возвращает текстовое подтверждение сервера.
func (c *Client) SetPaused(name string, paused bool) (string, error) {
	return c.text(http.MethodPut, workerPath(name), map[string]bool{"paused": paused})
}

// Repopulate заново заполняет очередь воркера из директории queue.
func (c *Client) Repopulate(name string) (string, error) {
	return c.text(http.MethodPost, workerPath(name)+"/repopulate", nil)
}

// Heartbeat возвращает uptime сервера.
func (c *Client) Heartbeat() (*HeartbeatResponse, error) {
	resp, err := c.do(http.MethodGet, "/heartbeat", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return nil, err
	}

	var hb HeartbeatResponse
	if err := json.NewDecoder(resp.Body).Decode(&hb); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &hb, nil
}

func workerPath(name string) string {
	return "/workers/" + url.PathEscape(name)
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return json.Unmarshal(dr.Data, result)
}

func (c *Client) list(path string, result any) error {
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

// text выполняет запрос к маршруту, отвечающему простым текстом.
func (c *Client) text(method, path string, body any) (string, error) {
	resp, err := c.do(method, path, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return "", err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
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

// checkError превращает ответ 4xx/5xx в ошибку. Управляющие маршруты
// отвечают на ошибки простым текстом, остальные — JSON.
func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	data, _ := io.ReadAll(resp.Body)

	var er errorResponse
	if err := json.Unmarshal(data, &er); err == nil && er.Error.Message != "" {
		return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
	}

	if msg := strings.TrimSpace(string(data)); msg != "" {
		return fmt.Errorf("API error: HTTP %d: %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
}
