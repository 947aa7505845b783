package openhim

import (
	"bytes"
	"context"
	"crypto/sha512"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout = 30 * time.Second

	// ContentTypeOpenHIM — content-type ответа mediator'а и тела обновления транзакции.
	ContentTypeOpenHIM = "application/json+openhim"
)

// Client — HTTP-клиент для OpenHIM API.
type Client struct {
	apiURL     string
	username   string
	password   string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// Config — конфигурация Client.
type Config struct {
	APIURL   string
	Username string
	Password string

	// TrustSelfSigned отключает проверку TLS сертификата API.
	TrustSelfSigned bool

	// Timeout запросов к API (default: 30s).
	Timeout time.Duration

	// HTTPClient (опционально) заменяет созданный клиент, например в тестах.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// NewClient создаёт клиент OpenHIM API.
func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.TrustSelfSigned {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		httpClient = &http.Client{Timeout: timeout, Transport: transport}
	}

	return &Client{
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

// Session — данные аутентификации, полученные от API.
type Session struct {
	Salt string `json:"salt"`
	TS   string `json:"ts"`
}

// Authenticate запрашивает salt для пользователя.
// GET /authenticate/{username}
func (c *Client) Authenticate(ctx context.Context) (*Session, error) {
	endpoint := c.apiURL + "/authenticate/" + url.PathEscape(c.username)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrAuthentication, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrAuthentication, resp.StatusCode)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrAuthentication, err)
	}
	if session.Salt == "" {
		return nil, fmt.Errorf("%w: empty salt", ErrAuthentication)
	}

	return &session, nil
}

// AuthHeaders формирует auth-* заголовки для сессии.
//
// token = sha512(sha512(salt + password) + salt + ts)
func (c *Client) AuthHeaders(session *Session) http.Header {
	ts := c.now().UTC().Format(time.RFC3339Nano)

	passhash := sha512Hex(session.Salt + c.password)
	token := sha512Hex(passhash + session.Salt + ts)

	h := http.Header{}
	h.Set("auth-username", c.username)
	h.Set("auth-ts", ts)
	h.Set("auth-salt", session.Salt)
	h.Set("auth-token", token)
	return h
}

// do аутентифицируется и выполняет запрос к API с JSON телом.
func (c *Client) do(ctx context.Context, method, path string, body any, contentType string) (*http.Response, error) {
	session, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for key, values := range c.AuthHeaders(session) {
		req.Header[key] = values
	}
	if body != nil {
		if contentType == "" {
			contentType = "application/json"
		}
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// expectStatus возвращает ошибку, если код ответа не входит в ok.
func expectStatus(resp *http.Response, ok ...int) error {
	for _, code := range ok {
		if resp.StatusCode == code {
			return nil
		}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%w: HTTP %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
}

func sha512Hex(s string) string {
	sum := sha512.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}
