package openhim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shaiso/filequeue/internal/domain"
)

// MediatorEndpoint — endpoint mediator'а, на который OpenHIM направляет трафик.
type MediatorEndpoint struct {
	Name string `json:"name" yaml:"name"`
	Host string `json:"host" yaml:"host"`
	Port any    `json:"port" yaml:"port"`
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	Type string `json:"type" yaml:"type"`
}

// Mediator — регистрационные данные mediator'а (config/mediator.json).
type Mediator struct {
	URN                  string               `json:"urn" yaml:"urn"`
	Version              string               `json:"version" yaml:"version"`
	Name                 string               `json:"name" yaml:"name"`
	Description          string               `json:"description,omitempty" yaml:"description,omitempty"`
	Endpoints            []MediatorEndpoint   `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`
	DefaultChannelConfig []map[string]any     `json:"defaultChannelConfig,omitempty" yaml:"defaultChannelConfig,omitempty"`
	ConfigDefs           []map[string]any     `json:"configDefs,omitempty" yaml:"configDefs,omitempty"`
	Config               domain.RuntimeConfig `json:"config" yaml:"config"`
}

// RegisterMediator регистрирует mediator в OpenHIM.
// POST /mediators
func (c *Client) RegisterMediator(ctx context.Context, m Mediator) error {
	resp, err := c.do(ctx, http.MethodPost, "/mediators", m, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := expectStatus(resp, http.StatusOK, http.StatusCreated); err != nil {
		return fmt.Errorf("register mediator %s: %w", m.URN, err)
	}

	c.logger.Info("mediator registered", "urn", m.URN)
	return nil
}

type heartbeatRequest struct {
	Uptime float64 `json:"uptime"`
	Config bool    `json:"config,omitempty"`
}

// Heartbeat сообщает OpenHIM uptime mediator'а.
// POST /mediators/{urn}/heartbeat
//
// Если OpenHIM вернул конфигурацию (она изменилась или forceConfig),
// она возвращается вызывающему; иначе результат nil.
func (c *Client) Heartbeat(ctx context.Context, urn string, uptime time.Duration, forceConfig bool) (*domain.RuntimeConfig, error) {
	req := heartbeatRequest{Uptime: uptime.Seconds(), Config: forceConfig}

	resp, err := c.do(ctx, http.MethodPost, "/mediators/"+url.PathEscape(urn)+"/heartbeat", req, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := expectStatus(resp, http.StatusOK, http.StatusCreated); err != nil {
		return nil, fmt.Errorf("heartbeat %s: %w", urn, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read heartbeat response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var cfg domain.RuntimeConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode heartbeat config: %w", err)
	}
	return &cfg, nil
}
