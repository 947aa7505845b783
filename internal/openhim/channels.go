package openhim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shaiso/filequeue/internal/domain"
)

// Channel — канал OpenHIM.
//
// Хранится как map, чтобы при обновлении не терять поля,
// которые mediator не знает.
type Channel map[string]any

// ID возвращает _id канала.
func (ch Channel) ID() string {
	id, _ := ch["_id"].(string)
	return id
}

// Name возвращает имя канала.
func (ch Channel) Name() string {
	name, _ := ch["name"].(string)
	return name
}

// RouteHost — адрес, по которому OpenHIM достучится до mediator'а.
type RouteHost struct {
	Host string
	Port int
}

// ChannelForEndpoint строит описание канала, маршрутизирующего path endpoint'а на mediator.
func ChannelForEndpoint(ep domain.Endpoint, route RouteHost) Channel {
	secured := true
	if u, err := url.Parse(ep.URL); err == nil && u.Scheme == "http" {
		secured = false
	}

	return Channel{
		"name":       ep.Name,
		"urlPattern": "^" + ep.Path + "$",
		"status":     "enabled",
		"routes": []any{
			map[string]any{
				"name":    ep.Name,
				"host":    route.Host,
				"path":    ep.Path,
				"port":    route.Port,
				"secured": secured,
				"primary": true,
			},
		},
		"authType": "private",
		"allow":    []any{"file-queue"},
	}
}

// ListChannels возвращает все каналы.
// GET /channels
func (c *Client) ListChannels(ctx context.Context) ([]Channel, error) {
	resp, err := c.do(ctx, http.MethodGet, "/channels", nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := expectStatus(resp, http.StatusOK); err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	var channels []Channel
	if err := json.NewDecoder(resp.Body).Decode(&channels); err != nil {
		return nil, fmt.Errorf("decode channels: %w", err)
	}
	return channels, nil
}

// FetchChannelByName ищет канал по имени.
func (c *Client) FetchChannelByName(ctx context.Context, name string) (Channel, error) {
	channels, err := c.ListChannels(ctx)
	if err != nil {
		return nil, err
	}

	for _, ch := range channels {
		if ch.Name() == name {
			return ch, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, name)
}

// AddChannel создаёт канал.
// POST /channels
func (c *Client) AddChannel(ctx context.Context, ch Channel) error {
	resp, err := c.do(ctx, http.MethodPost, "/channels", ch, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := expectStatus(resp, http.StatusOK, http.StatusCreated); err != nil {
		return fmt.Errorf("add channel %s: %w", ch.Name(), err)
	}
	return nil
}

// UpdateChannel обновляет канал по _id.
// PUT /channels/{id}
func (c *Client) UpdateChannel(ctx context.Context, id string, ch Channel) error {
	resp, err := c.do(ctx, http.MethodPut, "/channels/"+url.PathEscape(id), ch, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := expectStatus(resp, http.StatusOK); err != nil {
		return fmt.Errorf("update channel %s: %w", id, err)
	}
	return nil
}

// UpsertChannel обновляет существующий канал с тем же именем
// (urlPattern и первый маршрут) или создаёт новый.
// Возвращает true, если канал был создан.
func (c *Client) UpsertChannel(ctx context.Context, desired Channel) (bool, error) {
	existing, err := c.FetchChannelByName(ctx, desired.Name())
	if err != nil {
		c.logger.Info("channel not found, adding", "channel", desired.Name(), "reason", err)
		if err := c.AddChannel(ctx, desired); err != nil {
			return false, err
		}
		c.logger.Info("channel added", "channel", desired.Name())
		return true, nil
	}

	existing["urlPattern"] = desired["urlPattern"]

	desiredRoutes, _ := desired["routes"].([]any)
	routes, _ := existing["routes"].([]any)
	if len(desiredRoutes) > 0 {
		if len(routes) == 0 {
			routes = []any{desiredRoutes[0]}
		} else {
			routes[0] = desiredRoutes[0]
		}
		existing["routes"] = routes
	}

	if err := c.UpdateChannel(ctx, existing.ID(), existing); err != nil {
		return false, err
	}
	c.logger.Info("channel updated", "channel", desired.Name())
	return false, nil
}
