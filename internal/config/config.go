package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/filequeue/internal/openhim"
)

// Значения по умолчанию.
const (
	DefaultPort              = 4002
	DefaultAPIURL            = "https://localhost:8080"
	DefaultAPIUsername       = "root@openhim.org"
	DefaultAPIPassword       = "openhim-password"
	DefaultURNSuffix         = "3"
	DefaultQueueRoot         = "."
	DefaultMediatorConfig    = "config/mediator.json"
	DefaultHeartbeatSchedule = "@every 10s"
)

// Config — конфигурация процесса.
type Config struct {
	// Port — порт HTTP сервера (SERVER_PORT).
	Port int

	// OpenHIM API.
	APIURL          string
	APIUsername     string
	APIPassword     string
	TrustSelfSigned bool

	// Heartbeat — получать конфигурацию через heartbeat (HEARTBEAT).
	Heartbeat bool
	// HeartbeatSchedule — cron-выражение heartbeat (HEARTBEAT_SCHEDULE).
	HeartbeatSchedule string
	// Register — регистрировать mediator при старте (REGISTER, default: Heartbeat).
	Register bool

	// LogLevel и LogFormat — уровень и формат логов (LOG_LEVEL, LOG_FORMAT).
	LogLevel  string
	LogFormat string

	// QueueRoot — корень директорий queue/working/error (QUEUE_ROOT).
	QueueRoot string

	// OutboundTimeout — таймаут доставки upstream; 0 — без таймаута.
	OutboundTimeout time.Duration

	// RabbitMQURL (опционально) — публикация событий элементов.
	RabbitMQURL string

	// PruneStale — останавливать endpoint'ы, исчезнувшие из конфигурации.
	PruneStale bool

	// MediatorConfigPath — путь к файлу mediator'а (MEDIATOR_CONFIG).
	MediatorConfigPath string

	// Mediator — содержимое файла mediator'а; URN уже с суффиксом FILE_QUEUE_URN.
	Mediator openhim.Mediator
}

// Load читает окружение и файл mediator'а.
func Load() (*Config, error) {
	cfg := &Config{
		APIURL:             getenv("API_URL", DefaultAPIURL),
		APIUsername:        getenv("API_USERNAME", DefaultAPIUsername),
		APIPassword:        getenv("API_PASSWORD", DefaultAPIPassword),
		HeartbeatSchedule:  getenv("HEARTBEAT_SCHEDULE", DefaultHeartbeatSchedule),
		LogLevel:           getenv("LOG_LEVEL", "INFO"),
		LogFormat:          getenv("LOG_FORMAT", "json"),
		QueueRoot:          getenv("QUEUE_ROOT", DefaultQueueRoot),
		RabbitMQURL:        os.Getenv("RABBITMQ_URL"),
		MediatorConfigPath: getenv("MEDIATOR_CONFIG", DefaultMediatorConfig),
	}

	var err error
	if cfg.Port, err = envInt("SERVER_PORT", DefaultPort); err != nil {
		return nil, err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: SERVER_PORT=%d", ErrInvalidValue, cfg.Port)
	}
	if cfg.TrustSelfSigned, err = envBool("TRUST_SELF_SIGNED", false); err != nil {
		return nil, err
	}
	if cfg.Heartbeat, err = envBool("HEARTBEAT", false); err != nil {
		return nil, err
	}
	if cfg.Register, err = envBool("REGISTER", cfg.Heartbeat); err != nil {
		return nil, err
	}
	if cfg.PruneStale, err = envBool("PRUNE_STALE_ENDPOINTS", false); err != nil {
		return nil, err
	}
	if cfg.OutboundTimeout, err = envDuration("OUTBOUND_TIMEOUT", 0); err != nil {
		return nil, err
	}

	mediator, err := LoadMediator(cfg.MediatorConfigPath)
	if err != nil {
		return nil, err
	}
	mediator.URN += getenv("FILE_QUEUE_URN", DefaultURNSuffix)
	cfg.Mediator = mediator

	return cfg, nil
}

// LoadMediator читает файл mediator'а. JSON разбирается как подмножество YAML.
func LoadMediator(path string) (openhim.Mediator, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return openhim.Mediator{}, fmt.Errorf("%w: read %s: %v", ErrMediatorFile, path, err)
	}

	var m openhim.Mediator
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	if err := decoder.Decode(&m); err != nil {
		return openhim.Mediator{}, fmt.Errorf("%w: parse %s: %v", ErrMediatorFile, path, err)
	}

	if strings.TrimSpace(m.URN) == "" {
		return openhim.Mediator{}, fmt.Errorf("%w: %s", ErrURNRequired, path)
	}
	return m, nil
}

// RouteHost возвращает адрес mediator'а для маршрутов каналов:
// host первого endpoint'а mediator'а и порт сервера.
func (c *Config) RouteHost() openhim.RouteHost {
	route := openhim.RouteHost{Host: "localhost", Port: c.Port}
	if len(c.Mediator.Endpoints) > 0 && c.Mediator.Endpoints[0].Host != "" {
		route.Host = c.Mediator.Endpoints[0].Host
	}
	return route
}

// Addr возвращает адрес HTTP сервера.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, v)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, v)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, v)
	}
	return d, nil
}
