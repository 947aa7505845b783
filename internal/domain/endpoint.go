package domain

import (
	"errors"
	"fmt"
)

// DefaultParallel — лимит параллельной обработки, если в конфигурации он не задан.
const DefaultParallel = 2

// Ошибки валидации конфигурации endpoint'а.
var (
	// ErrEndpointNameRequired — в конфигурации нет name.
	ErrEndpointNameRequired = errors.New("endpoint name is required")

	// ErrEndpointURLRequired — в конфигурации нет url.
	ErrEndpointURLRequired = errors.New("endpoint url is required")
)

// Endpoint — конфигурация одного логического маршрута.
//
// Endpoint описывает путь, на который принимаются входящие запросы,
// и upstream URL, куда worker доставляет сохранённые элементы.
// Name — уникальный ключ: повторная конфигурация с тем же именем
// обновляет существующий worker, а не создаёт новый.
type Endpoint struct {
	// Name — уникальное имя endpoint'а (имя директорий queue/working/error).
	Name string `json:"name" yaml:"name"`

	// Path — HTTP путь, на котором слушает ingestion (например, "/encounters").
	Path string `json:"path" yaml:"path"`

	// URL — upstream, куда доставляются элементы.
	URL string `json:"url" yaml:"url"`

	// Paused — новые элементы накапливаются, но не обрабатываются.
	Paused bool `json:"paused,omitempty" yaml:"paused,omitempty"`

	// Parallel — максимальное количество одновременно обрабатываемых элементов.
	Parallel int `json:"parallel,omitempty" yaml:"parallel,omitempty"`

	// UpdateTx — отправлять ли статус в transaction API.
	UpdateTx bool `json:"updateTx,omitempty" yaml:"updateTx,omitempty"`

	// ForwardMetadata — сохранять метаданные запроса и использовать их
	// для исходящего запроса (метод, путь, заголовки).
	ForwardMetadata bool `json:"forwardMetadata,omitempty" yaml:"forwardMetadata,omitempty"`

	// DisableAutoChannelManagement — не создавать/обновлять канал в OpenHIM.
	DisableAutoChannelManagement bool `json:"disableAutoChannelManagement,omitempty" yaml:"disableAutoChannelManagement,omitempty"`
}

// Validate проверяет обязательные поля.
func (e Endpoint) Validate() error {
	if e.Name == "" {
		return ErrEndpointNameRequired
	}
	if e.URL == "" {
		return fmt.Errorf("%w: endpoint %q", ErrEndpointURLRequired, e.Name)
	}
	return nil
}

// Concurrency возвращает лимит параллельности с учётом значения по умолчанию.
func (e Endpoint) Concurrency() int {
	if e.Parallel <= 0 {
		return DefaultParallel
	}
	return e.Parallel
}

// RuntimeConfig — конфигурация, которую mediator получает от удалённого
// источника (heartbeat) или из секции "config" файла mediator'а.
//
// Endpoints == nil означает, что элемент "endpoints" отсутствует:
// такая конфигурация не применяется, действует предыдущая.
type RuntimeConfig struct {
	Endpoints []Endpoint `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`
}
