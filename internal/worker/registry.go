package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shaiso/filequeue/internal/domain"
)

// Registry — реестр Dispatcher'ов по имени endpoint'а.
//
// Хранит порядок добавления. Один endpoint — один Dispatcher:
// повторный Upsert с тем же именем перенастраивает существующий.
type Registry struct {
	defaults Config

	mu      sync.RWMutex
	order   []string
	workers map[string]*Dispatcher
}

// NewRegistry создаёт реестр. defaults задаёт общие зависимости
// (хранилище, HTTP-клиент, notifier, метрики) для новых Dispatcher'ов;
// defaults.Endpoint игнорируется.
func NewRegistry(defaults Config) *Registry {
	return &Registry{
		defaults: defaults,
		workers:  make(map[string]*Dispatcher),
	}
}

// FindByName возвращает Dispatcher по имени.
func (r *Registry) FindByName(name string) (*Dispatcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.workers[name]
	return d, ok
}

// Upsert создаёт Dispatcher для endpoint'а или перенастраивает существующий.
func (r *Registry) Upsert(ep domain.Endpoint) (*Dispatcher, error) {
	if err := ep.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.workers[ep.Name]; ok {
		if err := d.Reconfigure(&ep); err != nil {
			return nil, err
		}
		return d, nil
	}

	cfg := r.defaults
	cfg.Endpoint = ep

	d, err := New(cfg)
	if err != nil {
		return nil, err
	}

	r.workers[ep.Name] = d
	r.order = append(r.order, ep.Name)
	return d, nil
}

// All возвращает Dispatcher'ы в порядке добавления.
func (r *Registry) All() []*Dispatcher {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Dispatcher, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.workers[name])
	}
	return out
}

// Remove останавливает Dispatcher и удаляет его из реестра.
func (r *Registry) Remove(ctx context.Context, name string) error {
	r.mu.Lock()
	d, ok := r.workers[name]
	if ok {
		delete(r.workers, name)
		for i, n := range r.order {
			if n == name {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrWorkerNotFound, name)
	}
	return d.Stop(ctx)
}

// Reset забывает все Dispatcher'ы и возвращает их вызывающему.
func (r *Registry) Reset() []*Dispatcher {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Dispatcher, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.workers[name])
	}

	r.order = nil
	r.workers = make(map[string]*Dispatcher)
	return out
}

// Shutdown останавливает все Dispatcher'ы и очищает реестр.
func (r *Registry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, d := range r.Reset() {
		if err := d.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", d.Name(), err))
		}
	}
	return errors.Join(errs...)
}
