package api

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// Router — маршрутизатор с регистрацией и удалением маршрутов на лету.
//
// Шаблон пути в стиле express: литеральные сегменты, ":param"
// (значение доступно через r.PathValue) и "*" — остаток пути.
// Маршруты проверяются в порядке регистрации.
type Router struct {
	mu     sync.RWMutex
	routes []*route
}

type route struct {
	pattern  string
	segments []string
	handler  http.Handler
}

// NewRouter создаёт пустой Router.
func NewRouter() *Router {
	return &Router{}
}

// Register добавляет маршрут. Повторная регистрация того же шаблона
// заменяет обработчик, не создавая дубликата.
func (rt *Router) Register(pattern string, handler http.Handler) error {
	segments, err := parsePattern(pattern)
	if err != nil {
		return err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	for _, r := range rt.routes {
		if r.pattern == pattern {
			r.handler = handler
			return nil
		}
	}

	rt.routes = append(rt.routes, &route{pattern: pattern, segments: segments, handler: handler})
	return nil
}

// Unregister удаляет маршрут. Возвращает false, если его не было.
func (rt *Router) Unregister(pattern string) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	for i, r := range rt.routes {
		if r.pattern == pattern {
			rt.routes = append(rt.routes[:i], rt.routes[i+1:]...)
			return true
		}
	}
	return false
}

// Patterns возвращает зарегистрированные шаблоны в порядке регистрации.
func (rt *Router) Patterns() []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	out := make([]string, len(rt.routes))
	for i, r := range rt.routes {
		out[i] = r.pattern
	}
	return out
}

// ServeHTTP передаёт запрос первому подходящему маршруту.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler, params, ok := rt.match(r.URL.Path)
	if !ok {
		NotFound(w, "no route for "+r.URL.Path)
		return
	}

	for name, value := range params {
		r.SetPathValue(name, value)
	}
	handler.ServeHTTP(w, r)
}

func (rt *Router) match(path string) (http.Handler, map[string]string, bool) {
	parts := splitPath(path)

	rt.mu.RLock()
	defer rt.mu.RUnlock()

	for _, r := range rt.routes {
		if params, ok := matchSegments(r.segments, parts); ok {
			return r.handler, params, true
		}
	}
	return nil, nil, false
}

func matchSegments(segments, parts []string) (map[string]string, bool) {
	params := make(map[string]string)

	for i, seg := range segments {
		if seg == "*" {
			params["*"] = strings.Join(parts[i:], "/")
			return params, true
		}
		if i >= len(parts) {
			return nil, false
		}
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			params[name] = parts[i]
			continue
		}
		if seg != parts[i] {
			return nil, false
		}
	}

	if len(parts) != len(segments) {
		return nil, false
	}
	return params, true
}

func parsePattern(pattern string) ([]string, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("%w: %q must start with /", ErrInvalidRoute, pattern)
	}

	segments := splitPath(pattern)
	for i, seg := range segments {
		if seg == "*" && i != len(segments)-1 {
			return nil, fmt.Errorf("%w: %q: * must be the last segment", ErrInvalidRoute, pattern)
		}
		if seg == ":" {
			return nil, fmt.Errorf("%w: %q: empty parameter name", ErrInvalidRoute, pattern)
		}
	}
	return segments, nil
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
