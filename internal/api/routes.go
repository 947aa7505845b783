package api

import (
	"net/http"
)

// Routes собирает HTTP-обработчик mediator'а.
//
// Сначала проверяются служебные маршруты (ServeMux), затем
// динамические маршруты ingestion из Router.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /heartbeat", h.Heartbeat)
	mux.HandleFunc("GET /healthz", h.Health)
	if h.metricsHandler != nil {
		mux.Handle("GET /metrics", h.metricsHandler)
	}

	// Workers
	mux.HandleFunc("GET /workers", h.ListWorkers)
	mux.HandleFunc("GET /workers/{name}", h.GetWorker)
	mux.HandleFunc("PUT /workers/{name}", h.SetWorkerPaused)
	mux.HandleFunc("POST /workers/{name}/repopulate", h.RepopulateWorker)

	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, pattern := mux.Handler(r); pattern != "" {
			mux.ServeHTTP(w, r)
			return
		}
		h.router.ServeHTTP(w, r)
	})

	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
		Metrics(h.metrics),
	)
	return chain(root)
}
