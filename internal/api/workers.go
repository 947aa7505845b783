package api

import (
	"encoding/json"
	"net/http"

	"github.com/shaiso/filequeue/internal/worker"
)

// HeartbeatResponse — ответ /heartbeat.
type HeartbeatResponse struct {
	Uptime float64 `json:"uptime"`
}

// ListWorkers возвращает состояние всех воркеров.
// GET /workers
func (h *Handler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	dispatchers := h.registry.All()

	statuses := make([]worker.Status, 0, len(dispatchers))
	for _, d := range dispatchers {
		statuses = append(statuses, d.Status())
	}

	List(w, statuses, len(statuses))
}

// GetWorker возвращает состояние одного воркера.
// GET /workers/{name}
func (h *Handler) GetWorker(w http.ResponseWriter, r *http.Request) {
	d, ok := h.registry.FindByName(r.PathValue("name"))
	if !ok {
		WorkerNotFound(w, r.PathValue("name"))
		return
	}

	Success(w, d.Status())
}

// SetWorkerPaused ставит воркер на паузу или снимает с неё.
// PUT /workers/{name}  {"paused": bool}
func (h *Handler) SetWorkerPaused(w http.ResponseWriter, r *http.Request) {
	d, ok := h.registry.FindByName(r.PathValue("name"))
	if !ok {
		WorkerNotFound(w, r.PathValue("name"))
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		Text(w, http.StatusBadRequest, "Missing or invalid property: paused")
		return
	}

	paused, ok := body["paused"].(bool)
	if !ok {
		Text(w, http.StatusBadRequest, "Missing or invalid property: paused")
		return
	}

	if paused {
		d.Pause()
		Text(w, http.StatusOK, "Worker paused")
		return
	}

	d.Resume()
	Text(w, http.StatusOK, "Worker resumed")
}

// RepopulateWorker заново заполняет очередь воркера из директории queue.
// POST /workers/{name}/repopulate
func (h *Handler) RepopulateWorker(w http.ResponseWriter, r *http.Request) {
	d, ok := h.registry.FindByName(r.PathValue("name"))
	if !ok {
		WorkerNotFound(w, r.PathValue("name"))
		return
	}

	if err := d.Repopulate(); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Text(w, http.StatusOK, "Worker repopulated")
}

// Heartbeat возвращает uptime процесса в секундах.
// GET /heartbeat
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, HeartbeatResponse{Uptime: h.Uptime().Seconds()})
}

// Health — проверка живости.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	Text(w, http.StatusOK, "ok")
}
