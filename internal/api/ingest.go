package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shaiso/filequeue/internal/domain"
	"github.com/shaiso/filequeue/internal/telemetry"
	"github.com/shaiso/filequeue/internal/worker"
)

// IngestHandler возвращает обработчик приёма элементов для endpoint'а.
//
// Dispatcher ищется в реестре на каждый запрос, поэтому обработчик
// видит актуальную конфигурацию после Reconfigure.
func (h *Handler) IngestHandler(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ingest(w, r, name)
	})
}

// ingest сохраняет запрос в стадию queue и ставит его в очередь.
// ANY {endpoint.path}
func (h *Handler) ingest(w http.ResponseWriter, r *http.Request, name string) {
	d, ok := h.registry.FindByName(name)
	if !ok {
		WorkerNotFound(w, name)
		return
	}
	cfg := d.Snapshot()

	txID := r.Header.Get(domain.TransactionIDHeader)
	if !domain.IsValidTransactionID(txID) {
		txID = domain.NewLocalTransactionID()
	}
	filename := domain.ItemFilename(txID, domain.ExtensionForContentType(r.Header.Get("Content-Type")))

	logger := telemetry.WithFile(telemetry.WithEndpoint(h.logger, name), filename)

	if cfg.ForwardMetadata {
		if err := h.store.WriteMetadata(name, filename, domain.MetadataFromRequest(r)); err != nil {
			h.metrics.IncError(telemetry.ErrorKindIngest)
			InternalError(w, logger, fmt.Errorf("write metadata: %w", err))
			return
		}
	}

	size, err := h.store.Enqueue(name, filename, r.Body)
	if err != nil {
		if cfg.ForwardMetadata {
			if derr := h.store.DeleteMetadata(name, filename, domain.StageQueue); derr != nil {
				logger.Warn("failed to remove metadata of rejected item", "error", derr)
			}
		}
		h.metrics.IncError(telemetry.ErrorKindIngest)
		InternalError(w, logger, fmt.Errorf("write body: %w", err))
		return
	}

	if err := d.Enqueue(filename); err != nil {
		if !errors.Is(err, worker.ErrDispatcherStopped) {
			h.metrics.IncError(telemetry.ErrorKindIngest)
			InternalError(w, logger, err)
			return
		}
		// Файл уже в queue: его подхватит следующий Repopulate.
		logger.Warn("dispatcher stopped, item left in queue")
	}

	h.metrics.IncItem(name, telemetry.OutcomeQueued)
	logger.Debug("item queued", "bytes", size)

	Accepted(w, h.urn, h.now())
}
