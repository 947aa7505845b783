package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shaiso/filequeue/internal/domain"
	"github.com/shaiso/filequeue/internal/mq"
	"github.com/shaiso/filequeue/internal/openhim"
	"github.com/shaiso/filequeue/internal/store"
	"github.com/shaiso/filequeue/internal/telemetry"
)

const publishTimeout = 5 * time.Second

// item — элемент в процессе обработки.
type item struct {
	filename      string
	transactionID string
	// correlated — id транзакции пришёл от вызывающего и его можно сообщать API.
	correlated bool
	logger     *slog.Logger
}

func (d *Dispatcher) newItem(filename string) item {
	txID := domain.TransactionIDFromFilename(filename)
	return item{
		filename:      filename,
		transactionID: txID,
		correlated:    domain.IsValidTransactionID(txID),
		logger:        telemetry.WithFile(d.logger, filename),
	}
}

// process проводит элемент через стадии:
// queue → working → доставка → удаление (успех) или error (неудача).
func (d *Dispatcher) process(ctx context.Context, filename string) {
	cfg := d.Snapshot()
	it := d.newItem(filename)

	err := d.store.Transition(d.name, filename, domain.StageQueue, domain.StageWorking, cfg.ForwardMetadata)
	if err != nil {
		if errors.Is(err, store.ErrMetadataMissing) {
			// Тело уже в working, без метаданных доставить его нельзя.
			d.fail(ctx, cfg, it, nil, err)
			return
		}
		it.logger.Error("failed to move item to working", "error", err)
		d.metrics.IncError(telemetry.ErrorKindStage)
		return
	}

	it.logger.Debug("item started", "transaction_id", it.transactionID)

	started := time.Now()
	resp, err := d.deliver(ctx, cfg, it)
	d.metrics.ObserveDelivery(d.name, time.Since(started))

	if err != nil {
		d.fail(ctx, cfg, it, resp, err)
		return
	}
	d.succeed(ctx, cfg, it, resp)
}

func (d *Dispatcher) succeed(ctx context.Context, cfg domain.Endpoint, it item, resp *upstreamResponse) {
	it.logger.Info("item delivered", "status", resp.status)
	d.metrics.IncItem(d.name, telemetry.OutcomeDelivered)

	d.notify(ctx, cfg, it, resp, nil)

	err := d.store.Delete(d.name, it.filename, domain.StageWorking, cfg.ForwardMetadata)
	if err != nil && !errors.Is(err, store.ErrMetadataMissing) {
		it.logger.Error("failed to delete delivered item", "error", err)
		d.metrics.IncError(telemetry.ErrorKindStage)
	}

	d.publish(ctx, it, resp, nil)
}

// fail переносит элемент в error. resp == nil — ответа от upstream не было.
func (d *Dispatcher) fail(ctx context.Context, cfg domain.Endpoint, it item, resp *upstreamResponse, cause error) {
	args := []any{"error", cause}
	if resp != nil {
		args = append(args, "status", resp.status)
	}
	it.logger.Error("item failed", args...)
	d.metrics.IncError(telemetry.ErrorKindDelivery)
	d.metrics.IncItem(d.name, telemetry.OutcomeFailed)

	// Метаданных может не быть (именно из-за этого элемент и упал).
	err := d.store.Transition(d.name, it.filename, domain.StageWorking, domain.StageError, cfg.ForwardMetadata)
	if err != nil && !errors.Is(err, store.ErrMetadataMissing) {
		it.logger.Error("failed to move item to error", "error", err)
		d.metrics.IncError(telemetry.ErrorKindStage)
	}

	d.notify(ctx, cfg, it, resp, cause)
	d.publish(ctx, it, resp, cause)
}

// notify обновляет транзакцию, если это включено и id настоящий.
// Ошибки только логируются: исход элемента уже определён.
func (d *Dispatcher) notify(ctx context.Context, cfg domain.Endpoint, it item, resp *upstreamResponse, cause error) {
	if !cfg.UpdateTx || !it.correlated || d.notifier == nil {
		return
	}

	var err error
	if resp != nil {
		err = d.notifier.Notify(ctx, it.transactionID, resp.status, resp.header, resp.body, openhim.IsMediatorResponse(resp.header))
	} else {
		err = d.notifier.NotifyFailure(ctx, it.transactionID, cause)
	}

	if err != nil {
		it.logger.Warn("failed to update transaction", "transaction_id", it.transactionID, "error", err)
		d.metrics.IncError(telemetry.ErrorKindNotification)
	}
}

func (d *Dispatcher) publish(ctx context.Context, it item, resp *upstreamResponse, cause error) {
	if d.events == nil {
		return
	}

	payload := mq.ItemEventPayload{
		Endpoint: d.name,
		File:     it.filename,
	}
	if it.correlated {
		payload.TransactionID = it.transactionID
	}
	if resp != nil {
		payload.StatusCode = resp.status
	}
	if cause != nil {
		payload.Error = cause.Error()
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := d.events.PublishItemEvent(ctx, payload); err != nil {
		it.logger.Warn("failed to publish item event", "error", err)
		d.metrics.IncError(telemetry.ErrorKindEvent)
	}
}
