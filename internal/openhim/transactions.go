package openhim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shaiso/filequeue/internal/domain"
)

// TransactionResponse — ответ upstream'а в формате записи транзакции.
type TransactionResponse struct {
	Status    int               `json:"status"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      string            `json:"body"`
	Timestamp string            `json:"timestamp"`
}

// TransactionError — описание сетевой ошибки доставки.
type TransactionError struct {
	Message string `json:"message"`
}

// TransactionUpdate — синтезированное обновление транзакции.
type TransactionUpdate struct {
	Status   domain.TxStatus      `json:"status"`
	Response *TransactionResponse `json:"response,omitempty"`
	Error    *TransactionError    `json:"error,omitempty"`
}

// IsMediatorResponse проверяет, что upstream ответил в формате mediator'а
// (Content-Type: application/json+openhim).
func IsMediatorResponse(header http.Header) bool {
	ct := header.Get("Content-Type")
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == ContentTypeOpenHIM
}

// UpdateTransaction отправляет обновление транзакции.
// PUT /transactions/{id}
func (c *Client) UpdateTransaction(ctx context.Context, transactionID string, update any) error {
	if !domain.IsValidTransactionID(transactionID) {
		return fmt.Errorf("%w: %q", ErrInvalidTransactionID, transactionID)
	}

	resp, err := c.do(ctx, http.MethodPut, "/transactions/"+url.PathEscape(transactionID), update, ContentTypeOpenHIM)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := expectStatus(resp, http.StatusOK); err != nil {
		return fmt.Errorf("update transaction %s: %w", transactionID, err)
	}
	return nil
}

// Notifier сообщает transaction API результат доставки элемента.
type Notifier struct {
	client *Client
	logger *slog.Logger
	now    func() time.Time
}

// NewNotifier создаёт Notifier поверх клиента API.
func NewNotifier(client *Client, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{client: client, logger: logger, now: time.Now}
}

// Notify отправляет статус транзакции по ответу upstream'а.
//
// Если envelope == true и тело — корректный JSON, ответ mediator'а
// пересылается как есть, а orchestrations переносятся в $push,
// чтобы дописываться к уже существующим. Иначе синтезируется запись
// со статусом Successful/Completed/Failed.
func (n *Notifier) Notify(ctx context.Context, transactionID string, status int, header http.Header, body []byte, envelope bool) error {
	var update any
	if envelope {
		if u, ok := envelopeUpdate(body); ok {
			update = u
		}
	}
	if update == nil {
		update = n.statusUpdate(status, header, body)
	}

	if err := n.client.UpdateTransaction(ctx, transactionID, update); err != nil {
		return err
	}

	n.logger.Info("transaction updated", "transaction_id", transactionID, "status", status)
	return nil
}

// NotifyFailure сообщает transaction API, что доставка не состоялась (сетевая ошибка).
func (n *Notifier) NotifyFailure(ctx context.Context, transactionID string, cause error) error {
	update := TransactionUpdate{
		Status: domain.TxStatusFailed,
		Error:  &TransactionError{Message: cause.Error()},
	}

	if err := n.client.UpdateTransaction(ctx, transactionID, update); err != nil {
		return err
	}

	n.logger.Info("transaction marked failed", "transaction_id", transactionID)
	return nil
}

func (n *Notifier) statusUpdate(status int, header http.Header, body []byte) TransactionUpdate {
	headers := make(map[string]string, len(header))
	for key, values := range header {
		headers[key] = strings.Join(values, ", ")
	}

	return TransactionUpdate{
		Status: domain.TxStatusFromCode(status),
		Response: &TransactionResponse{
			Status:    status,
			Headers:   headers,
			Body:      stringifyBody(header.Get("Content-Type"), body),
			Timestamp: n.now().UTC().Format(time.RFC3339Nano),
		},
	}
}

// envelopeUpdate превращает ответ mediator'а в обновление транзакции.
func envelopeUpdate(body []byte) (map[string]any, bool) {
	var update map[string]any
	if err := json.Unmarshal(body, &update); err != nil || update == nil {
		return nil, false
	}

	if orchestrations, ok := update["orchestrations"]; ok {
		update["$push"] = map[string]any{"orchestrations": orchestrations}
		delete(update, "orchestrations")
	}
	return update, true
}

// stringifyBody приводит тело ответа к строке; JSON форматируется с отступами.
func stringifyBody(contentType string, body []byte) string {
	if strings.Contains(contentType, "json") {
		var buf bytes.Buffer
		if err := json.Indent(&buf, body, "", "  "); err == nil {
			return buf.String()
		}
	}
	return string(body)
}
