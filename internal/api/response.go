package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shaiso/filequeue/internal/domain"
	"github.com/shaiso/filequeue/internal/openhim"
)

// ErrorCode — код ошибки управляющего API.
type ErrorCode string

const (
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeWorkerNotFound ErrorCode = "WORKER_NOT_FOUND"
	ErrCodeInternalError  ErrorCode = "INTERNAL_ERROR"
)

// QueuedBody — тело вложенного ответа ingestion.
const QueuedBody = "Request added to queue\n"

// ErrorResponse — JSON-ответ с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// DataResponse — ответ с одним объектом.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — ответ со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

// MediatorResponse — ответ в формате mediator'а OpenHIM.
// OpenHIM записывает его в транзакцию как есть.
type MediatorResponse struct {
	URN      string         `json:"x-mediator-urn"`
	Status   string         `json:"status"`
	Response MediatorResult `json:"response"`
}

// MediatorResult — вложенный ответ mediator'а.
type MediatorResult struct {
	Status    int    `json:"status"`
	Body      string `json:"body"`
	Timestamp string `json:"timestamp"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	writeJSON(w, "application/json", status, data)
}

func writeJSON(w http.ResponseWriter, contentType string, status int, data any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Text отправляет текстовый ответ. Управляющие маршруты отвечают
// текстом, как и сам mediator в OpenHIM.
func Text(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, message)
}

// Success отправляет объект.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

// List отправляет список.
func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// Accepted отправляет 202 в формате mediator'а: элемент сохранён
// и будет доставлен позже, транзакция остаётся Processing.
func Accepted(w http.ResponseWriter, urn string, at time.Time) {
	writeJSON(w, openhim.ContentTypeOpenHIM, http.StatusAccepted, MediatorResponse{
		URN:    urn,
		Status: string(domain.TxStatusProcessing),
		Response: MediatorResult{
			Status:    http.StatusAccepted,
			Body:      QueuedBody,
			Timestamp: at.UTC().Format(time.RFC3339Nano),
		},
	})
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// NotFound отправляет 404 для пути без маршрута.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// WorkerNotFound отправляет 404 для неизвестного воркера.
func WorkerNotFound(w http.ResponseWriter, name string) {
	Error(w, http.StatusNotFound, ErrCodeWorkerNotFound, "worker not found: "+name)
}

// InternalError логирует ошибку и отправляет 500 без деталей.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("internal error", "error", err)
	}
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}
