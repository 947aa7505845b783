package domain

import (
	"net/http"
	"strings"
)

// Metadata — исходные параметры входящего запроса.
//
// Сохраняется рядом с телом элемента, если у endpoint'а включён
// ForwardMetadata, и используется для построения исходящего запроса.
type Metadata struct {
	// Method — HTTP метод входящего запроса.
	Method string `json:"method"`

	// URL — путь с query строкой, как его получил ingestion ("/x?y=1").
	URL string `json:"url"`

	// Headers — заголовки входящего запроса. Повторяющиеся значения склеены через ", ".
	Headers map[string]string `json:"headers"`
}

// MetadataFromRequest снимает метаданные с входящего запроса.
func MetadataFromRequest(r *http.Request) Metadata {
	headers := make(map[string]string, len(r.Header))
	for key, values := range r.Header {
		headers[key] = strings.Join(values, ", ")
	}

	return Metadata{
		Method:  r.Method,
		URL:     r.URL.RequestURI(),
		Headers: headers,
	}
}
