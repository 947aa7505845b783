package domain

import (
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// MetadataSuffix — суффикс файла метаданных: "{transactionId}-metadata.json".
const MetadataSuffix = "-metadata.json"

// TransactionIDHeader — заголовок корреляции с transaction API.
const TransactionIDHeader = "X-OpenHIM-TransactionID"

// Расширения файлов элементов.
const (
	ExtJSON = "json"
	ExtXML  = "xml"
	ExtText = "txt"
)

var transactionIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// IsValidTransactionID проверяет, что id — 24-символьный hex идентификатор транзакции.
func IsValidTransactionID(id string) bool {
	return transactionIDPattern.MatchString(id)
}

// NewLocalTransactionID генерирует локальный id для запроса без транзакции.
//
// Первый символ намеренно заменяется на 'x', поэтому такой id
// никогда не проходит IsValidTransactionID и не попадает в transaction API.
func NewLocalTransactionID() string {
	id := uuid.New()
	hex := strings.ReplaceAll(id.String(), "-", "")[:24]
	return "x" + hex[1:]
}

// ItemFilename формирует имя файла элемента: "{transactionId}.{ext}".
func ItemFilename(transactionID, ext string) string {
	return transactionID + "." + ext
}

// TransactionIDFromFilename извлекает transactionId из имени файла (всё до первой точки).
func TransactionIDFromFilename(filename string) string {
	if i := strings.Index(filename, "."); i >= 0 {
		return filename[:i]
	}
	return filename
}

// MetadataFilename возвращает имя sidecar-файла метаданных для элемента.
func MetadataFilename(filename string) string {
	return TransactionIDFromFilename(filename) + MetadataSuffix
}

// IsMetadataFile возвращает true для sidecar-файлов метаданных.
func IsMetadataFile(filename string) bool {
	return strings.HasSuffix(filename, MetadataSuffix)
}

// ExtensionForContentType выбирает расширение по Content-Type входящего запроса.
//
// application/json и *+json → json, application/xml, text/xml и *+xml → xml,
// всё остальное (включая отсутствующий заголовок) → txt.
func ExtensionForContentType(contentType string) string {
	if contentType == "" {
		return ExtText
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ExtText
	}

	switch {
	case mediaType == "application/json", strings.HasSuffix(mediaType, "+json"):
		return ExtJSON
	case mediaType == "application/xml", mediaType == "text/xml", strings.HasSuffix(mediaType, "+xml"):
		return ExtXML
	default:
		return ExtText
	}
}

// ContentTypeForFile возвращает Content-Type исходящего запроса по расширению файла.
func ContentTypeForFile(filename string) string {
	switch filepath.Ext(filename) {
	case "." + ExtJSON:
		return "application/json"
	case "." + ExtXML:
		return "application/xml"
	default:
		return "text/plain"
	}
}
