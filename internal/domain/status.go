package domain

// Stage — директория, в которой сейчас лежит элемент.
//
// Жизненный цикл:
//
//	queue → working → (удалён)
//	                ↘ error
//
// Тело элемента и его метаданные всегда находятся ровно в одной стадии.
type Stage string

const (
	// StageQueue — элемент принят и ждёт обработки.
	StageQueue Stage = "queue"

	// StageWorking — элемент обрабатывается worker'ом.
	StageWorking Stage = "working"

	// StageError — доставка не удалась, нужна ручная обработка.
	StageError Stage = "error"
)

// Stages возвращает все стадии в порядке жизненного цикла.
func Stages() []Stage {
	return []Stage{StageQueue, StageWorking, StageError}
}

// TxStatus — статус транзакции, который отправляется в transaction API.
type TxStatus string

const (
	// TxStatusProcessing — запрос принят в очередь (ответ ingestion'а).
	TxStatusProcessing TxStatus = "Processing"

	// TxStatusSuccessful — upstream ответил 2xx.
	TxStatusSuccessful TxStatus = "Successful"

	// TxStatusCompleted — upstream ответил 4xx.
	TxStatusCompleted TxStatus = "Completed"

	// TxStatusFailed — любой другой ответ или сетевая ошибка.
	TxStatusFailed TxStatus = "Failed"
)

// TxStatusFromCode определяет статус транзакции по HTTP коду ответа upstream'а.
// Код 0 означает, что ответа не было (сетевая ошибка).
func TxStatusFromCode(code int) TxStatus {
	switch {
	case code >= 200 && code <= 299:
		return TxStatusSuccessful
	case code >= 400 && code <= 499:
		return TxStatusCompleted
	default:
		return TxStatusFailed
	}
}
