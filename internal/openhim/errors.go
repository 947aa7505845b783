package openhim

import "errors"

// Ошибки клиента OpenHIM API.
var (
	// ErrAuthentication — не удалось получить salt/ts для пользователя.
	ErrAuthentication = errors.New("openhim authentication failed")

	// ErrUnexpectedStatus — API ответил неожиданным HTTP кодом.
	ErrUnexpectedStatus = errors.New("unexpected openhim api status")

	// ErrChannelNotFound — канал с таким именем не найден.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrInvalidTransactionID — id не является 24-символьным hex id транзакции.
	ErrInvalidTransactionID = errors.New("invalid transaction id")
)
