package scheduler

import "errors"

// Ошибки планировщика heartbeat.
var (
	// ErrInvalidSchedule — расписание не разбирается.
	ErrInvalidSchedule = errors.New("invalid heartbeat schedule")

	// ErrNoConfig — источник не вернул конфигурацию на принудительный запрос.
	ErrNoConfig = errors.New("heartbeat returned no configuration")
)
