// Package scheduler отправляет heartbeat mediator'а по расписанию.
//
// Каждый тик сообщает OpenHIM uptime процесса. Если в ответ пришла
// конфигурация, она передаётся Applier'у (reconciler) и применяется
// к воркерам и маршрутам.
//
// Структура:
//   - scheduler.go — Scheduler (Tick, FetchInitial, Run)
//   - cron.go      — разбор расписания, адаптер логгера для cron
//
// Использование:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Source:   openhimClient,
//	    Applier:  reconciler,
//	    URN:      cfg.Mediator.URN,
//	    Uptime:   handler.Uptime,
//	    Schedule: "@every 10s",
//	    Logger:   logger,
//	})
//
//	// Блокируется до отмены ctx.
//	sched.Run(ctx)
package scheduler
