// Package config загружает конфигурацию процесса.
//
// Источники:
//   - переменные окружения (порт, OpenHIM API, heartbeat, корень очередей и т.д.)
//   - файл mediator'а (JSON или YAML): регистрационные данные и
//     конфигурация endpoint'ов по умолчанию в секции "config"
//
// Некорректные значения — ошибка Load; процесс с такой конфигурацией
// не стартует.
package config
