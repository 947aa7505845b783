// Package store хранит элементы очереди на диске.
//
// # Раскладка
//
// Для каждого endpoint'а создаются три директории относительно корня:
//
//	{root}/queue/{endpoint}/
//	{root}/working/{endpoint}/
//	{root}/error/{endpoint}/
//
// Каждая содержит файлы "{transactionId}.{ext}" и, если включён
// forwardMetadata, "{transactionId}-metadata.json".
//
// # Гарантии
//
//   - Тело пишется во временный скрытый файл и атомарно переименовывается
//     в queue, поэтому сканирование очереди не видит недописанных тел.
//   - Transition и Delete сначала работают с телом, потом с метаданными.
//     Если метаданных нет, возвращается ErrMetadataMissing, тело остаётся
//     в новой стадии.
//   - Операции над разными файлами безопасны для параллельного вызова.
//     Операции над одним файлом сериализует worker.
package store
