package store

import "errors"

// Ошибки хранилища элементов.
var (
	// ErrNotFound — файл элемента отсутствует в стадии.
	ErrNotFound = errors.New("item not found")

	// ErrMetadataMissing — тело элемента перемещено/удалено, но файла метаданных нет.
	// Тело при этом уже находится в новой стадии, откат не выполняется.
	ErrMetadataMissing = errors.New("item metadata missing")

	// ErrInvalidFilename — имя файла содержит разделители пути или пустое.
	ErrInvalidFilename = errors.New("invalid item filename")

	// ErrInvalidStage — неизвестная стадия.
	ErrInvalidStage = errors.New("invalid stage")
)
