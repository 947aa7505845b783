package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shaiso/filequeue/internal/domain"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Store — файловое хранилище элементов с тремя стадиями на endpoint.
type Store struct {
	root string
}

// New создаёт Store с корнем root. Директории создаются через EnsureDirs.
func New(root string) *Store {
	return &Store{root: root}
}

// Root возвращает корень хранилища.
func (s *Store) Root() string {
	return s.root
}

// Dir возвращает путь к директории стадии для endpoint'а.
func (s *Store) Dir(stage domain.Stage, endpoint string) string {
	return filepath.Join(s.root, string(stage), endpoint)
}

// EnsureDirs идемпотентно создаёт директории всех стадий для endpoint'а.
func (s *Store) EnsureDirs(endpoint string) error {
	if err := checkName(endpoint); err != nil {
		return fmt.Errorf("endpoint %q: %w", endpoint, err)
	}
	for _, stage := range domain.Stages() {
		if err := os.MkdirAll(s.Dir(stage, endpoint), dirPerm); err != nil {
			return fmt.Errorf("create %s dir: %w", stage, err)
		}
	}
	return nil
}

// Enqueue сохраняет тело элемента в стадию queue.
//
// Тело потоково пишется во временный файл и переименовывается
// в filename только после успешной записи. Возвращает размер тела.
func (s *Store) Enqueue(endpoint, filename string, body io.Reader) (int64, error) {
	if err := checkName(filename); err != nil {
		return 0, err
	}

	dir := s.Dir(domain.StageQueue, endpoint)
	tmp, err := os.CreateTemp(dir, "."+filename+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, body)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return n, fmt.Errorf("write body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return n, fmt.Errorf("close body: %w", err)
	}

	if err := os.Rename(tmpName, filepath.Join(dir, filename)); err != nil {
		os.Remove(tmpName)
		return n, fmt.Errorf("commit body: %w", err)
	}

	return n, nil
}

// WriteMetadata сохраняет sidecar-файл метаданных элемента в стадию queue.
func (s *Store) WriteMetadata(endpoint, filename string, md domain.Metadata) error {
	if err := checkName(filename); err != nil {
		return err
	}

	data, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	path := filepath.Join(s.Dir(domain.StageQueue, endpoint), domain.MetadataFilename(filename))
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// ReadMetadata читает метаданные элемента из стадии.
func (s *Store) ReadMetadata(endpoint, filename string, stage domain.Stage) (domain.Metadata, error) {
	var md domain.Metadata
	if err := checkName(filename); err != nil {
		return md, err
	}

	data, err := os.ReadFile(filepath.Join(s.Dir(stage, endpoint), domain.MetadataFilename(filename)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return md, fmt.Errorf("%w: %s", ErrMetadataMissing, filename)
		}
		return md, fmt.Errorf("read metadata: %w", err)
	}

	if err := json.Unmarshal(data, &md); err != nil {
		return md, fmt.Errorf("parse metadata: %w", err)
	}
	return md, nil
}

// Open открывает тело элемента в стадии на чтение.
func (s *Store) Open(endpoint, filename string, stage domain.Stage) (*os.File, error) {
	if err := checkName(filename); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.Dir(stage, endpoint), filename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, stage, filename)
		}
		return nil, fmt.Errorf("open item: %w", err)
	}
	return f, nil
}

// Transition переносит элемент из одной стадии в другую.
//
// Сначала переносится тело. Если withMetadata, затем переносятся метаданные;
// их отсутствие — ErrMetadataMissing (тело уже в стадии to).
func (s *Store) Transition(endpoint, filename string, from, to domain.Stage, withMetadata bool) error {
	if err := checkName(filename); err != nil {
		return err
	}
	if err := checkStage(from); err != nil {
		return err
	}
	if err := checkStage(to); err != nil {
		return err
	}

	fromDir := s.Dir(from, endpoint)
	toDir := s.Dir(to, endpoint)

	if err := moveFile(filepath.Join(fromDir, filename), filepath.Join(toDir, filename)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, from, filename)
		}
		return fmt.Errorf("move %s → %s: %w", from, to, err)
	}

	if !withMetadata {
		return nil
	}

	mdName := domain.MetadataFilename(filename)
	if err := moveFile(filepath.Join(fromDir, mdName), filepath.Join(toDir, mdName)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s/%s", ErrMetadataMissing, from, mdName)
		}
		return fmt.Errorf("move metadata %s → %s: %w", from, to, err)
	}
	return nil
}

// Delete удаляет элемент из стадии: сначала тело, потом метаданные.
func (s *Store) Delete(endpoint, filename string, stage domain.Stage, withMetadata bool) error {
	if err := checkName(filename); err != nil {
		return err
	}

	dir := s.Dir(stage, endpoint)
	if err := os.Remove(filepath.Join(dir, filename)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, stage, filename)
		}
		return fmt.Errorf("delete item: %w", err)
	}

	if !withMetadata {
		return nil
	}

	if err := os.Remove(filepath.Join(dir, domain.MetadataFilename(filename))); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s/%s", ErrMetadataMissing, stage, filename)
		}
		return fmt.Errorf("delete metadata: %w", err)
	}
	return nil
}

// DeleteMetadata удаляет только метаданные элемента.
// Отсутствующий файл не считается ошибкой.
func (s *Store) DeleteMetadata(endpoint, filename string, stage domain.Stage) error {
	if err := checkName(filename); err != nil {
		return err
	}

	path := filepath.Join(s.Dir(stage, endpoint), domain.MetadataFilename(filename))
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete metadata: %w", err)
	}
	return nil
}

// List возвращает тела элементов стадии (без метаданных и временных файлов),
// отсортированные по времени изменения.
func (s *Store) List(endpoint string, stage domain.Stage) ([]string, error) {
	entries, err := os.ReadDir(s.Dir(stage, endpoint))
	if err != nil {
		return nil, fmt.Errorf("read %s dir: %w", stage, err)
	}

	type item struct {
		name    string
		modTime time.Time
	}
	items := make([]item, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || domain.IsMetadataFile(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Файл мог уйти в другую стадию между ReadDir и Info
			continue
		}
		items = append(items, item{name: name, modTime: info.ModTime()})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].modTime.Before(items[j].modTime)
	})

	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.name
	}
	return names, nil
}

// ListPending возвращает элементы, ожидающие обработки (стадия queue).
func (s *Store) ListPending(endpoint string) ([]string, error) {
	return s.List(endpoint, domain.StageQueue)
}

// Exists проверяет наличие тела элемента в стадии.
func (s *Store) Exists(endpoint, filename string, stage domain.Stage) bool {
	_, err := os.Stat(filepath.Join(s.Dir(stage, endpoint), filename))
	return err == nil
}

// RecoverWorking возвращает в queue всё, что осталось в working после падения процесса.
//
// Метаданные переносятся, если они есть; отсутствие метаданных не ошибка.
// Возвращает количество перенесённых элементов.
func (s *Store) RecoverWorking(endpoint string) (int, error) {
	names, err := s.List(endpoint, domain.StageWorking)
	if err != nil {
		return 0, err
	}

	workingDir := s.Dir(domain.StageWorking, endpoint)
	queueDir := s.Dir(domain.StageQueue, endpoint)

	var errs []error
	recovered := 0
	for _, name := range names {
		if err := moveFile(filepath.Join(workingDir, name), filepath.Join(queueDir, name)); err != nil {
			errs = append(errs, fmt.Errorf("recover %s: %w", name, err))
			continue
		}
		mdName := domain.MetadataFilename(name)
		if err := moveFile(filepath.Join(workingDir, mdName), filepath.Join(queueDir, mdName)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("recover metadata %s: %w", mdName, err))
		}
		recovered++
	}

	return recovered, errors.Join(errs...)
}

// moveFile переименовывает файл; если rename невозможен (разные устройства),
// копирует и удаляет исходный.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return err
	}

	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return nil
}

func checkStage(stage domain.Stage) error {
	switch stage {
	case domain.StageQueue, domain.StageWorking, domain.StageError:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStage, stage)
	}
}
