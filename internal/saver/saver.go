// Package saver выбирает способ доставки результатов пользователю:
// прямая запись в выбранную директорию или запасная "загрузка" в
// директорию загрузок.
package saver

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/artemshloyda/heic2jpeg/internal/pipeline"
	"github.com/artemshloyda/heic2jpeg/internal/settings"
)

// Permission - состояние разрешения на запись в выбранную директорию.
type Permission string

const (
	PermissionNotRequested Permission = "not-requested"
	PermissionGranted      Permission = "granted"
	PermissionDenied       Permission = "denied"
)

// DirHandle - сохранённая ссылка на выбранную пользователем директорию.
// Переживает перезапуск; разрешение перепроверяется перед каждой записью.
type DirHandle struct {
	// Path - путь к директории.
	Path string `json:"path"`

	// Permission - состояние разрешения.
	Permission Permission `json:"permission"`
}

// HandleStore - долговременное хранилище записи о директории.
// Реализуется таблицей app_state в internal/history.
type HandleStore interface {
	GetState(key string) (string, error)
	SetState(key, value string) error
}

// handleKey - ключ записи в HandleStore.
const handleKey = "directory_handle"

// LoadHandle загружает сохранённую запись о директории.
// Отсутствующая или повреждённая запись - nil без ошибки.
func LoadHandle(store HandleStore) *DirHandle {
	raw, err := store.GetState(handleKey)
	if err != nil || raw == "" {
		return nil
	}
	var h DirHandle
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return nil
	}
	if h.Path == "" {
		return nil
	}
	return &h
}

// SaveHandle сохраняет запись о директории.
func SaveHandle(store HandleStore, h *DirHandle) error {
	data, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return store.SetState(handleKey, string(data))
}

// Prompter выполняет один интерактивный запрос разрешения на запись.
// Возвращает true, если пользователь разрешил.
type Prompter func(path string) bool

// Notice - пользовательское уведомление о доставке одного результата.
// Ошибки сохранения никогда не фатальны: худший случай - запасной
// путь доставки и это уведомление.
type Notice struct {
	// Name - имя выходного файла.
	Name string

	// Path - путь, по которому файл доставлен.
	Path string

	// FallbackUsed - задействован запасной способ сохранения.
	FallbackUsed bool

	// Message - текст уведомления (пустой для обычной доставки).
	Message string
}

// Saver доставляет результаты конвертации по настроенному способу.
type Saver struct {
	// method - настроенный способ сохранения.
	method settings.SaveMethod

	// handle - выбранная директория (может быть nil).
	handle *DirHandle

	// store - хранилище для обновления состояния разрешения.
	store HandleStore

	// downloadsDir - директория запасного способа.
	downloadsDir string

	// prompter - интерактивный запрос разрешения (может быть nil =
	// всегда отказ).
	prompter Prompter
}

// New создаёт новый Saver.
func New(method settings.SaveMethod, handle *DirHandle, store HandleStore, downloadsDir string, prompter Prompter) *Saver {
	return &Saver{
		method:       method,
		handle:       handle,
		store:        store,
		downloadsDir: downloadsDir,
		prompter:     prompter,
	}
}

// HasFilesystemCapability проверяет, доступна ли возможность прямой
// записи: запись о директории существует.
func HasFilesystemCapability(store HandleStore) bool {
	return LoadHandle(store) != nil
}

// Save доставляет один результат.
//
// При способе filesystem с выбранной директорией: разрешение
// проверяется молча, при необходимости выполняется ровно один
// интерактивный запрос. Любая ошибка (отказ, невалидная директория,
// ошибка записи) приводит к запасному способу для этого результата и
// уведомлению - никогда к ошибке наружу.
func (s *Saver) Save(res pipeline.FileResult) Notice {
	if s.method != settings.SaveFilesystem || s.handle == nil {
		return s.fallback(res, "")
	}

	if err := s.verifyPermission(); err != nil {
		return s.fallback(res, err.Error())
	}

	dst := filepath.Join(s.handle.Path, res.DstName)
	if err := deliver(res.DstPath, dst); err != nil {
		return s.fallback(res, fmt.Sprintf("не удалось записать в %s: %v", s.handle.Path, err))
	}

	return Notice{Name: res.DstName, Path: dst}
}

// SaveAll доставляет все результаты.
// Неудача одного результата не мешает остальным.
func (s *Saver) SaveAll(results []pipeline.FileResult) []Notice {
	notices := make([]Notice, 0, len(results))
	for _, res := range results {
		notices = append(notices, s.Save(res))
	}
	return notices
}

// verifyPermission перепроверяет разрешение перед записью.
// Сначала молчаливая проверка; если разрешение не выдано - не более
// одного интерактивного запроса за вызов.
func (s *Saver) verifyPermission() error {
	if s.handle.Permission != PermissionGranted {
		if s.handle.Permission == PermissionDenied || s.prompter == nil || !s.prompter(s.handle.Path) {
			s.setPermission(PermissionDenied)
			return fmt.Errorf("нет разрешения на запись в %s", s.handle.Path)
		}
		s.setPermission(PermissionGranted)
	}

	// Директория могла исчезнуть или стать недоступной с прошлой сессии
	if err := probeWritable(s.handle.Path); err != nil {
		return fmt.Errorf("директория %s недоступна: %w", s.handle.Path, err)
	}

	return nil
}

// setPermission обновляет состояние разрешения в памяти и в хранилище.
func (s *Saver) setPermission(p Permission) {
	s.handle.Permission = p
	if s.store != nil {
		_ = SaveHandle(s.store, s.handle)
	}
}

// fallback доставляет результат запасным способом ("браузерная загрузка").
func (s *Saver) fallback(res pipeline.FileResult, reason string) Notice {
	dst := filepath.Join(s.downloadsDir, res.DstName)
	if err := deliver(res.DstPath, dst); err != nil {
		return Notice{
			Name:         res.DstName,
			FallbackUsed: reason != "",
			Message:      fmt.Sprintf("не удалось сохранить %s: %v", res.DstName, err),
		}
	}

	notice := Notice{Name: res.DstName, Path: dst, FallbackUsed: reason != ""}
	if reason != "" {
		notice.Message = fmt.Sprintf("сохранено в загрузки: %s", reason)
	}
	return notice
}

// probeWritable молча проверяет возможность записи в директорию.
func probeWritable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("не директория")
	}

	probe := filepath.Join(dir, ".heic2jpeg-probe")
	f, err := os.Create(probe)
	if err != nil {
		return err
	}
	_ = f.Close()
	return os.Remove(probe)
}

// deliver копирует файл в место назначения и освобождает временную
// копию. Запись атомарная: временный файл, затем переименование;
// существующий файл перезаписывается.
func deliver(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = srcFile.Close() }()

	tmp := dst + ".part"
	dstFile, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := dstFile.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	// Освобождаем временную копию сразу после доставки, чтобы не
	// копить место на больших пакетах
	_ = os.Remove(src)

	return nil
}

/*
Возможные расширения:
- Добавить выбор шаблона имени файла при конфликтах
- Добавить проверку свободного места перед записью
*/
