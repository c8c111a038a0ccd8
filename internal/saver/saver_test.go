package saver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/artemshloyda/heic2jpeg/internal/pipeline"
	"github.com/artemshloyda/heic2jpeg/internal/settings"
)

// memStore - хранилище состояния в памяти для тестов.
type memStore struct {
	data map[string]string
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (m *memStore) GetState(key string) (string, error) {
	return m.data[key], nil
}

func (m *memStore) SetState(key, value string) error {
	m.data[key] = value
	return nil
}

// stageResult создаёт временный выходной файл и результат конвертации.
func stageResult(t *testing.T, name, content string) pipeline.FileResult {
	t.Helper()
	staging := t.TempDir()
	path := filepath.Join(staging, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Не удалось создать файл: %v", err)
	}
	return pipeline.FileResult{DstName: name, DstPath: path}
}

func TestSaveBrowserMethod(t *testing.T) {
	downloads := t.TempDir()
	res := stageResult(t, "photo.jpg", "jpeg-data")

	s := New(settings.SaveBrowser, nil, nil, downloads, nil)
	notice := s.Save(res)

	if notice.FallbackUsed {
		t.Error("Обычная доставка не должна помечаться как запасная")
	}
	if notice.Message != "" {
		t.Errorf("Неожиданное уведомление: %q", notice.Message)
	}

	data, err := os.ReadFile(filepath.Join(downloads, "photo.jpg"))
	if err != nil {
		t.Fatalf("Файл не доставлен в загрузки: %v", err)
	}
	if string(data) != "jpeg-data" {
		t.Errorf("Содержимое искажено: %q", data)
	}

	// Временная копия должна быть освобождена
	if _, err := os.Stat(res.DstPath); !os.IsNotExist(err) {
		t.Error("Временная копия не удалена после доставки")
	}
}

func TestSaveFilesystemGranted(t *testing.T) {
	target := t.TempDir()
	downloads := t.TempDir()
	res := stageResult(t, "photo.jpg", "jpeg-data")

	handle := &DirHandle{Path: target, Permission: PermissionGranted}
	s := New(settings.SaveFilesystem, handle, newMemStore(), downloads, nil)
	notice := s.Save(res)

	if notice.FallbackUsed {
		t.Errorf("Ожидалась прямая запись, получен запасной способ: %s", notice.Message)
	}
	if _, err := os.Stat(filepath.Join(target, "photo.jpg")); err != nil {
		t.Errorf("Файл не записан в выбранную директорию: %v", err)
	}
	if entries, _ := os.ReadDir(downloads); len(entries) != 0 {
		t.Error("В загрузках не должно быть файлов при прямой записи")
	}
}

func TestSaveFilesystemPermissionDenied(t *testing.T) {
	target := t.TempDir()
	downloads := t.TempDir()
	res := stageResult(t, "photo.jpg", "jpeg-data")

	store := newMemStore()
	handle := &DirHandle{Path: target, Permission: PermissionNotRequested}
	prompts := 0
	deny := func(path string) bool {
		prompts++
		return false
	}

	s := New(settings.SaveFilesystem, handle, store, downloads, deny)
	notice := s.Save(res)

	// Отказ приводит к запасному способу с уведомлением,
	// ошибка не покидает Save
	if !notice.FallbackUsed {
		t.Error("Отказ в разрешении должен приводить к запасному способу")
	}
	if notice.Message == "" {
		t.Error("Ожидалось уведомление о запасном способе")
	}
	if prompts != 1 {
		t.Errorf("Ожидался ровно один запрос разрешения, было %d", prompts)
	}

	if _, err := os.Stat(filepath.Join(downloads, "photo.jpg")); err != nil {
		t.Errorf("Файл не доставлен запасным способом: %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "photo.jpg")); !os.IsNotExist(err) {
		t.Error("Файл не должен попадать в директорию без разрешения")
	}

	// Отказ запоминается и повторный запрос не выполняется
	if LoadHandle(store).Permission != PermissionDenied {
		t.Error("Отказ должен сохраняться в хранилище")
	}
	res2 := stageResult(t, "other.jpg", "x")
	s.Save(res2)
	if prompts != 1 {
		t.Errorf("Повторный запрос после отказа: %d запросов", prompts)
	}
}

func TestSaveFilesystemPromptGranted(t *testing.T) {
	target := t.TempDir()
	downloads := t.TempDir()
	res := stageResult(t, "photo.jpg", "jpeg-data")

	store := newMemStore()
	handle := &DirHandle{Path: target, Permission: PermissionNotRequested}
	allow := func(path string) bool { return true }

	s := New(settings.SaveFilesystem, handle, store, downloads, allow)
	notice := s.Save(res)

	if notice.FallbackUsed {
		t.Errorf("После разрешения ожидалась прямая запись: %s", notice.Message)
	}
	if LoadHandle(store).Permission != PermissionGranted {
		t.Error("Выданное разрешение должно сохраняться в хранилище")
	}
}

func TestSaveFilesystemMissingDirectory(t *testing.T) {
	downloads := t.TempDir()
	res := stageResult(t, "photo.jpg", "jpeg-data")

	handle := &DirHandle{Path: "/nonexistent/heic2jpeg-test", Permission: PermissionGranted}
	s := New(settings.SaveFilesystem, handle, newMemStore(), downloads, nil)
	notice := s.Save(res)

	if !notice.FallbackUsed {
		t.Error("Недоступная директория должна приводить к запасному способу")
	}
	if _, err := os.Stat(filepath.Join(downloads, "photo.jpg")); err != nil {
		t.Errorf("Файл не доставлен запасным способом: %v", err)
	}
}

func TestSaveAllContinuesOnFailure(t *testing.T) {
	downloads := t.TempDir()

	good := stageResult(t, "a.jpg", "a")
	// Источник отсутствует - доставка невозможна ни одним способом
	missing := pipeline.FileResult{DstName: "b.jpg", DstPath: filepath.Join(t.TempDir(), "gone.jpg")}
	good2 := stageResult(t, "c.jpg", "c")

	s := New(settings.SaveBrowser, nil, nil, downloads, nil)
	notices := s.SaveAll([]pipeline.FileResult{good, missing, good2})

	if len(notices) != 3 {
		t.Fatalf("Ожидалось 3 уведомления, получено %d", len(notices))
	}
	if notices[1].Message == "" {
		t.Error("Недоставленный файл должен давать уведомление")
	}
	for _, name := range []string{"a.jpg", "c.jpg"} {
		if _, err := os.Stat(filepath.Join(downloads, name)); err != nil {
			t.Errorf("Файл %s не доставлен: %v", name, err)
		}
	}
}

func TestHandleRoundtrip(t *testing.T) {
	store := newMemStore()

	if LoadHandle(store) != nil {
		t.Error("Пустое хранилище должно давать nil")
	}
	if HasFilesystemCapability(store) {
		t.Error("Возможность прямой записи без записи о директории")
	}

	h := &DirHandle{Path: "/photos", Permission: PermissionGranted}
	if err := SaveHandle(store, h); err != nil {
		t.Fatalf("Не удалось сохранить запись: %v", err)
	}

	loaded := LoadHandle(store)
	if loaded == nil || loaded.Path != "/photos" || loaded.Permission != PermissionGranted {
		t.Errorf("Запись восстановлена неверно: %+v", loaded)
	}
	if !HasFilesystemCapability(store) {
		t.Error("Возможность прямой записи должна определяться записью")
	}
}

func TestLoadHandleCorrupt(t *testing.T) {
	store := newMemStore()
	store.data[handleKey] = "{не json"

	if LoadHandle(store) != nil {
		t.Error("Повреждённая запись должна давать nil")
	}
}
