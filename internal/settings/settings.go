// Package settings содержит пользовательские настройки, переживающие перезапуск.
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Theme определяет тему оформления.
type Theme string

const (
	ThemeAuto  Theme = "auto"
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// SaveMethod определяет способ сохранения результатов.
type SaveMethod string

const (
	// SaveBrowser - сохранение в директорию загрузок (всегда доступно).
	SaveBrowser SaveMethod = "browser"
	// SaveFilesystem - прямая запись в выбранную пользователем директорию.
	SaveFilesystem SaveMethod = "filesystem"
)

// Settings содержит пользовательские настройки.
type Settings struct {
	// Theme - тема оформления (auto, light, dark).
	Theme Theme `yaml:"theme"`

	// DefaultQuality - качество JPEG по умолчанию (0-100).
	DefaultQuality int `yaml:"default_quality"`

	// SaveMethod - способ сохранения результатов (browser, filesystem).
	SaveMethod SaveMethod `yaml:"save_method"`
}

// Defaults возвращает настройки по умолчанию.
func Defaults() Settings {
	return Settings{
		Theme:          ThemeAuto,
		DefaultQuality: 90,
		SaveMethod:     SaveBrowser,
	}
}

// valid проверяет, что все поля в допустимых диапазонах.
func (s Settings) valid() bool {
	switch s.Theme {
	case ThemeAuto, ThemeLight, ThemeDark:
	default:
		return false
	}
	if s.DefaultQuality < 0 || s.DefaultQuality > 100 {
		return false
	}
	switch s.SaveMethod {
	case SaveBrowser, SaveFilesystem:
	default:
		return false
	}
	return true
}

// Store читает и сохраняет настройки в одном YAML файле.
type Store struct {
	// path - путь к файлу настроек.
	path string

	// hasFilesystem сообщает, доступна ли возможность прямой записи
	// в директорию. Если недоступна, save_method=filesystem молча
	// откатывается к browser.
	hasFilesystem func() bool
}

// NewStore создаёт новый Store.
// capability может быть nil - тогда прямая запись считается доступной.
func NewStore(path string, capability func() bool) *Store {
	if capability == nil {
		capability = func() bool { return true }
	}
	return &Store{path: path, hasFilesystem: capability}
}

// Load загружает настройки.
// Отсутствующий или повреждённый файл приводит к значениям по умолчанию,
// без ошибки для пользователя.
func (s *Store) Load() Settings {
	out := Defaults()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return s.normalize(out)
	}

	var loaded Settings
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return s.normalize(out)
	}

	if !loaded.valid() {
		return s.normalize(out)
	}

	return s.normalize(loaded)
}

// normalize приводит настройки к доступным возможностям платформы.
func (s *Store) normalize(st Settings) Settings {
	if st.SaveMethod == SaveFilesystem && !s.hasFilesystem() {
		st.SaveMethod = SaveBrowser
	}
	return st
}

// Save сохраняет настройки целиком (last-write-wins).
func (s *Store) Save(st Settings) error {
	if !st.valid() {
		return fmt.Errorf("некорректные настройки: %+v", st)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("не удалось создать директорию настроек: %w", err)
	}

	data, err := yaml.Marshal(s.normalize(st))
	if err != nil {
		return fmt.Errorf("не удалось сериализовать настройки: %w", err)
	}

	// Атомарная запись: временный файл, затем переименование.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("не удалось записать настройки: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("не удалось сохранить настройки: %w", err)
	}

	return nil
}

/*
Возможные расширения:
- Добавить настройку языка интерфейса
- Добавить миграцию настроек между версиями схемы
*/
