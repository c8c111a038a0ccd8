// Package config содержит конфигурацию приложения.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Strategy определяет стратегию работы офлайн-кэша при перехвате запросов.
type Strategy string

const (
	// StrategyCacheFirst - сначала кэш, при промахе сеть (без записи в кэш).
	StrategyCacheFirst Strategy = "cache-first"
	// StrategyNetworkFirst - сначала сеть (с записью в кэш), при сбое кэш.
	StrategyNetworkFirst Strategy = "network-first"
)

// Config содержит все настройки приложения.
type Config struct {
	// StateDir - директория состояния (настройки, история, офлайн-кэш).
	StateDir string

	// OutputDir - директория для прямого сохранения результатов.
	// Пустая строка = сохранение через DownloadsDir.
	OutputDir string

	// DownloadsDir - запасная директория сохранения ("браузерная загрузка").
	DownloadsDir string

	// InboxDir - директория для режима watch (аналог drag-and-drop зоны).
	InboxDir string

	// Quality - качество JPEG (1-100). 0 = взять из настроек пользователя.
	Quality int

	// Workers - количество параллельных воркеров конвертации.
	// 1 = строго последовательная обработка с упорядоченным прогрессом.
	Workers int

	// CodecPath - путь к кодек-бинарнику (опционально, иначе автопоиск).
	CodecPath string

	// Origin - базовый URL источника файлов оболочки приложения.
	Origin string

	// CacheStrategy - стратегия перехвата запросов офлайн-кэша.
	CacheStrategy Strategy

	// ServeAddr - адрес локального сервера оболочки.
	ServeAddr string

	// MaxMemoryMB - ограничение использования памяти в мегабайтах (0 = без ограничения).
	MaxMemoryMB int

	// DryRun - режим симуляции без реальной конвертации.
	DryRun bool

	// Verbose - подробный вывод.
	Verbose bool

	// NoProgress - отключить прогресс-бар.
	NoProgress bool
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() *Config {
	return &Config{
		StateDir:      defaultStateDir(),
		DownloadsDir:  defaultDownloadsDir(),
		Quality:       0,
		Workers:       1,
		Origin:        "https://heic2jpeg.app",
		CacheStrategy: StrategyNetworkFirst,
		ServeAddr:     "127.0.0.1:8745",
	}
}

// defaultStateDir возвращает директорию состояния по умолчанию.
func defaultStateDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "heic2jpeg")
	}
	return ".heic2jpeg"
}

// defaultDownloadsDir возвращает директорию загрузок по умолчанию.
func defaultDownloadsDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Downloads")
	}
	return "."
}

// Validate проверяет корректность конфигурации.
func (c *Config) Validate() error {
	if c.StateDir == "" {
		return fmt.Errorf("директория состояния не указана (--state-dir)")
	}
	if c.Quality < 0 || c.Quality > 100 {
		return fmt.Errorf("качество должно быть от 1 до 100, получено: %d", c.Quality)
	}
	if c.Workers < 1 {
		return fmt.Errorf("количество воркеров должно быть >= 1, получено: %d", c.Workers)
	}
	if c.CacheStrategy != StrategyCacheFirst && c.CacheStrategy != StrategyNetworkFirst {
		return fmt.Errorf("неизвестная стратегия кэша: %s (доступны: cache-first, network-first)", c.CacheStrategy)
	}
	return nil
}

// HistoryPath возвращает путь к SQLite базе истории конвертаций.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.StateDir, "history.sqlite")
}

// SettingsPath возвращает путь к файлу пользовательских настроек.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.StateDir, "settings.yaml")
}

// CacheDir возвращает корневую директорию офлайн-кэша.
func (c *Config) CacheDir() string {
	return filepath.Join(c.StateDir, "cache")
}

// LockPath возвращает путь к lock-файлу директории состояния.
func (c *Config) LockPath() string {
	return filepath.Join(c.StateDir, "state.lock")
}

/*
Возможные расширения:
- Добавить настройку таймаута конвертации одного файла
- Добавить настройку debounce для режима watch
- Добавить поддержку нескольких origin для офлайн-кэша
*/
