// Package config содержит конфигурацию приложения.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileConfig представляет структуру конфигурационного файла YAML.
// Все поля опциональны - если не указаны, используются значения по умолчанию.
type FileConfig struct {
	// Output - настройки сохранения результатов.
	Output *OutputConfig `yaml:"output,omitempty"`

	// Processing - настройки обработки.
	Processing *ProcessingConfig `yaml:"processing,omitempty"`

	// Shell - настройки офлайн-оболочки.
	Shell *ShellConfig `yaml:"shell,omitempty"`

	// Paths - настройки путей.
	Paths *PathsConfig `yaml:"paths,omitempty"`
}

// OutputConfig содержит настройки сохранения результатов.
type OutputConfig struct {
	// Dir - директория для прямого сохранения результатов.
	Dir string `yaml:"dir,omitempty"`

	// DownloadsDir - запасная директория сохранения.
	DownloadsDir string `yaml:"downloads_dir,omitempty"`

	// Quality - качество JPEG (1-100).
	Quality int `yaml:"quality,omitempty"`
}

// ProcessingConfig содержит настройки обработки.
type ProcessingConfig struct {
	// Workers - количество параллельных воркеров.
	Workers int `yaml:"workers,omitempty"`

	// MaxMemoryMB - ограничение памяти в мегабайтах.
	MaxMemoryMB int `yaml:"max_memory_mb,omitempty"`

	// DryRun - режим симуляции.
	DryRun bool `yaml:"dry_run,omitempty"`

	// Verbose - подробный вывод.
	Verbose bool `yaml:"verbose,omitempty"`

	// NoProgress - отключить прогресс-бар.
	NoProgress bool `yaml:"no_progress,omitempty"`
}

// ShellConfig содержит настройки офлайн-оболочки.
type ShellConfig struct {
	// Origin - базовый URL источника файлов оболочки.
	Origin string `yaml:"origin,omitempty"`

	// Strategy - стратегия кэша (cache-first / network-first).
	Strategy string `yaml:"strategy,omitempty"`

	// Addr - адрес локального сервера оболочки.
	Addr string `yaml:"addr,omitempty"`
}

// PathsConfig содержит настройки путей.
type PathsConfig struct {
	// State - директория состояния приложения.
	State string `yaml:"state,omitempty"`

	// Inbox - директория для режима watch.
	Inbox string `yaml:"inbox,omitempty"`

	// CodecPath - путь к кодек-бинарнику.
	CodecPath string `yaml:"codec_path,omitempty"`
}

// DefaultConfigPaths возвращает список путей для поиска конфигурационного файла.
// Поиск выполняется в следующем порядке:
// 1. ./heic2jpeg.yaml (текущая директория)
// 2. ./heic2jpeg.yml
// 3. ~/.config/heic2jpeg/config.yaml
// 4. ~/.config/heic2jpeg/config.yml
func DefaultConfigPaths() []string {
	paths := []string{
		"heic2jpeg.yaml",
		"heic2jpeg.yml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "heic2jpeg", "config.yaml"),
			filepath.Join(home, ".config", "heic2jpeg", "config.yml"),
		)
	}

	return paths
}

// LoadFromFile загружает конфигурацию из указанного файла.
// Возвращает nil, nil если файл не существует.
func LoadFromFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("ошибка парсинга YAML в %s: %w", path, err)
	}

	return &fc, nil
}

// FindAndLoadConfig ищет и загружает конфигурационный файл из стандартных путей.
// Если configPath указан явно, использует только его.
// Возвращает nil, nil если файл не найден.
func FindAndLoadConfig(configPath string) (*FileConfig, string, error) {
	if configPath != "" {
		fc, err := LoadFromFile(configPath)
		if err != nil {
			return nil, "", err
		}
		if fc == nil {
			return nil, "", fmt.Errorf("файл конфигурации не найден: %s", configPath)
		}
		return fc, configPath, nil
	}

	for _, path := range DefaultConfigPaths() {
		fc, err := LoadFromFile(path)
		if err != nil {
			return nil, "", err
		}
		if fc != nil {
			return fc, path, nil
		}
	}

	return nil, "", nil
}

// ApplyToConfig применяет настройки из файла к основной конфигурации.
// CLI флаги имеют приоритет над файлом конфигурации, поэтому
// эта функция должна вызываться до парсинга CLI флагов.
func (fc *FileConfig) ApplyToConfig(cfg *Config) {
	if fc == nil {
		return
	}

	if fc.Output != nil {
		if fc.Output.Dir != "" {
			cfg.OutputDir = fc.Output.Dir
		}
		if fc.Output.DownloadsDir != "" {
			cfg.DownloadsDir = fc.Output.DownloadsDir
		}
		if fc.Output.Quality > 0 {
			cfg.Quality = fc.Output.Quality
		}
	}

	if fc.Processing != nil {
		if fc.Processing.Workers > 0 {
			cfg.Workers = fc.Processing.Workers
		}
		if fc.Processing.MaxMemoryMB > 0 {
			cfg.MaxMemoryMB = fc.Processing.MaxMemoryMB
		}
		if fc.Processing.DryRun {
			cfg.DryRun = true
		}
		if fc.Processing.Verbose {
			cfg.Verbose = true
		}
		if fc.Processing.NoProgress {
			cfg.NoProgress = true
		}
	}

	if fc.Shell != nil {
		if fc.Shell.Origin != "" {
			cfg.Origin = fc.Shell.Origin
		}
		if fc.Shell.Strategy != "" {
			cfg.CacheStrategy = Strategy(fc.Shell.Strategy)
		}
		if fc.Shell.Addr != "" {
			cfg.ServeAddr = fc.Shell.Addr
		}
	}

	if fc.Paths != nil {
		if fc.Paths.State != "" {
			cfg.StateDir = fc.Paths.State
		}
		if fc.Paths.Inbox != "" {
			cfg.InboxDir = fc.Paths.Inbox
		}
		if fc.Paths.CodecPath != "" {
			cfg.CodecPath = fc.Paths.CodecPath
		}
	}
}

// GenerateExampleConfig генерирует пример конфигурационного файла.
func GenerateExampleConfig() string {
	return `# heic2jpeg Configuration File
# Все параметры опциональны - если не указаны, используются значения по умолчанию.
# CLI флаги имеют приоритет над этим файлом.

output:
  # Директория для прямого сохранения результатов
  dir: ""
  # Запасная директория сохранения
  downloads_dir: ""
  # Качество JPEG (1-100)
  quality: 90

processing:
  # Количество параллельных воркеров (1 = последовательная обработка)
  workers: 1
  # Ограничение памяти в мегабайтах (0 = без ограничения)
  max_memory_mb: 0
  # Симуляция без реальной конвертации
  dry_run: false
  # Подробный вывод
  verbose: false
  # Отключить прогресс-бар
  no_progress: false

shell:
  # Источник файлов оболочки приложения
  origin: "https://heic2jpeg.app"
  # Стратегия кэша: cache-first или network-first
  strategy: network-first
  # Адрес локального сервера оболочки
  addr: "127.0.0.1:8745"

paths:
  # Директория состояния приложения
  state: ""
  # Директория для режима watch
  inbox: ""
  # Путь к кодек-бинарнику (по умолчанию автопоиск)
  codec_path: ""
`
}

/*
Возможные расширения:
- Добавить поддержку TOML формата
- Добавить команду 'config init' для генерации конфига
- Добавить поддержку переменных окружения в конфиге
*/
