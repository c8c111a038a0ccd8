// Package cli содержит CLI интерфейс приложения.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/artemshloyda/heic2jpeg/internal/codecfinder"
	"github.com/artemshloyda/heic2jpeg/internal/config"
	"github.com/artemshloyda/heic2jpeg/internal/converter"
	"github.com/artemshloyda/heic2jpeg/internal/events"
	"github.com/artemshloyda/heic2jpeg/internal/gallery"
	"github.com/artemshloyda/heic2jpeg/internal/history"
	"github.com/artemshloyda/heic2jpeg/internal/pipeline"
	"github.com/artemshloyda/heic2jpeg/internal/progress"
	"github.com/artemshloyda/heic2jpeg/internal/saver"
	"github.com/artemshloyda/heic2jpeg/internal/settings"
)

var (
	// Version будет установлена при сборке.
	Version = "dev"

	// BuildTime будет установлена при сборке.
	BuildTime = "unknown"
)

// ShellVersion - версия оболочки приложения. Определяет имя версии
// офлайн-кэша: смена версии при следующей установке создаёт новый кэш,
// старый удаляется при активации.
const ShellVersion = "0.0.7"

// cfg содержит глобальную конфигурацию.
var cfg = config.DefaultConfig()

// cfgFile - путь к конфигурационному файлу (флаг --config).
var cfgFile string

// NewRootCmd создаёт корневую команду CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "heic2jpeg [файлы или директории...]",
		Short: "Конвертер HEIC/HEIF в JPEG с офлайн-режимом",
		Long: `heic2jpeg - конвертер фотографий HEIC/HEIF в JPEG.

Конвертирует пакеты файлов через внешний кодек (vips, heif-convert
или sips), ведёт историю конвертаций и умеет работать полностью
офлайн: оболочка приложения кэшируется локально по версиям.

Примеры:
  # Конвертировать несколько файлов в директорию загрузок
  heic2jpeg IMG_0001.HEIC IMG_0002.heic

  # Конвертировать директорию с качеством 85 в выбранную директорию
  heic2jpeg --quality 85 --out ./converted ./photos

  # Следить за директорией и конвертировать всё новое
  heic2jpeg watch --inbox ~/Drop

  # Запустить локальную оболочку с офлайн-кэшем
  heic2jpeg serve`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE:         runConvert,
	}

	// Флаги, общие для convert и watch
	pflags := rootCmd.PersistentFlags()
	pflags.StringVar(&cfgFile, "config", "", "Путь к конфигурационному файлу YAML")
	pflags.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "Директория состояния приложения")
	pflags.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "Директория прямого сохранения (по умолчанию - загрузки)")
	pflags.StringVar(&cfg.DownloadsDir, "downloads", cfg.DownloadsDir, "Директория загрузок (запасной способ сохранения)")
	pflags.IntVarP(&cfg.Quality, "quality", "q", cfg.Quality, "Качество JPEG 1-100 (0 = из настроек)")
	pflags.IntVar(&cfg.Workers, "workers", cfg.Workers, "Количество параллельных воркеров")
	pflags.StringVar(&cfg.CodecPath, "codec-path", cfg.CodecPath, "Путь к кодек-бинарнику")
	pflags.IntVar(&cfg.MaxMemoryMB, "max-memory", cfg.MaxMemoryMB, "Ограничение памяти в МБ (0 = без ограничения)")
	pflags.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "Симуляция без реальной конвертации")
	pflags.BoolVar(&cfg.NoProgress, "no-progress", cfg.NoProgress, "Отключить прогресс-бар")
	pflags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Подробный вывод")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return applyFileConfig(cmd)
	}

	// Подкоманды
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCacheCmd())
	rootCmd.AddCommand(newSettingsCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// applyFileConfig загружает конфигурационный файл и применяет его
// к cfg. Явно указанные флаги имеют приоритет над файлом.
func applyFileConfig(cmd *cobra.Command) error {
	fc, path, err := config.FindAndLoadConfig(cfgFile)
	if err != nil {
		return err
	}
	if fc == nil {
		return nil
	}

	fromFile := config.DefaultConfig()
	fc.ApplyToConfig(fromFile)

	// Значение из файла применяется, только если флаг не был указан
	set := func(flag string, apply func()) {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			return
		}
		apply()
	}

	set("state-dir", func() { cfg.StateDir = fromFile.StateDir })
	set("out", func() { cfg.OutputDir = fromFile.OutputDir })
	set("downloads", func() { cfg.DownloadsDir = fromFile.DownloadsDir })
	set("quality", func() { cfg.Quality = fromFile.Quality })
	set("workers", func() { cfg.Workers = fromFile.Workers })
	set("codec-path", func() { cfg.CodecPath = fromFile.CodecPath })
	set("max-memory", func() { cfg.MaxMemoryMB = fromFile.MaxMemoryMB })
	set("dry-run", func() { cfg.DryRun = fromFile.DryRun })
	set("no-progress", func() { cfg.NoProgress = fromFile.NoProgress })
	set("verbose", func() { cfg.Verbose = fromFile.Verbose })
	set("inbox", func() { cfg.InboxDir = fromFile.InboxDir })
	set("addr", func() { cfg.ServeAddr = fromFile.ServeAddr })
	set("origin", func() { cfg.Origin = fromFile.Origin })
	set("strategy", func() { cfg.CacheStrategy = fromFile.CacheStrategy })

	if cfg.Verbose && path != "" {
		fmt.Printf("📁 Конфигурация загружена из %s\n", path)
	}

	return nil
}

// runConvert выполняет пакетную конвертацию переданных файлов.
func runConvert(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("укажите файлы или директории для конвертации")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("ошибка конфигурации: %w", err)
	}

	paths, err := expandArgs(args)
	if err != nil {
		return err
	}

	// Создаём контекст с обработкой сигналов
	ctx, cancel := signalContext()
	defer cancel()

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	summary, err := app.convertBatch(ctx, paths)
	if err != nil {
		return err
	}

	if summary.Failed > 0 {
		return fmt.Errorf("завершено с %d ошибками", summary.Failed)
	}

	return nil
}

// app связывает долгоживущие зависимости команд конвертации.
type app struct {
	lock     *flock.Flock
	codec    *converter.Converter
	info     *codecfinder.CodecInfo
	history  *history.Store
	settings settings.Settings
	saver    *saver.Saver
	gallery  *gallery.Gallery
	bus      *events.Bus

	// quality - итоговое качество: флаг или настройки пользователя.
	quality int

	// staging - промежуточная директория для выходных файлов до
	// доставки их пользователю.
	staging string
}

// newApp инициализирует зависимости: блокировку директории состояния,
// кодек, историю, настройки и способ сохранения.
func newApp() (*app, error) {
	if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию состояния: %w", err)
	}

	// С директорией состояния работает только один экземпляр
	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("не удалось получить блокировку: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("другой экземпляр уже работает с %s", cfg.StateDir)
	}

	// Ищем кодек
	finder := codecfinder.NewFinder(cfg.CodecPath)
	info, err := finder.Find()
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	if cfg.Verbose {
		fmt.Printf("📦 Найден кодек: %s (%s, версия %s)\n", info.Path, info.Kind, info.Version)
	}

	conv := converter.New(info)
	if err := conv.CheckHealth(); err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	hist, err := history.New(cfg.HistoryPath())
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("не удалось инициализировать историю: %w", err)
	}

	store := settings.NewStore(cfg.SettingsPath(), func() bool {
		return cfg.OutputDir != "" || saver.HasFilesystemCapability(hist)
	})
	st := store.Load()

	quality := cfg.Quality
	if quality == 0 {
		quality = st.DefaultQuality
	}

	method := st.SaveMethod
	handle := saver.LoadHandle(hist)
	if cfg.OutputDir != "" {
		// Явно указанная директория равносильна выданному разрешению
		method = settings.SaveFilesystem
		handle = &saver.DirHandle{Path: cfg.OutputDir, Permission: saver.PermissionGranted}
	}

	return &app{
		lock:     lock,
		codec:    conv,
		info:     info,
		history:  hist,
		settings: st,
		saver:    saver.New(method, handle, hist, cfg.DownloadsDir, promptWritePermission),
		gallery:  gallery.New(),
		bus:      events.NewBus(),
		quality:  quality,
		staging:  filepath.Join(cfg.StateDir, "staging"),
	}, nil
}

// Close освобождает ресурсы приложения.
func (a *app) Close() {
	_ = os.RemoveAll(a.staging)
	if a.history != nil {
		_ = a.history.Close()
	}
	if a.lock != nil {
		_ = a.lock.Unlock()
	}
}

// convertBatch конвертирует один пакет файлов: прогресс, история,
// доставка результатов и итоговая статистика.
func (a *app) convertBatch(ctx context.Context, paths []string) (*pipeline.Summary, error) {
	pipe := pipeline.New(a.codec, pipeline.Options{
		Quality:     a.quality,
		OutDir:      a.staging,
		Workers:     cfg.Workers,
		DryRun:      cfg.DryRun,
		MaxMemoryMB: cfg.MaxMemoryMB,
	})

	bar := progress.New(progress.Options{
		Total:       int64(len(paths)),
		Description: "Конвертация",
		Disabled:    cfg.NoProgress,
	})
	pipe.SetProgressFunc(func(processed, total int) {
		bar.SetTotal(int64(total))
		bar.Increment()
	})

	if cfg.DryRun {
		fmt.Println("⚠️  Dry-run режим (без реальной конвертации)")
	}

	summary := pipe.Run(ctx, paths)

	if summary.NoEligible {
		bar.Clear()
		fmt.Println("⏭️  Не найдено HEIC/HEIF файлов")
		return summary, nil
	}
	bar.Finish()

	// Записываем историю
	for _, res := range summary.Results {
		_ = a.history.RecordOK(res.Job.ID, res.Job.Name, res.SrcSize, res.DstName, res.DstSize, a.quality)
	}
	for _, f := range summary.Failures {
		_ = a.history.RecordFailed(f.JobID, f.Name, f.SrcSize, a.quality, f.Message)
	}

	// Обновляем галерею результатов
	a.gallery.NewBatch()
	a.gallery.AddAll(summary.Results)

	// Доставляем результаты пользователю
	if !cfg.DryRun {
		for _, n := range a.saver.SaveAll(summary.Results) {
			if n.Message != "" {
				fmt.Printf("⚠️  %s\n", n.Message)
			} else if cfg.Verbose {
				fmt.Printf("✅ %s\n", n.Path)
			}
		}
	}

	for _, f := range summary.Failures {
		fmt.Printf("❌ %s: %s\n", f.Name, f.Message)
	}

	printSummary(summary, bar.Duration())

	return summary, nil
}

// printSummary выводит итоговую статистику пакета.
func printSummary(s *pipeline.Summary, d time.Duration) {
	fmt.Println()
	fmt.Printf("📊 Результаты:\n")
	fmt.Printf("   Обработано: %d\n", s.Total)
	fmt.Printf("   Успешно: %d\n", s.Converted)
	fmt.Printf("   Ошибок: %d\n", s.Failed)
	if s.Cancelled > 0 {
		fmt.Printf("   Отменено: %d\n", s.Cancelled)
	}
	if s.Converted > 0 && s.SavedBytes() > 0 {
		fmt.Printf("   Экономия: %s (%.1f%%)\n", pipeline.FormatBytes(s.SavedBytes()), s.SavedPercent())
	}
	fmt.Printf("   Время: %s\n", d.Round(time.Millisecond))
}

// expandArgs разворачивает аргументы: директории обходятся рекурсивно,
// файлы передаются как есть. Порядок аргументов сохраняется.
func expandArgs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("не удалось открыть %s: %w", arg, err)
		}

		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		err = filepath.Walk(arg, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !fi.IsDir() {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("не удалось обойти %s: %w", arg, err)
		}
	}
	return paths, nil
}

// promptWritePermission выполняет один интерактивный запрос разрешения
// на запись в выбранную директорию.
func promptWritePermission(path string) bool {
	fmt.Printf("Разрешить запись в %s? [y/N]: ", path)
	var answer string
	_, _ = fmt.Scanln(&answer)
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// signalContext создаёт контекст, отменяемый по SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n⚠️  Получен сигнал завершения, останавливаем...")
		cancel()
	}()

	return ctx, cancel
}

// newVersionCmd создаёт команду version.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Показать версию",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("heic2jpeg %s (оболочка %s, built %s)\n", Version, ShellVersion, BuildTime)
		},
	}
}

// Execute запускает CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		// Не выводим ошибку, cobra уже вывела
		os.Exit(1)
	}
}

/*
Возможные расширения:
- Добавить команду retry для повторной конвертации failed из истории
- Добавить интерактивный просмотр галереи результатов
- Добавить выбор выходного формата (webp, png)
*/
