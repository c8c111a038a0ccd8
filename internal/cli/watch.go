package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/heic2jpeg/internal/events"
	"github.com/artemshloyda/heic2jpeg/internal/pipeline"
	"github.com/artemshloyda/heic2jpeg/internal/watcher"
)

// newWatchCmd создаёт команду watch.
func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Следить за входной директорией и конвертировать новые файлы",
		Long: `Следит за входной директорией и конвертирует появляющиеся файлы.

Файлы, появившиеся почти одновременно, обрабатываются одним пакетом -
как будто пользователь перетащил их все разом.`,
		RunE: runWatch,
	}

	cmd.Flags().StringVar(&cfg.InboxDir, "inbox", cfg.InboxDir, "Входная директория для слежения")

	return cmd
}

// runWatch запускает слежение и конвертирует пакеты до отмены.
func runWatch(cmd *cobra.Command, args []string) error {
	if cfg.InboxDir == "" {
		return fmt.Errorf("укажите входную директорию через --inbox или конфигурационный файл")
	}
	if err := os.MkdirAll(cfg.InboxDir, 0755); err != nil {
		return fmt.Errorf("не удалось создать входную директорию: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("ошибка конфигурации: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	// Шина событий связывает слежение и конвейер
	app.bus.Subscribe(events.FilesDropped, func(ev events.Event) {
		batch := ev.Payload.([]pipeline.Job)
		fmt.Printf("📁 Новый пакет: %d файлов\n", len(batch))
	})
	app.bus.Subscribe(events.BatchDone, func(ev events.Event) {
		summary := ev.Payload.(*pipeline.Summary)
		if !summary.NoEligible {
			fmt.Printf("✅ Пакет обработан: %d из %d\n", summary.Converted, summary.Total)
		}
	})

	w, err := watcher.New(cfg.InboxDir)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	batches, err := w.Watch(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("🚀 Слежение за %s (Ctrl+C для выхода)\n", cfg.InboxDir)

	for batch := range batches {
		app.bus.Publish(events.FilesDropped, batch)

		paths := make([]string, 0, len(batch))
		for _, job := range batch {
			paths = append(paths, job.SrcPath)
		}

		summary, err := app.convertBatch(ctx, paths)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ Ошибка обработки пакета: %v\n", err)
			continue
		}

		app.bus.Publish(events.BatchDone, summary)
	}

	return nil
}
