// Package watcher предоставляет слежение за входной директорией.
// Файлы, появившиеся в директории почти одновременно, собираются в
// один пакет - как будто пользователь перетащил их все разом.
package watcher

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/artemshloyda/heic2jpeg/internal/pipeline"
)

// Watcher следит за входной директорией и отправляет пакеты файлов в канал.
type Watcher struct {
	// dir - входная директория.
	dir string

	// watcher - fsnotify watcher.
	watcher *fsnotify.Watcher

	// debounceTime - время ожидания после последней записи в файл.
	// Нужно для того, чтобы файл успел полностью записаться.
	debounceTime time.Duration

	// settleTime - время тишины, после которого накопленные файлы
	// отправляются одним пакетом.
	settleTime time.Duration

	// pending - файлы, ожидающие обработки (для debounce).
	pending map[string]time.Time

	// ready - файлы, пережившие debounce и ожидающие отправки пакета.
	ready []string

	mu sync.Mutex
}

// New создаёт новый Watcher для директории dir.
func New(dir string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("не удалось создать watcher: %w", err)
	}

	return &Watcher{
		dir:          dir,
		watcher:      w,
		debounceTime: 500 * time.Millisecond,
		settleTime:   time.Second,
		pending:      make(map[string]time.Time),
	}, nil
}

// SetDebounceTime устанавливает время debounce.
func (w *Watcher) SetDebounceTime(d time.Duration) {
	w.debounceTime = d
}

// SetSettleTime устанавливает время тишины для формирования пакета.
func (w *Watcher) SetSettleTime(d time.Duration) {
	w.settleTime = d
}

// Watch запускает слежение и возвращает канал с пакетами файлов.
// Фильтрация по расширению не выполняется: пакет передаётся как есть,
// пригодность файлов определяет получатель.
func (w *Watcher) Watch(ctx context.Context) (<-chan []pipeline.Job, error) {
	if err := w.watcher.Add(w.dir); err != nil {
		return nil, fmt.Errorf("не удалось добавить директорию %s: %w", w.dir, err)
	}

	batches := make(chan []pipeline.Job, 16)

	// Горутина для обработки событий
	go w.processEvents(ctx, batches)

	// Горутина для debounce и формирования пакетов
	go w.processPending(ctx, batches)

	return batches, nil
}

// processEvents обрабатывает события от fsnotify.
func (w *Watcher) processEvents(ctx context.Context, batches chan<- []pipeline.Job) {
	defer close(batches)
	defer func() { _ = w.watcher.Close() }()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Обрабатываем только создание и запись файлов
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			// Проверяем, что это файл (не директория)
			info, err := os.Stat(event.Name)
			if err != nil || info.IsDir() {
				continue
			}

			// Добавляем в pending для debounce
			w.mu.Lock()
			w.pending[event.Name] = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "Ошибка watcher: %v\n", err)
		}
	}
}

// processPending переносит отлежавшиеся файлы в ready и отправляет
// пакет после периода тишины.
func (w *Watcher) processPending(ctx context.Context, batches chan<- []pipeline.Job) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var lastArrival time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.promotePending() {
				lastArrival = time.Now()
			}

			batch := w.takeReady(lastArrival)
			if len(batch) == 0 {
				continue
			}

			select {
			case batches <- batch:
			case <-ctx.Done():
				return
			}
		}
	}
}

// promotePending переносит файлы, пережившие debounce, из pending в
// ready. Возвращает true, если хотя бы один файл был перенесён.
func (w *Watcher) promotePending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	promoted := false
	now := time.Now()
	for path, addedAt := range w.pending {
		if now.Sub(addedAt) < w.debounceTime {
			continue
		}
		delete(w.pending, path)
		w.ready = append(w.ready, path)
		promoted = true
	}
	return promoted
}

// takeReady забирает накопленный пакет, если с последнего поступления
// прошло settleTime и новых файлов в pending нет.
func (w *Watcher) takeReady(lastArrival time.Time) []pipeline.Job {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.ready) == 0 || len(w.pending) > 0 {
		return nil
	}
	if time.Since(lastArrival) < w.settleTime {
		return nil
	}

	jobs := make([]pipeline.Job, 0, len(w.ready))
	for _, path := range w.ready {
		if _, err := os.Stat(path); err != nil {
			// Файл исчез между debounce и отправкой
			continue
		}
		jobs = append(jobs, pipeline.NewJob(path))
	}
	w.ready = nil
	return jobs
}

// Close закрывает watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

/*
Возможные расширения:
- Добавить слежение за поддиректориями
- Добавить обработку удаления файлов
- Добавить ограничение размера пакета
*/
