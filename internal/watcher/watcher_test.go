package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

func TestWatchBatchesSimultaneousFiles(t *testing.T) {
	dir := t.TempDir()

	w, err := New(dir)
	if err != nil {
		t.Fatalf("Не удалось создать watcher: %v", err)
	}
	w.SetDebounceTime(50 * time.Millisecond)
	w.SetSettleTime(100 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches, err := w.Watch(ctx)
	if err != nil {
		t.Fatalf("Не удалось запустить слежение: %v", err)
	}

	// Два файла появляются почти одновременно - один пакет
	for _, name := range []string{"a.heic", "b.heic"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("data"), 0644); err != nil {
			t.Fatalf("Не удалось создать файл: %v", err)
		}
	}

	select {
	case batch := <-batches:
		if len(batch) != 2 {
			t.Fatalf("Ожидался пакет из 2 файлов, получено %d", len(batch))
		}
		names := []string{batch[0].Name, batch[1].Name}
		sort.Strings(names)
		if names[0] != "a.heic" || names[1] != "b.heic" {
			t.Errorf("Неверный состав пакета: %v", names)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Пакет не получен за отведённое время")
	}
}

func TestWatchIgnoresDirectories(t *testing.T) {
	dir := t.TempDir()

	w, err := New(dir)
	if err != nil {
		t.Fatalf("Не удалось создать watcher: %v", err)
	}
	w.SetDebounceTime(30 * time.Millisecond)
	w.SetSettleTime(60 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches, err := w.Watch(ctx)
	if err != nil {
		t.Fatalf("Не удалось запустить слежение: %v", err)
	}

	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatalf("Не удалось создать директорию: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "photo.heic"), []byte("data"), 0644); err != nil {
		t.Fatalf("Не удалось создать файл: %v", err)
	}

	select {
	case batch := <-batches:
		if len(batch) != 1 || batch[0].Name != "photo.heic" {
			t.Errorf("В пакете должен быть только файл: %+v", batch)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Пакет не получен за отведённое время")
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	dir := t.TempDir()

	w, err := New(dir)
	if err != nil {
		t.Fatalf("Не удалось создать watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	batches, err := w.Watch(ctx)
	if err != nil {
		t.Fatalf("Не удалось запустить слежение: %v", err)
	}

	cancel()

	select {
	case _, ok := <-batches:
		if ok {
			t.Error("После отмены не должно быть пакетов")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Канал не закрылся после отмены")
	}
}
