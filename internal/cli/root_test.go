package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandArgs(t *testing.T) {
	dir := t.TempDir()

	// Отдельный файл и директория с вложенностью
	single := filepath.Join(dir, "single.heic")
	sub := filepath.Join(dir, "batch", "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatalf("Не удалось создать директорию: %v", err)
	}
	for _, path := range []string{
		single,
		filepath.Join(dir, "batch", "a.heic"),
		filepath.Join(sub, "b.heic"),
	} {
		if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
			t.Fatalf("Не удалось создать файл: %v", err)
		}
	}

	paths, err := expandArgs([]string{single, filepath.Join(dir, "batch")})
	if err != nil {
		t.Fatalf("expandArgs вернул ошибку: %v", err)
	}

	// Порядок аргументов сохраняется, директория обходится рекурсивно
	want := []string{
		single,
		filepath.Join(dir, "batch", "a.heic"),
		filepath.Join(sub, "b.heic"),
	}
	if len(paths) != len(want) {
		t.Fatalf("Ожидалось %d путей, получено %d: %v", len(want), len(paths), paths)
	}
	for i, p := range want {
		if paths[i] != p {
			t.Errorf("paths[%d] = %s, ожидалось %s", i, paths[i], p)
		}
	}
}

func TestExpandArgsMissingFile(t *testing.T) {
	_, err := expandArgs([]string{"/nonexistent/photo.heic"})
	if err == nil {
		t.Error("Ожидалась ошибка для несуществующего файла")
	}
}
