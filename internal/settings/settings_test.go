package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	def := Defaults()

	if def.Theme != ThemeAuto {
		t.Errorf("Theme = %v, want %v", def.Theme, ThemeAuto)
	}
	if def.DefaultQuality != 90 {
		t.Errorf("DefaultQuality = %d, want 90", def.DefaultQuality)
	}
	if def.SaveMethod != SaveBrowser {
		t.Errorf("SaveMethod = %v, want %v", def.SaveMethod, SaveBrowser)
	}
}

func TestStore_Load_Missing(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "settings.yaml"), nil)

	got := store.Load()
	if got != Defaults() {
		t.Errorf("Load() = %+v, want defaults", got)
	}
}

func TestStore_Load_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not yaml", "{[::"},
		{"wrong theme", "theme: neon\ndefault_quality: 90\nsave_method: browser\n"},
		{"quality out of range", "theme: auto\ndefault_quality: 250\nsave_method: browser\n"},
		{"unknown save method", "theme: auto\ndefault_quality: 90\nsave_method: cloud\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}

			store := NewStore(path, nil)
			if got := store.Load(); got != Defaults() {
				t.Errorf("Load() = %+v, want defaults", got)
			}
		})
	}
}

func TestStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store := NewStore(path, nil)

	want := Settings{
		Theme:          ThemeDark,
		DefaultQuality: 75,
		SaveMethod:     SaveFilesystem,
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if got := store.Load(); got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestStore_FilesystemCapabilityFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	// Сохраняем с доступной возможностью
	writer := NewStore(path, nil)
	saved := Settings{Theme: ThemeLight, DefaultQuality: 80, SaveMethod: SaveFilesystem}
	if err := writer.Save(saved); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Загружаем на платформе без прямой записи
	reader := NewStore(path, func() bool { return false })
	got := reader.Load()

	if got.SaveMethod != SaveBrowser {
		t.Errorf("SaveMethod = %v, want fallback to %v", got.SaveMethod, SaveBrowser)
	}
	// Остальные настройки не затрагиваются
	if got.Theme != ThemeLight || got.DefaultQuality != 80 {
		t.Errorf("Load() = %+v, unrelated fields changed", got)
	}
}

func TestStore_Save_Invalid(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "settings.yaml"), nil)

	bad := Settings{Theme: Theme("neon"), DefaultQuality: 90, SaveMethod: SaveBrowser}
	if err := store.Save(bad); err == nil {
		t.Error("Save() should reject invalid settings")
	}
}
