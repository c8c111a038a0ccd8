// Package offline реализует версионированный офлайн-кэш оболочки приложения.
package offline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CachedAsset - снимок одного файла в кэше.
type CachedAsset struct {
	// Body - содержимое файла.
	Body []byte

	// ContentType - MIME-тип из ответа источника.
	ContentType string

	// FetchedAt - время скачивания.
	FetchedAt time.Time
}

// assetMeta - сопроводительный файл рядом с содержимым.
type assetMeta struct {
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Store управляет кэшами всех версий на диске.
// Каждая версия владеет своей директорией <root>/<version>/;
// ключ файла - первые 32 символа sha256 от URL.
type Store struct {
	// root - корневая директория кэша.
	root string
}

// NewStore создаёт новый Store.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию кэша: %w", err)
	}
	return &Store{root: root}, nil
}

// Root возвращает корневую директорию кэша.
func (s *Store) Root() string {
	return s.root
}

// cacheKey генерирует ключ кэша по URL.
func cacheKey(url string) string {
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:])[:32]
}

// versionDir возвращает директорию кэша конкретной версии.
func (s *Store) versionDir(version string) string {
	return filepath.Join(s.root, version)
}

// Put сохраняет файл в кэш версии, перезаписывая существующий.
func (s *Store) Put(version, url string, asset CachedAsset) error {
	dir := s.versionDir(version)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("не удалось создать кэш версии %s: %w", version, err)
	}

	key := cacheKey(url)
	if err := os.WriteFile(filepath.Join(dir, key), asset.Body, 0644); err != nil {
		return fmt.Errorf("не удалось записать %s: %w", url, err)
	}

	meta := assetMeta{URL: url, ContentType: asset.ContentType, FetchedAt: asset.FetchedAt}
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, key+".meta.json"), data, 0644); err != nil {
		return fmt.Errorf("не удалось записать метаданные %s: %w", url, err)
	}

	return nil
}

// Get возвращает файл из кэша версии.
// Второе значение false - промах кэша.
func (s *Store) Get(version, url string) (*CachedAsset, bool) {
	dir := s.versionDir(version)
	key := cacheKey(url)

	body, err := os.ReadFile(filepath.Join(dir, key))
	if err != nil {
		return nil, false
	}

	asset := &CachedAsset{Body: body}
	if data, err := os.ReadFile(filepath.Join(dir, key+".meta.json")); err == nil {
		var meta assetMeta
		if json.Unmarshal(data, &meta) == nil {
			asset.ContentType = meta.ContentType
			asset.FetchedAt = meta.FetchedAt
		}
	}

	return asset, true
}

// Versions возвращает список версий, присутствующих на диске.
func (s *Store) Versions() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать директорию кэша: %w", err)
	}

	var versions []string
	for _, e := range entries {
		if e.IsDir() {
			versions = append(versions, e.Name())
		}
	}
	return versions, nil
}

// DeleteVersion удаляет кэш версии целиком.
func (s *Store) DeleteVersion(version string) error {
	if version == "" {
		return nil
	}
	return os.RemoveAll(s.versionDir(version))
}

// Size возвращает общий размер кэша версии в байтах.
func (s *Store) Size(version string) (int64, error) {
	var size int64
	err := filepath.WalkDir(s.versionDir(version), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			size += info.Size()
		}
		return nil
	})
	return size, err
}

/*
Возможные расширения:
- Сжатие кэшированных файлов
- Проверка целостности содержимого по хэшу
*/
