// Package history содержит логику работы с SQLite базой истории конвертаций.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store предоставляет методы для работы с базой истории.
type Store struct {
	db *sql.DB
}

// New создаёт новое подключение к SQLite и выполняет миграции.
func New(dbPath string) (*Store, error) {
	// Создаём директорию для БД, если не существует
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию для БД: %w", err)
	}

	// Открываем/создаём БД с параметрами для concurrent доступа
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть БД: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("не удалось подключиться к БД: %w", err)
	}

	// SQLite не поддерживает concurrent writes
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("не удалось выполнить миграции: %w", err)
	}

	return s, nil
}

// migrate выполняет все SQL-миграции.
func (s *Store) migrate() error {
	for i, m := range GetMigrations() {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("миграция %d: %w", i+1, err)
		}
	}
	return nil
}

// Close закрывает подключение к БД.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordOK записывает успешную конвертацию.
func (s *Store) RecordOK(jobID, srcName string, srcSize int64, dstName string, dstSize int64, quality int) error {
	return s.record(Record{
		JobID:   jobID,
		SrcName: srcName,
		SrcSize: srcSize,
		DstName: dstName,
		DstSize: dstSize,
		Quality: quality,
		Status:  StatusOK,
	})
}

// RecordFailed записывает неудачную конвертацию.
func (s *Store) RecordFailed(jobID, srcName string, srcSize int64, quality int, errMsg string) error {
	return s.record(Record{
		JobID:   jobID,
		SrcName: srcName,
		SrcSize: srcSize,
		Quality: quality,
		Status:  StatusFailed,
		Error:   errMsg,
	})
}

// record вставляет запись истории.
func (s *Store) record(r Record) error {
	_, err := s.db.Exec(`
		INSERT INTO conversions (job_uuid, src_name, src_size, dst_name, dst_size, quality, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.JobID, r.SrcName, r.SrcSize, r.DstName, r.DstSize, r.Quality, r.Status, r.Error, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("не удалось записать историю: %w", err)
	}
	return nil
}

// ListRecent возвращает последние записи истории, новые первыми.
func (s *Store) ListRecent(limit int) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT id, job_uuid, src_name, src_size,
		       COALESCE(dst_name, ''), COALESCE(dst_size, 0),
		       quality, status, COALESCE(error, ''), created_at
		FROM conversions ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать историю: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.JobID, &r.SrcName, &r.SrcSize,
			&r.DstName, &r.DstSize, &r.Quality, &r.Status, &r.Error, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetStats возвращает статистику по записям истории.
func (s *Store) GetStats() (total, ok, failed int64, err error) {
	err = s.db.QueryRow("SELECT COUNT(*) FROM conversions").Scan(&total)
	if err != nil {
		return
	}
	_ = s.db.QueryRow("SELECT COUNT(*) FROM conversions WHERE status = ?", StatusOK).Scan(&ok)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM conversions WHERE status = ?", StatusFailed).Scan(&failed)
	return
}

// GetState возвращает именованную запись состояния приложения.
// Отсутствующая запись - пустая строка без ошибки.
func (s *Store) GetState(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM app_state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("не удалось прочитать состояние %s: %w", key, err)
	}
	return value, nil
}

// SetState сохраняет именованную запись состояния (last-write-wins).
func (s *Store) SetState(key, value string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO app_state (key, value) VALUES (?, ?)",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("не удалось сохранить состояние %s: %w", key, err)
	}
	return nil
}

// DeleteState удаляет именованную запись состояния.
func (s *Store) DeleteState(key string) error {
	_, err := s.db.Exec("DELETE FROM app_state WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("не удалось удалить состояние %s: %w", key, err)
	}
	return nil
}

/*
Возможные расширения:
- Добавить метод для экспорта истории в JSON
- Добавить очистку старых записей по возрасту
*/
