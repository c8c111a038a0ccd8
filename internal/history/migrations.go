// Package history содержит миграции SQLite базы истории.
package history

// migrations содержит SQL-миграции в порядке выполнения.
var migrations = []string{
	// Миграция 1: Таблица истории конвертаций
	`CREATE TABLE IF NOT EXISTS conversions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_uuid TEXT NOT NULL,
		src_name TEXT NOT NULL,
		src_size INTEGER NOT NULL,
		dst_name TEXT,
		dst_size INTEGER,
		quality INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		created_at INTEGER NOT NULL
	);`,

	// Миграция 2: Индекс для выборки последних записей
	`CREATE INDEX IF NOT EXISTS ix_conversions_created
	ON conversions (created_at DESC);`,

	// Миграция 3: Индекс для быстрого подсчёта по статусу
	`CREATE INDEX IF NOT EXISTS ix_conversions_status ON conversions (status);`,

	// Миграция 4: Таблица именованных записей состояния приложения.
	// Здесь живёт запись о выбранной директории сохранения.
	`CREATE TABLE IF NOT EXISTS app_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,

	// Миграция 5: Таблица метаданных для версионирования схемы
	`CREATE TABLE IF NOT EXISTS schema_info (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,

	// Миграция 6: Запись версии схемы
	`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', '1');`,
}

// GetMigrations возвращает список SQL-миграций.
func GetMigrations() []string {
	return migrations
}
