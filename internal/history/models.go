// Package history содержит модели и логику работы с SQLite базой истории.
package history

// Status определяет исход конвертации.
type Status string

const (
	// StatusOK - файл успешно сконвертирован.
	StatusOK Status = "ok"
	// StatusFailed - конвертация завершилась с ошибкой.
	StatusFailed Status = "failed"
)

// Record представляет одну запись истории конвертаций.
type Record struct {
	// ID - уникальный идентификатор записи.
	ID int64 `db:"id"`

	// JobID - идентификатор задачи конвейера.
	JobID string `db:"job_uuid"`

	// SrcName - имя исходного файла.
	SrcName string `db:"src_name"`

	// SrcSize - размер исходного файла в байтах.
	SrcSize int64 `db:"src_size"`

	// DstName - имя выходного файла.
	DstName string `db:"dst_name"`

	// DstSize - размер выходного файла в байтах.
	DstSize int64 `db:"dst_size"`

	// Quality - качество JPEG (1-100).
	Quality int `db:"quality"`

	// Status - исход конвертации.
	Status Status `db:"status"`

	// Error - сообщение об ошибке (если есть).
	Error string `db:"error"`

	// CreatedAt - время записи (unix timestamp).
	CreatedAt int64 `db:"created_at"`
}

// Общеизвестные ключи таблицы app_state.
const (
	// KeyDirectoryHandle - сохранённая директория прямого сохранения
	// вместе с состоянием разрешения (JSON).
	KeyDirectoryHandle = "directory_handle"
)

/*
Возможные расширения:
- Добавить поле для длительности конвертации
- Добавить теги/альбомы для группировки записей
*/
