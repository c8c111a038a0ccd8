// Package offline реализует версионированный офлайн-кэш оболочки приложения.
//
// Жизненный цикл кэша повторяет поведение service worker'а:
// установка (скачивание манифеста в кэш новой версии), активация
// (удаление кэшей устаревших версий и захват открытых сессий) и
// перехват запросов по выбранной стратегии.
package offline

// Asset описывает один файл из манифеста оболочки.
type Asset struct {
	// URL - путь относительно origin или абсолютный URL.
	URL string

	// BestEffort - ошибка скачивания не проваливает установку.
	// Используется для файлов, которых может не быть в старых
	// развёртываниях (например, скрипт фонового потока).
	BestEffort bool
}

// Manifest - упорядоченный список файлов, обязательных для офлайн-работы.
type Manifest []Asset

// DefaultManifest возвращает манифест оболочки приложения.
func DefaultManifest() Manifest {
	return Manifest{
		{URL: "/"},
		{URL: "/index.html"},
		{URL: "/script.js"},
		{URL: "/style.css"},
		{URL: "/manifest.json"},
		{URL: "/icons/icon-192x192.png"},
		{URL: "/icons/icon-512x512.png"},
		{URL: "/icons/favicon.ico"},
		// Скрипт фонового потока появился не во всех развёртываниях
		{URL: "/worker.js", BestEffort: true},
	}
}
