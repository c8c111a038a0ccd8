// Package events предоставляет простую шину именованных событий для
// связи компонентов без прямых зависимостей.
package events

import "sync"

// Известные имена событий.
const (
	// FilesDropped - во входной директории появился пакет файлов.
	FilesDropped = "files-dropped"

	// BatchDone - пакетная конвертация завершена.
	BatchDone = "batch-done"

	// UpdateAvailable - новая версия установлена и ожидает активации.
	UpdateAvailable = "update-available"

	// ControllerChange - активная версия сменилась.
	ControllerChange = "controller-change"

	// SettingsChanged - настройки изменены.
	SettingsChanged = "settings-changed"
)

// Event - событие с именем и произвольными данными.
type Event struct {
	// Name - имя события.
	Name string

	// Payload - данные события (может быть nil).
	Payload any
}

// Handler - обработчик события.
type Handler func(Event)

// Bus - шина событий. Обработчики вызываются синхронно в порядке
// подписки; подписка во время доставки безопасна.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus создаёт новую шину событий.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe регистрирует обработчик для события name.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish доставляет событие всем подписчикам.
// Событие без подписчиков молча игнорируется.
func (b *Bus) Publish(name string, payload any) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[name]))
	copy(handlers, b.handlers[name])
	b.mu.RUnlock()

	ev := Event{Name: name, Payload: payload}
	for _, h := range handlers {
		h(ev)
	}
}

/*
Возможные расширения:
- Добавить отписку обработчиков
- Добавить асинхронную доставку с буферизацией
*/
