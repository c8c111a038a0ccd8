// Package offline реализует версионированный офлайн-кэш оболочки приложения.
package offline

import "sync"

// Типы сообщений протокола "страница <-> кэш-менеджер".
const (
	// MsgGetVersion - запрос текущей версии кэша.
	MsgGetVersion = "GET_VERSION"
	// MsgVersion - ответ с версией (только менеджер -> сессия).
	MsgVersion = "VERSION"
	// MsgSkipWaiting - команда немедленно активировать ожидающую версию (без ответа).
	MsgSkipWaiting = "SKIP_WAITING"
	// MsgUpdateAvailable - уведомление об установленном, но не активированном обновлении.
	MsgUpdateAvailable = "UPDATE_AVAILABLE"
)

// Message - сообщение протокола.
type Message struct {
	// Type - тип сообщения.
	Type string `json:"type"`

	// Version - версия кэша (для VERSION).
	Version string `json:"version,omitempty"`
}

// Session представляет одну открытую сессию приложения (аналог вкладки).
type Session struct {
	mu sync.Mutex

	// inbox - входящие сообщения от менеджера.
	inbox []Message

	// refreshing подавляет повторные перезагрузки: сколько бы раз ни
	// пришло уведомление о смене контроллера, сессия перезагружается
	// ровно один раз.
	refreshing bool

	// reloads - количество выполненных перезагрузок.
	reloads int

	// onReload - колбэк перезагрузки (может быть nil).
	onReload func()
}

// NewSession создаёт новую сессию.
// onReload вызывается при перезагрузке и может быть nil.
func NewSession(onReload func()) *Session {
	return &Session{onReload: onReload}
}

// deliver доставляет сообщение в сессию.
func (s *Session) deliver(msg Message) {
	s.mu.Lock()
	s.inbox = append(s.inbox, msg)
	s.mu.Unlock()
}

// Messages возвращает и очищает входящие сообщения.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.inbox
	s.inbox = nil
	return out
}

// controllerChange обрабатывает смену контролирующей версии.
func (s *Session) controllerChange() {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		return
	}
	s.refreshing = true
	s.reloads++
	cb := s.onReload
	s.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Reloads возвращает количество выполненных перезагрузок.
func (s *Session) Reloads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloads
}
