// Package offline реализует версионированный офлайн-кэш оболочки приложения.
package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/artemshloyda/heic2jpeg/internal/config"
)

// State - состояние жизненного цикла экземпляра кэш-менеджера.
type State string

const (
	// StateNew - экземпляр создан, установка не начиналась.
	StateNew State = "new"
	// StateInstalling - идёт скачивание манифеста.
	StateInstalling State = "installing"
	// StateInstalled - установлен и ожидает активации (waiting).
	StateInstalled State = "installed"
	// StateActivating - идёт удаление устаревших кэшей.
	StateActivating State = "activating"
	// StateActive - активен и перехватывает запросы.
	// Терминальное состояние до появления новой версии.
	StateActive State = "active"
	// StateFailed - установка провалилась.
	StateFailed State = "failed"
)

// registry - долговременное состояние жизненного цикла на диске.
// Инвариант: не более одной активной и одной ожидающей версии.
type registry struct {
	// Active - версия, перехватывающая запросы.
	Active string `json:"active"`

	// Waiting - установленная, но не активированная версия.
	Waiting string `json:"waiting"`
}

// Manager - один экземпляр кэш-менеджера, привязанный к версии кэша.
// Повторяет конечный автомат service worker'а:
// installing -> installed(waiting) -> activating -> active.
type Manager struct {
	mu sync.Mutex

	// store - дисковое хранилище кэшей всех версий.
	store *Store

	// version - версия этого экземпляра (например "heic-converter-v0.0.7").
	version string

	// origin - базовый URL источника файлов оболочки.
	origin string

	// strategy - стратегия перехвата запросов.
	strategy config.Strategy

	// manifest - список файлов для установки.
	manifest Manifest

	// client - HTTP клиент для походов к источнику.
	client *http.Client

	// state - текущее состояние экземпляра.
	state State

	// sessions - открытые сессии приложения.
	sessions []*Session
}

// NewManager создаёт новый Manager для заданной версии.
func NewManager(store *Store, manifest Manifest, version, origin string, strategy config.Strategy) *Manager {
	return &Manager{
		store:    store,
		version:  version,
		origin:   strings.TrimRight(origin, "/"),
		strategy: strategy,
		manifest: manifest,
		client:   &http.Client{Timeout: 30 * time.Second},
		state:    StateNew,
	}
}

// SetClient подменяет HTTP клиент (для тестов и настройки таймаутов).
func (m *Manager) SetClient(c *http.Client) {
	m.client = c
}

// State возвращает текущее состояние экземпляра.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Version возвращает версию этого экземпляра.
func (m *Manager) Version() string {
	return m.version
}

// registryPath возвращает путь к файлу реестра версий.
func (m *Manager) registryPath() string {
	return filepath.Join(m.store.Root(), "registry.json")
}

// loadRegistry читает реестр. Отсутствующий или повреждённый файл
// трактуется как пустой реестр.
func (m *Manager) loadRegistry() registry {
	var reg registry
	data, err := os.ReadFile(m.registryPath())
	if err != nil {
		return reg
	}
	if err := json.Unmarshal(data, &reg); err != nil {
		return registry{}
	}
	return reg
}

// saveRegistry записывает реестр.
func (m *Manager) saveRegistry(reg registry) error {
	data, err := json.Marshal(reg)
	if err != nil {
		return err
	}
	tmp := m.registryPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("не удалось записать реестр кэша: %w", err)
	}
	if err := os.Rename(tmp, m.registryPath()); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("не удалось сохранить реестр кэша: %w", err)
	}
	return nil
}

// ActiveVersion возвращает активную версию из реестра.
func (m *Manager) ActiveVersion() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadRegistry().Active
}

// WaitingVersion возвращает ожидающую версию из реестра.
func (m *Manager) WaitingVersion() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadRegistry().Waiting
}

// UpdateAvailable сообщает, что установлена новая версия, пока другая
// версия продолжает обслуживать открытые сессии.
func (m *Manager) UpdateAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg := m.loadRegistry()
	return reg.Waiting != "" && reg.Active != "" && reg.Waiting != reg.Active
}

// Register регистрирует сессию у менеджера.
func (m *Manager) Register(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, s)
}

// Install скачивает все файлы манифеста в кэш своей версии.
//
// Ошибка скачивания обязательного файла проваливает установку и
// удаляет частично заполненный кэш. Файлы с пометкой best-effort
// пропускаются с предупреждением. После успешной установки версия
// записывается как ожидающая и готова к немедленной активации.
func (m *Manager) Install(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateNew && m.state != StateFailed {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("установка невозможна из состояния %s", state)
	}
	m.state = StateInstalling
	m.mu.Unlock()

	for _, asset := range m.manifest {
		url := m.resolveURL(asset.URL)

		body, contentType, err := m.fetchOrigin(ctx, url)
		if err != nil {
			if asset.BestEffort {
				continue
			}
			m.mu.Lock()
			m.state = StateFailed
			m.mu.Unlock()
			_ = m.store.DeleteVersion(m.version)
			return fmt.Errorf("установка прервана, не удалось скачать %s: %w", asset.URL, err)
		}

		cached := CachedAsset{Body: body, ContentType: contentType, FetchedAt: time.Now()}
		if err := m.store.Put(m.version, url, cached); err != nil {
			m.mu.Lock()
			m.state = StateFailed
			m.mu.Unlock()
			_ = m.store.DeleteVersion(m.version)
			return fmt.Errorf("установка прервана: %w", err)
		}
	}

	m.mu.Lock()
	m.state = StateInstalled
	reg := m.loadRegistry()
	reg.Waiting = m.version
	err := m.saveRegistry(reg)
	updateAvailable := reg.Active != "" && reg.Active != m.version
	sessions := append([]*Session(nil), m.sessions...)
	m.mu.Unlock()

	if err != nil {
		return err
	}

	// Старая версия ещё контролирует сессии: даём странице повод
	// показать баннер обновления.
	if updateAvailable {
		for _, s := range sessions {
			s.deliver(Message{Type: MsgUpdateAvailable, Version: m.version})
		}
	}

	return nil
}

// Activate делает версию этого экземпляра активной.
//
// Перечисляет кэши всех версий, удаляет каждый с несовпадающей
// версией, затем захватывает все открытые сессии: каждая
// перезагружается ровно один раз. Повторная активация без новой
// установки ничего не меняет (идемпотентность).
func (m *Manager) Activate() error {
	m.mu.Lock()
	m.state = StateActivating

	versions, err := m.store.Versions()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	for _, v := range versions {
		if v != m.version {
			if err := m.store.DeleteVersion(v); err != nil {
				m.mu.Unlock()
				return fmt.Errorf("не удалось удалить старый кэш %s: %w", v, err)
			}
		}
	}

	reg := m.loadRegistry()
	controllerChanged := reg.Active != m.version
	reg.Active = m.version
	if reg.Waiting == m.version {
		reg.Waiting = ""
	}
	if err := m.saveRegistry(reg); err != nil {
		m.mu.Unlock()
		return err
	}

	m.state = StateActive
	sessions := append([]*Session(nil), m.sessions...)
	m.mu.Unlock()

	// clients.claim(): активный экземпляр немедленно начинает
	// обслуживать все открытые сессии, а не только будущие.
	if controllerChanged {
		for _, s := range sessions {
			s.controllerChange()
		}
	}

	return nil
}

// FetchResult - ответ на перехваченный запрос.
type FetchResult struct {
	// Body - содержимое ответа.
	Body []byte

	// ContentType - MIME-тип.
	ContentType string

	// FromCache - ответ отдан из кэша.
	FromCache bool
}

// HandleFetch обрабатывает один перехваченный запрос.
//
// Не-GET запросы не перехватываются и уходят напрямую в сеть.
// GET запросы обрабатываются по выбранной стратегии:
//   - cache-first: из кэша; при промахе из сети без записи в кэш;
//   - network-first: из сети с записью копии в кэш; при сбое сети
//     из кэша, иначе ошибка.
func (m *Manager) HandleFetch(ctx context.Context, method, rawURL string) (*FetchResult, error) {
	url := m.resolveURL(rawURL)

	if method != http.MethodGet {
		body, contentType, err := m.passThrough(ctx, method, url)
		if err != nil {
			return nil, err
		}
		return &FetchResult{Body: body, ContentType: contentType}, nil
	}

	switch m.strategy {
	case config.StrategyCacheFirst:
		if asset, ok := m.store.Get(m.version, url); ok {
			return &FetchResult{Body: asset.Body, ContentType: asset.ContentType, FromCache: true}, nil
		}
		body, contentType, err := m.fetchOrigin(ctx, url)
		if err != nil {
			return nil, err
		}
		return &FetchResult{Body: body, ContentType: contentType}, nil

	default: // network-first
		body, contentType, err := m.fetchOrigin(ctx, url)
		if err == nil {
			cached := CachedAsset{Body: body, ContentType: contentType, FetchedAt: time.Now()}
			if putErr := m.store.Put(m.version, url, cached); putErr != nil {
				// Запись в кэш не должна ломать живой ответ
				fmt.Fprintf(os.Stderr, "⚠️  Не удалось обновить кэш %s: %v\n", rawURL, putErr)
			}
			return &FetchResult{Body: body, ContentType: contentType}, nil
		}

		if asset, ok := m.store.Get(m.version, url); ok {
			return &FetchResult{Body: asset.Body, ContentType: asset.ContentType, FromCache: true}, nil
		}
		return nil, fmt.Errorf("сеть недоступна и %s нет в кэше: %w", rawURL, err)
	}
}

// HandleMessage обрабатывает сообщение от сессии.
//
// GET_VERSION - ответ VERSION с текущей версией только запросившей
// сессии. SKIP_WAITING - немедленная активация ожидающего экземпляра,
// без ответа.
func (m *Manager) HandleMessage(from *Session, msg Message) error {
	switch msg.Type {
	case MsgGetVersion:
		from.deliver(Message{Type: MsgVersion, Version: m.version})
		return nil
	case MsgSkipWaiting:
		return m.Activate()
	default:
		// Неизвестные сообщения молча игнорируются
		return nil
	}
}

// resolveURL достраивает относительный путь до URL источника.
func (m *Manager) resolveURL(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return m.origin + raw
}

// fetchOrigin скачивает файл с источника.
func (m *Manager) fetchOrigin(ctx context.Context, url string) (body []byte, contentType string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("источник ответил %s", resp.Status)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	return body, resp.Header.Get("Content-Type"), nil
}

// passThrough выполняет запрос напрямую, без участия кэша.
func (m *Manager) passThrough(ctx context.Context, method, url string) (body []byte, contentType string, err error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	return body, resp.Header.Get("Content-Type"), nil
}

/*
Возможные расширения:
- Стратегия stale-while-revalidate
- Ограничение размера кэша с вытеснением
- Периодическая фоновая проверка новой версии
*/
