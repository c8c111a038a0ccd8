// Package offline реализует версионированный офлайн-кэш оболочки приложения.
package offline

import "net/http"

// Handler возвращает http.Handler, обслуживающий оболочку приложения
// через кэш-менеджер. Это локальный аналог перехвата fetch: при
// стратегии network-first оболочка остаётся доступной при выключенном
// источнике.
func (m *Manager) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, err := m.HandleFetch(r.Context(), r.Method, r.URL.Path)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}

		if res.ContentType != "" {
			w.Header().Set("Content-Type", res.ContentType)
		}
		if res.FromCache {
			w.Header().Set("X-Served-From", "cache")
		}
		_, _ = w.Write(res.Body)
	})
}
