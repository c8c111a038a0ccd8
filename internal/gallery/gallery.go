// Package gallery хранит результаты текущего пакета и состояние просмотрщика.
package gallery

import "github.com/artemshloyda/heic2jpeg/internal/pipeline"

// Gallery владеет списком сконвертированных результатов и индексом
// текущего элемента просмотрщика. Мутируется только по завершении
// конвейера и действиями навигации, поэтому без блокировок.
type Gallery struct {
	// results - результаты текущего пакета в порядке подачи.
	results []pipeline.FileResult

	// current - индекс текущего элемента просмотрщика.
	current int
}

// New создаёт пустую галерею.
func New() *Gallery {
	return &Gallery{}
}

// NewBatch очищает предыдущие результаты перед новым пакетом.
func (g *Gallery) NewBatch() {
	g.results = nil
	g.current = 0
}

// Add добавляет результат в галерею.
func (g *Gallery) Add(res pipeline.FileResult) {
	g.results = append(g.results, res)
}

// AddAll добавляет все результаты пакета.
func (g *Gallery) AddAll(results []pipeline.FileResult) {
	g.results = append(g.results, results...)
}

// Len возвращает количество результатов.
func (g *Gallery) Len() int {
	return len(g.results)
}

// Results возвращает все результаты в порядке подачи.
func (g *Gallery) Results() []pipeline.FileResult {
	return g.results
}

// Current возвращает текущий элемент просмотрщика.
// Второе значение false - галерея пуста.
func (g *Gallery) Current() (pipeline.FileResult, bool) {
	if len(g.results) == 0 {
		return pipeline.FileResult{}, false
	}
	return g.results[g.current], true
}

// Next переходит к следующему элементу.
// На последнем элементе остаётся на месте (без зацикливания).
func (g *Gallery) Next() (pipeline.FileResult, bool) {
	if len(g.results) == 0 {
		return pipeline.FileResult{}, false
	}
	if g.current < len(g.results)-1 {
		g.current++
	}
	return g.results[g.current], true
}

// Prev переходит к предыдущему элементу.
// На первом элементе остаётся на месте.
func (g *Gallery) Prev() (pipeline.FileResult, bool) {
	if len(g.results) == 0 {
		return pipeline.FileResult{}, false
	}
	if g.current > 0 {
		g.current--
	}
	return g.results[g.current], true
}

// Index возвращает индекс текущего элемента.
func (g *Gallery) Index() int {
	return g.current
}
