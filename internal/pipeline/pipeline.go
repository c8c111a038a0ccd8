// Package pipeline содержит пакетный конвейер конвертации.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/artemshloyda/heic2jpeg/internal/converter"
)

// Job представляет один входной файл, поставленный в очередь конвертации.
type Job struct {
	// ID - уникальный идентификатор задачи.
	ID string

	// SrcPath - абсолютный путь к исходному файлу.
	SrcPath string

	// Name - имя исходного файла.
	Name string

	// Size - размер исходного файла в байтах.
	Size int64
}

// NewJob создаёт Job для файла по пути.
func NewJob(path string) Job {
	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	return Job{
		ID:      uuid.NewString(),
		SrcPath: path,
		Name:    filepath.Base(path),
		Size:    size,
	}
}

// FileResult содержит результат успешной конвертации одного файла.
type FileResult struct {
	// Job - исходная задача.
	Job Job

	// DstName - имя выходного файла (расширение заменено на .jpg).
	DstName string

	// DstPath - путь к выходному файлу.
	DstPath string

	// SrcSize - размер исходного файла в байтах.
	SrcSize int64

	// DstSize - размер выходного файла в байтах.
	DstSize int64
}

// Failure содержит запись об ошибке по одному файлу.
type Failure struct {
	// JobID - идентификатор задачи.
	JobID string

	// Name - имя исходного файла.
	Name string

	// SrcSize - размер исходного файла в байтах.
	SrcSize int64

	// Message - текст ошибки.
	Message string
}

// Summary содержит итог обработки пакета.
type Summary struct {
	// NoEligible - в пакете не нашлось ни одного HEIC/HEIF файла.
	// В этом случае конвертация не выполнялась и прогресс не сообщался.
	NoEligible bool

	// Total - количество обработанных файлов (успех + ошибка).
	Total int

	// Converted - количество успешно сконвертированных файлов.
	Converted int

	// Failed - количество файлов с ошибками.
	Failed int

	// Cancelled - количество файлов, не начатых из-за отмены.
	// Исключаются и из числителя, и из знаменателя прогресса.
	Cancelled int

	// Results - успешные результаты в порядке подачи файлов.
	Results []FileResult

	// Failures - записи об ошибках, по имени исходного файла.
	Failures []Failure

	// InputBytes - суммарный размер исходных файлов (успешных).
	InputBytes int64

	// OutputBytes - суммарный размер выходных файлов.
	OutputBytes int64
}

// ProgressFunc вызывается после обработки каждого файла (успех или ошибка).
// processed монотонно растёт от 1 до total.
type ProgressFunc func(processed, total int)

// Percent возвращает процент выполнения: round(processed/total*100).
func Percent(processed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(float64(processed)/float64(total)*100 + 0.5)
}

// Options содержит настройки конвейера.
type Options struct {
	// Quality - качество JPEG (1-100).
	Quality int

	// OutDir - директория для выходных файлов.
	OutDir string

	// Workers - количество параллельных воркеров.
	// 1 (по умолчанию) = строго последовательная обработка: результаты
	// сохраняют порядок подачи, прогресс строго упорядочен.
	// >1 = параллельная обработка: порядок завершения не определён,
	// но итоговые Results пересортированы в порядок подачи.
	Workers int

	// DryRun - симуляция без реальной конвертации.
	DryRun bool

	// MaxMemoryMB - ограничение памяти (0 = без ограничения).
	MaxMemoryMB int
}

// Pipeline прогоняет пакет файлов через кодек.
type Pipeline struct {
	codec converter.Codec
	opts  Options

	// onProgress - колбэк прогресса (может быть nil).
	onProgress ProgressFunc

	memoryLimiter *MemoryLimiter
}

// New создаёт новый Pipeline.
func New(codec converter.Codec, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pipeline{
		codec:         codec,
		opts:          opts,
		memoryLimiter: NewMemoryLimiter(opts.MaxMemoryMB),
	}
}

// SetProgressFunc устанавливает колбэк прогресса.
func (p *Pipeline) SetProgressFunc(fn ProgressFunc) {
	p.onProgress = fn
}

// Run обрабатывает пакет файлов.
//
// Сначала пакет фильтруется до HEIC/HEIF файлов (без учёта регистра).
// Если подходящих нет - возвращается Summary{NoEligible: true} без
// какой-либо работы и без вызовов прогресса. Ошибка конвертации одного
// файла записывается и не прерывает остальные.
func (p *Pipeline) Run(ctx context.Context, paths []string) *Summary {
	var jobs []Job
	for _, path := range paths {
		if converter.IsEligible(filepath.Base(path)) {
			jobs = append(jobs, NewJob(path))
		}
	}

	if len(jobs) == 0 {
		return &Summary{NoEligible: true}
	}

	if p.opts.Workers == 1 {
		return p.runSequential(ctx, jobs)
	}
	return p.runConcurrent(ctx, jobs)
}

// runSequential обрабатывает файлы строго по порядку подачи.
func (p *Pipeline) runSequential(ctx context.Context, jobs []Job) *Summary {
	summary := &Summary{}
	total := len(jobs)

	for i, job := range jobs {
		if ctx.Err() != nil {
			// Не начатые файлы исключаются из обоих счётчиков
			summary.Cancelled = total - i
			break
		}

		res, failure := p.processOne(ctx, job)
		p.collect(summary, res, failure)

		if p.onProgress != nil {
			p.onProgress(summary.Total, total)
		}
	}

	return summary
}

// runConcurrent обрабатывает файлы параллельно.
// Порядок завершения не определён, но Results пересортированы в порядок
// подачи, а счётчики прогресса остаются точными.
func (p *Pipeline) runConcurrent(ctx context.Context, jobs []Job) *Summary {
	total := len(jobs)

	type indexed struct {
		idx int
		job Job
	}
	type outcome struct {
		idx     int
		res     *FileResult
		failure *Failure
	}

	work := make(chan indexed, total)
	for i, job := range jobs {
		work <- indexed{i, job}
	}
	close(work)

	outcomes := make([]*outcome, total)
	var mu sync.Mutex
	processed := 0
	cancelled := 0

	var wg sync.WaitGroup
	workers := p.opts.Workers
	if workers > total {
		workers = total
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range work {
				if ctx.Err() != nil {
					mu.Lock()
					cancelled++
					mu.Unlock()
					continue
				}

				res, failure := p.processOne(ctx, item.job)

				mu.Lock()
				outcomes[item.idx] = &outcome{item.idx, res, failure}
				processed++
				done := processed
				mu.Unlock()

				if p.onProgress != nil {
					p.onProgress(done, total)
				}
			}
		}()
	}

	wg.Wait()

	summary := &Summary{Cancelled: cancelled}
	for _, o := range outcomes {
		if o == nil {
			continue
		}
		p.collect(summary, o.res, o.failure)
	}

	return summary
}

// processOne конвертирует один файл.
func (p *Pipeline) processOne(ctx context.Context, job Job) (*FileResult, *Failure) {
	dstName := converter.OutputName(job.Name)
	dstPath := filepath.Join(p.opts.OutDir, dstName)

	if p.opts.DryRun {
		return &FileResult{Job: job, DstName: dstName, DstPath: dstPath, SrcSize: job.Size}, nil
	}

	// Ограничение памяти: ждём если превышен лимит
	if p.memoryLimiter.IsEnabled() {
		release, err := p.memoryLimiter.Acquire(ctx, job.Size)
		if err != nil {
			return nil, &Failure{JobID: job.ID, Name: job.Name, SrcSize: job.Size, Message: err.Error()}
		}
		defer release()
	}

	res := p.codec.Convert(ctx, job.SrcPath, dstPath, p.opts.Quality)
	if !res.Success {
		msg := "неизвестная ошибка конвертации"
		if res.Error != nil {
			msg = res.Error.Error()
		}
		return nil, &Failure{JobID: job.ID, Name: job.Name, SrcSize: job.Size, Message: msg}
	}

	out := &FileResult{
		Job:     job,
		DstName: dstName,
		DstPath: res.DstPath,
		SrcSize: job.Size,
	}
	if info, err := os.Stat(res.DstPath); err == nil {
		out.DstSize = info.Size()
	}
	return out, nil
}

// collect добавляет результат одного файла в итог.
func (p *Pipeline) collect(summary *Summary, res *FileResult, failure *Failure) {
	summary.Total++
	if failure != nil {
		summary.Failed++
		summary.Failures = append(summary.Failures, *failure)
		return
	}
	summary.Converted++
	summary.Results = append(summary.Results, *res)
	summary.InputBytes += res.SrcSize
	summary.OutputBytes += res.DstSize
}

/*
Возможные расширения:
- Добавить rate limiting
- Добавить retry логику для failed задач
- Добавить графическую статистику по завершении
*/
