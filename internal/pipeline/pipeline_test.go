package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/artemshloyda/heic2jpeg/internal/converter"
)

// stubCodec - заглушка кодека: пишет фиктивный JPEG или возвращает
// ошибку для файлов из failNames.
type stubCodec struct {
	mu        sync.Mutex
	failNames map[string]bool
	calls     []string
	payload   []byte
}

func (s *stubCodec) Convert(ctx context.Context, srcPath, dstPath string, quality int) *converter.Result {
	s.mu.Lock()
	s.calls = append(s.calls, filepath.Base(srcPath))
	s.mu.Unlock()

	if s.failNames[filepath.Base(srcPath)] {
		return &converter.Result{
			Success: false,
			Error:   fmt.Errorf("не удалось декодировать %s", filepath.Base(srcPath)),
		}
	}

	payload := s.payload
	if payload == nil {
		payload = []byte("jpeg")
	}
	if err := os.WriteFile(dstPath, payload, 0644); err != nil {
		return &converter.Result{Success: false, Error: err}
	}
	return &converter.Result{Success: true, DstPath: dstPath}
}

// writeSrc создаёт исходный файл заданного размера и возвращает его путь.
func writeSrc(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPipeline_NoEligible(t *testing.T) {
	dir := t.TempDir()
	codec := &stubCodec{}
	p := New(codec, Options{Quality: 90, OutDir: dir})

	progressCalls := 0
	p.SetProgressFunc(func(processed, total int) { progressCalls++ })

	summary := p.Run(context.Background(), []string{
		writeSrc(t, dir, "b.txt", 10),
		writeSrc(t, dir, "c.png", 10),
	})

	if !summary.NoEligible {
		t.Error("NoEligible = false, want true")
	}
	if progressCalls != 0 {
		t.Errorf("progress calls = %d, want 0", progressCalls)
	}
	if len(codec.calls) != 0 {
		t.Errorf("codec calls = %v, want none", codec.calls)
	}
}

func TestPipeline_Sequential_EndToEnd(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()

	// Пакет из спецификации: a.heic, b.txt, c.HEIF
	paths := []string{
		writeSrc(t, srcDir, "a.heic", 100),
		writeSrc(t, srcDir, "b.txt", 100),
		writeSrc(t, srcDir, "c.HEIF", 200),
	}

	codec := &stubCodec{payload: []byte("0123456789")}
	p := New(codec, Options{Quality: 80, OutDir: outDir})

	var progress [][2]int
	p.SetProgressFunc(func(processed, total int) {
		progress = append(progress, [2]int{processed, total})
	})

	summary := p.Run(context.Background(), paths)

	if summary.NoEligible {
		t.Fatal("NoEligible = true for batch with eligible files")
	}
	if summary.Total != 2 || summary.Converted != 2 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want total=2 converted=2 failed=0", summary)
	}

	// Прогресс строго (1,2), затем (2,2)
	want := [][2]int{{1, 2}, {2, 2}}
	if len(progress) != len(want) {
		t.Fatalf("progress = %v, want %v", progress, want)
	}
	for i := range want {
		if progress[i] != want[i] {
			t.Errorf("progress[%d] = %v, want %v", i, progress[i], want[i])
		}
	}

	// Результаты в порядке подачи, расширение заменено на .jpg
	if summary.Results[0].DstName != "a.jpg" || summary.Results[1].DstName != "c.jpg" {
		t.Errorf("result names = %q, %q", summary.Results[0].DstName, summary.Results[1].DstName)
	}

	// b.txt нигде не фигурирует
	for _, res := range summary.Results {
		if res.Job.Name == "b.txt" {
			t.Error("b.txt appeared in results")
		}
	}
	for _, f := range summary.Failures {
		if f.Name == "b.txt" {
			t.Error("b.txt appeared in failures")
		}
	}
	for _, call := range codec.calls {
		if call == "b.txt" {
			t.Error("codec was invoked for b.txt")
		}
	}

	// Размеры
	if summary.Results[0].SrcSize != 100 || summary.Results[0].DstSize != 10 {
		t.Errorf("sizes = %d/%d, want 100/10",
			summary.Results[0].SrcSize, summary.Results[0].DstSize)
	}
}

func TestPipeline_PartialFailure(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()

	paths := []string{
		writeSrc(t, srcDir, "ok1.heic", 10),
		writeSrc(t, srcDir, "broken.heic", 10),
		writeSrc(t, srcDir, "ok2.heif", 10),
	}

	codec := &stubCodec{failNames: map[string]bool{"broken.heic": true}}
	p := New(codec, Options{Quality: 90, OutDir: outDir})

	summary := p.Run(context.Background(), paths)

	if summary.Converted+summary.Failed != summary.Total {
		t.Errorf("converted(%d) + failed(%d) != total(%d)",
			summary.Converted, summary.Failed, summary.Total)
	}
	if summary.Total != 3 || summary.Converted != 2 || summary.Failed != 1 {
		t.Errorf("summary = %+v", summary)
	}

	if len(summary.Failures) != 1 {
		t.Fatalf("failures = %v", summary.Failures)
	}
	if summary.Failures[0].Name != "broken.heic" {
		t.Errorf("failure name = %q, want broken.heic", summary.Failures[0].Name)
	}
	if summary.Failures[0].Message == "" {
		t.Error("failure message is empty")
	}

	// Ошибка одного файла не остановила остальные
	if len(summary.Results) != 2 {
		t.Errorf("results = %d, want 2", len(summary.Results))
	}
}

func TestPipeline_Concurrent(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()

	var paths []string
	for i := 0; i < 12; i++ {
		paths = append(paths, writeSrc(t, srcDir, fmt.Sprintf("img%02d.heic", i), 10))
	}

	codec := &stubCodec{failNames: map[string]bool{"img05.heic": true}}
	p := New(codec, Options{Quality: 90, OutDir: outDir, Workers: 4})

	var mu sync.Mutex
	last := 0
	p.SetProgressFunc(func(processed, total int) {
		mu.Lock()
		defer mu.Unlock()
		if processed > last {
			last = processed
		}
		if total != 12 {
			t.Errorf("total = %d, want 12", total)
		}
	})

	summary := p.Run(context.Background(), paths)

	if summary.Total != 12 || summary.Converted != 11 || summary.Failed != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if last != 12 {
		t.Errorf("final processed = %d, want 12", last)
	}

	// Results пересортированы в порядок подачи
	prev := ""
	for _, res := range summary.Results {
		if res.Job.Name <= prev {
			t.Errorf("results out of submission order: %q after %q", res.Job.Name, prev)
		}
		prev = res.Job.Name
	}
}

func TestPipeline_Cancelled(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()

	paths := []string{
		writeSrc(t, srcDir, "a.heic", 10),
		writeSrc(t, srcDir, "b.heic", 10),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	codec := &stubCodec{}
	p := New(codec, Options{Quality: 90, OutDir: outDir})
	summary := p.Run(ctx, paths)

	// Отменённые файлы исключаются из обоих счётчиков
	if summary.Total != 0 || summary.Cancelled != 2 {
		t.Errorf("summary = %+v, want total=0 cancelled=2", summary)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		processed, total, want int
	}{
		{0, 0, 0},
		{1, 2, 50},
		{2, 2, 100},
		{1, 3, 33},
		{2, 3, 67},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_of_%d", tt.processed, tt.total), func(t *testing.T) {
			if got := Percent(tt.processed, tt.total); got != tt.want {
				t.Errorf("Percent(%d, %d) = %d, want %d", tt.processed, tt.total, got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{500, "500 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatBytes(tt.bytes); got != tt.want {
				t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestMemoryLimiter_Disabled(t *testing.T) {
	ml := NewMemoryLimiter(0)
	if ml.IsEnabled() {
		t.Error("limiter with 0 MB should be disabled")
	}

	release, err := ml.Acquire(context.Background(), 1<<30)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	release()
}

func TestMemoryLimiter_AcquireRelease(t *testing.T) {
	ml := NewMemoryLimiter(100)
	if !ml.IsEnabled() {
		t.Fatal("limiter should be enabled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	release, err := ml.Acquire(ctx, 1024)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if ml.CurrentUsage() == 0 {
		t.Error("CurrentUsage() = 0 after Acquire")
	}
	release()
	if ml.CurrentUsage() != 0 {
		t.Errorf("CurrentUsage() = %d after release, want 0", ml.CurrentUsage())
	}
}
