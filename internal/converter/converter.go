// Package converter содержит логику конвертации HEIC/HEIF в JPEG
// через внешний кодек.
package converter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/artemshloyda/heic2jpeg/internal/codecfinder"
)

// Codec - минимальный контракт конвертации одного файла.
// Пайплайн зависит от него, а не от конкретного бинарника,
// поэтому в тестах кодек подменяется заглушкой.
type Codec interface {
	// Convert конвертирует файл из srcPath в dstPath с заданным качеством (1-100).
	Convert(ctx context.Context, srcPath, dstPath string, quality int) *Result
}

// Result содержит результат конвертации одного файла.
type Result struct {
	// Success - успешна ли конвертация.
	Success bool

	// DstPath - путь к выходному файлу.
	DstPath string

	// Error - ошибка (если есть).
	Error error

	// Stderr - вывод stderr от кодека.
	Stderr string

	// Duration - время конвертации.
	Duration time.Duration
}

// Converter выполняет конвертацию через внешний кодек-бинарник.
type Converter struct {
	// info - информация о найденном кодеке.
	info *codecfinder.CodecInfo

	// timeout - таймаут на конвертацию одного файла.
	timeout time.Duration
}

// New создаёт новый Converter.
func New(info *codecfinder.CodecInfo) *Converter {
	return &Converter{
		info:    info,
		timeout: 5 * time.Minute, // Таймаут по умолчанию
	}
}

// SetTimeout устанавливает таймаут на конвертацию.
func (c *Converter) SetTimeout(d time.Duration) {
	c.timeout = d
}

// Convert конвертирует файл из srcPath в dstPath.
func (c *Converter) Convert(ctx context.Context, srcPath, dstPath string, quality int) *Result {
	start := time.Now()

	// Создаём директорию для выходного файла
	dstDir := filepath.Dir(dstPath)
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return &Result{
			Success:  false,
			Error:    fmt.Errorf("не удалось создать директорию %s: %w", dstDir, err),
			Duration: time.Since(start),
		}
	}

	// Атомарная запись: пишем во временный файл с правильным расширением,
	// затем переименовываем. Кодеки определяют формат по расширению.
	dstExt := filepath.Ext(dstPath)
	dstBase := strings.TrimSuffix(dstPath, dstExt)
	tmpPath := dstBase + ".converting" + dstExt

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := c.command(ctx, srcPath, tmpPath, quality)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)

	if err != nil {
		_ = os.Remove(tmpPath)

		errMsg := err.Error()
		if stderr.Len() > 0 {
			errMsg = fmt.Sprintf("%s: %s", err.Error(), stderr.String())
		}

		return &Result{
			Success:  false,
			Error:    fmt.Errorf("%s failed: %s", c.info.Kind, errMsg),
			Stderr:   stderr.String(),
			Duration: duration,
		}
	}

	// Переименовываем временный файл в финальный
	if err := os.Rename(tmpPath, dstPath); err != nil {
		_ = os.Remove(tmpPath)
		return &Result{
			Success:  false,
			Error:    fmt.Errorf("не удалось переименовать %s -> %s: %w", tmpPath, dstPath, err),
			Duration: duration,
		}
	}

	return &Result{
		Success:  true,
		DstPath:  dstPath,
		Stderr:   stderr.String(),
		Duration: duration,
	}
}

// command строит команду конвертации для найденного кодека.
func (c *Converter) command(ctx context.Context, srcPath, dstPath string, quality int) *exec.Cmd {
	switch c.info.Kind {
	case codecfinder.KindHeifConvert:
		// heif-convert -q 85 input.heic output.jpg
		return exec.CommandContext(ctx, c.info.Path,
			"-q", fmt.Sprintf("%d", quality), srcPath, dstPath)
	case codecfinder.KindSips:
		// sips -s format jpeg -s formatOptions 85 input.heic --out output.jpg
		return exec.CommandContext(ctx, c.info.Path,
			"-s", "format", "jpeg",
			"-s", "formatOptions", fmt.Sprintf("%d", quality),
			srcPath, "--out", dstPath)
	default:
		// vips copy input.heic output.jpg[Q=85]
		return exec.CommandContext(ctx, c.info.Path,
			"copy", srcPath, fmt.Sprintf("%s[Q=%d]", dstPath, quality))
	}
}

// CheckHealth проверяет работоспособность кодека.
func (c *Converter) CheckHealth() error {
	var cmd *exec.Cmd
	switch c.info.Kind {
	case codecfinder.KindSips:
		cmd = exec.Command(c.info.Path, "--help")
	default:
		cmd = exec.Command(c.info.Path, "--version")
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("кодек %s не работает: %w", c.info.Kind, err)
	}
	return nil
}

/*
Возможные расширения:
- Добавить поддержку resize (--width, --height)
- Добавить strip метаданных для vips
- Добавить retry логику при временных ошибках
*/
