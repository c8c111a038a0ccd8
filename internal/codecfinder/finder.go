// Package codecfinder отвечает за поиск HEIC-кодека в системе.
//
// Сама конвертация делегируется внешнему бинарнику: приложение не
// реализует декодер HEIC, а только находит и вызывает подходящий.
package codecfinder

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Kind определяет тип найденного кодека.
type Kind string

const (
	// KindVips - libvips (vips copy).
	KindVips Kind = "vips"
	// KindHeifConvert - heif-convert из libheif-examples.
	KindHeifConvert Kind = "heif-convert"
	// KindSips - системный sips (только macOS).
	KindSips Kind = "sips"
)

// CodecInfo содержит информацию о найденном кодеке.
type CodecInfo struct {
	// Path - абсолютный путь к бинарнику.
	Path string

	// Kind - тип кодека.
	Kind Kind

	// Version - версия кодека (если удалось определить).
	Version string
}

// Finder ищет кодек-бинарник.
type Finder struct {
	// CustomPath - пользовательский путь к кодеку (из флага --codec-path).
	CustomPath string

	// EnvVar - имя переменной окружения для пути к кодеку.
	EnvVar string
}

// NewFinder создаёт новый Finder.
func NewFinder(customPath string) *Finder {
	return &Finder{
		CustomPath: customPath,
		EnvVar:     "HEIC2JPEG_CODEC",
	}
}

// candidate - кандидат на роль кодека.
type candidate struct {
	path string
	kind Kind
}

// Find ищет кодек в следующем порядке:
// 1. CustomPath (если задан)
// 2. Переменная окружения HEIC2JPEG_CODEC
// 3. vips / heif-convert / sips в PATH
// 4. Рядом с исполняемым файлом в ./bin/<os-arch>/
func (f *Finder) Find() (*CodecInfo, error) {
	var candidates []candidate

	// 1. Пользовательский путь
	if f.CustomPath != "" {
		candidates = append(candidates, candidate{f.CustomPath, kindFromName(f.CustomPath)})
	}

	// 2. Переменная окружения
	if envPath := os.Getenv(f.EnvVar); envPath != "" {
		candidates = append(candidates, candidate{envPath, kindFromName(envPath)})
	}

	// 3. PATH
	for _, name := range codecNames() {
		if p, err := exec.LookPath(name); err == nil {
			candidates = append(candidates, candidate{p, kindFromName(name)})
		}
	}

	// 4. Рядом с бинарником
	if execPath, err := os.Executable(); err == nil {
		execDir := filepath.Dir(execPath)
		platformDir := fmt.Sprintf("%s-%s", runtime.GOOS, runtime.GOARCH)
		for _, name := range codecNames() {
			candidates = append(candidates,
				candidate{filepath.Join(execDir, "bin", platformDir, name), kindFromName(name)},
				candidate{filepath.Join(execDir, "bin", name), kindFromName(name)},
			)
		}
	}

	for _, c := range candidates {
		if info, err := f.check(c); err == nil {
			return info, nil
		}
	}

	return nil, fmt.Errorf("HEIC-кодек не найден. Проверьте:\n"+
		"  1. Установлен ли vips (apt install libvips-tools / brew install vips)\n"+
		"     или heif-convert (apt install libheif-examples)\n"+
		"  2. Установлена ли переменная окружения %s\n"+
		"  3. Указан ли путь через флаг --codec-path\n"+
		"  4. Находится ли кодек рядом с утилитой в ./bin/<os-arch>/", f.EnvVar)
}

// check проверяет, является ли кандидат рабочим кодеком.
func (f *Finder) check(c candidate) (*CodecInfo, error) {
	if _, err := os.Stat(c.path); err != nil {
		return nil, fmt.Errorf("файл не найден: %w", err)
	}

	absPath, err := filepath.Abs(c.path)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить абсолютный путь: %w", err)
	}

	version, err := probeVersion(absPath, c.kind)
	if err != nil {
		return nil, err
	}

	return &CodecInfo{
		Path:    absPath,
		Kind:    c.kind,
		Version: version,
	}, nil
}

// probeVersion пробует получить версию кодека.
func probeVersion(path string, kind Kind) (string, error) {
	switch kind {
	case KindVips:
		out, err := exec.Command(path, "--version").Output()
		if err != nil {
			return "", fmt.Errorf("не удалось выполнить vips --version: %w", err)
		}
		return parseVipsVersion(string(out)), nil
	case KindHeifConvert:
		// heif-convert --version завершается кодом 0 и печатает версию libheif
		out, err := exec.Command(path, "--version").CombinedOutput()
		if err != nil {
			return "", fmt.Errorf("не удалось выполнить heif-convert --version: %w", err)
		}
		return strings.TrimSpace(string(out)), nil
	case KindSips:
		// У sips нет флага версии; проверяем, что бинарник запускается
		if err := exec.Command(path, "--help").Run(); err != nil {
			return "", fmt.Errorf("не удалось выполнить sips --help: %w", err)
		}
		return "system", nil
	}
	return "", fmt.Errorf("неизвестный тип кодека: %s", kind)
}

// parseVipsVersion извлекает версию из вывода "vips --version".
// Пример вывода: "vips-8.14.2"
func parseVipsVersion(output string) string {
	output = strings.TrimSpace(output)
	if strings.HasPrefix(output, "vips-") {
		return strings.TrimPrefix(output, "vips-")
	}
	if strings.HasPrefix(output, "vips ") {
		return strings.TrimPrefix(output, "vips ")
	}
	return output
}

// kindFromName определяет тип кодека по имени файла.
func kindFromName(path string) Kind {
	base := strings.TrimSuffix(filepath.Base(path), ".exe")
	switch base {
	case "heif-convert":
		return KindHeifConvert
	case "sips":
		return KindSips
	default:
		return KindVips
	}
}

// codecNames возвращает имена кодеков для текущей ОС в порядке предпочтения.
func codecNames() []string {
	names := []string{"vips", "heif-convert"}
	if runtime.GOOS == "windows" {
		names = []string{"vips.exe", "heif-convert.exe"}
	}
	if runtime.GOOS == "darwin" {
		names = append(names, "sips")
	}
	return names
}

/*
Возможные расширения:
- Кэширование результата поиска
- Проверка, что найденный vips собран с поддержкой HEIF
- Автоматическое скачивание portable кодека
*/
