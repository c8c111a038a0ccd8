// Package converter содержит логику конвертации HEIC/HEIF в JPEG
// через внешний кодек.
package converter

import (
	"path/filepath"
	"strings"
)

// OutputExt - расширение выходных файлов.
const OutputExt = ".jpg"

// IsEligible проверяет, подлежит ли файл конвертации.
// Проверка по расширению: .heic/.heif без учёта регистра, точное
// совпадение расширения (photo.heics не подходит).
func IsEligible(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".heic", ".heif":
		return true
	}
	return false
}

// OutputName возвращает имя выходного файла: расширение .heic/.heif
// заменяется на .jpg, остальные символы не меняются.
// Для неподходящих имён возвращает имя без изменений.
func OutputName(name string) string {
	if !IsEligible(name) {
		return name
	}
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + OutputExt
}
