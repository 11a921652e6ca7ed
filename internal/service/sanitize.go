package service

import (
	"regexp"
	"strings"
)

// Лимиты пользовательского контента.
const (
	MaxTitleLength   = 200
	MaxContentLength = 50000
	MaxImageCount    = 2
)

var (
	// <script>...</script> удаляется вместе с содержимым
	scriptBlockRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	// Остальные теги удаляются, текст внутри остается
	htmlTagRe = regexp.MustCompile(`(?s)<[^>]*>`)
)

// Фрагменты, наличие которых после очистки означает попытку внедрения кода.
// Текст с ними отклоняется целиком, а не чистится.
var rejectedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)\bon\w+\s*=`),
	regexp.MustCompile(`(?i)\beval\s*\(`),
	regexp.MustCompile(`(?i)\balert\s*\(`),
	regexp.MustCompile(`(?i)\bdocument\.`),
	regexp.MustCompile(`(?i)\bwindow\.`),
}

// SanitizeText убирает HTML-разметку из пользовательского текста.
// Скрипты удаляются вместе с телом, прочие теги заменяются на текст внутри.
func SanitizeText(input string) string {
	cleaned := scriptBlockRe.ReplaceAllString(input, "")
	cleaned = htmlTagRe.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// ContainsRejectedContent проверяет текст на фрагменты активного кода.
func ContainsRejectedContent(input string) bool {
	for _, re := range rejectedPatterns {
		if re.MatchString(input) {
			return true
		}
	}
	return false
}
