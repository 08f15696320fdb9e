package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// TextProcessor provides utilities for preparing email text for analysis
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// TruncateText safely truncates text to the specified maximum size
// and ensures the result is valid UTF-8
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]

	// Ensure the truncated text ends with a valid UTF-8 sequence
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + "\n[... Content truncated due to size limits ...]"
}

// SanitizeUTF8 ensures the string contains only valid UTF-8 characters
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				// Skip invalid UTF-8 sequences
				continue
			}
		}
		result = append(result, r)
	}

	return string(result)
}

// StripHTML converts an HTML email body to plain text. Markup-free input is
// returned unchanged.
func (tp *TextProcessor) StripHTML(text string) string {
	if !strings.Contains(text, "<") {
		return text
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		tp.logger.Debug("Failed to parse HTML body, keeping raw text", zap.Error(err))
		return text
	}

	doc.Find("script,style").Remove()
	return doc.Text()
}

// CollapseWhitespace folds runs of whitespace into single spaces
func (tp *TextProcessor) CollapseWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// ProcessBody strips markup, normalizes whitespace, sanitizes and truncates
// an email body in one operation
func (tp *TextProcessor) ProcessBody(text string, maxSize int) string {
	stripped := tp.StripHTML(text)
	collapsed := tp.CollapseWhitespace(stripped)
	sanitized := tp.SanitizeUTF8(collapsed)
	return tp.TruncateText(sanitized, maxSize)
}
