package core

import (
	"regexp"

	"github.com/mikey/llm-mail-triage/internal/utils"
)

var linkRe = regexp.MustCompile(`https?://[^\s<>"']+`)

// Normalizer converts raw mailbox messages into plain-text analysis units.
// Normalize is total: missing fields become empty strings and oversized
// bodies are truncated to bound prompt size.
type Normalizer struct {
	textProcessor *utils.TextProcessor
	maxBodySize   int
}

// NewNormalizer creates a new Normalizer
func NewNormalizer(textProcessor *utils.TextProcessor, maxBodySize int) *Normalizer {
	return &Normalizer{
		textProcessor: textProcessor,
		maxBodySize:   maxBodySize,
	}
}

// Normalize derives the analysis unit for one email
func (n *Normalizer) Normalize(email *Email) *NormalizedEmail {
	if email == nil {
		return &NormalizedEmail{}
	}

	// Link detection runs on the raw body so links past the truncation
	// point still set the flag.
	hasLink := linkRe.MatchString(email.Body)

	return &NormalizedEmail{
		Sender:        email.From,
		Subject:       email.Subject,
		Body:          n.textProcessor.ProcessBody(email.Body, n.maxBodySize),
		HasAttachment: len(email.Attachments) > 0,
		HasLink:       hasLink,
	}
}
