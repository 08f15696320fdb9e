package core

import (
	"time"
)

// Tier is the importance class assigned to an email
type Tier string

const (
	TierVeryImportant Tier = "VERY_IMPORTANT"
	TierImportant     Tier = "IMPORTANT"
	TierUnimportant   Tier = "UNIMPORTANT"
	TierSpam          Tier = "SPAM"
)

// Tiers lists every recognized tier in display order
var Tiers = []Tier{TierVeryImportant, TierImportant, TierUnimportant, TierSpam}

// IsValid checks if the tier is one of the recognized values
func (t Tier) IsValid() bool {
	switch t {
	case TierVeryImportant, TierImportant, TierUnimportant, TierSpam:
		return true
	}
	return false
}

// Status tags how an AnalyzedEmail got its verdict
type Status string

const (
	// StatusAnalyzed means the verdict came from a successful model call
	StatusAnalyzed Status = "ANALYZED"
	// StatusFallback means the verdict was served from the verdict cache
	StatusFallback Status = "FALLBACK"
	// StatusFailed means analysis failed and a placeholder verdict was synthesized
	StatusFailed Status = "FAILED"
)

// Email represents a raw message fetched from the mailbox
type Email struct {
	ID          string
	From        string
	Subject     string
	Body        string
	Attachments []string
	ReceivedAt  time.Time
}

// NormalizedEmail is the plain-text analysis unit derived from an Email
type NormalizedEmail struct {
	Sender        string
	Subject       string
	Body          string
	HasAttachment bool
	HasLink       bool
}

// Verdict represents the structured analysis result for one email
type Verdict struct {
	Tier       Tier
	Summary    string
	Deadlines  []string
	Links      []string
	AnalyzedAt time.Time
	ModelUsed  string
}

// HasDeadline reports whether the model extracted at least one deadline
func (v *Verdict) HasDeadline() bool {
	return len(v.Deadlines) > 0
}

// AnalyzedEmail pairs one fetched email with exactly one verdict
type AnalyzedEmail struct {
	ID          string
	From        string
	Subject     string
	Verdict     *Verdict
	Status      Status
	ProcessedAt time.Time
}

// BatchSummary reports the outcome of one RunBatch invocation
type BatchSummary struct {
	Total    int
	Analyzed int
	Failed   int
}
