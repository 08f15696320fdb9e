package core

import (
	"context"
	"time"
)

// LLMClient defines the interface for interacting with the model endpoint.
// Implementations enforce their own per-call timeout and perform no retries;
// retry policy belongs to the TriageService.
type LLMClient interface {
	// Generate sends a prompt and returns the raw model text.
	// Fails with ErrUnavailable or ErrTimeout (wrapped).
	Generate(ctx context.Context, prompt string) (string, error)

	// ModelName identifies the configured model for result attribution
	ModelName() string
}

// MailboxClient defines the interface for fetching unread messages
type MailboxClient interface {
	// FetchUnread returns up to maxCount unread messages in mailbox order.
	// Fails with ErrMailboxAuth or ErrMailboxTransport (wrapped).
	FetchUnread(ctx context.Context, maxCount int) ([]*Email, error)
}

// VerdictCache defines the interface for caching verdicts per message ID
type VerdictCache interface {
	// Get retrieves a cached verdict for a message
	Get(messageID string) (*Verdict, bool)

	// Set stores a verdict for a message
	Set(messageID string, verdict *Verdict, ttl time.Duration)

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}
