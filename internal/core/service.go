package core

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FallbackSummary is the placeholder summary for messages whose analysis failed
const FallbackSummary = "Automatic analysis failed for this message"

// TriageOptions carries the tunable parameters of the triage pipeline
type TriageOptions struct {
	// RetryAttempts is the number of extra LLM call attempts after the first
	RetryAttempts int
	// RetryBackoff is the pause between attempts
	RetryBackoff time.Duration
	// Workers bounds the number of concurrently analyzed messages
	Workers int
	// BatchTimeout bounds one whole run; zero disables the budget
	BatchTimeout time.Duration
	// CacheEnabled turns the verdict cache on
	CacheEnabled bool
	// CacheTTL is how long cached verdicts stay valid
	CacheTTL time.Duration
}

// TriageService drives the per-message analysis pipeline and maintains the
// result set served to the web layer
type TriageService struct {
	llm        LLMClient
	mailbox    MailboxClient
	cache      VerdictCache
	store      *ResultStore
	normalizer *Normalizer
	prompts    *PromptBuilder
	logger     *zap.Logger
	opts       TriageOptions
	running    atomic.Bool
}

// NewTriageService creates a new triage service
func NewTriageService(
	llm LLMClient,
	mailbox MailboxClient,
	cache VerdictCache,
	store *ResultStore,
	normalizer *Normalizer,
	prompts *PromptBuilder,
	logger *zap.Logger,
	opts TriageOptions,
) *TriageService {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &TriageService{
		llm:        llm,
		mailbox:    mailbox,
		cache:      cache,
		store:      store,
		normalizer: normalizer,
		prompts:    prompts,
		logger:     logger,
		opts:       opts,
	}
}

// RunBatch fetches up to maxCount unread messages, analyzes each one and
// atomically replaces the result store with the new batch.
//
// At most one run may be in flight: a concurrent invocation is rejected with
// ErrRunInProgress instead of cancelling the running batch. Mailbox failures
// are batch-fatal and leave the previous result set untouched; per-message
// failures are absorbed into FAILED entries.
func (s *TriageService) RunBatch(ctx context.Context, maxCount int) (*BatchSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	if s.opts.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.BatchTimeout)
		defer cancel()
	}

	emails, err := s.mailbox.FetchUnread(ctx, maxCount)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unread messages: %w", err)
	}

	s.logger.Info("Starting triage run",
		zap.Int("messages", len(emails)),
		zap.Int("workers", s.opts.Workers))

	results := make([]*AnalyzedEmail, len(emails))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, email := range emails {
		i, email := i, email
		g.Go(func() error {
			results[i] = s.Analyze(gctx, email)
			return nil
		})
	}
	// Analyze never fails, so the only job of Wait is to join the pool.
	_ = g.Wait()

	s.store.Replace(results)

	summary := &BatchSummary{Total: s.store.Len()}
	for _, entry := range s.store.All() {
		if entry.Status == StatusFailed {
			summary.Failed++
		} else {
			summary.Analyzed++
		}
	}

	s.logger.Info("Triage run complete",
		zap.Int("total", summary.Total),
		zap.Int("analyzed", summary.Analyzed),
		zap.Int("failed", summary.Failed))

	return summary, nil
}

// Analyze runs the pipeline for one message. It is total: component failures
// degrade to a fallback verdict with status FAILED instead of propagating, so
// one bad message or endpoint hiccup never aborts a batch.
func (s *TriageService) Analyze(ctx context.Context, email *Email) *AnalyzedEmail {
	unit := s.normalizer.Normalize(email)

	if s.opts.CacheEnabled {
		if verdict, ok := s.cache.Get(email.ID); ok {
			s.logger.Debug("Verdict cache hit", zap.String("id", email.ID))
			return s.result(email, verdict, StatusFallback)
		}
	}

	prompt := s.prompts.Build(unit)

	text, err := s.generateWithRetry(ctx, prompt)
	if err != nil {
		s.logger.Warn("LLM call failed, using fallback verdict",
			zap.String("id", email.ID),
			zap.Error(err))
		return s.result(email, s.fallbackVerdict(), StatusFailed)
	}

	verdict, err := ParseVerdict(text)
	if err != nil {
		s.logger.Warn("Failed to parse LLM response, using fallback verdict",
			zap.String("id", email.ID),
			zap.Error(err))
		return s.result(email, s.fallbackVerdict(), StatusFailed)
	}

	verdict.AnalyzedAt = time.Now()
	verdict.ModelUsed = s.llm.ModelName()

	if s.opts.CacheEnabled {
		s.cache.Set(email.ID, verdict, s.opts.CacheTTL)
	}

	return s.result(email, verdict, StatusAnalyzed)
}

// All returns the current result set in insertion order
func (s *TriageService) All() []*AnalyzedEmail {
	return s.store.All()
}

// Get returns one analyzed email by mailbox identifier
func (s *TriageService) Get(id string) (*AnalyzedEmail, bool) {
	return s.store.Get(id)
}

// Filtered answers filter queries over the current snapshot. Nil arguments
// leave that dimension unconstrained.
func (s *TriageService) Filtered(tier *Tier, hasDeadline *bool) []*AnalyzedEmail {
	result := make([]*AnalyzedEmail, 0)
	for _, entry := range s.store.All() {
		if tier != nil && (entry.Verdict == nil || entry.Verdict.Tier != *tier) {
			continue
		}
		if hasDeadline != nil && (entry.Verdict == nil || entry.Verdict.HasDeadline() != *hasDeadline) {
			continue
		}
		result = append(result, entry)
	}
	return result
}

// generateWithRetry calls the model with the configured bounded retry,
// retrying only on Unavailable/Timeout
func (s *TriageService) generateWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= s.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			s.logger.Debug("Retrying LLM call",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", s.opts.RetryBackoff))
			select {
			case <-time.After(s.opts.RetryBackoff):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
			}
		}

		text, err := s.llm.Generate(ctx, prompt)
		if err == nil {
			return text, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			break
		}
	}

	return "", lastErr
}

func (s *TriageService) fallbackVerdict() *Verdict {
	return &Verdict{
		Tier:       TierUnimportant,
		Summary:    FallbackSummary,
		Deadlines:  []string{},
		Links:      []string{},
		AnalyzedAt: time.Now(),
		ModelUsed:  "fallback",
	}
}

func (s *TriageService) result(email *Email, verdict *Verdict, status Status) *AnalyzedEmail {
	return &AnalyzedEmail{
		ID:          email.ID,
		From:        email.From,
		Subject:     email.Subject,
		Verdict:     verdict,
		Status:      status,
		ProcessedAt: time.Now(),
	}
}
