package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mikey/llm-mail-triage/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubLLM struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, prompt string) (string, error)
}

func (s *stubLLM) Generate(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	call := s.calls
	s.calls++
	s.mu.Unlock()
	return s.fn(call, prompt)
}

func (s *stubLLM) ModelName() string { return "stub-model" }

func (s *stubLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubMailbox struct {
	emails []*Email
	err    error
	// fetched is closed on the first FetchUnread call when set
	fetched chan struct{}
}

func (s *stubMailbox) FetchUnread(ctx context.Context, maxCount int) ([]*Email, error) {
	if s.fetched != nil {
		select {
		case <-s.fetched:
		default:
			close(s.fetched)
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	if maxCount > 0 && len(s.emails) > maxCount {
		return s.emails[:maxCount], nil
	}
	return s.emails, nil
}

type stubCache struct {
	mu      sync.Mutex
	entries map[string]*Verdict
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[string]*Verdict)}
}

func (s *stubCache) Get(id string) (*Verdict, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	verdict, ok := s.entries[id]
	return verdict, ok
}

func (s *stubCache) Set(id string, verdict *Verdict, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = verdict
}

func (s *stubCache) Cleanup(ctx context.Context) error { return nil }

func testEmail(id, subject string) *Email {
	return &Email{
		ID:      id,
		From:    "sender@example.com",
		Subject: subject,
		Body:    "Body of " + subject,
	}
}

func newTestService(llm LLMClient, mailbox MailboxClient, cache VerdictCache, opts TriageOptions) *TriageService {
	if opts.Workers == 0 {
		opts.Workers = 2
	}
	return NewTriageService(
		llm,
		mailbox,
		cache,
		NewResultStore(),
		NewNormalizer(utils.NewTextProcessor(zap.NewNop()), 4096),
		NewPromptBuilder(),
		zap.NewNop(),
		opts,
	)
}

func TestAnalyzeSuccess(t *testing.T) {
	llm := &stubLLM{fn: func(call int, prompt string) (string, error) {
		return "TIER: IMPORTANT\nSUMMARY: Pay invoice\nDEADLINES: 2024-05-01\nLINKS: none", nil
	}}
	svc := newTestService(llm, nil, nil, TriageOptions{})

	result := svc.Analyze(context.Background(), testEmail("1", "Invoice"))

	assert.Equal(t, StatusAnalyzed, result.Status)
	assert.Equal(t, TierImportant, result.Verdict.Tier)
	assert.Equal(t, "Pay invoice", result.Verdict.Summary)
	assert.Equal(t, []string{"2024-05-01"}, result.Verdict.Deadlines)
	assert.Equal(t, "stub-model", result.Verdict.ModelUsed)
}

func TestAnalyzeEndpointDownFallsBack(t *testing.T) {
	llm := &stubLLM{fn: func(call int, prompt string) (string, error) {
		return "", fmt.Errorf("%w: connection refused", ErrUnavailable)
	}}
	svc := newTestService(llm, nil, nil, TriageOptions{RetryAttempts: 1, RetryBackoff: time.Millisecond})

	result := svc.Analyze(context.Background(), testEmail("1", "Invoice"))

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, TierUnimportant, result.Verdict.Tier)
	assert.Equal(t, FallbackSummary, result.Verdict.Summary)
	assert.Empty(t, result.Verdict.Deadlines)
	assert.Empty(t, result.Verdict.Links)
	// first call plus one retry
	assert.Equal(t, 2, llm.callCount())
}

func TestAnalyzeMalformedResponseNotRetried(t *testing.T) {
	llm := &stubLLM{fn: func(call int, prompt string) (string, error) {
		return "TIER: URGENT\nSUMMARY: Do something", nil
	}}
	svc := newTestService(llm, nil, nil, TriageOptions{RetryAttempts: 3, RetryBackoff: time.Millisecond})

	result := svc.Analyze(context.Background(), testEmail("1", "Task"))

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, FallbackSummary, result.Verdict.Summary)
	// A well-formed transport response with an invalid verdict is a parse
	// failure, not an endpoint failure: exactly one call
	assert.Equal(t, 1, llm.callCount())
}

func TestAnalyzeRetryThenSucceed(t *testing.T) {
	llm := &stubLLM{fn: func(call int, prompt string) (string, error) {
		if call == 0 {
			return "", fmt.Errorf("%w: request timed out", ErrTimeout)
		}
		return "TIER: SPAM\nSUMMARY: Discount offer", nil
	}}
	svc := newTestService(llm, nil, nil, TriageOptions{RetryAttempts: 1, RetryBackoff: time.Millisecond})

	result := svc.Analyze(context.Background(), testEmail("1", "Sale"))

	assert.Equal(t, StatusAnalyzed, result.Status)
	assert.Equal(t, TierSpam, result.Verdict.Tier)
	assert.Equal(t, 2, llm.callCount())
}

func TestRunBatchPartialFailure(t *testing.T) {
	llm := &stubLLM{fn: func(call int, prompt string) (string, error) {
		if containsSubject(prompt, "Broken") {
			return "", fmt.Errorf("%w: connection reset", ErrUnavailable)
		}
		return "TIER: IMPORTANT\nSUMMARY: Handled\nDEADLINES: none\nLINKS: none", nil
	}}
	mailbox := &stubMailbox{emails: []*Email{
		testEmail("1", "First"),
		testEmail("2", "Broken"),
		testEmail("3", "Third"),
	}}
	svc := newTestService(llm, mailbox, nil, TriageOptions{Workers: 2})

	summary, err := svc.RunBatch(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Analyzed)
	assert.Equal(t, 1, summary.Failed)

	// Every fetched message gets an entry, failures included
	all := svc.All()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"1", "2", "3"}, ids(all))

	broken, ok := svc.Get("2")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, broken.Status)
	assert.Equal(t, FallbackSummary, broken.Verdict.Summary)
}

func TestRunBatchMailboxErrorIsFatal(t *testing.T) {
	llm := &stubLLM{fn: func(call int, prompt string) (string, error) {
		return "TIER: IMPORTANT\nSUMMARY: Handled", nil
	}}

	// Seed the store with a previous run, then fail the fetch
	svc := newTestService(llm, &stubMailbox{emails: []*Email{testEmail("1", "Old")}}, nil, TriageOptions{})
	_, err := svc.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, len(svc.All()))

	svc.mailbox = &stubMailbox{err: fmt.Errorf("%w: connection refused", ErrMailboxTransport)}
	summary, err := svc.RunBatch(context.Background(), 10)

	require.Error(t, err)
	assert.Nil(t, summary)
	assert.True(t, errors.Is(err, ErrMailboxTransport))

	// The previous result set stays visible; no model call was made
	assert.Equal(t, []string{"1"}, ids(svc.All()))
	assert.Equal(t, 1, llm.callCount())
}

func TestRunBatchRejectsConcurrentRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	llm := &stubLLM{fn: func(call int, prompt string) (string, error) {
		<-release
		return "TIER: UNIMPORTANT\nSUMMARY: Done", nil
	}}
	mailbox := &stubMailbox{emails: []*Email{testEmail("1", "Slow")}, fetched: started}
	svc := newTestService(llm, mailbox, nil, TriageOptions{Workers: 1})

	done := make(chan error, 1)
	go func() {
		_, err := svc.RunBatch(context.Background(), 10)
		done <- err
	}()

	<-started
	_, err := svc.RunBatch(context.Background(), 10)
	assert.True(t, errors.Is(err, ErrRunInProgress))

	close(release)
	require.NoError(t, <-done)

	// Once the first run finishes a new one is accepted again
	_, err = svc.RunBatch(context.Background(), 10)
	assert.NoError(t, err)
}

func TestRunBatchIdempotentReplay(t *testing.T) {
	llm := &stubLLM{fn: func(call int, prompt string) (string, error) {
		return "TIER: IMPORTANT\nSUMMARY: Pay invoice\nDEADLINES: 2024-05-01\nLINKS: https://example.com/pay", nil
	}}
	mailbox := &stubMailbox{emails: []*Email{testEmail("1", "Invoice"), testEmail("2", "Invoice copy")}}
	svc := newTestService(llm, mailbox, nil, TriageOptions{Workers: 2})

	_, err := svc.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	first := svc.All()

	_, err = svc.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	second := svc.All()

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Verdict.Tier, second[i].Verdict.Tier)
		assert.Equal(t, first[i].Verdict.Summary, second[i].Verdict.Summary)
		assert.Equal(t, first[i].Verdict.Deadlines, second[i].Verdict.Deadlines)
		assert.Equal(t, first[i].Verdict.Links, second[i].Verdict.Links)
	}
}

func TestAnalyzeCacheHit(t *testing.T) {
	llm := &stubLLM{fn: func(call int, prompt string) (string, error) {
		return "TIER: IMPORTANT\nSUMMARY: Fresh analysis", nil
	}}
	cache := newStubCache()
	cache.Set("1", &Verdict{
		Tier:      TierVeryImportant,
		Summary:   "Cached analysis",
		Deadlines: []string{},
		Links:     []string{},
		ModelUsed: "stub-model",
	}, time.Hour)

	svc := newTestService(llm, nil, cache, TriageOptions{CacheEnabled: true, CacheTTL: time.Hour})

	result := svc.Analyze(context.Background(), testEmail("1", "Invoice"))

	assert.Equal(t, StatusFallback, result.Status)
	assert.Equal(t, "Cached analysis", result.Verdict.Summary)
	assert.Equal(t, TierVeryImportant, result.Verdict.Tier)
	assert.Equal(t, 0, llm.callCount())
}

func TestAnalyzeStoresVerdictInCache(t *testing.T) {
	llm := &stubLLM{fn: func(call int, prompt string) (string, error) {
		return "TIER: SPAM\nSUMMARY: Promotion", nil
	}}
	cache := newStubCache()
	svc := newTestService(llm, nil, cache, TriageOptions{CacheEnabled: true, CacheTTL: time.Hour})

	first := svc.Analyze(context.Background(), testEmail("1", "Sale"))
	assert.Equal(t, StatusAnalyzed, first.Status)

	second := svc.Analyze(context.Background(), testEmail("1", "Sale"))
	assert.Equal(t, StatusFallback, second.Status)
	assert.Equal(t, first.Verdict.Tier, second.Verdict.Tier)
	assert.Equal(t, 1, llm.callCount())
}

func TestFiltered(t *testing.T) {
	llm := &stubLLM{fn: func(call int, prompt string) (string, error) {
		switch {
		case containsSubject(prompt, "Invoice"):
			return "TIER: IMPORTANT\nSUMMARY: Pay invoice\nDEADLINES: 2024-05-01", nil
		case containsSubject(prompt, "Outage"):
			return "TIER: VERY_IMPORTANT\nSUMMARY: Server down", nil
		default:
			return "TIER: SPAM\nSUMMARY: Promotion", nil
		}
	}}
	mailbox := &stubMailbox{emails: []*Email{
		testEmail("1", "Invoice"),
		testEmail("2", "Outage"),
		testEmail("3", "Sale"),
	}}
	svc := newTestService(llm, mailbox, nil, TriageOptions{Workers: 3})

	_, err := svc.RunBatch(context.Background(), 10)
	require.NoError(t, err)

	important := TierImportant
	withDeadline := true
	noDeadline := false

	assert.Equal(t, []string{"1"}, ids(svc.Filtered(&important, nil)))
	assert.Equal(t, []string{"1"}, ids(svc.Filtered(nil, &withDeadline)))
	assert.Equal(t, []string{"2", "3"}, ids(svc.Filtered(nil, &noDeadline)))
	assert.Equal(t, []string{"1"}, ids(svc.Filtered(&important, &withDeadline)))
	assert.Len(t, svc.Filtered(nil, nil), 3)
}

func TestRunBatchRespectsMaxCount(t *testing.T) {
	llm := &stubLLM{fn: func(call int, prompt string) (string, error) {
		return "TIER: UNIMPORTANT\nSUMMARY: Routine", nil
	}}
	mailbox := &stubMailbox{emails: []*Email{
		testEmail("1", "A"),
		testEmail("2", "B"),
		testEmail("3", "C"),
	}}
	svc := newTestService(llm, mailbox, nil, TriageOptions{Workers: 2})

	summary, err := svc.RunBatch(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)
	assert.Len(t, svc.All(), 2)
}

// containsSubject reports whether the rendered prompt carries the given
// subject line
func containsSubject(prompt, subject string) bool {
	return strings.Contains(prompt, subject)
}
