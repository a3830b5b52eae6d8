package series

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"promo-series/internal/adapters/composer"
	"promo-series/internal/domain"
)

type fakeWriter struct {
	mu        sync.Mutex
	fail      map[string]error
	delay     map[string]time.Duration
	block     bool
	available bool
	calls     int
	probes    int
}

func (f *fakeWriter) GenerateFocusedEmail(ctx context.Context, req domain.FocusRequest) (domain.AIEmail, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return domain.AIEmail{}, ctx.Err()
	}
	if d := f.delay[req.Benefit]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return domain.AIEmail{}, ctx.Err()
		}
	}
	if err := f.fail[req.Benefit]; err != nil {
		return domain.AIEmail{}, err
	}
	return domain.AIEmail{
		Subject: "Hey friend! " + req.Benefit,
		Body:    "AI body about " + req.Benefit,
		Usage:   domain.TokenUsage{InputTokens: 100, OutputTokens: 50, TotalTokens: 150, EstimatedCost: 0.01, Model: "claude-3-haiku-20240307"},
	}, nil
}

func (f *fakeWriter) Available(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	return f.available
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingSink) Emit(e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) count(kind domain.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

type memoryCache struct {
	data map[string][]byte
}

func (m *memoryCache) Set(key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memoryCache) Get(key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

type panicComposer struct{}

func (panicComposer) Compose(string, domain.GenerationOptions, domain.SeriesPosition) domain.ComposedEmail {
	panic("broken template")
}

func friendlyOpts() domain.GenerationOptions {
	return domain.GenerationOptions{Domain: "example.com", Tone: domain.ToneFriendly, Industry: domain.IndustryGeneral, UserTier: "free"}
}

func newTestService(w domain.EmailWriter, sink domain.EventSink, opts ...Option) *Service {
	return NewService(w, composer.NewTemplateWithPicker(func(int) int { return 0 }), sink, opts...)
}

func TestSingleBenefitWithAI(t *testing.T) {
	w := &fakeWriter{available: true}
	res, err := newTestService(w, nil).GenerateSeries(context.Background(), []string{"Saves 10 hours/week"}, friendlyOpts())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(res.Emails) != 1 || !res.Emails[0].GeneratedWithAI {
		t.Fatalf("ожидали одно письмо от ИИ: %+v", res.Emails)
	}
	if !strings.Contains(res.Emails[0].Subject, "Hey friend") || !strings.Contains(res.Emails[0].Body, "Saves 10 hours/week") {
		t.Fatalf("неожиданное письмо: %+v", res.Emails[0])
	}
	if res.Usage.AISuccessRate != 100 || res.Usage.TotalTokens != 150 || res.Outcome != domain.OutcomeAllAI {
		t.Fatalf("неожиданная сводка: %+v / %s", res.Usage, res.Outcome)
	}
	if n := NoticeFor(res); n.Level != NoticeSuccess {
		t.Fatalf("ожидали успешное уведомление, получили %+v", n)
	}
}

func TestSingleBenefitFallsBackToTemplate(t *testing.T) {
	w := &fakeWriter{fail: map[string]error{"Saves 10 hours/week": fmt.Errorf("down: %w", domain.ErrAIServer)}}
	sink := &recordingSink{}
	res, err := newTestService(w, sink).GenerateSeries(context.Background(), []string{"Saves 10 hours/week"}, friendlyOpts())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	email := res.Emails[0]
	if email.GeneratedWithAI || email.TokensUsed != 0 {
		t.Fatalf("ожидали шаблонное письмо: %+v", email)
	}
	if email.Subject != "Hey! Want to Saves 10 hours/week?" {
		t.Fatalf("ожидали дружелюбную тему шаблона, получили %q", email.Subject)
	}
	if !strings.Contains(email.Body, "Here is the main benefit: Saves 10 hours/week.") || !strings.Contains(email.Body, "Hope you love it!") {
		t.Fatalf("ожидали ветку friendly+general: %q", email.Body)
	}
	if res.Usage.AISuccessRate != 0 || res.Usage.AIFailureCount != 1 || res.Outcome != domain.OutcomeAllTemplate {
		t.Fatalf("неожиданная сводка: %+v", res.Usage)
	}
	if sink.count(domain.EventAIServerFailed) != 1 || sink.count(domain.EventTemplateFallback) != 1 {
		t.Fatalf("ожидали события ошибки сервера и перехода на шаблон: %+v", sink.events)
	}
}

func TestPartialFailureKeepsOrderAndRate(t *testing.T) {
	w := &fakeWriter{fail: map[string]error{"two": fmt.Errorf("bad json: %w", domain.ErrAIParse)}}
	sink := &recordingSink{}
	res, err := newTestService(w, sink).GenerateSeries(context.Background(), []string{"one", "two", "three"}, friendlyOpts())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	want := []bool{true, false, true}
	for i, e := range res.Emails {
		if e.GeneratedWithAI != want[i] || e.EmailNumber != i+1 || e.TotalEmails != 3 {
			t.Fatalf("письмо %d: неожиданные поля %+v", i, e)
		}
	}
	if res.Usage.AISuccessRate != 67 || res.Usage.AIFailureCount != 1 {
		t.Fatalf("ожидали 67%% и одну ошибку, получили %+v", res.Usage)
	}
	if res.Usage.TotalTokens != 300 {
		t.Fatalf("токены считаются только по письмам ИИ, получили %d", res.Usage.TotalTokens)
	}
	if res.Outcome != domain.OutcomePartialFallback || NoticeFor(res).Level != NoticeWarning {
		t.Fatalf("ожидали частичный результат, получили %s", res.Outcome)
	}
	if sink.count(domain.EventAIParseFailed) != 1 {
		t.Fatal("ожидали событие ошибки разбора")
	}
}

func TestEmptyBenefitsIsValidationError(t *testing.T) {
	w := &fakeWriter{available: true}
	sink := &recordingSink{}
	svc := newTestService(w, sink, WithProbe(nil, 0))
	for _, input := range [][]string{nil, {}, {"  ", ""}} {
		_, err := svc.GenerateSeries(context.Background(), input, friendlyOpts())
		if !domain.IsValidation(err) || !errors.Is(err, domain.ErrNoBenefits) {
			t.Fatalf("ожидали ошибку валидации, получили %v", err)
		}
		if errors.Is(err, domain.ErrPipelineUnavailable) {
			t.Fatal("валидация не должна выглядеть как сбой генерации")
		}
	}
	if w.calls != 0 || w.probes != 0 {
		t.Fatalf("до сетевых вызовов дойти не должно: calls=%d probes=%d", w.calls, w.probes)
	}
	if n := NoticeForError(&domain.ValidationError{Err: domain.ErrNoBenefits}); n.Message != "Please select at least one benefit" {
		t.Fatalf("неожиданное уведомление: %+v", n)
	}
}

func TestBlankBenefitKeepsInputPositions(t *testing.T) {
	res, err := newTestService(&fakeWriter{}, nil).GenerateSeries(context.Background(), []string{"alpha", "   ", "gamma"}, friendlyOpts())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(res.Emails) != 3 {
		t.Fatalf("ожидали 3 письма, получили %d", len(res.Emails))
	}
	for i, e := range res.Emails {
		if e.EmailNumber != i+1 || e.TotalEmails != 3 {
			t.Fatalf("письмо %d: неожиданная позиция %d/%d", i, e.EmailNumber, e.TotalEmails)
		}
	}
	if res.Emails[0].Benefit != "alpha" || res.Emails[1].Benefit != "" || res.Emails[2].Benefit != "gamma" {
		t.Fatalf("выгоды сместились: %+v", res.Emails)
	}
}

func TestAllBlankBenefitsAreRejected(t *testing.T) {
	_, err := newTestService(&fakeWriter{}, nil).GenerateSeries(context.Background(), []string{" ", ""}, friendlyOpts())
	if !errors.Is(err, domain.ErrNoBenefits) || !domain.IsValidation(err) {
		t.Fatalf("ожидали ошибку валидации, получили %v", err)
	}
}

func TestConcurrentRunPreservesInputOrder(t *testing.T) {
	benefits := []string{"slow", "medium", "fast", "instant"}
	w := &fakeWriter{delay: map[string]time.Duration{"slow": 60 * time.Millisecond, "medium": 30 * time.Millisecond, "fast": 10 * time.Millisecond}}
	var (
		mu    sync.Mutex
		dones []int
	)
	res, err := newTestService(w, nil, WithConcurrency(4)).GenerateSeriesWithProgress(context.Background(), benefits, friendlyOpts(), func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if total != len(benefits) {
			t.Errorf("неожиданное total: %d", total)
		}
		dones = append(dones, done)
	})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	for i, e := range res.Emails {
		if e.Benefit != benefits[i] || e.EmailNumber != i+1 {
			t.Fatalf("порядок нарушен на позиции %d: %+v", i, e)
		}
	}
	if len(dones) != len(benefits) || dones[len(dones)-1] != len(benefits) {
		t.Fatalf("неожиданный прогресс: %v", dones)
	}
}

func TestCallTimeoutFallsBackForThatBenefit(t *testing.T) {
	w := &fakeWriter{block: true}
	sink := &recordingSink{}
	res, err := newTestService(w, sink, WithCallTimeout(20*time.Millisecond)).GenerateSeries(context.Background(), []string{"one"}, friendlyOpts())
	if err != nil {
		t.Fatalf("таймаут одного письма не должен ломать серию: %v", err)
	}
	if res.Emails[0].GeneratedWithAI {
		t.Fatal("ожидали шаблон после таймаута")
	}
	if sink.count(domain.EventAITransportFailed) != 1 {
		t.Fatalf("таймаут считается транспортной ошибкой: %+v", sink.events)
	}
}

func TestCancellationDiscardsResults(t *testing.T) {
	w := &fakeWriter{block: true}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	res, err := newTestService(w, nil).GenerateSeries(ctx, []string{"one", "two"}, friendlyOpts())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ожидали отмену, получили %v", err)
	}
	if len(res.Emails) != 0 {
		t.Fatal("частичный результат должен быть отброшен")
	}
}

func TestProbeFailureSkipsAI(t *testing.T) {
	w := &fakeWriter{available: false}
	sink := &recordingSink{}
	cache := &memoryCache{data: map[string][]byte{}}
	svc := newTestService(w, sink, WithProbe(cache, time.Minute))
	res, err := svc.GenerateSeries(context.Background(), []string{"one", "two"}, friendlyOpts())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if w.calls != 0 {
		t.Fatalf("при недоступности ИИ модель не вызывается, вызовов: %d", w.calls)
	}
	if res.AIGeneratedCount() != 0 || sink.count(domain.EventAIUnavailable) != 1 {
		t.Fatalf("ожидали шаблоны и событие недоступности: %+v", sink.events)
	}
	if string(cache.data[probeCacheKey]) != "0" {
		t.Fatalf("результат проверки должен попасть в кэш: %q", cache.data[probeCacheKey])
	}
}

func TestProbeUsesCachedResult(t *testing.T) {
	w := &fakeWriter{available: false}
	cache := &memoryCache{data: map[string][]byte{probeCacheKey: []byte("1")}}
	res, err := newTestService(w, nil, WithProbe(cache, time.Minute)).GenerateSeries(context.Background(), []string{"one"}, friendlyOpts())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if w.probes != 0 || !res.Emails[0].GeneratedWithAI {
		t.Fatalf("ожидали кэшированную доступность: probes=%d", w.probes)
	}
}

func TestNoWriterUsesTemplates(t *testing.T) {
	res, err := newTestService(nil, nil).GenerateSeries(context.Background(), []string{"one"}, friendlyOpts())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if res.Emails[0].GeneratedWithAI || res.Usage.Model != "template" {
		t.Fatalf("ожидали шаблонное письмо: %+v", res)
	}
}

func TestComposerPanicIsPipelineUnavailable(t *testing.T) {
	w := &fakeWriter{fail: map[string]error{"one": domain.ErrAIAuth}}
	svc := NewService(w, panicComposer{}, nil)
	_, err := svc.GenerateSeries(context.Background(), []string{"one"}, friendlyOpts())
	if !errors.Is(err, domain.ErrPipelineUnavailable) {
		t.Fatalf("ожидали ErrPipelineUnavailable, получили %v", err)
	}
	if n := NoticeForError(err); n.Level != NoticeError || n.Message != "Failed to generate emails. Please try again." {
		t.Fatalf("неожиданное уведомление: %+v", n)
	}
}

func TestUnknownToneIsNormalized(t *testing.T) {
	opts := friendlyOpts()
	opts.Tone = "sarcastic"
	w := &fakeWriter{fail: map[string]error{"one": domain.ErrAITransport}}
	res, err := newTestService(w, nil).GenerateSeries(context.Background(), []string{"one"}, opts)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if res.Emails[0].Subject != "Want to one?" {
		t.Fatalf("ожидали persuasive-тему, получили %q", res.Emails[0].Subject)
	}
}
