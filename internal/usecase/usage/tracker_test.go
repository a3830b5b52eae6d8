package usage

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"promo-series/internal/domain"
)

type call struct {
	usageType domain.UsageType
	amount    int
}

type fakeReporter struct {
	calls []call
	fail  map[domain.UsageType]error
}

func (f *fakeReporter) ReportUsage(_ context.Context, _ string, usageType domain.UsageType, amount int) error {
	f.calls = append(f.calls, call{usageType, amount})
	return f.fail[usageType]
}

type fakeBusiness struct {
	metrics []domain.BusinessMetric
	err     error
}

func (f *fakeBusiness) RecordBusinessMetric(_ context.Context, m domain.BusinessMetric) error {
	f.metrics = append(f.metrics, m)
	return f.err
}

type sink struct{ events []domain.Event }

func (s *sink) Emit(e domain.Event) { s.events = append(s.events, e) }

func TestRecordGenerationReportsThreeCounters(t *testing.T) {
	rep := &fakeReporter{}
	NewTracker(rep, nil, nil, zerolog.Nop()).RecordGeneration(context.Background(), "u1", 3, 1, 450)
	want := []call{{domain.UsageEmailsGenerated, 3}, {domain.UsageSeriesCreated, 1}, {domain.UsageAITokensUsed, 450}}
	if len(rep.calls) != len(want) {
		t.Fatalf("ожидали %d отчёта, получили %v", len(want), rep.calls)
	}
	for i := range want {
		if rep.calls[i] != want[i] {
			t.Fatalf("отчёт %d: ожидали %v, получили %v", i, want[i], rep.calls[i])
		}
	}
}

func TestRecordGenerationSkipsZeroTokens(t *testing.T) {
	rep := &fakeReporter{}
	NewTracker(rep, nil, nil, zerolog.Nop()).RecordGeneration(context.Background(), "u1", 2, 1, 0)
	if len(rep.calls) != 2 {
		t.Fatalf("отчёт о токенах при нуле не отправляется: %v", rep.calls)
	}
}

func TestRecordGenerationSwallowsFailures(t *testing.T) {
	rep := &fakeReporter{fail: map[domain.UsageType]error{domain.UsageEmailsGenerated: errors.New("db down")}}
	s := &sink{}
	NewTracker(rep, nil, s, zerolog.Nop()).RecordGeneration(context.Background(), "u1", 2, 1, 10)
	if len(rep.calls) != 3 {
		t.Fatalf("ошибка одного отчёта не должна останавливать остальные: %v", rep.calls)
	}
	if len(s.events) != 1 || s.events[0].Kind != domain.EventTrackingFailed || s.events[0].UsageType != domain.UsageEmailsGenerated {
		t.Fatalf("ожидали одно событие ошибки учёта: %+v", s.events)
	}
}

func TestRecordSeriesWritesBusinessMetric(t *testing.T) {
	rep := &fakeReporter{}
	biz := &fakeBusiness{err: errors.New("ignored")}
	result := domain.SeriesResult{
		Emails:  []domain.GeneratedEmail{{EmailNumber: 1}, {EmailNumber: 2}},
		Usage:   domain.UsageSummary{TotalTokens: 300, AISuccessRate: 50},
		Outcome: domain.OutcomePartialFallback,
	}
	NewTracker(rep, biz, nil, zerolog.Nop()).RecordSeries(context.Background(), "u1", result)
	if len(rep.calls) != 3 || rep.calls[0].amount != 2 {
		t.Fatalf("неожиданные отчёты: %v", rep.calls)
	}
	if len(biz.metrics) != 1 || biz.metrics[0].Event != domain.BusinessMetricEventSeriesGenerated || biz.metrics[0].UserID != "u1" {
		t.Fatalf("неожиданная метрика: %+v", biz.metrics)
	}
}

func TestNilReporterIsNoop(t *testing.T) {
	NewTracker(nil, nil, nil, zerolog.Nop()).RecordGeneration(context.Background(), "u1", 1, 1, 1)
}
