package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/visita-intel/newsintel/internal/analysis"
	"github.com/visita-intel/newsintel/internal/feeds"
	"github.com/visita-intel/newsintel/internal/model"
	"github.com/visita-intel/newsintel/internal/monitoring"
	"github.com/visita-intel/newsintel/internal/resilience"
	"github.com/visita-intel/newsintel/internal/routing"
)

// --- Sampler Mock ---

type mockSampler struct {
	mock.Mock
}

func (m *mockSampler) Sample(ctx context.Context, req feeds.Request) []model.ArticleCandidate {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]model.ArticleCandidate)
}

// --- Acquirer Mock ---

type mockAcquirer struct {
	mock.Mock
}

func (m *mockAcquirer) Acquire(ctx context.Context, url, title, feedImage string) model.AcquiredContext {
	args := m.Called(ctx, url, title, feedImage)
	return args.Get(0).(model.AcquiredContext)
}

// --- Analyzer Mock ---

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) AnalyzeWithUsage(ctx context.Context, run *resilience.ModelBreaker, text string, niche model.Niche) (model.AnalysisResult, analysis.Usage) {
	args := m.Called(ctx, run, text, niche)
	return args.Get(0).(model.AnalysisResult), args.Get(1).(analysis.Usage)
}

// --- Router Mock ---

type mockRouter struct {
	mock.Mock
}

func (m *mockRouter) Exists(ctx context.Context, url string, niche model.Niche) bool {
	return m.Called(ctx, url, niche).Bool(0)
}

func (m *mockRouter) TraceFeedItems(ctx context.Context, articles []model.ArticleCandidate) error {
	return m.Called(ctx, articles).Error(0)
}

func (m *mockRouter) Route(ctx context.Context, a model.AnalysisResult, article model.ArticleCandidate) (routing.Target, error) {
	args := m.Called(ctx, a, article)
	return args.Get(0).(routing.Target), args.Error(1)
}

func (m *mockRouter) UpdateFeedItemStatus(ctx context.Context, a model.AnalysisResult, article model.ArticleCandidate) error {
	return m.Called(ctx, a, article).Error(0)
}

// --- Sink Mock ---

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Push(ctx context.Context, rec model.DatasetRecord) error {
	return m.Called(ctx, rec).Error(0)
}

// --- Notifier Mock ---

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyHype(ctx context.Context, rec model.DatasetRecord) (bool, error) {
	args := m.Called(ctx, rec)
	return args.Bool(0), args.Error(1)
}

func (m *mockNotifier) Evaluate(snap monitoring.RunSnapshot) []monitoring.Alert {
	args := m.Called(snap)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]monitoring.Alert)
}

func (m *mockNotifier) SendAlerts(ctx context.Context, alerts []monitoring.Alert) int {
	return m.Called(ctx, alerts).Int(0)
}
