package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"interviewprep/ai/internal/events"
	"interviewprep/ai/internal/models"
)

type mockProvider struct {
	generateContentFn func(ctx context.Context, prompt string, requestID string) (*models.GenerationResponse, error)
	getProviderNameFn func() string
}

func (m *mockProvider) GenerateContent(ctx context.Context, prompt string, requestID string) (*models.GenerationResponse, error) {
	if m.generateContentFn == nil {
		return &models.GenerationResponse{}, nil
	}
	return m.generateContentFn(ctx, prompt, requestID)
}

func (m *mockProvider) GetProviderName() string {
	if m.getProviderNameFn == nil {
		return "mock"
	}
	return m.getProviderNameFn()
}

type mockPromptManager struct {
	getTemplatesFn func() []string
}

func (m *mockPromptManager) GetTemplates() []string {
	if m.getTemplatesFn == nil {
		return []string{string(models.StageAnalyzeJD)}
	}
	return m.getTemplatesFn()
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

type mockGenerator struct {
	streamQuestionsFn func(ctx context.Context, interviewID uint) <-chan events.Event
	streamFollowupsFn func(ctx context.Context, interviewID, logID uint) <-chan events.Event
	generateReportFn  func(ctx context.Context, interviewID uint) (*models.ReportResponse, error)
}

func (m *mockGenerator) StreamQuestions(ctx context.Context, interviewID uint) <-chan events.Event {
	return m.streamQuestionsFn(ctx, interviewID)
}

func (m *mockGenerator) StreamFollowups(ctx context.Context, interviewID, logID uint) <-chan events.Event {
	return m.streamFollowupsFn(ctx, interviewID, logID)
}

func (m *mockGenerator) GenerateReport(ctx context.Context, interviewID uint) (*models.ReportResponse, error) {
	return m.generateReportFn(ctx, interviewID)
}

type mockInterviewStore struct {
	getInterviewFn    func(ctx context.Context, id uint) (*models.Interview, error)
	appendLogFn       func(ctx context.Context, interviewID uint, log *models.InterviewLog) error
	completeLoggingFn func(ctx context.Context, interviewID uint) (models.InterviewStatus, error)
	deleteInterviewFn func(ctx context.Context, interviewID uint) error
}

func (m *mockInterviewStore) GetInterview(ctx context.Context, id uint) (*models.Interview, error) {
	return m.getInterviewFn(ctx, id)
}

func (m *mockInterviewStore) AppendLog(ctx context.Context, interviewID uint, log *models.InterviewLog) error {
	return m.appendLogFn(ctx, interviewID, log)
}

func (m *mockInterviewStore) CompleteLogging(ctx context.Context, interviewID uint) (models.InterviewStatus, error) {
	return m.completeLoggingFn(ctx, interviewID)
}

func (m *mockInterviewStore) DeleteInterview(ctx context.Context, interviewID uint) error {
	return m.deleteInterviewFn(ctx, interviewID)
}

// withURLParams attaches chi route parameters so handlers can be called without a router.
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// eventStream returns a closed channel holding evs.
func eventStream(evs ...events.Event) <-chan events.Event {
	ch := make(chan events.Event, len(evs))
	for _, e := range evs {
		ch <- e
	}
	close(ch)
	return ch
}
