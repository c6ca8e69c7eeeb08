package routers

import (
	"time"

	"interviewprep/ai/internal/handlers"
	"interviewprep/ai/internal/middleware"
	"interviewprep/ai/internal/models"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// requestTimeout bounds the plain JSON endpoints. Streams and report generation are bounded by
// the model timeout instead.
const requestTimeout = 30 * time.Second

func InterviewRoutes(router *chi.Mux, interviewHandler *handlers.InterviewHandler) {
	router.Route("/api/v1/interviews/{id}", func(r chi.Router) {
		// streams answer GET as well so browser EventSource clients can open them
		r.Post("/generate-questions-stream", interviewHandler.GenerateQuestionsStream)
		r.Get("/generate-questions-stream", interviewHandler.GenerateQuestionsStream)
		r.Post("/logs/{logId}/generate-followup-stream", interviewHandler.GenerateFollowupStream)
		r.Get("/logs/{logId}/generate-followup-stream", interviewHandler.GenerateFollowupStream)
		r.Post("/generate-report", interviewHandler.GenerateReport)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(requestTimeout))
			r.Get("/questions", interviewHandler.ListQuestions)
			r.With(middleware.ValidateRequest[*models.LogCreateRequest]()).Post("/logs", interviewHandler.CreateLog)
			r.Post("/complete-logging", interviewHandler.CompleteLogging)
			r.Delete("/", interviewHandler.DeleteInterview)
		})
	})
}
