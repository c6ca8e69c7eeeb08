package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"interviewprep/ai/internal/events"
	"interviewprep/ai/internal/middleware"
	"interviewprep/ai/internal/models"
	"interviewprep/ai/internal/pipeline"
	"interviewprep/ai/internal/store"
	"interviewprep/ai/internal/utils"
)

// Generator runs the generation pipelines.
type Generator interface {
	StreamQuestions(ctx context.Context, interviewID uint) <-chan events.Event
	StreamFollowups(ctx context.Context, interviewID, logID uint) <-chan events.Event
	GenerateReport(ctx context.Context, interviewID uint) (*models.ReportResponse, error)
}

// InterviewStore is the part of the store the interview endpoints read and write directly.
type InterviewStore interface {
	GetInterview(ctx context.Context, id uint) (*models.Interview, error)
	AppendLog(ctx context.Context, interviewID uint, log *models.InterviewLog) error
	CompleteLogging(ctx context.Context, interviewID uint) (models.InterviewStatus, error)
	DeleteInterview(ctx context.Context, interviewID uint) error
}

type InterviewHandler struct {
	generator Generator
	store     InterviewStore
	logger    *zap.Logger
}

func NewInterviewHandler(generator Generator, st InterviewStore, logger *zap.Logger) *InterviewHandler {
	return &InterviewHandler{
		generator: generator,
		store:     st,
		logger:    logger,
	}
}

// uintParam reads a positive numeric URL parameter.
func uintParam(r *http.Request, name string) (uint, bool) {
	value, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || value == 0 {
		return 0, false
	}
	return uint(value), true
}

func (h *InterviewHandler) interviewID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, ok := uintParam(r, "id")
	if !ok {
		utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
			Code:    "invalid_interview_id",
			Message: "interview id must be a positive integer",
		})
	}
	return id, ok
}

// GenerateQuestionsStream opens the question generation event stream.
func (h *InterviewHandler) GenerateQuestionsStream(w http.ResponseWriter, r *http.Request) {
	id, ok := h.interviewID(w, r)
	if !ok {
		return
	}
	h.stream(w, r, h.generator.StreamQuestions(r.Context(), id), zap.Uint("interview_id", id))
}

// GenerateFollowupStream opens the follow-up generation event stream for one answer.
func (h *InterviewHandler) GenerateFollowupStream(w http.ResponseWriter, r *http.Request) {
	id, ok := h.interviewID(w, r)
	if !ok {
		return
	}
	logID, ok := uintParam(r, "logId")
	if !ok {
		utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
			Code:    "invalid_log_id",
			Message: "log id must be a positive integer",
		})
		return
	}
	h.stream(w, r, h.generator.StreamFollowups(r.Context(), id, logID), zap.Uint("interview_id", id), zap.Uint("log_id", logID))
}

func (h *InterviewHandler) stream(w http.ResponseWriter, r *http.Request, ch <-chan events.Event, fields ...zap.Field) {
	err := events.Pump(r.Context(), w, ch)
	switch {
	case err == nil:
	case errors.Is(err, events.ErrStreamingUnsupported):
		// nothing has been written yet, so a plain error response is still possible
		h.logger.Error("Streaming not supported by response writer", fields...)
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "streaming_unsupported",
			Message: "Streaming is not supported",
		})
	case errors.Is(err, context.Canceled):
		h.logger.Info("Client closed the event stream", fields...)
	default:
		h.logger.Warn("Event stream ended with error", append(fields, zap.Error(err))...)
	}
}

// GenerateReport generates or regenerates the assessment report.
func (h *InterviewHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	id, ok := h.interviewID(w, r)
	if !ok {
		return
	}

	response, err := h.generator.GenerateReport(r.Context(), id)
	if err != nil {
		h.writePipelineError(w, err, zap.Uint("interview_id", id))
		return
	}

	h.logger.Info("Report generated successfully",
		zap.Uint("interview_id", id),
		zap.Bool("scores_extracted", response.ScoresExtracted))

	utils.JSON(w, http.StatusOK, response)
}

func (h *InterviewHandler) writePipelineError(w http.ResponseWriter, err error, fields ...zap.Field) {
	var pErr *pipeline.Error
	if !errors.As(err, &pErr) {
		h.logger.Error("Report generation failed", append(fields, zap.Error(err))...)
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "internal_error",
			Message: "Failed to generate report",
		})
		return
	}

	status := http.StatusInternalServerError
	switch pErr.Kind {
	case pipeline.KindPrecondition:
		status = http.StatusBadRequest
	case pipeline.KindNotFound:
		status = http.StatusNotFound
	case pipeline.KindConflict:
		status = http.StatusConflict
	case pipeline.KindModel:
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Report generation failed", append(fields, zap.String("code", pErr.Code), zap.Error(err))...)
	}
	utils.JSON(w, status, models.ErrorResponse{Code: pErr.Code, Message: pErr.Message})
}

// ListQuestions returns the interview's questions ordered by position.
func (h *InterviewHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.interviewID(w, r)
	if !ok {
		return
	}

	interview, err := h.store.GetInterview(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, zap.Uint("interview_id", id))
		return
	}

	questions := interview.Questions
	if questions == nil {
		questions = []models.Question{}
	}
	utils.JSON(w, http.StatusOK, models.QuestionsResponse{
		InterviewID: interview.ID,
		Status:      interview.Status,
		Questions:   questions,
	})
}

// CreateLog appends one dialogue turn to the interview.
func (h *InterviewHandler) CreateLog(w http.ResponseWriter, r *http.Request) {
	id, ok := h.interviewID(w, r)
	if !ok {
		return
	}
	req := middleware.GetValidatedRequest[*models.LogCreateRequest](r)

	log := req.ToLog(id)
	if err := h.store.AppendLog(r.Context(), id, log); err != nil {
		h.writeStoreError(w, err, zap.Uint("interview_id", id))
		return
	}

	h.logger.Info("Interview log recorded",
		zap.Uint("interview_id", id),
		zap.Uint("log_id", log.ID),
		zap.String("speaker_role", string(log.SpeakerRole)))

	utils.JSON(w, http.StatusCreated, log)
}

// CompleteLogging marks dialogue recording as finished.
func (h *InterviewHandler) CompleteLogging(w http.ResponseWriter, r *http.Request) {
	id, ok := h.interviewID(w, r)
	if !ok {
		return
	}

	status, err := h.store.CompleteLogging(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, zap.Uint("interview_id", id))
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"interview_id": id,
		"status":       status,
	})
}

// DeleteInterview removes the interview with its questions, logs and report.
func (h *InterviewHandler) DeleteInterview(w http.ResponseWriter, r *http.Request) {
	id, ok := h.interviewID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteInterview(r.Context(), id); err != nil {
		h.writeStoreError(w, err, zap.Uint("interview_id", id))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *InterviewHandler) writeStoreError(w http.ResponseWriter, err error, fields ...zap.Field) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		utils.JSON(w, http.StatusNotFound, models.ErrorResponse{
			Code:    "interview_not_found",
			Message: "Interview not found",
		})
	case errors.Is(err, store.ErrNoLogs):
		utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
			Code:    "no_logs",
			Message: "No dialogue logs found for this interview",
		})
	case errors.Is(err, store.ErrQuestionMismatch):
		utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
			Code:    "invalid_question_id",
			Message: "question_id does not belong to this interview",
		})
	case errors.Is(err, models.ErrIllegalTransition):
		utils.JSON(w, http.StatusConflict, models.ErrorResponse{
			Code:    "illegal_transition",
			Message: err.Error(),
		})
	default:
		h.logger.Error("Store operation failed", append(fields, zap.Error(err))...)
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "persistence_error",
			Message: "Failed to access interview data",
		})
	}
}
