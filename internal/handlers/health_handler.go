package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"interviewprep/ai/internal/config"
	"interviewprep/ai/internal/llm"
	"interviewprep/ai/internal/utils"
)

// readinessTimeout bounds the whole readiness probe, including the database ping.
const readinessTimeout = 2 * time.Second

type ReadinessCheck struct {
	Status  string `json:"status"` // "ok" | "failed"
	Message string `json:"message,omitempty"`
}

type ReadinessResponse struct {
	Status  string                    `json:"status"`  // "ready" | "not_ready"
	Service string                    `json:"service"` // Service name
	Checks  map[string]ReadinessCheck `json:"checks"`  // Individual check results
}

// TemplateLister reports the prompt stages that have a template loaded.
type TemplateLister interface {
	GetTemplates() []string
}

// Pinger checks that the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	provider      llm.Provider
	promptManager TemplateLister
	database      Pinger
	config        *config.Config
}

func NewHealthHandler(provider llm.Provider, promptManager TemplateLister, database Pinger, cfg *config.Config) *HealthHandler {
	return &HealthHandler{
		provider:      provider,
		promptManager: promptManager,
		database:      database,
		config:        cfg,
	}
}

// HealthzHandler is the liveness probe and never looks at dependencies.
func (handler *HealthHandler) HealthzHandler(writer http.ResponseWriter, request *http.Request) {
	utils.JSON(writer, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "ai",
		"version": "1.0.0",
	})
}

type readinessProbe struct {
	name  string
	check func(ctx context.Context) error
}

func (handler *HealthHandler) probes() []readinessProbe {
	return []readinessProbe{
		{name: "provider", check: func(context.Context) error {
			if handler.provider == nil {
				return errors.New("AI provider not initialized")
			}
			return nil
		}},
		{name: "prompt_manager", check: func(context.Context) error {
			if handler.promptManager == nil {
				return errors.New("Prompt manager not initialized")
			}
			if len(handler.promptManager.GetTemplates()) == 0 {
				return errors.New("No prompt templates loaded")
			}
			return nil
		}},
		{name: "database", check: func(ctx context.Context) error {
			if handler.database == nil {
				return errors.New("Database not initialized")
			}
			return handler.database.Ping(ctx)
		}},
		{name: "configuration", check: func(context.Context) error {
			if handler.config == nil {
				return errors.New("Configuration not loaded")
			}
			return nil
		}},
	}
}

// ReadyzHandler runs every probe and reports 503 if any of them fails.
func (handler *HealthHandler) ReadyzHandler(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), readinessTimeout)
	defer cancel()

	response := ReadinessResponse{
		Status:  "ready",
		Service: "ai",
		Checks:  make(map[string]ReadinessCheck),
	}
	for _, probe := range handler.probes() {
		if err := probe.check(ctx); err != nil {
			response.Checks[probe.name] = ReadinessCheck{Status: "failed", Message: err.Error()}
			response.Status = "not_ready"
			continue
		}
		response.Checks[probe.name] = ReadinessCheck{Status: "ok"}
	}

	status := http.StatusOK
	if response.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	utils.JSON(writer, status, response)
}
