package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garyjia/ai-procurement/internal/application/caselock"
	"github.com/garyjia/ai-procurement/internal/application/orchestrator"
	"github.com/garyjia/ai-procurement/internal/application/port"
	"github.com/garyjia/ai-procurement/internal/application/report"
	"github.com/garyjia/ai-procurement/internal/domain/entity"
	"github.com/garyjia/ai-procurement/internal/domain/workflow"
	"github.com/garyjia/ai-procurement/internal/infrastructure/export"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Pipeline is the orchestrator surface the handlers drive
type Pipeline interface {
	Submit(ctx context.Context, id string, facts map[string]any) (*entity.Case, error)
	Advance(ctx context.Context, c *entity.Case, opts ...orchestrator.AdvanceOption) (entity.StageResult, error)
	Resolve(ctx context.Context, c *entity.Case, action entity.ResolutionAction, actor, reason string) error
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	pipeline Pipeline
	repo     port.CaseRepository
	locks    *caselock.Locker
	logger   Logger
	clock    func() time.Time
	version  string
}

// NewHandlers creates a new Handlers instance. locks must be the Locker the
// background worker uses.
func NewHandlers(pipeline Pipeline, repo port.CaseRepository, locks *caselock.Locker, logger Logger, version string) *Handlers {
	if locks == nil {
		locks = caselock.New()
	}
	return &Handlers{
		pipeline: pipeline,
		repo:     repo,
		locks:    locks,
		logger:   logger,
		clock:    time.Now,
		version:  version,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateCaseRequest is the body of POST /api/cases
type CreateCaseRequest struct {
	ID          string         `json:"id"`
	Facts       map[string]any `json:"facts" binding:"required"`
	AutoAdvance bool           `json:"auto_advance"`
}

// ResolveRequest is the body of POST /api/cases/:id/resolve
type ResolveRequest struct {
	Action string `json:"action" binding:"required"`
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

// AdvanceResponse carries the last stage result and the updated case
type AdvanceResponse struct {
	Result entity.StageResult `json:"result"`
	Case   *entity.Case       `json:"case"`
}

// ListResponse lists case ids in one status
type ListResponse struct {
	Status entity.CaseStatus `json:"status"`
	IDs    []string          `json:"ids"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: h.clock().UTC().Format(time.RFC3339),
			Version:   h.version,
		},
	})
}

// CreateCase handles POST /api/cases
func (h *Handlers) CreateCase(c *gin.Context) {
	var req CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}

	unlock, err := h.locks.Lock(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer unlock()

	if _, err := h.repo.Load(ctx, id); err == nil {
		h.fail(c, http.StatusConflict, "case already exists: "+id)
		return
	} else if !errors.Is(err, port.ErrCaseNotFound) {
		h.respondError(c, err)
		return
	}

	kase, err := h.pipeline.Submit(ctx, id, req.Facts)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if !req.AutoAdvance {
		c.JSON(http.StatusCreated, Response{Success: true, Data: kase})
		return
	}

	result, err := h.pipeline.Advance(ctx, kase)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: AdvanceResponse{Result: result, Case: kase}})
}

// ListCases handles GET /api/cases?status=under_review&limit=50
func (h *Handlers) ListCases(c *gin.Context) {
	status := entity.CaseStatus(c.DefaultQuery("status", string(entity.CaseStatusUnderReview)))
	if !status.IsValid() {
		h.fail(c, http.StatusBadRequest, "invalid status: "+string(status))
		return
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.fail(c, http.StatusBadRequest, "invalid limit: "+raw)
			return
		}
		limit = min(n, maxListLimit)
	}

	ids, err := h.repo.ListByStatus(c.Request.Context(), status, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ListResponse{Status: status, IDs: ids}})
}

// GetCase handles GET /api/cases/:id
func (h *Handlers) GetCase(c *gin.Context) {
	kase, err := h.repo.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: kase})
}

// AdvanceCase handles POST /api/cases/:id/advance?single_step=true
func (h *Handlers) AdvanceCase(c *gin.Context) {
	var opts []orchestrator.AdvanceOption
	if raw := c.Query("single_step"); raw != "" {
		single, err := strconv.ParseBool(raw)
		if err != nil {
			h.fail(c, http.StatusBadRequest, "invalid single_step: "+raw)
			return
		}
		if single {
			opts = append(opts, orchestrator.SingleStep())
		}
	}

	h.withCase(c, func(ctx context.Context, kase *entity.Case) {
		result, err := h.pipeline.Advance(ctx, kase, opts...)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, Response{Success: true, Data: AdvanceResponse{Result: result, Case: kase}})
	})
}

// ResolveCase handles POST /api/cases/:id/resolve
func (h *Handlers) ResolveCase(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	h.withCase(c, func(ctx context.Context, kase *entity.Case) {
		err := h.pipeline.Resolve(ctx, kase, entity.ResolutionAction(req.Action), req.Actor, req.Reason)
		if err != nil {
			h.respondError(c, err)
			return
		}
		h.logInfo("Case resolved", "case_id", kase.ID, "action", req.Action, "status", string(kase.Status))
		c.JSON(http.StatusOK, Response{Success: true, Data: kase})
	})
}

// GetReport handles GET /api/cases/:id/report?format=text|json|xlsx
func (h *Handlers) GetReport(c *gin.Context) {
	kase, err := h.repo.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	r := report.Build(kase, h.clock())

	switch format := c.DefaultQuery("format", "text"); format {
	case "json":
		c.JSON(http.StatusOK, Response{Success: true, Data: r})
	case "text":
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Status(http.StatusOK)
		if err := report.RenderText(c.Writer, r); err != nil {
			h.logError("Failed to render report", "case_id", kase.ID, "error", err)
		}
	case "xlsx":
		c.Header("Content-Type", xlsxContentType)
		c.Header("Content-Disposition", `attachment; filename="`+export.FileName(kase.ID)+`"`)
		c.Status(http.StatusOK)
		if err := export.WriteXLSX(c.Writer, r); err != nil {
			h.logError("Failed to write workbook", "case_id", kase.ID, "error", err)
		}
	default:
		h.fail(c, http.StatusBadRequest, "unsupported report format: "+format)
	}
}

// withCase loads the case under its lock and hands it to fn
func (h *Handlers) withCase(c *gin.Context, fn func(ctx context.Context, kase *entity.Case)) {
	ctx := c.Request.Context()
	id := c.Param("id")

	unlock, err := h.locks.Lock(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer unlock()

	kase, err := h.repo.Load(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	fn(ctx, kase)
}

func (h *Handlers) respondError(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logError("Request failed", "path", c.Request.URL.Path, "error", err)
	}
	h.fail(c, code, err.Error())
}

func (h *Handlers) fail(c *gin.Context, code int, msg string) {
	c.JSON(code, Response{Success: false, Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, port.ErrCaseNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrMissingCaseID),
		errors.Is(err, entity.ErrInvalidStage),
		errors.Is(err, orchestrator.ErrInvalidAction):
		return http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrCaseTerminal),
		errors.Is(err, orchestrator.ErrNotUnderReview),
		errors.Is(err, orchestrator.ErrFinalApprovalMissing),
		errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrGuardFailed):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) logInfo(msg string, kv ...interface{}) {
	if h.logger != nil {
		h.logger.Info(msg, kv...)
	}
}

func (h *Handlers) logError(msg string, kv ...interface{}) {
	if h.logger != nil {
		h.logger.Error(msg, kv...)
	}
}
