package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ecrwatch/internal/audit"
	"ecrwatch/internal/constants"
	"ecrwatch/internal/decision"
	"ecrwatch/internal/event"
	"ecrwatch/internal/logger"
	"ecrwatch/internal/matcher"
	"ecrwatch/pkg/cel"
	"ecrwatch/pkg/errors"
	"ecrwatch/pkg/models"
)

// Previewer computes decisions without side effects.
type Previewer interface {
	Preview(ctx context.Context, ev *event.PushEvent, svc *decision.ServiceDescriptor) decision.Decision
	Registry() *matcher.Registry
}

type ActionLister interface {
	List(ctx context.Context, filter audit.Filter) ([]audit.Record, error)
}

type Handler struct {
	previewer Previewer
	actions   ActionLister
	logger    logger.Logger
}

// NewHandler builds the admin handlers. actions may be nil when the audit
// trail is disabled.
func NewHandler(previewer Previewer, actions ActionLister, log logger.Logger) *Handler {
	return &Handler{
		previewer: previewer,
		actions:   actions,
		logger:    log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.GET("/matchers", h.ListMatchers)
		v1.POST("/decisions/preview", h.PreviewDecision)
		v1.GET("/actions", h.ListActions)
		v1.GET("/conditions/examples", h.ConditionExamples)
	}
}

func (h *Handler) HandleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}

// ListMatchers godoc
// @Summary      List matchers
// @Description  List the loaded version matchers ordered by repository
// @Tags         matchers
// @Produce      json
// @Success      200  {array}   models.MatcherEntry
// @Router       /matchers [get]
func (h *Handler) ListMatchers(c *gin.Context) {
	all := h.previewer.Registry().All()
	out := make([]models.MatcherEntry, 0, len(all))
	for _, m := range all {
		out = append(out, m.Entry())
	}
	c.JSON(http.StatusOK, out)
}

// PreviewDecision godoc
// @Summary      Preview a decision
// @Description  Compute the decision for an event against a supplied service snapshot without side effects
// @Tags         decisions
// @Accept       json
// @Produce      json
// @Param        request  body      PreviewRequest  true  "Push event and service snapshot"
// @Success      200      {object}  PreviewResponse
// @Failure      400      {object}  map[string]interface{}
// @Router       /decisions/preview [post]
func (h *Handler) PreviewDecision(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	ev, err := event.Parse(req.Event)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	d := h.previewer.Preview(c.Request.Context(), ev, req.Service.descriptor())
	c.JSON(http.StatusOK, PreviewResponse{
		Repository:      ev.RepositoryName,
		ImageTag:        ev.ImageTag,
		RetryCount:      ev.RetryCount,
		Action:          d.Action.String(),
		State:           string(d.State),
		ImageIdentifier: d.ImageIdentifier,
		Reason:          d.Reason,
	})
}

// ListActions godoc
// @Summary      List recorded actions
// @Description  List recent action records, newest first
// @Tags         actions
// @Produce      json
// @Param        service_arn  query     string  false  "Only records for this service ARN"
// @Param        limit        query     int     false  "Maximum number of records (1-1000)"
// @Success      200          {array}   audit.Record
// @Failure      400          {object}  map[string]interface{}
// @Failure      404          {object}  map[string]interface{}
// @Failure      500          {object}  map[string]interface{}
// @Router       /actions [get]
func (h *Handler) ListActions(c *gin.Context) {
	if h.actions == nil {
		h.HandleError(c, errors.ErrNotFound.WithDetail("message", "audit trail is disabled"))
		return
	}

	limit := constants.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > constants.MaxLimit {
			c.JSON(http.StatusBadRequest, errors.ToErrorResponse(
				errors.ErrValidation.WithDetail("message", "limit must be between 1 and "+strconv.Itoa(constants.MaxLimit)),
			))
			return
		}
		limit = n
	}

	records, err := h.actions.List(c.Request.Context(), audit.Filter{
		ServiceARN: c.Query("service_arn"),
		Limit:      limit,
	})
	if err != nil {
		h.HandleError(c, errors.ErrInternal.WithCause(err))
		return
	}
	c.JSON(http.StatusOK, records)
}

// ConditionExamples godoc
// @Summary      List matcher condition examples
// @Description  Example CEL conditions over account, region, repository, tag and retryCount
// @Tags         matchers
// @Produce      json
// @Success      200  {object}  ConditionExamplesResponse
// @Router       /conditions/examples [get]
func (h *Handler) ConditionExamples(c *gin.Context) {
	c.JSON(http.StatusOK, ConditionExamplesResponse{Examples: cel.ConditionExamples})
}
