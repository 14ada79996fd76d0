package routes

import (
	"errors"
	"net/http"

	"github.com/skizzehq/skizze/internal/server/middleware"
	"github.com/skizzehq/skizze/internal/store"
	"github.com/skizzehq/skizze/pkg/logger"
	"github.com/skizzehq/skizze/pkg/pipeline"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

func GetPlanAuditHandler(c echo.Context) error {
	type getPlanAuditParams struct {
		ID string `param:"id" validate:"required"`
	}

	type getPlanAuditResponse struct {
		PlanID string                `json:"plan_id"`
		Status store.Status          `json:"status"`
		Audit  []pipeline.TraceEntry `json:"audit"`
	}

	params := new(getPlanAuditParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn
	s := store.New(conn)

	plan, err := s.GetPlan(ctx, params.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Plan not found"})
		}
		logger.Error("Failed to load plan", "plan", params.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	entries, err := s.ListAudit(ctx, plan.ID)
	if err != nil {
		logger.Error("Failed to load plan audit", "plan", plan.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, getPlanAuditResponse{
		PlanID: plan.ID,
		Status: plan.Status,
		Audit:  entries,
	})
}
