package routes

import (
	"errors"
	"net/http"

	"github.com/skizzehq/skizze/internal/server/middleware"
	serverutil "github.com/skizzehq/skizze/internal/server/util"
	"github.com/skizzehq/skizze/internal/storage"
	"github.com/skizzehq/skizze/internal/store"
	"github.com/skizzehq/skizze/internal/timing"
	"github.com/skizzehq/skizze/pkg/logger"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

func GetPlansHandler(c echo.Context) error {
	type listPlansParams struct {
		Limit  int `query:"limit" validate:"omitempty,min=1,max=200"`
		Offset int `query:"offset" validate:"omitempty,min=0"`
	}

	params := new(listPlansParams)
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

	plans, err := s.ListPlans(ctx, params.Limit, params.Offset)
	if err != nil {
		logger.Error("Failed to list plans", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, plans)
}

func GetPlanHandler(c echo.Context) error {
	type getPlanParams struct {
		ID string `param:"id" validate:"required"`
	}

	type getPlanResponse struct {
		store.Plan
		Progress    *float64 `json:"progress,omitempty"`
		RemainingMs *int64   `json:"remaining_ms,omitempty"`
		ResultURL   string   `json:"result_url,omitempty"`
	}

	params := new(getPlanParams)
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
	app := c.(*middleware.AppContext).App
	s := store.New(app.DBConn)

	plan, err := s.GetPlan(ctx, params.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Plan not found"})
		}
		logger.Error("Failed to load plan", "plan", params.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	resp := getPlanResponse{Plan: plan}

	if plan.Status == store.StatusProcessing {
		entries, auditErr := s.ListAudit(ctx, plan.ID)
		if auditErr != nil {
			logger.Warn("Failed to load audit for progress", "plan", plan.ID, "err", auditErr)
		} else {
			completed := serverutil.CompletedStages(entries)
			predictions, predErr := timing.PredictStageTimes(ctx, app.DBConn)
			if predErr != nil {
				logger.Warn("Failed to predict stage times", "plan", plan.ID, "err", predErr)
				predictions = nil
			}
			progress, remaining := timing.Progress(completed, predictions)
			resp.Progress = &progress
			resp.RemainingMs = &remaining
		}
	}

	if plan.Archived {
		url, urlErr := storage.PlanResultURL(ctx, app.S3, plan.ID)
		if urlErr != nil {
			logger.Warn("Failed to presign plan result", "plan", plan.ID, "err", urlErr)
		} else {
			resp.ResultURL = url
		}
	}

	return c.JSON(http.StatusOK, resp)
}
