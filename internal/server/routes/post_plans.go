package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/skizzehq/skizze/internal/queue"
	"github.com/skizzehq/skizze/internal/server/middleware"
	serverutil "github.com/skizzehq/skizze/internal/server/util"
	"github.com/skizzehq/skizze/internal/store"
	"github.com/skizzehq/skizze/internal/util"
	"github.com/skizzehq/skizze/pkg/ai"
	"github.com/skizzehq/skizze/pkg/common"
	"github.com/skizzehq/skizze/pkg/logger"
	"github.com/skizzehq/skizze/pkg/pipeline"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// CreatePlanHandler accepts a problem statement and either queues it for a
// worker (the default) or runs the pipeline inline for small statements.
func CreatePlanHandler(c echo.Context) error {
	type createPlanBody struct {
		Statement string `json:"statement" validate:"required"`
		Mode      string `json:"mode" validate:"omitempty,oneof=queued sync"`
	}

	type createPlanResponse struct {
		Message string           `json:"message"`
		Plan    *store.Plan      `json:"plan,omitempty"`
		Result  *pipeline.Result `json:"result,omitempty"`
	}

	data := new(createPlanBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createPlanResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createPlanResponse{
			Message: "Invalid request body",
		})
	}
	data.Statement = util.SanitizePostgresText(data.Statement)

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, createPlanResponse{
			Message: "Unauthorized",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	s := store.New(app.DBConn)

	planID, err := util.NewPlanID()
	if err != nil {
		logger.Error("Failed to generate plan id", "err", err)
		return c.JSON(http.StatusInternalServerError, createPlanResponse{
			Message: "Internal server error",
		})
	}

	plan, err := s.CreatePlan(ctx, planID, data.Statement, serverutil.BuildPlanTitle(data.Statement))
	if err != nil {
		logger.Error("Failed to create plan", "err", err)
		return c.JSON(http.StatusInternalServerError, createPlanResponse{
			Message: "Internal server error",
		})
	}

	if data.Mode == "sync" {
		return runPlanInline(c, &plan, data.Statement)
	}

	if err := queue.PublishPlanJob(app.Queue, plan.ID, data.Statement); err != nil {
		logger.Error("Failed to publish plan job", "plan", plan.ID, "err", err)
		if markErr := s.MarkFailed(ctx, plan.ID, "failed to queue plan"); markErr != nil {
			logger.Warn("Failed to mark unqueued plan as failed", "plan", plan.ID, "err", markErr)
		}
		return c.JSON(http.StatusInternalServerError, createPlanResponse{
			Message: "Internal server error",
		})
	}
	queue.PublishPlanStatus(app.Queue, queue.PlanStatusMsg{
		PlanID: plan.ID,
		Status: string(store.StatusQueued),
	})

	return c.JSON(http.StatusOK, createPlanResponse{
		Message: "Plan queued successfully",
		Plan:    &plan,
	})
}

// runPlanInline serves the sync mode: run, persist, respond with the full
// result. Inline runs use the server's lexical-only planner so they stay
// fast; titles and embeddings still go through the model when one is up.
func runPlanInline(c echo.Context, plan *store.Plan, statement string) error {
	type inlinePlanResponse struct {
		Message string           `json:"message"`
		Plan    *store.Plan      `json:"plan,omitempty"`
		Result  *pipeline.Result `json:"result,omitempty"`
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	s := store.New(app.DBConn)

	res, err := app.Planner.Plan(ctx, statement)
	if err != nil {
		if markErr := s.MarkFailed(ctx, plan.ID, err.Error()); markErr != nil {
			logger.Warn("Failed to mark plan as failed", "plan", plan.ID, "err", markErr)
		}
		if errors.Is(err, common.ErrFatalInput) {
			return c.JSON(http.StatusBadRequest, inlinePlanResponse{
				Message: err.Error(),
			})
		}
		logger.Error("Inline plan run failed", "plan", plan.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, inlinePlanResponse{
			Message: "Internal server error",
		})
	}
	res.Plan.ID = plan.ID

	title := ""
	if app.Model != nil {
		title = generatePlanTitle(ctx, app.Model, statement)
	}

	if err := s.SaveResult(ctx, plan.ID, title, res); err != nil {
		logger.Error("Failed to save plan result", "plan", plan.ID, "err", err)
		if markErr := s.MarkFailed(ctx, plan.ID, "failed to save result"); markErr != nil {
			logger.Warn("Failed to mark plan as failed", "plan", plan.ID, "err", markErr)
		}
		return c.JSON(http.StatusInternalServerError, inlinePlanResponse{
			Message: "Internal server error",
		})
	}

	if app.Model != nil {
		if embedding, embErr := app.Model.GenerateEmbedding(ctx, []byte(statement)); embErr != nil {
			logger.Warn("Failed to embed statement", "plan", plan.ID, "err", embErr)
		} else if embErr := s.UpdateEmbedding(ctx, plan.ID, embedding); embErr != nil {
			logger.Warn("Failed to store statement embedding", "plan", plan.ID, "err", embErr)
		}
	}

	saved, err := s.GetPlan(ctx, plan.ID)
	if err != nil {
		logger.Error("Failed to reload plan", "plan", plan.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, inlinePlanResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, inlinePlanResponse{
		Message: "Plan completed successfully",
		Plan:    &saved,
		Result:  res,
	})
}

func generatePlanTitle(ctx context.Context, model ai.ModelClient, statement string) string {
	title, err := model.GenerateCompletion(ctx, fmt.Sprintf(ai.PlanTitlePrompt, statement))
	if err != nil {
		logger.Warn("Failed to generate plan title", "err", err)
		return ""
	}
	return strings.Trim(strings.TrimSpace(title), `"`)
}
