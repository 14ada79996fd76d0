package routes

import (
	"errors"
	"net/http"

	"github.com/skizzehq/skizze/internal/server/middleware"
	"github.com/skizzehq/skizze/internal/storage"
	"github.com/skizzehq/skizze/internal/store"
	"github.com/skizzehq/skizze/pkg/logger"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// DeletePlanHandler deletes a plan, its audit trail and its archived
// artifacts. Plans mid-run cannot be deleted; their worker holds the lease
// and would race the removal.
func DeletePlanHandler(c echo.Context) error {
	type deletePlanParams struct {
		ID string `param:"id" validate:"required"`
	}

	type deletePlanResponse struct {
		Message string `json:"message"`
	}

	params := new(deletePlanParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, deletePlanResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, deletePlanResponse{
			Message: "Invalid request params",
		})
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
			return c.JSON(http.StatusNotFound, deletePlanResponse{
				Message: "Plan not found",
			})
		}
		logger.Error("Failed to load plan", "plan", params.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, deletePlanResponse{
			Message: "Internal server error",
		})
	}

	if plan.Status == store.StatusProcessing {
		return c.JSON(http.StatusConflict, deletePlanResponse{
			Message: "Plan is currently processing",
		})
	}

	if err := s.DeletePlan(ctx, plan.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, deletePlanResponse{
				Message: "Plan not found",
			})
		}
		logger.Error("Failed to delete plan", "plan", plan.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, deletePlanResponse{
			Message: "Internal server error",
		})
	}

	s3Client := c.(*middleware.AppContext).App.S3
	if err := storage.DeletePlanArtifacts(ctx, s3Client, plan.ID); err != nil {
		logger.Warn("Failed to delete plan artifacts", "plan", plan.ID, "err", err)
	}

	return c.JSON(http.StatusOK, deletePlanResponse{
		Message: "Plan deleted",
	})
}
