package routes

import (
	"net/http"

	"github.com/skizzehq/skizze/internal/server/middleware"
	"github.com/skizzehq/skizze/internal/store"
	"github.com/skizzehq/skizze/pkg/logger"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// GetSimilarPlansHandler searches past plans by statement meaning: the query
// is embedded with the same model the worker uses for stored statements,
// then matched by cosine similarity.
func GetSimilarPlansHandler(c echo.Context) error {
	type similarPlansParams struct {
		Query string `query:"q" validate:"required"`
		Limit int    `query:"limit" validate:"omitempty,min=1,max=50"`
	}

	type similarPlansResponse struct {
		Message string              `json:"message"`
		Plans   []store.SimilarPlan `json:"plans,omitempty"`
	}

	params := new(similarPlansParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, similarPlansResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, similarPlansResponse{
			Message: "Invalid request params",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, similarPlansResponse{
			Message: "Unauthorized",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	if app.Model == nil {
		return c.JSON(http.StatusServiceUnavailable, similarPlansResponse{
			Message: "Similarity search is not available",
		})
	}

	embedding, err := app.Model.GenerateEmbedding(ctx, []byte(params.Query))
	if err != nil {
		logger.Error("Failed to embed similarity query", "err", err)
		return c.JSON(http.StatusInternalServerError, similarPlansResponse{
			Message: "Internal server error",
		})
	}

	s := store.New(app.DBConn)
	plans, err := s.SimilarPlans(ctx, embedding, params.Limit)
	if err != nil {
		logger.Error("Failed to search similar plans", "err", err)
		return c.JSON(http.StatusInternalServerError, similarPlansResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, similarPlansResponse{
		Message: "Similar plans found",
		Plans:   plans,
	})
}
