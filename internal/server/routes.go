package server

import (
	"github.com/skizzehq/skizze/internal/server/middleware"
	"github.com/skizzehq/skizze/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Plan routes. The static /plans/similar segment registers alongside
	// /plans/:id; echo matches static routes first.
	apiRoutes.GET("/plans", routes.GetPlansHandler)
	apiRoutes.POST("/plans", routes.CreatePlanHandler, middleware.RequirePermission("plan.create"))
	apiRoutes.GET("/plans/similar", routes.GetSimilarPlansHandler)
	apiRoutes.GET("/plans/:id", routes.GetPlanHandler)
	apiRoutes.GET("/plans/:id/audit", routes.GetPlanAuditHandler)
	apiRoutes.DELETE("/plans/:id", routes.DeletePlanHandler, middleware.RequirePermission("plan.delete"))
}
