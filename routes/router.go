package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wavecrest-planner/services"
)

// Deps are the collaborators the planner routes need. Enqueuer may be nil,
// in which case snapshots are ingested inline.
type Deps struct {
	Planner  *services.PlanningService
	Exporter *services.ExportService
	Enqueuer SnapshotEnqueuer
	Backend  string
}

// SetupPlannerRoutes registers the dashboard API.
func SetupPlannerRoutes(router *gin.Engine, deps Deps) {
	if deps.Exporter == nil {
		deps.Exporter = services.NewExportService(deps.Planner)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "store": deps.Backend, "timestamp": time.Now()})
	})

	api := router.Group("/api")

	plans := api.Group("/plans/:month")
	plans.POST("/build", BuildMonthPlan(deps.Planner))
	plans.GET("", GetMonthlyPlan(deps.Planner))
	plans.POST("/compliance", CheckCompliance(deps.Planner))
	plans.GET("/export", ExportPlan(deps.Exporter))

	api.POST("/transitions", TransitionEntity(deps.Planner))

	api.GET("/entities/:kind", ListEntities(deps.Planner))
	api.GET("/entities/:kind/:id", GetEntity(deps.Planner))
	api.GET("/entities/:kind/:id/history", EntityHistory(deps.Planner))

	api.POST("/ideas", CreateIdea(deps.Planner))
	api.POST("/scripts", CreateScript(deps.Planner))
	api.POST("/scripts/archive-stale", ArchiveStaleScripts(deps.Planner))

	api.PATCH("/posts/:id", UpdatePost(deps.Planner))
	api.DELETE("/posts/:id", RemovePost(deps.Planner))

	api.POST("/snapshots/metrics", IngestMetrics(deps.Planner, deps.Enqueuer))
	api.POST("/snapshots/competitors", IngestCompetitors(deps.Planner, deps.Enqueuer))
}
