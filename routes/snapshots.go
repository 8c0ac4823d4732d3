package routes

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"wavecrest-planner/models"
	"wavecrest-planner/services"
	"wavecrest-planner/utils"
)

// SnapshotEnqueuer hands snapshot batches to the background worker.
type SnapshotEnqueuer interface {
	EnqueueMetrics(ctx context.Context, snaps []models.MetricSnapshot) (string, error)
	EnqueueCompetitors(ctx context.Context, snaps []models.CompetitorSnapshot) (string, error)
}

type metricInput struct {
	Date        string          `json:"date" binding:"required"` // YYYY-MM-DD
	Platform    models.Platform `json:"platform" binding:"required"`
	PostID      string          `json:"post_id,omitempty"`
	Impressions int64           `json:"impressions"`
	Engagements int64           `json:"engagements"`
}

type competitorInput struct {
	CompetitorName  string   `json:"competitor_name" binding:"required"`
	Date            string   `json:"date" binding:"required"`
	FollowerCount   int64    `json:"follower_count"`
	NotablePostURLs []string `json:"notable_post_urls,omitempty"`
}

func toMetrics(in []metricInput) ([]models.MetricSnapshot, error) {
	out := make([]models.MetricSnapshot, 0, len(in))
	for i, m := range in {
		date, err := models.ParseDate(m.Date)
		if err != nil {
			return nil, fmt.Errorf("metric %d: %w", i, err)
		}
		platform, err := models.ParsePlatform(string(m.Platform))
		if err != nil {
			return nil, fmt.Errorf("metric %d: %w", i, err)
		}
		out = append(out, models.MetricSnapshot{
			Date:        date,
			Platform:    platform,
			PostID:      m.PostID,
			Impressions: m.Impressions,
			Engagements: m.Engagements,
		})
	}
	return out, nil
}

func toCompetitors(in []competitorInput) ([]models.CompetitorSnapshot, error) {
	out := make([]models.CompetitorSnapshot, 0, len(in))
	for i, s := range in {
		date, err := models.ParseDate(s.Date)
		if err != nil {
			return nil, fmt.Errorf("competitor %d: %w", i, err)
		}
		out = append(out, models.CompetitorSnapshot{
			CompetitorName:  s.CompetitorName,
			Date:            date,
			FollowerCount:   s.FollowerCount,
			NotablePostURLs: s.NotablePostURLs,
		})
	}
	return out, nil
}

// IngestMetrics stores a batch of metric snapshots inline (201), or queues
// it for the worker (202) when an enqueuer is configured.
func IngestMetrics(svc *services.PlanningService, enq SnapshotEnqueuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Snapshots []metricInput `json:"snapshots" binding:"required,min=1,dive"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondWithBadRequest(c, "Invalid metric snapshots", err.Error())
			return
		}
		snaps, err := toMetrics(body.Snapshots)
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid metric snapshots", err.Error())
			return
		}

		if enq != nil {
			taskID, err := enq.EnqueueMetrics(c.Request.Context(), snaps)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to queue snapshots", nil)
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"task_id": taskID, "count": len(snaps)})
			return
		}
		ids, err := svc.IngestMetrics(c.Request.Context(), snaps)
		if err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ids": ids, "count": len(ids)})
	}
}

// IngestCompetitors mirrors IngestMetrics for competitor readings.
func IngestCompetitors(svc *services.PlanningService, enq SnapshotEnqueuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Snapshots []competitorInput `json:"snapshots" binding:"required,min=1,dive"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondWithBadRequest(c, "Invalid competitor snapshots", err.Error())
			return
		}
		snaps, err := toCompetitors(body.Snapshots)
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid competitor snapshots", err.Error())
			return
		}

		if enq != nil {
			taskID, err := enq.EnqueueCompetitors(c.Request.Context(), snaps)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to queue snapshots", nil)
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"task_id": taskID, "count": len(snaps)})
			return
		}
		ids, err := svc.IngestCompetitors(c.Request.Context(), snaps)
		if err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ids": ids, "count": len(ids)})
	}
}
