package routes

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"wavecrest-planner/middleware"
	"wavecrest-planner/models"
	"wavecrest-planner/services"
	"wavecrest-planner/utils"
)

func kindParam(c *gin.Context) (models.EntityKind, bool) {
	kind, err := models.ParseEntityKind(c.Param("kind"))
	if err != nil {
		utils.RespondWithBadRequest(c, "Unknown entity kind", gin.H{"kind": c.Param("kind")})
		return "", false
	}
	return kind, true
}

// actorOf names who asked for a change: the X-Actor header, else the
// request id.
func actorOf(c *gin.Context) string {
	if actor := c.GetHeader("X-Actor"); actor != "" {
		return actor
	}
	return "api:" + middleware.GetRequestID(c)
}

// TransitionEntity applies one lifecycle move.
func TransitionEntity(svc *services.PlanningService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.TransitionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid transition request", err.Error())
			return
		}
		kind, err := models.ParseEntityKind(string(req.Kind))
		if err != nil {
			utils.RespondWithBadRequest(c, "Unknown entity kind", gin.H{"kind": req.Kind})
			return
		}
		req.Kind = kind
		if req.Actor == "" {
			req.Actor = actorOf(c)
		}

		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()
		res, err := svc.Transition(ctx, req)
		if err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// ListEntities lists ideas, scripts or posts. Query: status,
// exclude_status, pillar, platform, source_id, from, to (YYYY-MM-DD) and
// sort=priority for ideas.
func ListEntities(svc *services.PlanningService) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := kindParam(c)
		if !ok {
			return
		}
		var f models.ListFilter
		if err := c.ShouldBindQuery(&f); err != nil {
			utils.RespondWithBadRequest(c, "Invalid filter", err.Error())
			return
		}
		if f.Pillar != "" {
			pillar, err := models.ParsePillar(string(f.Pillar))
			if err != nil {
				utils.RespondWithBadRequest(c, "Invalid pillar", err.Error())
				return
			}
			f.Pillar = pillar
		}
		if f.Platform != "" {
			platform, err := models.ParsePlatform(string(f.Platform))
			if err != nil {
				utils.RespondWithBadRequest(c, "Invalid platform", err.Error())
				return
			}
			f.Platform = platform
		}
		for param, dst := range map[string]*time.Time{"from": &f.From, "to": &f.To} {
			raw := c.Query(param)
			if raw == "" {
				continue
			}
			d, err := models.ParseDate(raw)
			if err != nil {
				utils.RespondWithBadRequest(c, "Invalid date", gin.H{param: raw, "format": "YYYY-MM-DD"})
				return
			}
			*dst = d
		}

		list, err := svc.ListByStatus(c.Request.Context(), kind, f, c.Query("sort") == "priority")
		if err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func GetEntity(svc *services.PlanningService) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := kindParam(c)
		if !ok {
			return
		}
		entity, err := svc.GetEntity(c.Request.Context(), kind, c.Param("id"))
		if err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, entity)
	}
}

// EntityHistory returns the transition log of one entity, oldest first.
func EntityHistory(svc *services.PlanningService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := kindParam(c); !ok {
			return
		}
		events, err := svc.History(c.Request.Context(), c.Param("id"))
		if err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
	}
}

func CreateIdea(svc *services.PlanningService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateIdeaRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid idea", err.Error())
			return
		}
		idea, err := svc.CreateIdea(c.Request.Context(), req)
		if err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}
		c.JSON(http.StatusCreated, idea)
	}
}

func CreateScript(svc *services.PlanningService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateScriptRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid script", err.Error())
			return
		}
		script, err := svc.CreateScript(c.Request.Context(), req)
		if err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}
		c.JSON(http.StatusCreated, script)
	}
}

type archiveStaleBody struct {
	OlderThanDays int    `json:"older_than_days" binding:"required"`
	Now           string `json:"now,omitempty"` // YYYY-MM-DD, defaults to today
}

// ArchiveStaleScripts archives Draft scripts older than the given age.
func ArchiveStaleScripts(svc *services.PlanningService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body archiveStaleBody
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondWithBadRequest(c, "Invalid archive request", err.Error())
			return
		}
		var now time.Time
		if body.Now != "" {
			d, err := models.ParseDate(body.Now)
			if err != nil {
				utils.RespondWithBadRequest(c, "Invalid date", gin.H{"now": body.Now, "format": "YYYY-MM-DD"})
				return
			}
			now = d
		}
		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()
		archived, err := svc.ArchiveStaleScripts(ctx, body.OlderThanDays, now)
		if err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"archived": archived, "count": len(archived)})
	}
}

func UpdatePost(svc *services.PlanningService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch models.PostPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			utils.RespondWithBadRequest(c, "Invalid post update", err.Error())
			return
		}
		post, err := svc.UpdatePost(c.Request.Context(), c.Param("id"), patch)
		if err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, post)
	}
}

// RemovePost deletes an unpublished post. ?version= guards against a
// concurrent edit.
func RemovePost(svc *services.PlanningService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var version int64
		if raw := c.Query("version"); raw != "" {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || v < 0 {
				utils.RespondWithBadRequest(c, "Invalid version", gin.H{"version": raw})
				return
			}
			version = v
		}
		if err := svc.RemovePost(c.Request.Context(), c.Param("id"), version); err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
