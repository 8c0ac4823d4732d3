package routes

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"wavecrest-planner/internal/compliance"
	"wavecrest-planner/models"
	"wavecrest-planner/services"
	"wavecrest-planner/utils"
)

// monthParam parses the :month path parameter and writes a 400 on failure.
func monthParam(c *gin.Context) (models.Month, bool) {
	month, err := models.ParseMonth(c.Param("month"))
	if err != nil {
		utils.RespondWithBadRequest(c, "Invalid month", gin.H{"month": c.Param("month"), "format": "YYYY-MM"})
		return models.Month{}, false
	}
	return month, true
}

type buildPlanBody struct {
	Candidates []models.Candidate    `json:"candidates" binding:"required"`
	Frequency  models.FrequencyRange `json:"frequency"`
}

// BuildMonthPlan places the posted candidates into the month.
func BuildMonthPlan(svc *services.PlanningService) gin.HandlerFunc {
	return func(c *gin.Context) {
		month, ok := monthParam(c)
		if !ok {
			return
		}
		var body buildPlanBody
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondWithBadRequest(c, "Invalid build request", err.Error())
			return
		}

		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()
		result, err := svc.BuildMonthPlan(ctx, models.BuildRequest{
			Month:      month,
			Candidates: body.Candidates,
			Frequency:  body.Frequency,
		})
		if err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// GetMonthlyPlan returns the stored posts of a month.
func GetMonthlyPlan(svc *services.PlanningService) gin.HandlerFunc {
	return func(c *gin.Context) {
		month, ok := monthParam(c)
		if !ok {
			return
		}
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()
		plan, err := svc.MonthlyPlan(ctx, month)
		if err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, plan)
	}
}

// complianceOverride replaces parts of the configured targets for one check.
// Targets, when present, replace the whole mix.
type complianceOverride struct {
	Targets     map[models.Pillar]float64 `json:"targets"`
	MaxGapDays  *int                      `json:"max_gap_days"`
	Weekly      *models.FrequencyRange    `json:"weekly"`
	TolerancePP *float64                  `json:"tolerance_pp"`
}

func (o complianceOverride) empty() bool {
	return o.Targets == nil && o.MaxGapDays == nil && o.Weekly == nil && o.TolerancePP == nil
}

func (o complianceOverride) apply(base compliance.Config) compliance.Config {
	if o.Targets != nil {
		base.Targets = o.Targets
	}
	if o.MaxGapDays != nil {
		base.MaxGapDays = *o.MaxGapDays
	}
	if o.Weekly != nil {
		base.Weekly = *o.Weekly
	}
	if o.TolerancePP != nil {
		base.TolerancePP = *o.TolerancePP
	}
	return base
}

// CheckCompliance evaluates the stored month. An optional JSON body
// overrides the configured targets for this check only.
func CheckCompliance(svc *services.PlanningService) gin.HandlerFunc {
	return func(c *gin.Context) {
		month, ok := monthParam(c)
		if !ok {
			return
		}
		var override complianceOverride
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&override); err != nil {
				utils.RespondWithBadRequest(c, "Invalid compliance override", err.Error())
				return
			}
		}

		var cfg *compliance.Config
		if !override.empty() {
			merged := override.apply(svc.ComplianceConfig())
			cfg = &merged
		}
		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()
		report, err := svc.CheckCompliance(ctx, month, cfg)
		if err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportPlan streams the month calendar and its compliance report as xlsx.
func ExportPlan(exporter *services.ExportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		month, ok := monthParam(c)
		if !ok {
			return
		}
		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()
		data, err := exporter.ExportMonth(ctx, month)
		if err != nil {
			utils.RespondWithDomainError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=plan-%s.xlsx", month))
		c.Data(http.StatusOK, xlsxContentType, data)
	}
}
