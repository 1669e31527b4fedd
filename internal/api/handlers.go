package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/farhaan/fletes-reconcile-system/internal/app"
	"github.com/farhaan/fletes-reconcile-system/internal/config"
	"github.com/farhaan/fletes-reconcile-system/internal/dashboard"
	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/lock"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ClassifyRequest struct {
	Classification string `json:"classification" binding:"required"`
}

func (s *Server) RunOperationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := s.app.Run(c.Request.Context(), app.Operation(c.Param("name")))
		if errors.Is(err, app.ErrUnknownOperation) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		switch {
		case res.Success:
			c.JSON(http.StatusOK, res)
		case errors.Is(res.Err(), lock.ErrLocked):
			c.JSON(http.StatusConflict, res)
		default:
			c.JSON(http.StatusInternalServerError, res)
		}
	}
}

// summary binds the dashboard filter from the query string and computes
// the summary, writing the error response itself when it fails.
func (s *Server) summary(c *gin.Context) (dashboard.Summary, bool) {
	var f dashboard.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter"})
		return dashboard.Summary{}, false
	}
	sum, err := s.dashboard.Summary(c.Request.Context(), f)
	if err != nil {
		config.LogError(s.logger, "api", "summary", "load dashboard", f, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return dashboard.Summary{}, false
	}
	return sum, true
}

func (s *Server) SummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sum, ok := s.summary(c); ok {
			c.JSON(http.StatusOK, sum)
		}
	}
}

func (s *Server) KPIsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sum, ok := s.summary(c); ok {
			c.JSON(http.StatusOK, sum.KPIs)
		}
	}
}

func (s *Server) CarriersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sum, ok := s.summary(c); ok {
			c.JSON(http.StatusOK, gin.H{"carriers": sum.Carriers})
		}
	}
}

func (s *Server) ProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sum, ok := s.summary(c); ok {
			c.JSON(http.StatusOK, gin.H{"products": sum.Products})
		}
	}
}

func (s *Server) AlertsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sum, ok := s.summary(c); ok {
			c.JSON(http.StatusOK, gin.H{"alerts": sum.Alerts, "total": sum.AlertsTotal})
		}
	}
}

func (s *Server) AlertsExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sum, ok := s.summary(c)
		if !ok {
			return
		}
		name := fmt.Sprintf("alertas_%s.xlsx", time.Now().Format("20060102_150405"))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		c.Header("Content-Type", xlsxContentType)
		c.Status(http.StatusOK)
		if err := dashboard.ExportAlertsXLSX(c.Writer, sum.Alerts); err != nil {
			config.LogError(s.logger, "api", "AlertsExportHandler", "export", len(sum.Alerts), err)
		}
	}
}

func (s *Server) DuplicatesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rep, err := s.dashboard.Duplicates(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rep)
	}
}

func (s *Server) MissingWaybillHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rep, err := s.dashboard.MissingWaybill(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rep)
	}
}

func rowParam(c *gin.Context) (int, bool) {
	row, err := strconv.Atoi(c.Param("row"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "row must be a number"})
		return 0, false
	}
	return row, true
}

func reviewError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, dashboard.ErrInvalidRow), errors.Is(err, dashboard.ErrUnknownClassification):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) MarkVerifiedHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		row, ok := rowParam(c)
		if !ok {
			return
		}
		if err := s.dashboard.MarkVerified(c.Request.Context(), row); err != nil {
			reviewError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "row": row})
	}
}

func (s *Server) ClassifyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		row, ok := rowParam(c)
		if !ok {
			return
		}
		var req ClassifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "classification is required"})
			return
		}
		if err := s.dashboard.Classify(c.Request.Context(), row, req.Classification); err != nil {
			reviewError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "row": row, "classification": req.Classification})
	}
}

func (s *Server) InvalidateCacheHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.dashboard.Refresh(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
