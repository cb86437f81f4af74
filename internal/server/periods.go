package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListPeriods(c *gin.Context) {
	periods, err := s.periodSvc.ListPeriods(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": periods})
}

func (s *Server) OpenPeriod(c *gin.Context) {
	period, err := s.periodSvc.OpenPeriod(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": period})
}

func (s *Server) CurrentPeriod(c *gin.Context) {
	period, err := s.periodSvc.CurrentPeriod(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": period})
}

func (s *Server) ClosePeriod(c *gin.Context) {
	periodID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := s.periodSvc.ClosePeriod(c.Request.Context(), periodID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) PeriodReport(c *gin.Context) {
	periodID, ok := parseID(c, "id")
	if !ok {
		return
	}

	report, err := s.periodSvc.PeriodReport(c.Request.Context(), periodID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) PeriodRollup(c *gin.Context) {
	periodID, ok := parseID(c, "id")
	if !ok {
		return
	}

	rollup, err := s.periodSvc.GetRollup(c.Request.Context(), periodID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rollup})
}

func (s *Server) RefreshRollup(c *gin.Context) {
	periodID, ok := parseID(c, "id")
	if !ok {
		return
	}

	rollup, err := s.periodSvc.RefreshRollup(c.Request.Context(), periodID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rollup})
}
