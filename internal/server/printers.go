package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	organizationdomain "github.com/tablyhq/tably/internal/organization/domain"
)

func (s *Server) ListPrinters(c *gin.Context) {
	printers, err := s.printerSvc.ListPrinters(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": printers})
}

func (s *Server) GetOrganization(c *gin.Context) {
	org, err := s.orgSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": org})
}

type updateOrganizationRequest struct {
	Name          string `json:"name"`
	MaxOpenBills  int    `json:"max_open_bills"`
	ReceiptHeader string `json:"receipt_header"`
	ReceiptFooter string `json:"receipt_footer"`
}

func (s *Server) UpdateOrganization(c *gin.Context) {
	var req updateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.MaxOpenBills < 1 {
		AbortWithError(c, invalidRequestError())
		return
	}

	org, err := s.orgSvc.Update(c.Request.Context(), organizationdomain.Organization{
		Name:          strings.TrimSpace(req.Name),
		MaxOpenBills:  req.MaxOpenBills,
		ReceiptHeader: req.ReceiptHeader,
		ReceiptFooter: req.ReceiptFooter,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": org})
}
