package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListPriceGroups(c *gin.Context) {
	groups, err := s.catalogSvc.ListPriceGroups(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": groups})
}

func (s *Server) ListSellableItems(c *gin.Context) {
	priceGroupID, ok := parseID(c, "id")
	if !ok {
		return
	}

	items, err := s.catalogSvc.SellableItems(c.Request.Context(), priceGroupID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) ListItemModifiers(c *gin.Context) {
	itemID, ok := parseID(c, "id")
	if !ok {
		return
	}

	modifiers, err := s.catalogSvc.ItemModifiers(c.Request.Context(), itemID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": modifiers})
}

func (s *Server) ListDiscounts(c *gin.Context) {
	discounts, err := s.catalogSvc.ListDiscounts(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": discounts})
}

func (s *Server) ListReasons(c *gin.Context) {
	reasons, err := s.catalogSvc.ListReasons(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reasons})
}
