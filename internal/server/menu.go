package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	menudomain "github.com/platefulhq/plateful/internal/menu/domain"
)

func (s *Server) GetMenu(c *gin.Context) {
	resp, err := s.menuSvc.GetMenu(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMenuItems(c *gin.Context) {
	var query struct {
		CategoryID    string `form:"category_id"`
		AvailableOnly bool   `form:"available_only"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.menuSvc.ListItems(c.Request.Context(), menudomain.ListItemsRequest{
		CategoryID:    strings.TrimSpace(query.CategoryID),
		AvailableOnly: query.AvailableOnly,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetMenuItemByID(c *gin.Context) {
	resp, err := s.menuSvc.GetItemByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createMenuCategoryRequest struct {
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

func (s *Server) CreateMenuCategory(c *gin.Context) {
	var req createMenuCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.menuSvc.CreateCategory(c.Request.Context(), menudomain.CreateCategoryRequest{
		Name:      strings.TrimSpace(req.Name),
		SortOrder: req.SortOrder,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createMenuItemRequest struct {
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
}

func (s *Server) CreateMenuItem(c *gin.Context) {
	var req createMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.menuSvc.CreateItem(c.Request.Context(), menudomain.CreateItemRequest{
		CategoryID:  strings.TrimSpace(req.CategoryID),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type setMenuItemAvailabilityRequest struct {
	Available bool `json:"available"`
}

func (s *Server) SetMenuItemAvailability(c *gin.Context) {
	var req setMenuItemAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.menuSvc.SetItemAvailability(c.Request.Context(), menudomain.SetItemAvailabilityRequest{
		ItemID:    strings.TrimSpace(c.Param("id")),
		Available: req.Available,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
