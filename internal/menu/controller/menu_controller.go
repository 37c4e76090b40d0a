package controller

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"canteen/internal/domain"
	"canteen/internal/dto"
	apperrors "canteen/internal/errors"
	"canteen/internal/respond"
)

type MenuService interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	MenuItems(ctx context.Context, categoryID int) ([]domain.MenuItem, error)
}

type MenuController struct {
	service MenuService
	logger  *zap.Logger
}

func NewMenuController(service MenuService, logger *zap.Logger) *MenuController {
	return &MenuController{
		service: service,
		logger:  logger,
	}
}

func (c *MenuController) ListCategories(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	categories, err := c.service.Categories(r.Context())
	if err != nil {
		respond.Error(w, r, traceID, err, logger)
		return
	}

	resp := dto.CategoriesResponse{
		TraceID:    traceID,
		Categories: make([]dto.CategoryDTO, 0, len(categories)),
	}
	for _, cat := range categories {
		resp.Categories = append(resp.Categories, dto.CategoryDTO{
			ID:        cat.ID,
			Name:      cat.Name,
			SortOrder: cat.SortOrder,
		})
	}

	respond.JSON(w, r, http.StatusOK, resp)
}

func (c *MenuController) ListMenuItems(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	categoryID := 0
	if raw := r.URL.Query().Get("category"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			respond.Validation(w, r, traceID, "invalid category", apperrors.ValidationDetail{
				Field:   "category",
				Message: "category must be a positive integer",
			})
			return
		}
		categoryID = id
	}

	items, err := c.service.MenuItems(r.Context(), categoryID)
	if err != nil {
		respond.Error(w, r, traceID, err, logger)
		return
	}

	resp := dto.MenuItemsResponse{
		TraceID: traceID,
		Items:   make([]dto.MenuItemDTO, 0, len(items)),
	}
	for _, it := range items {
		resp.Items = append(resp.Items, dto.MenuItemDTO{
			ID:         it.ID,
			CategoryID: it.CategoryID,
			Name:       it.Name,
			Price:      it.Price.InexactFloat64(),
			IsActive:   it.IsActive,
		})
	}

	respond.JSON(w, r, http.StatusOK, resp)
}
