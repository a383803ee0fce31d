package domain

import (
	"context"
	"errors"
)

type CreateCategoryRequest struct {
	Name      string
	SortOrder int
}

type CreateItemRequest struct {
	CategoryID  string
	Name        string
	Description string
	Price       int64
}

type SetItemAvailabilityRequest struct {
	ItemID    string
	Available bool
}

type ListItemsRequest struct {
	CategoryID    string
	AvailableOnly bool
}

type MenuResponse struct {
	Categories []CategoryWithItems `json:"categories"`
}

type CategoryWithItems struct {
	Category
	Items []Item `json:"items"`
}

type Service interface {
	CreateCategory(context.Context, CreateCategoryRequest) (Category, error)
	CreateItem(context.Context, CreateItemRequest) (Item, error)
	SetItemAvailability(context.Context, SetItemAvailabilityRequest) (Item, error)
	GetItemByID(ctx context.Context, id string) (Item, error)
	ListItems(context.Context, ListItemsRequest) ([]Item, error)
	GetMenu(ctx context.Context) (MenuResponse, error)
}

var (
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidCategory = errors.New("invalid_category")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
)
