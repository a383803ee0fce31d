package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/platefulhq/plateful/internal/menu/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertCategory(ctx context.Context, db *gorm.DB, category *domain.Category) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO menu_categories (id, name, sort_order, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		category.ID,
		category.Name,
		category.SortOrder,
		category.Active,
		category.CreatedAt,
		category.UpdatedAt,
	).Error
}

func (r *repo) ListCategories(ctx context.Context, db *gorm.DB, activeOnly bool) ([]*domain.Category, error) {
	var categories []*domain.Category
	stmt := db.WithContext(ctx).Model(&domain.Category{})
	if activeOnly {
		stmt = stmt.Where("active = ?", true)
	}
	err := stmt.
		Order("sort_order asc, id asc").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *repo) InsertItem(ctx context.Context, db *gorm.DB, item *domain.Item) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO menu_items (id, category_id, name, description, price, available, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.CategoryID,
		item.Name,
		item.Description,
		item.Price,
		item.Available,
		item.Metadata,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) UpdateItemAvailability(ctx context.Context, db *gorm.DB, id snowflake.ID, available bool) error {
	return db.WithContext(ctx).Exec(
		`UPDATE menu_items SET available = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		available,
		id,
	).Error
}

func (r *repo) FindItemByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Item, error) {
	var item domain.Item
	err := db.WithContext(ctx).Raw(
		`SELECT id, category_id, name, description, price, available, metadata, created_at, updated_at
		 FROM menu_items WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindItemsByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*domain.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []*domain.Item
	err := db.WithContext(ctx).
		Model(&domain.Item{}).
		Where("id IN ?", ids).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, categoryID snowflake.ID, availableOnly bool) ([]*domain.Item, error) {
	var items []*domain.Item
	stmt := db.WithContext(ctx).Model(&domain.Item{})
	if categoryID != 0 {
		stmt = stmt.Where("category_id = ?", categoryID)
	}
	if availableOnly {
		stmt = stmt.Where("available = ?", true)
	}
	err := stmt.
		Order("name asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
