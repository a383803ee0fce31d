// Package seed bootstraps a fresh database so the service is usable out
// of the box: an admin account for staff operations and, outside
// production, a small demo menu to order from.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/platefulhq/plateful/internal/account/domain"
	"gorm.io/gorm"
)

const (
	defaultAdminName  = "Plateful Admin"
	defaultAdminEmail = "admin@plateful.local"
)

// EnsureAdminUser creates the default admin account when no admin exists.
func EnsureAdminUser(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Raw(`SELECT COUNT(1) FROM users WHERE role = 'admin'`).Scan(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		id := node.Generate()
		now := time.Now().UTC()
		return tx.Exec(
			`INSERT INTO users (id, name, email, role, referral_code, metadata, created_at, updated_at)
			 VALUES (?, ?, ?, 'admin', ?, '{}', ?, ?)`,
			id, defaultAdminName, defaultAdminEmail, accountdomain.ReferralCodeFor(id), now, now,
		).Error
	})
}

// EnsureDemoMenu seeds a starter menu when the menu is empty. Meant for
// local and staging environments only.
func EnsureDemoMenu(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Raw(`SELECT COUNT(1) FROM menu_categories`).Scan(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		categories := []struct {
			name  string
			items []struct {
				name  string
				price int64
			}
		}{
			{
				name: "Mains",
				items: []struct {
					name  string
					price int64
				}{
					{"Margherita Pizza", 12000},
					{"Pad Thai", 11000},
					{"Cheeseburger", 9500},
				},
			},
			{
				name: "Drinks",
				items: []struct {
					name  string
					price int64
				}{
					{"Lemonade", 3000},
					{"Iced Tea", 2800},
				},
			},
		}

		for i, category := range categories {
			categoryID := node.Generate()
			if err := tx.Exec(
				`INSERT INTO menu_categories (id, name, sort_order, active, created_at, updated_at)
				 VALUES (?, ?, ?, TRUE, ?, ?)`,
				categoryID, category.name, i, now, now,
			).Error; err != nil {
				return err
			}
			for _, item := range category.items {
				if err := tx.Exec(
					`INSERT INTO menu_items (id, category_id, name, price, available, metadata, created_at, updated_at)
					 VALUES (?, ?, ?, ?, TRUE, '{}', ?, ?)`,
					node.Generate(), categoryID, item.name, item.price, now, now,
				).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}
