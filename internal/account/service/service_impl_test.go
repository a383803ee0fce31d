package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/platefulhq/plateful/internal/account/domain"
	"github.com/platefulhq/plateful/internal/account/repository"
	"github.com/platefulhq/plateful/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) domain.Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Exec(`CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT,
		role TEXT NOT NULL DEFAULT 'customer',
		referral_code TEXT NOT NULL UNIQUE,
		referred_by INTEGER,
		has_used_referral BOOLEAN NOT NULL DEFAULT FALSE,
		referral_rewarded BOOLEAN NOT NULL DEFAULT FALSE,
		referral_rewarded_at DATETIME,
		referral_count INTEGER NOT NULL DEFAULT 0,
		referral_earnings INTEGER NOT NULL DEFAULT 0,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewSystemClock(),
		Repo:  repository.Provide(),
	})
}

func TestCreateUser(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, domain.CreateUserRequest{
		Name:  "Dana",
		Email: "Dana@Example.com",
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "dana@example.com", user.Email)
	assert.Equal(t, "customer", user.Role)
	assert.Equal(t, domain.ReferralCodeFor(user.ID), user.ReferralCode)
	assert.Nil(t, user.ReferredBy)

	_, err = svc.Create(ctx, domain.CreateUserRequest{Name: "Dana Again", Email: "dana@example.com"})
	assert.ErrorIs(t, err, domain.ErrEmailExists)

	_, err = svc.Create(ctx, domain.CreateUserRequest{Name: "", Email: "x@example.com"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
	_, err = svc.Create(ctx, domain.CreateUserRequest{Name: "No Email", Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestCreateUserWithReferralCode(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	referrer, err := svc.Create(ctx, domain.CreateUserRequest{Name: "Referrer", Email: "referrer@example.com"})
	require.NoError(t, err)

	user, err := svc.Create(ctx, domain.CreateUserRequest{
		Name:         "Newcomer",
		Email:        "newcomer@example.com",
		ReferralCode: referrer.ReferralCode,
	})
	require.NoError(t, err)
	require.NotNil(t, user.ReferredBy)
	assert.Equal(t, referrer.ID, *user.ReferredBy)
	assert.True(t, user.HasUsedReferral)

	_, err = svc.Create(ctx, domain.CreateUserRequest{
		Name:         "Stranger",
		Email:        "stranger@example.com",
		ReferralCode: "PFNOSUCHCODE",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidReferralCode)
}

func TestApplyReferralCode(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	referrer, err := svc.Create(ctx, domain.CreateUserRequest{Name: "Referrer", Email: "referrer@example.com"})
	require.NoError(t, err)
	user, err := svc.Create(ctx, domain.CreateUserRequest{Name: "Late Joiner", Email: "late@example.com"})
	require.NoError(t, err)

	updated, err := svc.ApplyReferralCode(ctx, domain.ApplyReferralCodeRequest{
		UserID:       user.ID.String(),
		ReferralCode: referrer.ReferralCode,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.ReferredBy)
	assert.Equal(t, referrer.ID, *updated.ReferredBy)
	assert.True(t, updated.HasUsedReferral)

	// A second code never overwrites the first.
	other, err := svc.Create(ctx, domain.CreateUserRequest{Name: "Other", Email: "other@example.com"})
	require.NoError(t, err)
	_, err = svc.ApplyReferralCode(ctx, domain.ApplyReferralCodeRequest{
		UserID:       user.ID.String(),
		ReferralCode: other.ReferralCode,
	})
	assert.ErrorIs(t, err, domain.ErrReferralAlreadySet)
}

func TestApplyReferralCodeRejectsSelf(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, domain.CreateUserRequest{Name: "Loner", Email: "loner@example.com"})
	require.NoError(t, err)

	_, err = svc.ApplyReferralCode(ctx, domain.ApplyReferralCodeRequest{
		UserID:       user.ID.String(),
		ReferralCode: user.ReferralCode,
	})
	assert.ErrorIs(t, err, domain.ErrSelfReferral)
}

func TestGetByIDNotFound(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, domain.GetUserRequest{ID: node.Generate().String()})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetByID(ctx, domain.GetUserRequest{ID: "not-a-snowflake"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
