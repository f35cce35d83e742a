package seeders_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/tagcatalog/app/models"
	"github.com/shashiranjanraj/tagcatalog/app/repositories"
	"github.com/shashiranjanraj/tagcatalog/config"
	"github.com/shashiranjanraj/tagcatalog/database/seeders"
	"github.com/shashiranjanraj/tagcatalog/pkg/auth"
	"github.com/shashiranjanraj/tagcatalog/pkg/testkit"
)

func TestSeedAdminCreatesThenResets(t *testing.T) {
	ctx := context.Background()
	db := testkit.DB(t, &models.User{})
	config.Set("ADMIN_EMAIL", "owner@shop.test")
	config.Set("ADMIN_PASSWORD", "first")

	ran, err := seeders.RunAll(ctx, db)
	require.NoError(t, err)
	assert.Contains(t, ran, "admin")

	users := repositories.NewUserRepository(db)
	u, err := users.FindByEmail(ctx, "OWNER@shop.test")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, u.Role)
	assert.True(t, auth.CheckPassword(u.Password, "first"))

	config.Set("ADMIN_PASSWORD", "second")
	require.NoError(t, seeders.SeedAdmin(ctx, db))

	u, err = users.FindByEmail(ctx, "owner@shop.test")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(u.Password, "second"))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSeedAdminNeedsPassword(t *testing.T) {
	db := testkit.DB(t, &models.User{})
	config.Set("ADMIN_PASSWORD", "")
	t.Setenv("ADMIN_PASSWORD", "")

	err := seeders.SeedAdmin(context.Background(), db)
	assert.ErrorIs(t, err, seeders.ErrNoAdminPassword)
}
