package seeders

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/tagcatalog/app/models"
	"github.com/shashiranjanraj/tagcatalog/app/repositories"
	"github.com/shashiranjanraj/tagcatalog/config"
	"github.com/shashiranjanraj/tagcatalog/pkg/auth"
	"github.com/shashiranjanraj/tagcatalog/pkg/logger"
)

// ErrNoAdminPassword is returned when ADMIN_PASSWORD is unset.
var ErrNoAdminPassword = errors.New("seeders: ADMIN_PASSWORD is not set")

func init() {
	Register("admin", SeedAdmin)
}

// SeedAdmin creates the admin user from ADMIN_EMAIL and ADMIN_PASSWORD, or
// resets the password and role of an existing one.
func SeedAdmin(ctx context.Context, db *gorm.DB) error {
	password := config.AdminPassword()
	if password == "" {
		return ErrNoAdminPassword
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("seeders: hash admin password: %w", err)
	}

	users := repositories.NewUserRepository(db)
	email := config.AdminEmail()

	u, err := users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		u = &models.User{Name: "Administrator", Email: email, Password: hash, Role: auth.RoleAdmin}
		if err := users.Create(ctx, u); err != nil {
			return err
		}
		logger.Info("seed: admin created", "email", email)
	case err != nil:
		return err
	default:
		u.Password = hash
		u.Role = auth.RoleAdmin
		if err := users.Save(ctx, u); err != nil {
			return err
		}
		logger.Info("seed: admin updated", "email", email)
	}
	return nil
}
