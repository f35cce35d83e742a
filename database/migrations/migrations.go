// Package migrations registers the catalog schema. Importing it for side
// effects makes the migrations available to the migrate commands.
package migrations

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/tagcatalog/app/models"
	"github.com/shashiranjanraj/tagcatalog/pkg/migration"
	"github.com/shashiranjanraj/tagcatalog/pkg/queue"
)

func init() {
	migration.Register("20260101000000_create_users_table", &CreateUsersTable{})
	migration.Register("20260101000001_create_products_table", &CreateProductsTable{})
	migration.Register("20260101000002_create_failed_jobs_table", &CreateFailedJobsTable{})
}

type CreateUsersTable struct{}

func (m *CreateUsersTable) Up(db *gorm.DB) error   { return db.AutoMigrate(&models.User{}) }
func (m *CreateUsersTable) Down(db *gorm.DB) error { return db.Migrator().DropTable(&models.User{}) }

type CreateProductsTable struct{}

func (m *CreateProductsTable) Up(db *gorm.DB) error { return db.AutoMigrate(&models.Product{}) }
func (m *CreateProductsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.Product{})
}

type CreateFailedJobsTable struct{}

func (m *CreateFailedJobsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&queue.FailedJobRecord{})
}

func (m *CreateFailedJobsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&queue.FailedJobRecord{})
}
