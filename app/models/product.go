package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is one catalog entry read off a product tag. Products are deleted
// outright; there is no soft delete.
type Product struct {
	ID        uint                `gorm:"primaryKey"                 json:"id"`
	Article   string              `gorm:"size:255;not null;index"    json:"article"`
	Colour    string              `gorm:"size:255;not null"          json:"colour"`
	Size      string              `gorm:"size:255;not null"          json:"size"`
	Pair      string              `gorm:"size:64;not null"           json:"pair"`
	Price     decimal.NullDecimal `gorm:"type:decimal(12,2)"         json:"price"`
	ImageURL  string              `gorm:"size:1024"                  json:"image_url"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}
