package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/tagcatalog/app/models"
	"github.com/shashiranjanraj/tagcatalog/pkg/metrics"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("repositories: record not found")

const (
	defaultLimit = 15
	maxLimit     = 100
)

// ProductFilter narrows a product listing. Text filters are
// case-insensitive substring matches; Q searches article, colour and size.
type ProductFilter struct {
	Article string
	Colour  string
	Size    string
	Q       string
	Page    int
	Limit   int
}

// Normalize clamps paging to sane values.
func (f *ProductFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
}

// Where builds the SQL condition for the filter. It returns "" when the
// filter matches everything.
func (f ProductFilter) Where() (string, []interface{}, error) {
	cond := sq.And{}
	for _, c := range [...]struct{ col, v string }{
		{"article", f.Article},
		{"colour", f.Colour},
		{"size", f.Size},
	} {
		if v := strings.TrimSpace(c.v); v != "" {
			cond = append(cond, contains(c.col, v))
		}
	}
	if q := strings.TrimSpace(f.Q); q != "" {
		cond = append(cond, sq.Or{contains("article", q), contains("colour", q), contains("size", q)})
	}
	if len(cond) == 0 {
		return "", nil, nil
	}
	return cond.ToSql()
}

func contains(col, v string) sq.Sqlizer {
	return sq.Expr("LOWER("+col+") LIKE ?", "%"+strings.ToLower(v)+"%")
}

// ProductRepository handles database operations for Product.
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns one page of products, newest first, and the total match count.
func (r *ProductRepository) List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	defer metrics.ObserveDBQuery("products.list", time.Now())
	f.Normalize()

	where, args, err := f.Where()
	if err != nil {
		return nil, 0, err
	}

	q := r.db.WithContext(ctx).Model(&models.Product{})
	if where != "" {
		q = q.Where(where, args...)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	products := []models.Product{}
	err = q.Order("id DESC").Offset((f.Page - 1) * f.Limit).Limit(f.Limit).Find(&products).Error
	return products, total, err
}

// Find looks up a product by primary key.
func (r *ProductRepository) Find(ctx context.Context, id uint) (*models.Product, error) {
	defer metrics.ObserveDBQuery("products.find", time.Now())

	var p models.Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create persists a new product.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	defer metrics.ObserveDBQuery("products.create", time.Now())
	return r.db.WithContext(ctx).Create(p).Error
}

// Update writes only the given columns of product id, so columns set
// elsewhere meanwhile (image_url by the upload job) are left alone.
func (r *ProductRepository) Update(ctx context.Context, id uint, cols map[string]interface{}) error {
	defer metrics.ObserveDBQuery("products.update", time.Now())

	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetImageURL updates only the image reference.
func (r *ProductRepository) SetImageURL(ctx context.Context, id uint, url string) error {
	defer metrics.ObserveDBQuery("products.set_image", time.Now())

	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Update("image_url", url)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the product row.
func (r *ProductRepository) Delete(ctx context.Context, id uint) error {
	defer metrics.ObserveDBQuery("products.delete", time.Now())

	res := r.db.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
