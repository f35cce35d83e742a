package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/tagcatalog/app/jobs"
	"github.com/shashiranjanraj/tagcatalog/app/models"
	"github.com/shashiranjanraj/tagcatalog/app/repositories"
	"github.com/shashiranjanraj/tagcatalog/internal/imaging"
	"github.com/shashiranjanraj/tagcatalog/internal/ratelist"
	"github.com/shashiranjanraj/tagcatalog/pkg/cache"
	"github.com/shashiranjanraj/tagcatalog/pkg/event"
	"github.com/shashiranjanraj/tagcatalog/pkg/logger"
	"github.com/shashiranjanraj/tagcatalog/pkg/queue"
	"github.com/shashiranjanraj/tagcatalog/pkg/storage"
)

const (
	EventProductCreated    = "product.created"
	EventProductUpdated    = "product.updated"
	EventProductDeleted    = "product.deleted"
	EventProductImageReady = "product.image_ready"

	listVersionKey = "products:list:version"
	listCacheTTL   = 5 * time.Minute

	StagingDir = "staging"
)

// ErrInvalidPrice is returned for a price that is not a non-negative number.
var ErrInvalidPrice = errors.New("services: invalid price")

// ProductInput is the create form.
type ProductInput struct {
	Article string `form:"article" validate:"required,max=255"`
	Colour  string `form:"colour"  validate:"required,max=255"`
	Size    string `form:"size"    validate:"required,max=255"`
	Pair    string `form:"pair"    validate:"required,max=64"`
	Price   string `form:"price"   validate:"nullable,numeric,gte=0"`
}

// ProductPatch is a partial update; nil fields are left untouched.
type ProductPatch struct {
	Article  *string `json:"article"   validate:"nullable,max=255"`
	Colour   *string `json:"colour"    validate:"nullable,max=255"`
	Size     *string `json:"size"      validate:"nullable,max=255"`
	Pair     *string `json:"pair"      validate:"nullable,max=64"`
	Price    *string `json:"price"     validate:"nullable,numeric,gte=0"`
	ImageURL *string `json:"image_url" validate:"nullable,max=1024"`
}

// ProductPage is one page of a listing.
type ProductPage struct {
	Items []models.Product `json:"items"`
	Total int64            `json:"total"`
}

// ProductService implements the catalog operations on products.
type ProductService struct {
	repo      *repositories.ProductRepository
	rates     *ratelist.Index
	threshold float64
	bus       *event.Bus
	queue     *queue.Manager
	staging   storage.Disk
	images    func() storage.Disk
}

// ProductDeps wires a ProductService. Images defaults to storage.Default.
type ProductDeps struct {
	Repo      *repositories.ProductRepository
	Rates     *ratelist.Index
	Threshold float64
	Bus       *event.Bus
	Queue     *queue.Manager
	Staging   storage.Disk
	Images    func() storage.Disk
}

func NewProductService(d ProductDeps) *ProductService {
	if d.Images == nil {
		d.Images = storage.Default
	}
	if d.Bus == nil {
		d.Bus = event.Default()
	}
	if d.Queue == nil {
		d.Queue = queue.Default()
	}
	if d.Rates == nil {
		d.Rates = ratelist.NewIndex(nil)
	}
	return &ProductService{
		repo:      d.Repo,
		rates:     d.Rates,
		threshold: d.Threshold,
		bus:       d.Bus,
		queue:     d.Queue,
		staging:   d.Staging,
		images:    d.Images,
	}
}

// List returns a filtered page of products. Pages are cached until the next
// write.
func (s *ProductService) List(ctx context.Context, f repositories.ProductFilter) (ProductPage, error) {
	f.Normalize()
	key := fmt.Sprintf("products:list:v%d:%s|%s|%s|%s|%d|%d",
		cache.Version(ctx, listVersionKey), f.Article, f.Colour, f.Size, f.Q, f.Page, f.Limit)

	return cache.Remember(ctx, key, listCacheTTL, func() (ProductPage, error) {
		items, total, err := s.repo.List(ctx, f)
		return ProductPage{Items: items, Total: total}, err
	})
}

func (s *ProductService) Find(ctx context.Context, id uint) (*models.Product, error) {
	return s.repo.Find(ctx, id)
}

// Create stores a new product. Without an explicit price the live rate list
// is consulted with the article code.
func (s *ProductService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	p := &models.Product{
		Article: strings.TrimSpace(in.Article),
		Colour:  strings.TrimSpace(in.Colour),
		Size:    strings.TrimSpace(in.Size),
		Pair:    strings.TrimSpace(in.Pair),
	}

	price, err := parsePrice(in.Price)
	if err != nil {
		return nil, err
	}
	if !price.Valid {
		price = s.ratePrice(p.Article)
	}
	p.Price = price

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("services: create product: %w", err)
	}

	s.changed(ctx, EventProductCreated, p)
	return p, nil
}

// Update applies patch to the product. Only the patched columns are
// written.
func (s *ProductService) Update(ctx context.Context, id uint, patch ProductPatch) (*models.Product, error) {
	cols := map[string]interface{}{}
	for _, f := range [...]struct {
		col string
		v   *string
	}{
		{"article", patch.Article},
		{"colour", patch.Colour},
		{"size", patch.Size},
		{"pair", patch.Pair},
		{"image_url", patch.ImageURL},
	} {
		if f.v != nil {
			cols[f.col] = strings.TrimSpace(*f.v)
		}
	}
	if patch.Price != nil {
		price, err := parsePrice(*patch.Price)
		if err != nil {
			return nil, err
		}
		cols["price"] = price
	}

	if len(cols) > 0 {
		if err := s.repo.Update(ctx, id, cols); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("services: update product %d: %w", id, err)
		}
	}

	p, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, EventProductUpdated, p)
	return p, nil
}

// Delete removes the product and, best effort, its hosted images.
func (s *ProductService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.removeImages(ctx, id, "")
	s.changed(ctx, EventProductDeleted, map[string]uint{"id": id})
	return nil
}

// StageImage keeps an uploaded photo on the staging disk and queues it for
// hosting.
func (s *ProductService) StageImage(ctx context.Context, id uint, r io.Reader, filename string) error {
	if _, err := s.repo.Find(ctx, id); err != nil {
		return err
	}

	staged := path.Join(StagingDir, uuid.NewString()+strings.ToLower(path.Ext(filename)))
	if err := s.staging.Put(ctx, staged, r, ""); err != nil {
		return fmt.Errorf("services: stage image: %w", err)
	}

	if err := s.queue.Dispatch(ctx, &jobs.UploadImage{ProductID: id, StagedPath: staged}); err != nil {
		_ = s.staging.Delete(ctx, staged)
		return fmt.Errorf("services: queue image: %w", err)
	}
	return nil
}

// ProcessStagedImage normalises a staged upload, stores it on the image disk
// and records its URL. It runs on a queue worker.
func (s *ProductService) ProcessStagedImage(ctx context.Context, id uint, staged string) error {
	log := logger.WithCtx(ctx).With("product_id", id, "staged", staged)

	rc, err := s.staging.Get(ctx, staged)
	if errors.Is(err, storage.ErrNotFound) {
		log.Warn("staged image vanished; dropping job")
		return nil
	}
	if err != nil {
		return err
	}
	data, err := imaging.Normalize(rc)
	rc.Close()
	if err != nil {
		log.Warn("staged image is not a usable picture; dropping job", "error", err)
		_ = s.staging.Delete(ctx, staged)
		return nil
	}

	disk := s.images()
	key := fmt.Sprintf("products/%d/%s.jpg", id, uuid.NewString())
	if err := disk.Put(ctx, key, bytes.NewReader(data), "image/jpeg"); err != nil {
		return fmt.Errorf("services: host image: %w", err)
	}

	url := disk.URL(key)
	if err := s.repo.SetImageURL(ctx, id, url); err != nil {
		_ = disk.Delete(ctx, key)
		if errors.Is(err, repositories.ErrNotFound) {
			log.Info("product deleted before its image was hosted")
			_ = s.staging.Delete(ctx, staged)
			return nil
		}
		return err
	}

	if err := s.staging.Delete(ctx, staged); err != nil {
		log.Warn("staged image cleanup failed", "error", err)
	}
	s.removeImages(ctx, id, key)

	p, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil
	}
	log.Info("product image hosted", "url", url)
	s.changed(ctx, EventProductImageReady, p)
	return nil
}

// SweepStaging deletes staged uploads on a local staging disk that are older
// than maxAge, which happens when their job failed for good.
func (s *ProductService) SweepStaging(ctx context.Context, maxAge time.Duration) int {
	local, ok := s.staging.(*storage.LocalDisk)
	if !ok {
		return 0
	}
	files, err := local.Files(ctx, StagingDir)
	if err != nil {
		logger.WithCtx(ctx).Warn("staging sweep failed", "error", err)
		return 0
	}

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, f := range files {
		info, err := os.Stat(filepath.Join(local.Root(), filepath.FromSlash(f)))
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := local.Delete(ctx, f); err == nil {
			removed++
		}
	}
	return removed
}

func (s *ProductService) ratePrice(article string) decimal.NullDecimal {
	if article == "" || s.rates.Len() == 0 {
		return decimal.NullDecimal{}
	}
	m := s.rates.Match(article, s.threshold)
	if !m.Matched {
		return decimal.NullDecimal{}
	}
	return m.Price
}

// removeImages deletes every hosted image of product id except keep.
func (s *ProductService) removeImages(ctx context.Context, id uint, keep string) {
	disk := s.images()
	prefix := fmt.Sprintf("products/%d", id)
	files, err := disk.Files(ctx, prefix)
	if err != nil {
		logger.WithCtx(ctx).Warn("list product images failed", "product_id", id, "error", err)
		return
	}
	for _, f := range files {
		if f == keep {
			continue
		}
		if err := disk.Delete(ctx, f); err != nil && !errors.Is(err, storage.ErrNotFound) {
			logger.WithCtx(ctx).Warn("delete product image failed", "path", f, "error", err)
		}
	}
}

// changed invalidates cached listings and announces the change.
func (s *ProductService) changed(ctx context.Context, name string, payload interface{}) {
	if err := cache.Bump(ctx, listVersionKey); err != nil {
		logger.WithCtx(ctx).Warn("cache bump failed", "error", err)
	}
	s.bus.Fire(ctx, name, payload)
}

func parsePrice(raw string) (decimal.NullDecimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}
	return decimal.NullDecimal{Decimal: d.Round(2), Valid: true}, nil
}
