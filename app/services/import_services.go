package services

import (
	"context"
	"os"
	"path/filepath"

	"github.com/shashiranjanraj/tagcatalog/internal/catalog"
	"github.com/shashiranjanraj/tagcatalog/pkg/logger"
)

// Import creates one product per pipeline entry that has any field read off
// its tag and queues the entry's thumbnail as the product image. It
// satisfies catalog.Importer.
func (s *ProductService) Import(ctx context.Context, entries []catalog.Entry, outDir string) (int, error) {
	log := logger.WithCtx(ctx)
	created := 0

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		if e.Item.Fields.Empty() {
			log.Info("skipping image with no tag fields", "image", e.Image)
			continue
		}

		in := ProductInput{Article: e.Article, Colour: e.Colour, Size: e.Size, Pair: e.Pair}
		if e.Matched && e.Price.Valid {
			in.Price = e.Price.Decimal.StringFixed(2)
		}
		p, err := s.Create(ctx, in)
		if err != nil {
			return created, err
		}
		created++

		img := filepath.Join(outDir, filepath.FromSlash(e.Thumb))
		if _, err := os.Stat(img); err != nil {
			img = e.ImagePath
		}
		f, err := os.Open(img)
		if err != nil {
			log.Warn("image not queued", "product_id", p.ID, "image", e.Image, "error", err)
			continue
		}
		err = s.StageImage(ctx, p.ID, f, filepath.Base(img))
		f.Close()
		if err != nil {
			log.Warn("image not queued", "product_id", p.ID, "image", e.Image, "error", err)
		}
	}
	return created, nil
}

var _ catalog.Importer = (*ProductService)(nil)
