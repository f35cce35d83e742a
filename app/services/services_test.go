package services_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/tagcatalog/app/jobs"
	"github.com/shashiranjanraj/tagcatalog/app/models"
	"github.com/shashiranjanraj/tagcatalog/app/repositories"
	"github.com/shashiranjanraj/tagcatalog/app/services"
	"github.com/shashiranjanraj/tagcatalog/internal/catalog"
	"github.com/shashiranjanraj/tagcatalog/internal/ratelist"
	"github.com/shashiranjanraj/tagcatalog/pkg/event"
	"github.com/shashiranjanraj/tagcatalog/pkg/queue"
	"github.com/shashiranjanraj/tagcatalog/pkg/storage"
	"github.com/shashiranjanraj/tagcatalog/pkg/testkit"
)

func newProducts(t *testing.T) (*services.ProductService, *queue.Manager, *storage.LocalDisk) {
	t.Helper()
	db := testkit.DB(t, &models.Product{})
	q := queue.New(queue.NewMemoryDriver())
	q.SetBackoff(func(int) time.Duration { return 0 })
	disk := storage.NewLocalDisk(t.TempDir(), "http://files.test")

	svc := services.NewProductService(services.ProductDeps{
		Repo:      repositories.NewProductRepository(db),
		Threshold: 70,
		Bus:       event.New(),
		Queue:     q,
		Staging:   disk,
		Images:    func() storage.Disk { return disk },
	})
	jobs.Register(q, svc)
	return svc, q, disk
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 30, 20))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestImportCreatesProductsAndQueuesThumbnails(t *testing.T) {
	svc, q, disk := newProducts(t)
	ctx := context.Background()
	out := t.TempDir()
	writePNG(t, filepath.Join(out, "thumbs", "a.png"))

	entries := []catalog.Entry{
		{Item: catalog.Item{Image: "a.png", Thumb: "thumbs/a.png"}},
		{Item: catalog.Item{Image: "blank.png", Thumb: "thumbs/blank.png"}},
	}
	entries[0].Article = "sketch-7"
	entries[0].Colour = "black"
	entries[0].Size = "6x9"
	entries[0].Pair = "12"
	entries[0].Match = ratelist.Match{Matched: true, Score: 90}
	entries[0].Price.Decimal, entries[0].Price.Valid = mustDecimal(t, "450"), true

	n, err := svc.Import(ctx, entries, out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, q.Drain(ctx))

	page, err := svc.List(ctx, repositories.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	p := page.Items[0]
	assert.Equal(t, "sketch-7", p.Article)
	assert.Equal(t, "450.00", p.Price.Decimal.StringFixed(2))
	assert.True(t, strings.HasPrefix(p.ImageURL, "http://files.test/products/"), p.ImageURL)

	staged, err := disk.Files(ctx, services.StagingDir)
	require.NoError(t, err)
	assert.Empty(t, staged)
}

func TestProcessStagedImageDropsGarbage(t *testing.T) {
	svc, _, disk := newProducts(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, services.ProductInput{Article: "sketch-7", Colour: "black", Size: "6x9", Pair: "12"})
	require.NoError(t, err)

	require.NoError(t, disk.Put(ctx, "staging/bad.jpg", strings.NewReader("not an image"), ""))
	require.NoError(t, svc.ProcessStagedImage(ctx, p.ID, "staging/bad.jpg"))

	ok, err := disk.Exists(ctx, "staging/bad.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := svc.Find(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ImageURL)
}

func TestUpdateKeepsImageURLSetMeanwhile(t *testing.T) {
	db := testkit.DB(t, &models.Product{})
	repo := repositories.NewProductRepository(db)
	svc := services.NewProductService(services.ProductDeps{
		Repo:    repo,
		Bus:     event.New(),
		Queue:   queue.New(queue.NewMemoryDriver()),
		Staging: storage.NewLocalDisk(t.TempDir(), "http://files.test"),
	})
	ctx := context.Background()

	p, err := svc.Create(ctx, services.ProductInput{Article: "sketch-7", Colour: "black", Size: "6x9", Pair: "12"})
	require.NoError(t, err)

	// The upload job lands its URL while the patch is in flight.
	hosted := false
	require.NoError(t, db.Callback().Update().Before("gorm:begin_transaction").Register("test:image_hosted", func(*gorm.DB) {
		if hosted {
			return
		}
		hosted = true
		require.NoError(t, repo.SetImageURL(ctx, p.ID, "https://cdn.test/x.jpg"))
	}))

	price := "99"
	got, err := svc.Update(ctx, p.ID, services.ProductPatch{Price: &price})
	require.NoError(t, err)
	require.True(t, hosted)
	assert.Equal(t, "https://cdn.test/x.jpg", got.ImageURL)
	assert.Equal(t, "99.00", got.Price.Decimal.StringFixed(2))
	assert.Equal(t, "sketch-7", got.Article)

	stored, err := repo.Find(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/x.jpg", stored.ImageURL)
}

func TestUpdateMissingProduct(t *testing.T) {
	svc, _, _ := newProducts(t)
	colour := "tan"
	_, err := svc.Update(context.Background(), 42, services.ProductPatch{Colour: &colour})
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestCreateRejectsNegativePrice(t *testing.T) {
	svc, _, _ := newProducts(t)
	_, err := svc.Create(context.Background(), services.ProductInput{
		Article: "sketch-7", Colour: "black", Size: "6x9", Pair: "12", Price: "-1",
	})
	assert.ErrorIs(t, err, services.ErrInvalidPrice)
}

func TestSweepStagingRemovesOldUploads(t *testing.T) {
	svc, _, disk := newProducts(t)
	ctx := context.Background()

	require.NoError(t, disk.Put(ctx, "staging/old.jpg", strings.NewReader("x"), ""))
	require.NoError(t, disk.Put(ctx, "staging/new.jpg", strings.NewReader("x"), ""))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(disk.Root(), "staging", "old.jpg"), old, old))

	assert.Equal(t, 1, svc.SweepStaging(ctx, 24*time.Hour))

	left, err := disk.Files(ctx, services.StagingDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"staging/new.jpg"}, left)
}

func TestLoadRateListWithoutSourceIsNoop(t *testing.T) {
	disk := storage.NewLocalDisk(t.TempDir(), "")
	ix := ratelist.NewIndex(nil)
	svc := services.NewCatalogService(nil, ix, 70, disk)

	require.NoError(t, svc.LoadRateList(context.Background(), ""))
	assert.Equal(t, 0, ix.Len())

	err := svc.LoadRateList(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func fixturePDF(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "internal", "ratelist", "testdata", name))
	require.NoError(t, err)
	return data
}

func TestReplaceRateListKeepsCopyForNextBoot(t *testing.T) {
	disk := storage.NewLocalDisk(t.TempDir(), "")
	ctx := context.Background()

	live := services.NewCatalogService(nil, ratelist.NewIndex(nil), 70, disk)
	n, err := live.ReplaceRateList(ctx, bytes.NewReader(fixturePDF(t, "ratelist.pdf")))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, live.Rates().Len())
	assert.True(t, live.Match("loafer-9").Matched)

	rebooted := services.NewCatalogService(nil, ratelist.NewIndex(nil), 70, disk)
	require.NoError(t, rebooted.LoadRateList(ctx, ""))
	assert.Equal(t, 4, rebooted.Rates().Len())
}

func TestReplaceRateListKeepsIndexOnBadUpload(t *testing.T) {
	disk := storage.NewLocalDisk(t.TempDir(), "")
	ix := ratelist.NewIndex([]ratelist.Row{{Cells: []string{"SKETCH-7", "450"}, Raw: "SKETCH-7 | 450"}})
	svc := services.NewCatalogService(nil, ix, 70, disk)

	_, err := svc.ReplaceRateList(context.Background(), strings.NewReader("not a pdf"))
	require.Error(t, err)
	assert.Equal(t, 1, ix.Len())
	assert.NoFileExists(t, filepath.Join(disk.Root(), "ratelist", "current.pdf"))
}

func TestReloadIfChangedSwapsIndex(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rates.pdf")
	require.NoError(t, os.WriteFile(path, fixturePDF(t, "header_only.pdf"), 0o644))

	ix := ratelist.NewIndex(nil)
	svc := services.NewCatalogService(nil, ix, 70, nil)
	require.NoError(t, svc.LoadRateList(ctx, path))
	require.Equal(t, 1, ix.Len())

	require.NoError(t, svc.ReloadIfChanged(ctx, path))
	assert.Equal(t, 1, ix.Len())

	require.NoError(t, os.WriteFile(path, fixturePDF(t, "ratelist.pdf"), 0o644))
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))

	require.NoError(t, svc.ReloadIfChanged(ctx, path))
	assert.Equal(t, 4, ix.Len())
	assert.Equal(t, path, ix.Source())
}
