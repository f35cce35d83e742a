package controllers_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/tagcatalog/app/controllers"
	"github.com/shashiranjanraj/tagcatalog/app/jobs"
	"github.com/shashiranjanraj/tagcatalog/app/models"
	"github.com/shashiranjanraj/tagcatalog/app/repositories"
	"github.com/shashiranjanraj/tagcatalog/app/routes"
	"github.com/shashiranjanraj/tagcatalog/app/services"
	"github.com/shashiranjanraj/tagcatalog/internal/ratelist"
	"github.com/shashiranjanraj/tagcatalog/pkg/auth"
	"github.com/shashiranjanraj/tagcatalog/pkg/event"
	"github.com/shashiranjanraj/tagcatalog/pkg/queue"
	"github.com/shashiranjanraj/tagcatalog/pkg/router"
	"github.com/shashiranjanraj/tagcatalog/pkg/storage"
	"github.com/shashiranjanraj/tagcatalog/pkg/testkit"
)

type fakeOCR struct{ text string }

func (f fakeOCR) Recognize(context.Context, string) (string, error) { return f.text, nil }

type fixture struct {
	h      http.Handler
	queue  *queue.Manager
	disk   *storage.LocalDisk
	events []string
	admin  string
	clerk  string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := testkit.DB(t, &models.User{}, &models.Product{})

	f := &fixture{
		queue: queue.New(queue.NewMemoryDriver()),
		disk:  storage.NewLocalDisk(t.TempDir(), "http://files.test"),
	}

	bus := event.New()
	bus.Listen(event.Wildcard, func(_ context.Context, e event.Event) { f.events = append(f.events, e.Name) })

	rates := ratelist.NewIndex([]ratelist.Row{
		{Page: 1, Cells: []string{"SKETCH-7", "Black", "450"}, Raw: "SKETCH-7 | Black | 450"},
		{Page: 1, Cells: []string{"RUNNER-04", "Tan", "1,250.00"}, Raw: "RUNNER-04 | Tan | 1,250.00"},
	})
	products := services.NewProductService(services.ProductDeps{
		Repo:      repositories.NewProductRepository(db),
		Rates:     rates,
		Threshold: 70,
		Bus:       bus,
		Queue:     f.queue,
		Staging:   f.disk,
		Images:    func() storage.Disk { return f.disk },
	})
	jobs.Register(f.queue, products)

	catalog := services.NewCatalogService(
		fakeOCR{text: "ARTICLE: sketch-7\nCOLOUR: black\nSIZE: 6x9\nPAIR: 12"}, rates, 70, f.disk)

	users := repositories.NewUserRepository(db)
	hash, err := auth.HashPassword("secret")
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, &models.User{Name: "Admin", Email: "admin@test.local", Password: hash, Role: auth.RoleAdmin}))
	require.NoError(t, users.Create(ctx, &models.User{Name: "Clerk", Email: "clerk@test.local", Password: hash, Role: "user"}))

	r := router.New()
	routes.RegisterAPI(r, routes.Handlers{
		Auth:    controllers.NewAuthController(services.NewAuthService(users)),
		Product: controllers.NewProductController(products),
		Catalog: controllers.NewCatalogController(catalog),
	})
	f.h = r.Handler()

	f.admin = f.login(t, "admin@test.local", "secret")
	f.clerk = f.login(t, "clerk@test.local", "secret")
	return f
}

func (f *fixture) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := testkit.Do(t, f.h, testkit.Request{
		Method:      http.MethodPost,
		Path:        "/api/login",
		Body:        testkit.JSONBody(t, map[string]string{"email": email, "password": password}),
		ContentType: "application/json",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tok services.Token
	testkit.Decode(t, rec, &tok)
	assert.Equal(t, "bearer", tok.TokenType)
	return tok.AccessToken
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := 0; x < 64; x++ {
		img.Set(x, 10, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (f *fixture) create(t *testing.T, fields map[string]string, files ...testkit.File) *httptestResult {
	t.Helper()
	body, ct := testkit.Multipart(t, fields, files...)
	rec := testkit.Do(t, f.h, testkit.Request{
		Method: http.MethodPost, Path: "/api/products", Body: body, ContentType: ct, Token: f.admin,
	})
	res := &httptestResult{code: rec.Code, body: rec.Body.String()}
	if rec.Code == http.StatusCreated {
		testkit.Decode(t, rec, &res.product)
	}
	return res
}

type httptestResult struct {
	code    int
	body    string
	product models.Product
}

var sketch = map[string]string{"article": "sketch-7", "colour": "black", "size": "6x9", "pair": "12"}

func TestLoginRejectsBadPassword(t *testing.T) {
	f := setup(t)
	rec := testkit.Do(t, f.h, testkit.Request{
		Method:      http.MethodPost,
		Path:        "/api/login",
		Body:        testkit.JSONBody(t, map[string]string{"email": "admin@test.local", "password": "nope"}),
		ContentType: "application/json",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginValidatesBody(t *testing.T) {
	f := setup(t)
	rec := testkit.Do(t, f.h, testkit.Request{
		Method:      http.MethodPost,
		Path:        "/api/login",
		Body:        testkit.JSONBody(t, map[string]string{"email": "not-an-email"}),
		ContentType: "application/json",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := testkit.Decode(t, rec, nil)
	assert.Contains(t, env.Errors, "email")
	assert.Contains(t, env.Errors, "password")
}

func TestWritesRequireAdmin(t *testing.T) {
	f := setup(t)
	body, ct := testkit.Multipart(t, sketch)

	rec := testkit.Do(t, f.h, testkit.Request{Method: http.MethodPost, Path: "/api/products", Body: body, ContentType: ct})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body, ct = testkit.Multipart(t, sketch)
	rec = testkit.Do(t, f.h, testkit.Request{Method: http.MethodPost, Path: "/api/products", Body: body, ContentType: ct, Token: f.clerk})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateFillsPriceFromRateList(t *testing.T) {
	f := setup(t)

	res := f.create(t, sketch)
	require.Equal(t, http.StatusCreated, res.code, res.body)
	assert.NotZero(t, res.product.ID)
	assert.Equal(t, "sketch-7", res.product.Article)
	require.True(t, res.product.Price.Valid)
	assert.Equal(t, "450.00", res.product.Price.Decimal.StringFixed(2))
	assert.Equal(t, []string{services.EventProductCreated}, f.events)
}

func TestCreateKeepsExplicitPrice(t *testing.T) {
	f := setup(t)
	fields := map[string]string{"article": "sketch-7", "colour": "black", "size": "6x9", "pair": "12", "price": "399.5"}

	res := f.create(t, fields)
	require.Equal(t, http.StatusCreated, res.code, res.body)
	assert.Equal(t, "399.50", res.product.Price.Decimal.StringFixed(2))
}

func TestCreateUnknownArticleHasNoPrice(t *testing.T) {
	f := setup(t)
	res := f.create(t, map[string]string{"article": "zzqqxx", "colour": "red", "size": "8x10", "pair": "6"})
	require.Equal(t, http.StatusCreated, res.code, res.body)
	assert.False(t, res.product.Price.Valid)
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)
	res := f.create(t, map[string]string{"article": "sketch-7", "price": "abc"})
	require.Equal(t, http.StatusUnprocessableEntity, res.code)
	for _, field := range []string{"colour", "size", "pair", "price"} {
		assert.Contains(t, res.body, `"`+field+`"`)
	}
}

func TestCreateRejectsNonImageUpload(t *testing.T) {
	f := setup(t)
	res := f.create(t, sketch, testkit.File{Field: "image", Name: "tag.gif", Data: []byte("GIF89a")})
	assert.Equal(t, http.StatusUnprocessableEntity, res.code)
	assert.Contains(t, res.body, `"image"`)
}

func TestCreateWithImageHostsItThroughTheQueue(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res := f.create(t, sketch, testkit.File{Field: "image", Name: "tag.png", Data: pngBytes(t)})
	require.Equal(t, http.StatusCreated, res.code, res.body)
	assert.Empty(t, res.product.ImageURL)

	staged, err := f.disk.Files(ctx, services.StagingDir)
	require.NoError(t, err)
	require.Len(t, staged, 1)

	assert.Equal(t, 1, f.queue.Drain(ctx))

	rec := testkit.Do(t, f.h, testkit.Request{Method: http.MethodGet, Path: "/api/products/1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var p models.Product
	testkit.Decode(t, rec, &p)
	assert.True(t, strings.HasPrefix(p.ImageURL, "http://files.test/products/1/"), p.ImageURL)
	assert.True(t, strings.HasSuffix(p.ImageURL, ".jpg"), p.ImageURL)

	staged, err = f.disk.Files(ctx, services.StagingDir)
	require.NoError(t, err)
	assert.Empty(t, staged)

	hosted, err := f.disk.Files(ctx, "products/1")
	require.NoError(t, err)
	assert.Len(t, hosted, 1)
	assert.Contains(t, f.events, services.EventProductImageReady)
}

func TestUploadImageReplacesPrevious(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	res := f.create(t, sketch)
	require.Equal(t, http.StatusCreated, res.code)

	for i := 0; i < 2; i++ {
		body, ct := testkit.Multipart(t, nil, testkit.File{Field: "image", Name: "tag.png", Data: pngBytes(t)})
		rec := testkit.Do(t, f.h, testkit.Request{
			Method: http.MethodPost, Path: "/api/products/1/image", Body: body, ContentType: ct, Token: f.admin,
		})
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
		assert.Equal(t, 1, f.queue.Drain(ctx))
	}

	hosted, err := f.disk.Files(ctx, "products/1")
	require.NoError(t, err)
	assert.Len(t, hosted, 1)
}

func TestUploadImageMissingProduct(t *testing.T) {
	f := setup(t)
	body, ct := testkit.Multipart(t, nil, testkit.File{Field: "image", Name: "tag.png", Data: pngBytes(t)})
	rec := testkit.Do(t, f.h, testkit.Request{
		Method: http.MethodPost, Path: "/api/products/99/image", Body: body, ContentType: ct, Token: f.admin,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShowMissingProduct(t *testing.T) {
	f := setup(t)
	for _, path := range []string{"/api/products/42", "/api/products/abc"} {
		rec := testkit.Do(t, f.h, testkit.Request{Method: http.MethodGet, Path: path})
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestIndexFiltersAndPaginates(t *testing.T) {
	f := setup(t)
	require.Equal(t, http.StatusCreated, f.create(t, sketch).code)
	require.Equal(t, http.StatusCreated, f.create(t, map[string]string{"article": "runner-04", "colour": "tan", "size": "7x10", "pair": "8"}).code)
	require.Equal(t, http.StatusCreated, f.create(t, map[string]string{"article": "sketch-9", "colour": "Black", "size": "7x10", "pair": "8"}).code)

	var page struct {
		Items      []models.Product `json:"items"`
		Pagination struct {
			Page     int   `json:"page"`
			Limit    int   `json:"limit"`
			Total    int64 `json:"total"`
			LastPage int   `json:"last_page"`
		} `json:"pagination"`
	}

	rec := testkit.Do(t, f.h, testkit.Request{Method: http.MethodGet, Path: "/api/products?colour=BLACK"})
	require.Equal(t, http.StatusOK, rec.Code)
	testkit.Decode(t, rec, &page)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "sketch-9", page.Items[0].Article)
	assert.EqualValues(t, 2, page.Pagination.Total)

	rec = testkit.Do(t, f.h, testkit.Request{Method: http.MethodGet, Path: "/api/products?q=7x10&limit=1&page=2"})
	require.Equal(t, http.StatusOK, rec.Code)
	testkit.Decode(t, rec, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "runner-04", page.Items[0].Article)
	assert.Equal(t, 2, page.Pagination.LastPage)
}

func TestPartialUpdate(t *testing.T) {
	f := setup(t)
	require.Equal(t, http.StatusCreated, f.create(t, sketch).code)

	rec := testkit.Do(t, f.h, testkit.Request{
		Method:      http.MethodPatch,
		Path:        "/api/products/1",
		Body:        testkit.JSONBody(t, map[string]string{"colour": "white"}),
		ContentType: "application/json",
		Token:       f.admin,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var p models.Product
	testkit.Decode(t, rec, &p)
	assert.Equal(t, "white", p.Colour)
	assert.Equal(t, "sketch-7", p.Article)
	assert.Equal(t, "12", p.Pair)
	assert.True(t, p.Price.Valid)

	rec = testkit.Do(t, f.h, testkit.Request{
		Method:      http.MethodPut,
		Path:        "/api/products/1",
		Body:        testkit.JSONBody(t, map[string]string{"price": ""}),
		ContentType: "application/json",
		Token:       f.admin,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	testkit.Decode(t, rec, &p)
	assert.False(t, p.Price.Valid)
	assert.Equal(t, "white", p.Colour)
}

func TestUpdateRejectsBadInput(t *testing.T) {
	f := setup(t)
	require.Equal(t, http.StatusCreated, f.create(t, sketch).code)

	rec := testkit.Do(t, f.h, testkit.Request{
		Method:      http.MethodPatch,
		Path:        "/api/products/1",
		Body:        testkit.JSONBody(t, map[string]string{"price": "-3"}),
		ContentType: "application/json",
		Token:       f.admin,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = testkit.Do(t, f.h, testkit.Request{
		Method:      http.MethodPatch,
		Path:        "/api/products/1",
		Body:        testkit.JSONBody(t, map[string]string{"nickname": "x"}),
		ContentType: "application/json",
		Token:       f.admin,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = testkit.Do(t, f.h, testkit.Request{
		Method:      http.MethodPatch,
		Path:        "/api/products/7",
		Body:        testkit.JSONBody(t, map[string]string{"colour": "x"}),
		ContentType: "application/json",
		Token:       f.admin,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDestroyRemovesProductAndImages(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	res := f.create(t, sketch, testkit.File{Field: "image", Name: "tag.png", Data: pngBytes(t)})
	require.Equal(t, http.StatusCreated, res.code)
	require.Equal(t, 1, f.queue.Drain(ctx))

	rec := testkit.Do(t, f.h, testkit.Request{Method: http.MethodDelete, Path: "/api/products/1", Token: f.admin})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = testkit.Do(t, f.h, testkit.Request{Method: http.MethodGet, Path: "/api/products/1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	hosted, err := f.disk.Files(ctx, "products/1")
	require.NoError(t, err)
	assert.Empty(t, hosted)

	rec = testkit.Do(t, f.h, testkit.Request{Method: http.MethodDelete, Path: "/api/products/1", Token: f.admin})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScanReturnsFieldsAndMatch(t *testing.T) {
	f := setup(t)
	body, ct := testkit.Multipart(t, nil, testkit.File{Field: "image", Name: "tag.jpg", Data: []byte("jpeg bytes")})
	rec := testkit.Do(t, f.h, testkit.Request{
		Method: http.MethodPost, Path: "/api/catalog/scan", Body: body, ContentType: ct, Token: f.admin,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res services.ScanResult
	testkit.Decode(t, rec, &res)
	assert.Equal(t, "sketch-7", res.Fields.Article)
	assert.Equal(t, "black", res.Fields.Colour)
	assert.Equal(t, "6x9", res.Fields.Size)
	assert.Equal(t, "12", res.Fields.Pair)
	assert.True(t, res.Match.Matched)
	require.NotNil(t, res.Match.Row)
	assert.Equal(t, "SKETCH-7 | Black | 450", res.Match.Row.Raw)
}

func TestScanRequiresImage(t *testing.T) {
	f := setup(t)
	body, ct := testkit.Multipart(t, map[string]string{"note": "x"})
	rec := testkit.Do(t, f.h, testkit.Request{
		Method: http.MethodPost, Path: "/api/catalog/scan", Body: body, ContentType: ct, Token: f.admin,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMatchRate(t *testing.T) {
	f := setup(t)

	rec := testkit.Do(t, f.h, testkit.Request{Method: http.MethodGet, Path: "/api/ratelist/match?q=runner-04"})
	require.Equal(t, http.StatusOK, rec.Code)
	var m ratelist.Match
	testkit.Decode(t, rec, &m)
	assert.True(t, m.Matched)
	require.True(t, m.Price.Valid)
	assert.Equal(t, "1250", m.Price.Decimal.String())

	rec = testkit.Do(t, f.h, testkit.Request{Method: http.MethodGet, Path: "/api/ratelist/match"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUploadRateListRejectsNonPDF(t *testing.T) {
	f := setup(t)
	body, ct := testkit.Multipart(t, nil, testkit.File{Field: "file", Name: "rates.txt", Data: []byte("x")})
	rec := testkit.Do(t, f.h, testkit.Request{
		Method: http.MethodPost, Path: "/api/ratelist", Body: body, ContentType: ct, Token: f.admin,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUploadRateListReplacesLiveIndex(t *testing.T) {
	f := setup(t)
	pdf, err := os.ReadFile(filepath.Join("..", "..", "internal", "ratelist", "testdata", "ratelist.pdf"))
	require.NoError(t, err)

	body, ct := testkit.Multipart(t, nil, testkit.File{Field: "file", Name: "Rates.PDF", Data: pdf})
	rec := testkit.Do(t, f.h, testkit.Request{
		Method: http.MethodPost, Path: "/api/ratelist", Body: body, ContentType: ct, Token: f.admin,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]int
	testkit.Decode(t, rec, &out)
	assert.Equal(t, 4, out["rows"])

	rec = testkit.Do(t, f.h, testkit.Request{Method: http.MethodGet, Path: "/api/ratelist/match?q=loafer-9"})
	require.Equal(t, http.StatusOK, rec.Code)
	var m ratelist.Match
	testkit.Decode(t, rec, &m)
	assert.True(t, m.Matched)
	assert.Equal(t, "799", m.Price.Decimal.String())

	assert.FileExists(t, filepath.Join(f.disk.Root(), "ratelist", "current.pdf"))
}
