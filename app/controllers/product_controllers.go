package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/shashiranjanraj/tagcatalog/app/repositories"
	"github.com/shashiranjanraj/tagcatalog/app/services"
	"github.com/shashiranjanraj/tagcatalog/pkg/bind"
	"github.com/shashiranjanraj/tagcatalog/pkg/logger"
	"github.com/shashiranjanraj/tagcatalog/pkg/response"
)

type ProductController struct {
	service *services.ProductService
}

func NewProductController(s *services.ProductService) *ProductController {
	return &ProductController{service: s}
}

// Index lists products. Query: article, colour, size, q, page, limit.
func (c *ProductController) Index(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	f := repositories.ProductFilter{
		Article: q.Get("article"),
		Colour:  q.Get("colour"),
		Size:    q.Get("size"),
		Q:       q.Get("q"),
		Page:    page,
		Limit:   limit,
	}
	f.Normalize()

	result, err := c.service.List(r.Context(), f)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Paginated(w, result.Items, response.NewPagination(f.Page, f.Limit, result.Total))
}

func (c *ProductController) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.NotFound(w)
		return
	}
	p, err := c.service.Find(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, p)
}

// Store creates a product from a multipart form. An optional "image" file
// is queued for hosting.
func (c *ProductController) Store(w http.ResponseWriter, r *http.Request) {
	var in services.ProductInput
	errs, err := bind.Form(w, r, &in)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	file, hdr, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		file = nil
	case err != nil:
		response.BadRequest(w, "invalid image upload")
		return
	case !isImage(hdr.Filename):
		file.Close()
		response.ValidationError(w, map[string]string{"image": "The image must be a jpg or png file."})
		return
	}

	p, err := c.service.Create(r.Context(), in)
	if err != nil {
		if file != nil {
			file.Close()
		}
		fail(w, r, err)
		return
	}

	if file != nil {
		defer file.Close()
		if err := c.service.StageImage(r.Context(), p.ID, file, hdr.Filename); err != nil {
			logger.WithCtx(r.Context()).Warn("product image not queued", "product_id", p.ID, "error", err)
		}
	}

	response.Created(w, p)
}

// Update applies a partial JSON update. Absent fields are left untouched.
func (c *ProductController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.NotFound(w)
		return
	}

	var patch services.ProductPatch
	errs, err := bind.JSON(w, r, &patch)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	p, err := c.service.Update(r.Context(), id, patch)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, p)
}

func (c *ProductController) Destroy(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.NotFound(w)
		return
	}
	if err := c.service.Delete(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	response.Message(w, "Product deleted")
}

// UploadImage queues a new photo for the product and answers 202.
func (c *ProductController) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.NotFound(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, bind.MaxBodyBytes())
	file, hdr, err := r.FormFile("image")
	if err != nil {
		response.ValidationError(w, map[string]string{"image": "The image field is required."})
		return
	}
	defer file.Close()
	if !isImage(hdr.Filename) {
		response.ValidationError(w, map[string]string{"image": "The image must be a jpg or png file."})
		return
	}

	if err := c.service.StageImage(r.Context(), id, file, hdr.Filename); err != nil {
		fail(w, r, err)
		return
	}
	response.Accepted(w, "Image queued", map[string]uint{"id": id})
}
