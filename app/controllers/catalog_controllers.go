package controllers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/shashiranjanraj/tagcatalog/app/services"
	"github.com/shashiranjanraj/tagcatalog/pkg/bind"
	"github.com/shashiranjanraj/tagcatalog/pkg/response"
)

type CatalogController struct {
	service *services.CatalogService
}

func NewCatalogController(s *services.CatalogService) *CatalogController {
	return &CatalogController{service: s}
}

// Scan reads an uploaded tag photo and returns its fields and rate match.
func (c *CatalogController) Scan(w http.ResponseWriter, r *http.Request) {
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

	res, err := c.service.Scan(r.Context(), file, hdr.Filename)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, res)
}

// UploadRateList replaces the live rate list with the uploaded PDF.
func (c *CatalogController) UploadRateList(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, bind.MaxBodyBytes())
	file, hdr, err := r.FormFile("file")
	if err != nil {
		response.ValidationError(w, map[string]string{"file": "The file field is required."})
		return
	}
	defer file.Close()
	if !strings.EqualFold(filepath.Ext(hdr.Filename), ".pdf") {
		response.ValidationError(w, map[string]string{"file": "The file must be a PDF."})
		return
	}

	n, err := c.service.ReplaceRateList(r.Context(), file)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, map[string]int{"rows": n})
}

// MatchRate returns the best rate row for ?q=.
func (c *CatalogController) MatchRate(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		response.ValidationError(w, map[string]string{"q": "The q field is required."})
		return
	}
	response.Success(w, c.service.Match(q))
}
