// Package controllers holds the HTTP handlers of the catalog API.
package controllers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/tagcatalog/app/repositories"
	"github.com/shashiranjanraj/tagcatalog/app/services"
	"github.com/shashiranjanraj/tagcatalog/internal/ocr"
	"github.com/shashiranjanraj/tagcatalog/internal/ratelist"
	"github.com/shashiranjanraj/tagcatalog/pkg/logger"
	"github.com/shashiranjanraj/tagcatalog/pkg/response"
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

func idParam(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func isImage(filename string) bool {
	return imageExts[strings.ToLower(filepath.Ext(filename))]
}

// fail maps service errors onto the response envelope.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		response.NotFound(w)
	case errors.Is(err, services.ErrInvalidPrice):
		response.ValidationError(w, map[string]string{"price": "The price field must be a number."})
	case errors.Is(err, ocr.ErrCorruptImage):
		response.ValidationError(w, map[string]string{"image": "The image could not be read."})
	case errors.Is(err, ratelist.ErrNoRows):
		response.ValidationError(w, map[string]string{"file": "The rate list has no readable rows."})
	default:
		logger.WithCtx(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		response.ServerError(w)
	}
}
