package bind_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/tagcatalog/pkg/bind"
)

type createInput struct {
	Article string  `form:"article" validate:"required,min=3"`
	Price   *string `form:"price" validate:"nullable,numeric"`
}

type patchInput struct {
	Colour *string `json:"colour" validate:"nullable,max=10"`
}

func TestFormBindsMultipart(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("article", " sketch-7 "))
	require.NoError(t, mw.WriteField("price", "120"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var in createInput
	errs, err := bind.Form(httptest.NewRecorder(), req, &in)
	require.NoError(t, err)
	assert.Nil(t, errs)
	assert.Equal(t, "sketch-7", in.Article)
	require.NotNil(t, in.Price)
	assert.Equal(t, "120", *in.Price)
}

func TestFormValidation(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("article=ab"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var in createInput
	errs, err := bind.Form(httptest.NewRecorder(), req, &in)
	require.NoError(t, err)
	assert.Contains(t, errs, "article")
	assert.Nil(t, in.Price)
}

func TestJSONPartial(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"colour":"navy"}`))
	var in patchInput
	errs, err := bind.JSON(httptest.NewRecorder(), req, &in)
	require.NoError(t, err)
	assert.Nil(t, errs)
	require.NotNil(t, in.Colour)
	assert.Equal(t, "navy", *in.Colour)
}

func TestJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"id":9}`))
	var in patchInput
	_, err := bind.JSON(httptest.NewRecorder(), req, &in)
	assert.ErrorContains(t, err, "invalid JSON")
}
