// Package jobs holds the background jobs the catalog pushes onto the queue.
package jobs

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/tagcatalog/pkg/queue"
)

// UploadImageType is the queue name of UploadImage.
const UploadImageType = "upload_image"

// ImageProcessor moves a staged upload onto the image disk and records its
// URL on the product.
type ImageProcessor interface {
	ProcessStagedImage(ctx context.Context, productID uint, stagedPath string) error
}

// UploadImage hosts one staged product photo.
type UploadImage struct {
	ProductID  uint   `json:"product_id"`
	StagedPath string `json:"staged_path"`

	proc ImageProcessor
}

func (j *UploadImage) Type() string { return UploadImageType }

func (j *UploadImage) Handle(ctx context.Context) error {
	if j.proc == nil {
		return fmt.Errorf("jobs: %s: no image processor registered", UploadImageType)
	}
	return j.proc.ProcessStagedImage(ctx, j.ProductID, j.StagedPath)
}

// Register teaches m how to rebuild UploadImage jobs that run through proc.
func Register(m *queue.Manager, proc ImageProcessor) {
	m.Register(UploadImageType, func() queue.Job { return &UploadImage{proc: proc} })
}
