package supabase

import (
	"context"
	"strings"

	"github.com/mohammeioi/Market-Management-sub000/internal/app/storage"
)

// imagesBucket is the public storage bucket holding product display images.
const imagesBucket = "product-images"

var _ storage.ImageStore = (*Store)(nil)

func imageExtension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}

func imageContentType(objectPath string) string {
	switch {
	case strings.HasSuffix(objectPath, ".jpg"):
		return "image/jpeg"
	case strings.HasSuffix(objectPath, ".png"):
		return "image/png"
	case strings.HasSuffix(objectPath, ".webp"):
		return "image/webp"
	case strings.HasSuffix(objectPath, ".gif"):
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

// UploadProductImage stores the image in the public bucket and records its
// public URL on the product row. Re-uploading under the same content type
// overwrites the previous object.
func (s *Store) UploadProductImage(ctx context.Context, productID string, data []byte, contentType string) (string, error) {
	bucket := s.client.Storage().From(imagesBucket)
	objectPath := productID + imageExtension(contentType)

	resp, err := bucket.Upload(ctx, objectPath, data, contentType)
	if err != nil {
		return "", err
	}
	if err := resp.Error(); err != nil {
		return "", err
	}

	url := bucket.GetPublicURL(objectPath)
	patch, err := s.client.From(productsTable).
		Eq("id", productID).
		ExecuteUpdate(ctx, map[string]any{"image": url})
	if err != nil {
		return "", err
	}
	if err := patch.Error(); err != nil {
		return "", err
	}
	return url, nil
}

// DownloadProductImage resolves the object path from the product's recorded
// image URL and fetches the bytes from the bucket.
func (s *Store) DownloadProductImage(ctx context.Context, productID string) ([]byte, string, error) {
	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, "", err
	}
	marker := "/" + imagesBucket + "/"
	idx := strings.LastIndex(p.Image, marker)
	if idx < 0 {
		return nil, "", storage.ErrNotFound
	}
	objectPath := p.Image[idx+len(marker):]

	data, err := s.client.Storage().From(imagesBucket).Download(ctx, objectPath)
	if err != nil {
		return nil, "", err
	}
	return data, imageContentType(objectPath), nil
}
