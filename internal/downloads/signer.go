// Package downloads hands out time-limited links to the full-resolution
// files of purchased wallpapers.
package downloads

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"freetime_shop/internal/apperr"
	"freetime_shop/internal/config"
	"freetime_shop/internal/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Link struct {
	WallpaperID string    `json:"wallpaper_id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Signer produces download links for every wallpaper of an order.
type Signer interface {
	Links(ctx context.Context, order models.Order) ([]Link, error)
}

// Presigner is the subset of *minio.Client used to sign GET requests.
type Presigner interface {
	PresignedGetObject(ctx context.Context, bucket, object string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

type MinioSigner struct {
	client Presigner
	bucket string
	ttl    time.Duration
	now    func() time.Time
}

func NewMinioSigner(client Presigner, bucket string, ttl time.Duration) *MinioSigner {
	return &MinioSigner{client: client, bucket: bucket, ttl: ttl, now: time.Now}
}

// Connect builds a MinioSigner for cfg. The region is set explicitly so
// signing never has to look up the bucket location.
func Connect(cfg config.MinIO) (*MinioSigner, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("downloads: minio client for %s: %w", cfg.Endpoint, err)
	}
	return NewMinioSigner(client, cfg.Bucket, cfg.URLTTL), nil
}

// Links signs one URL per distinct wallpaper in the order, in order of
// appearance. Wallpapers without a stored file are skipped.
func (s *MinioSigner) Links(ctx context.Context, order models.Order) ([]Link, error) {
	expires := s.now().Add(s.ttl)
	seen := make(map[string]bool, len(order.Items))
	links := make([]Link, 0, len(order.Items))
	for _, item := range order.Items {
		w := item.Wallpaper
		if seen[w.ID] || w.ObjectKey == "" {
			continue
		}
		seen[w.ID] = true

		u, err := s.client.PresignedGetObject(ctx, s.bucket, w.ObjectKey, s.ttl, url.Values{})
		if err != nil {
			return nil, apperr.External("downloads.Links", fmt.Errorf("sign %s: %w", w.ObjectKey, err))
		}
		links = append(links, Link{WallpaperID: w.ID, Name: w.Name, URL: u.String(), ExpiresAt: expires})
	}
	return links, nil
}
