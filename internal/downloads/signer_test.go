package downloads

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"freetime_shop/internal/apperr"
	"freetime_shop/internal/config"
	"freetime_shop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func order() models.Order {
	aurora := models.Wallpaper{ID: "wp-aurora", Name: "Aurora", ObjectKey: "wallpapers/aurora.png"}
	grid := models.Wallpaper{ID: "wp-grid", Name: "Grid", ObjectKey: "wallpapers/grid.png"}
	return models.Order{
		ID: "o-1",
		Items: []models.CartItem{
			{Wallpaper: aurora, Quantity: 1},
			{Wallpaper: grid, Quantity: 2},
			{Wallpaper: aurora, Quantity: 1},
			{Wallpaper: models.Wallpaper{ID: "wp-preview-only"}, Quantity: 1},
		},
	}
}

func TestMinioLinks(t *testing.T) {
	signer, err := Connect(config.MinIO{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "wallpapers",
		Region:    "us-east-1",
		URLTTL:    time.Hour,
	})
	require.NoError(t, err)
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return now }

	links, err := signer.Links(context.Background(), order())
	require.NoError(t, err)
	require.Len(t, links, 2)

	assert.Equal(t, "wp-aurora", links[0].WallpaperID)
	assert.Equal(t, "wp-grid", links[1].WallpaperID)
	assert.Equal(t, now.Add(time.Hour), links[0].ExpiresAt)

	u, err := url.Parse(links[0].URL)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/wallpapers/wallpapers/aurora.png", u.Path)
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

type failingPresigner struct{}

func (failingPresigner) PresignedGetObject(context.Context, string, string, time.Duration, url.Values) (*url.URL, error) {
	return nil, errors.New("no credentials")
}

func TestLinksSigningError(t *testing.T) {
	signer := NewMinioSigner(failingPresigner{}, "wallpapers", time.Minute)
	_, err := signer.Links(context.Background(), order())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrExternalCapability)
	assert.True(t, strings.Contains(err.Error(), "wallpapers/aurora.png"))
}

func TestLinksEmptyOrder(t *testing.T) {
	signer := NewMinioSigner(failingPresigner{}, "wallpapers", time.Minute)
	links, err := signer.Links(context.Background(), models.Order{})
	require.NoError(t, err)
	assert.Empty(t, links)
}
