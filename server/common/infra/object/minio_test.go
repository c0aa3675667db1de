package object

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKeyLayout(t *testing.T) {
	at := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	key := ObjectKey("/shoutouts/", "Team Photo.PNG", at)

	assert.True(t, strings.HasPrefix(key, "shoutouts/2026/03/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)
	assert.NotEqual(t, key, ObjectKey("shoutouts", "Team Photo.PNG", at))
	assert.True(t, strings.HasPrefix(ObjectKey("", "a", at), "media/"))
}

func TestThumbnailKey(t *testing.T) {
	assert.Equal(t, "shoutouts/2026/03/abc_thumb.jpg", ThumbnailKey("shoutouts/2026/03/abc.png"))
}

func TestMakeThumbnailBoundsSize(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 800, 600))
	for x := 0; x < 800; x++ {
		src.Set(x, x%600, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	thumb, err := MakeThumbnail(buf.Bytes())
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, thumbnailWidth, img.Bounds().Dx())
	assert.Equal(t, thumbnailHeight, img.Bounds().Dy())
}

func TestMakeThumbnailRejectsNonImages(t *testing.T) {
	_, err := MakeThumbnail([]byte("not an image"))
	assert.Error(t, err)
}

func TestMediaStoreURLUsesPublicBase(t *testing.T) {
	store := NewMediaStore(nil, "bragboard", "https://cdn.example.com/media/")
	assert.Equal(t, "https://cdn.example.com/media/a/b.jpg", store.URL("/a/b.jpg"))
}
