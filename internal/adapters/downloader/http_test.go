package downloader

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	d := NewHTTPDownloader("test-agent")
	body, ct, err := d.Download(context.Background(), srv.URL+"/product.png")
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", ct)

	_, _, err = d.Download(context.Background(), srv.URL+"/missing.png")
	assert.ErrorContains(t, err, "404")

	_, _, err = d.Download(context.Background(), "data:image/png;base64,AAAA")
	assert.Error(t, err)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".png", Extension("image/png"))
	assert.Equal(t, ".webp", Extension("IMAGE/WEBP; charset=binary"))
	assert.Equal(t, ".jpg", Extension("image/jpeg"))
	assert.Equal(t, ".jpg", Extension(""))
}
