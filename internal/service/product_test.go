package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopreviews/internal/core/domain"
)

func TestExtractProductID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://shop.example.com/product/1005006543210987", "1005006543210987"},
		{"https://shop.example.com/item/1005006543210987.html?spm=a2g0o", "1005006543210987"},
		{"https://shop.example.com/12345/1005006543210987/reviews", "1005006543210987"},
		{"https://shop.example.com/c/12345678901/details", "12345678901"},
		{"  https://shop.example.com/p/123456789012345678  ", "123456789012345678"},
	}
	for _, tt := range tests {
		got, err := ExtractProductID(tt.url)
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.want, got, tt.url)
	}
}

func TestExtractProductID_Rejects(t *testing.T) {
	for _, raw := range []string{
		"",
		"not a url",
		"ftp://shop.example.com/product/1005006543210987",
		"https://shop.example.com/product/12345",
		"https://shop.example.com/search?q=1005006543210987",
		"https://shop.example.com/product/abc1005006543210987",
	} {
		_, err := ExtractProductID(raw)
		assert.ErrorIs(t, err, domain.ErrInvalidURL, raw)
	}
}
