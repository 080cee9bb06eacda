package service

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"shopreviews/internal/core/domain"
)

var (
	productIDPattern = regexp.MustCompile(`^\d{15,20}$`)
	longDigits       = regexp.MustCompile(`^\d{11,}$`)
)

// ExtractProductID finds the product identifier in a product page URL: a path
// segment of 15 to 20 digits, or failing that any all-digit segment longer than
// 10 digits. A trailing file extension on a segment is ignored.
func ExtractProductID(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidURL, raw)
	}

	var segments []string
	for _, s := range strings.Split(u.Path, "/") {
		if s == "" {
			continue
		}
		segments = append(segments, strings.TrimSuffix(s, path.Ext(s)))
	}
	for _, s := range segments {
		if productIDPattern.MatchString(s) {
			return s, nil
		}
	}
	for _, s := range segments {
		if longDigits.MatchString(s) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: no product id in %q", domain.ErrInvalidURL, raw)
}
