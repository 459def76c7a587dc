// internal/analyzer/validate.go
package analyzer

import (
	"regexp"
	"strings"
)

const defaultMediaType = "image/jpeg"

var dataURIPrefix = regexp.MustCompile(`^data:(image/[\w.+-]+);base64,`)

// Image is a validated upload.
type Image struct {
	Base64    string
	MediaType string
}

// DataURI is the reference sent upstream.
func (i Image) DataURI() string {
	return "data:" + i.MediaType + ";base64," + i.Base64
}

// NormalizeImage accepts either bare base64 or a data:image/<type>;base64,
// URI and rejects input that is empty once the prefix is gone.
func NormalizeImage(image string) (Image, error) {
	img := Image{MediaType: defaultMediaType}
	raw := strings.TrimSpace(image)
	if m := dataURIPrefix.FindStringSubmatch(raw); m != nil {
		img.MediaType = m[1]
		raw = raw[len(m[0]):]
	}
	img.Base64 = strings.TrimSpace(raw)
	if img.Base64 == "" {
		return Image{}, InvalidInput(MessageImageRequired)
	}
	return img, nil
}
