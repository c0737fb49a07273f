package document

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/jpeg"
	_ "image/png"
)

// Preview is what the page renders for an image upload.
type Preview struct {
	DataURL string
	Width   int
	Height  int
}

// BuildPreview encodes f as a data URL and reads its dimensions. Bytes that
// do not decode still get a data URL with zero dimensions.
func BuildPreview(f File) *Preview {
	p := &Preview{
		DataURL: "data:" + f.MediaType + ";base64," + base64.StdEncoding.EncodeToString(f.Data),
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data)); err == nil {
		p.Width, p.Height = cfg.Width, cfg.Height
	}
	return p
}
