package common

import (
	"bytes"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"dragdropimg/src/ingest"
)

// ProbeDimensions reads the image header and reports its pixel size.
// Only the header is decoded; pixel data is never touched.
//
// Supported: gif, jpeg, png, bmp, tiff, webp. Anything else (svg, heic)
// returns an error and the pipeline falls back to plain markup.
func ProbeDimensions(data []byte) (ingest.Dimensions, error) {
	if len(data) == 0 {
		return ingest.Dimensions{}, fmt.Errorf("empty image payload")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ingest.Dimensions{}, fmt.Errorf("failed to decode image header: %w", err)
	}

	if cfg.Width < 0 || cfg.Height < 0 {
		return ingest.Dimensions{}, fmt.Errorf("invalid %s dimensions %dx%d", format, cfg.Width, cfg.Height)
	}

	return ingest.Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}
