package record

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
)

// Action image edge lengths accepted by the Todo host.
const (
	ActionImageSize   = 29
	ActionImageSize2x = 58
)

var ErrInvalidImage = errors.New("record: invalid action image")

// Image is a raw PNG payload. The bytes are carried as-is; Validate checks
// the constraints a consumer applies before using it.
type Image struct {
	PNG []byte
}

// NewImage copies b into a new Image.
func NewImage(b []byte) *Image { return &Image{PNG: append([]byte(nil), b...)} }

// Validate decodes the PNG header and checks it is 29x29 or 58x58.
func (im *Image) Validate() error {
	if im == nil || len(im.PNG) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(im.PNG))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width != cfg.Height || (cfg.Width != ActionImageSize && cfg.Width != ActionImageSize2x) {
		return fmt.Errorf("%w: %dx%d", ErrInvalidImage, cfg.Width, cfg.Height)
	}
	return nil
}

// Scale returns 1 for a 29x29 image, 2 for 58x58, and 0 if invalid.
func (im *Image) Scale() int {
	if im.Validate() != nil {
		return 0
	}
	cfg, _ := png.DecodeConfig(bytes.NewReader(im.PNG))
	if cfg.Width == ActionImageSize2x {
		return 2
	}
	return 1
}

func (im *Image) clone() *Image {
	if im == nil {
		return nil
	}
	return NewImage(im.PNG)
}

func (im *Image) equal(o *Image) bool {
	if im == nil || o == nil {
		return im == o
	}
	return bytes.Equal(im.PNG, o.PNG)
}
