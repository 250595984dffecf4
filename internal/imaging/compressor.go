// Package imaging downsizes and re-encodes photo payloads to bound upload
// size and model processing latency.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/styleglow/analyzer/internal/domain"
)

// Compressed is the result of one compression pass. Byte sizes are kept for
// observability; the data itself is owned by the caller.
type Compressed struct {
	Data            []byte
	Width           int
	Height          int
	OriginalBytes   int
	CompressedBytes int
}

// Compress decodes data, downscales it so neither dimension exceeds the
// given maxima (never upscaling), and re-encodes as JPEG at the given
// quality (1-100). Aspect ratio is preserved.
func Compress(data []byte, maxWidth, maxHeight, quality int) (*Compressed, error) {
	if len(data) == 0 {
		return nil, domain.ErrDecode("empty image payload")
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, domain.ErrDecode(fmt.Sprintf("undecodable image: %v", err))
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, domain.ErrDecode(fmt.Sprintf("invalid image bounds: %dx%d", w, h))
	}

	nw, nh := fitWithin(w, h, maxWidth, maxHeight)
	if nw != w || nh != h {
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return &Compressed{
		Data:            buf.Bytes(),
		Width:           nw,
		Height:          nh,
		OriginalBytes:   len(data),
		CompressedBytes: buf.Len(),
	}, nil
}

// fitWithin computes target dimensions preserving aspect ratio. Images
// already inside the bounds are returned unchanged; this only ever shrinks.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if (maxW <= 0 || w <= maxW) && (maxH <= 0 || h <= maxH) {
		return w, h
	}

	scale := 1.0
	if maxW > 0 {
		scale = float64(maxW) / float64(w)
	}
	if maxH > 0 {
		if s := float64(maxH) / float64(h); s < scale {
			scale = s
		}
	}

	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}
