package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/styleglow/analyzer/internal/domain"
)

// testJPEG renders a gradient so the encoder has realistic content to work on.
func testJPEG(t *testing.T, w, h, quality int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: uint8((x + y) * 255 / (w + h)),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestCompress_DownscalesOversizedInput(t *testing.T) {
	input := testJPEG(t, 2048, 1536, 95)

	out, err := Compress(input, 1024, 1024, 80)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}

	if out.Width > 1024 || out.Height > 1024 {
		t.Errorf("dimensions %dx%d exceed 1024x1024", out.Width, out.Height)
	}
	// Aspect ratio 4:3 preserved.
	if out.Width != 1024 || out.Height != 768 {
		t.Errorf("dimensions = %dx%d, want 1024x768", out.Width, out.Height)
	}
	if out.CompressedBytes >= out.OriginalBytes {
		t.Errorf("compressed %d bytes >= original %d bytes", out.CompressedBytes, out.OriginalBytes)
	}
	if out.OriginalBytes != len(input) {
		t.Errorf("OriginalBytes = %d, want %d", out.OriginalBytes, len(input))
	}
}

func TestCompress_NeverUpscales(t *testing.T) {
	input := testJPEG(t, 320, 240, 90)

	out, err := Compress(input, 1024, 1024, 80)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}

	if out.Width != 320 || out.Height != 240 {
		t.Errorf("dimensions = %dx%d, want unchanged 320x240", out.Width, out.Height)
	}
}

func TestCompress_PortraitOrientation(t *testing.T) {
	input := testJPEG(t, 1536, 2048, 95)

	out, err := Compress(input, 1024, 1024, 80)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}

	if out.Width != 768 || out.Height != 1024 {
		t.Errorf("dimensions = %dx%d, want 768x1024", out.Width, out.Height)
	}
}

func TestCompress_AcceptsPNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	out, err := Compress(buf.Bytes(), 1024, 1024, 80)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if out.Width != 64 || out.Height != 64 {
		t.Errorf("dimensions = %dx%d, want 64x64", out.Width, out.Height)
	}
}

func TestCompress_UndecodableInput(t *testing.T) {
	_, err := Compress([]byte("definitely not an image"), 1024, 1024, 80)
	if domain.KindOf(err) != domain.ErrorKindDecode {
		t.Errorf("error kind = %q, want decode (err=%v)", domain.KindOf(err), err)
	}

	_, err = Compress(nil, 1024, 1024, 80)
	if domain.KindOf(err) != domain.ErrorKindDecode {
		t.Errorf("empty input: error kind = %q, want decode", domain.KindOf(err))
	}
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name               string
		w, h, maxW, maxH   int
		wantW, wantH       int
	}{
		{"inside bounds", 800, 600, 1024, 1024, 800, 600},
		{"landscape over", 2048, 1024, 1024, 1024, 1024, 512},
		{"portrait over", 1000, 4000, 1024, 1024, 256, 1024},
		{"exact fit", 1024, 1024, 1024, 1024, 1024, 1024},
		{"tiny never upscaled", 10, 10, 1024, 1024, 10, 10},
		{"extreme ratio floors at 1", 10000, 2, 100, 100, 100, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotW, gotH := fitWithin(tt.w, tt.h, tt.maxW, tt.maxH)
			if gotW != tt.wantW || gotH != tt.wantH {
				t.Errorf("fitWithin(%d,%d,%d,%d) = %dx%d, want %dx%d",
					tt.w, tt.h, tt.maxW, tt.maxH, gotW, gotH, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestDecodePayload(t *testing.T) {
	raw := testJPEG(t, 8, 8, 80)
	encoded := EncodePayload(raw)

	got, err := DecodePayload(encoded)
	if err != nil {
		t.Fatalf("DecodePayload(bare) error = %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Error("bare base64 payload mismatch")
	}

	got, err = DecodePayload("data:image/jpeg;base64," + encoded)
	if err != nil {
		t.Fatalf("DecodePayload(data URL) error = %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Error("data URL payload mismatch")
	}

	if _, err := DecodePayload("data:image/jpeg;base64"); domain.KindOf(err) != domain.ErrorKindDecode {
		t.Errorf("missing comma: kind = %q, want decode", domain.KindOf(err))
	}
	if _, err := DecodePayload("data:image/jpeg,plain"); domain.KindOf(err) != domain.ErrorKindDecode {
		t.Errorf("non-base64 data URL: kind = %q, want decode", domain.KindOf(err))
	}
	if _, err := DecodePayload("!!!"); domain.KindOf(err) != domain.ErrorKindDecode {
		t.Errorf("invalid base64: kind = %q, want decode", domain.KindOf(err))
	}
}
