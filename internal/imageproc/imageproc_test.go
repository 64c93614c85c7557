package imageproc

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"strings"
	"testing"
)

// noisePNG builds a PNG that does not compress well, like a real render.
func noisePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func flatPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{200, 60, 40, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// noiseJPEG re-encodes a noise image as JPEG at the given quality.
func noiseJPEG(t *testing.T, w, h, quality int) []byte {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(noisePNG(t, w, h)))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func decodeConfig(t *testing.T, data []byte) (image.Config, string) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return cfg, format
}

func TestCompress_SmallerJPEG(t *testing.T) {
	src := noisePNG(t, 512, 512)

	out, err := Compress(src, DefaultOptions)
	if err != nil {
		t.Fatalf("Compress() error: %v", err)
	}
	if len(out) > len(src) {
		t.Errorf("compressed %d bytes > original %d bytes", len(out), len(src))
	}
	cfg, format := decodeConfig(t, out)
	if format != "jpeg" {
		t.Errorf("format = %q, want jpeg", format)
	}
	if cfg.Width != 512 || cfg.Height != 512 {
		t.Errorf("size = %dx%d, want 512x512", cfg.Width, cfg.Height)
	}
}

func TestCompress_OutputSize(t *testing.T) {
	tests := []struct {
		name         string
		src          []byte
		opts         Options
		wantW, wantH int
		wantSame     bool // input returned untouched
		wantLarger   bool
	}{
		// q100 re-encoding of a q5 file always grows, so the input comes back.
		{"small jpeg kept", noiseJPEG(t, 256, 256, 5), Options{MaxWidth: 512, MaxHeight: 512, Quality: 100}, 256, 256, true, false},
		{"oversized jpeg resized", noiseJPEG(t, 1024, 512, 95), DefaultOptions, 512, 256, false, false},
		// The JPEG framing alone outweighs a flat PNG; the upload is always
		// JPEG so the PNG cannot be passed through.
		{"flat png", flatPNG(t, 512, 512), DefaultOptions, 512, 512, false, true},
		{"tiny flat png", flatPNG(t, 8, 8), DefaultOptions, 8, 8, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Compress(tt.src, tt.opts)
			if err != nil {
				t.Fatalf("Compress() error: %v", err)
			}
			cfg, format := decodeConfig(t, out)
			if format != "jpeg" {
				t.Errorf("format = %q, want jpeg", format)
			}
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.wantW, tt.wantH)
			}
			if same := bytes.Equal(out, tt.src); same != tt.wantSame {
				t.Errorf("returned input unchanged = %v, want %v", same, tt.wantSame)
			}
			if larger := len(out) > len(tt.src); larger != tt.wantLarger {
				t.Errorf("output %d bytes, input %d bytes, larger = %v, want %v", len(out), len(tt.src), larger, tt.wantLarger)
			}
		})
	}
}

func TestCompress_FitsInsideBound(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"landscape", 1024, 768, 512, 384},
		{"portrait", 300, 900, 171, 512},
		{"already small", 100, 50, 100, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Compress(noisePNG(t, tt.w, tt.h), DefaultOptions)
			if err != nil {
				t.Fatal(err)
			}
			cfg, _ := decodeConfig(t, out)
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestCompress_Errors(t *testing.T) {
	valid := noisePNG(t, 8, 8)
	tests := []struct {
		name    string
		data    []byte
		opts    Options
		wantErr string
	}{
		{"empty", nil, DefaultOptions, "empty"},
		{"garbage", []byte("not an image"), DefaultOptions, "decode"},
		{"zero bound", valid, Options{Quality: 50}, "bound"},
		{"quality", valid, Options{MaxWidth: 8, MaxHeight: 8, Quality: 0}, "quality"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compress(tt.data, tt.opts)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Compress() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
