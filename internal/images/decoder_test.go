package images

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/png"
	"io"
	"testing"
)

type memLocation struct {
	uri  string
	data []byte
}

func (m *memLocation) URI() string { return m.uri }

func (m *memLocation) Open(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

type countingLocation struct {
	memLocation
	opens int
}

func (c *countingLocation) Open(ctx context.Context) (io.ReadCloser, error) {
	c.opens++
	return c.memLocation.Open(ctx)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func gifBytes(t *testing.T, frames int) []byte {
	t.Helper()
	g := &gif.GIF{
		Config: image.Config{ColorModel: color.Palette(palette.Plan9), Width: 4 + frames, Height: 3},
	}
	for i := 0; i < frames; i++ {
		frame := image.NewPaletted(image.Rect(0, 0, 4+i, 3), palette.Plan9)
		g.Image = append(g.Image, frame)
		g.Delay = append(g.Delay, 10)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		t.Fatalf("Failed to encode gif: %v", err)
	}
	return buf.Bytes()
}

func TestDecodePNG(t *testing.T) {
	loc := &memLocation{uri: "file:///a.png", data: pngBytes(t, 7, 5)}
	d := NewDecoder(0)

	res, err := d.Decode(context.Background(), loc, 0)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if res.Format != "png" {
		t.Errorf("Expected format png, got %s", res.Format)
	}
	if b := res.Image.Bounds(); b.Dx() != 7 || b.Dy() != 5 {
		t.Errorf("Expected 7x5 image, got %dx%d", b.Dx(), b.Dy())
	}

	m := res.Metadata
	if m.URI != "file:///a.png" || m.Width != 7 || m.Height != 5 || m.SeriesCount != 1 {
		t.Errorf("Unexpected metadata: %+v", m)
	}
	if m.ContentType != "image/png" {
		t.Errorf("Expected content type image/png, got %s", m.ContentType)
	}
	if m.Size != int64(len(loc.data)) {
		t.Errorf("Expected size %d, got %d", len(loc.data), m.Size)
	}

	raw, err := m.JSON()
	if err != nil {
		t.Fatalf("JSON failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("Metadata is not valid JSON: %v", err)
	}
	if decoded["format"] != "png" {
		t.Errorf("Expected format png in JSON, got %v", decoded["format"])
	}

	if _, err := d.Decode(context.Background(), loc, 1); !errors.Is(err, ErrSeriesOutOfRange) {
		t.Errorf("Expected ErrSeriesOutOfRange for series 1, got %v", err)
	}
}

func TestDecodeGIFSeries(t *testing.T) {
	loc := &memLocation{uri: "file:///anim.gif", data: gifBytes(t, 3)}
	d := NewDecoder(0)
	ctx := context.Background()

	src, err := d.Load(ctx, loc)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if src.SeriesCount() != 3 || src.Format() != "gif" {
		t.Fatalf("Expected 3 gif series, got %d %s", src.SeriesCount(), src.Format())
	}

	for series := 0; series < src.SeriesCount(); series++ {
		res, err := src.Decode(series)
		if err != nil {
			t.Fatalf("Decode series %d failed: %v", series, err)
		}
		// every frame is rendered on the 7x3 screen
		if b := res.Image.Bounds(); b.Dx() != 7 || b.Dy() != 3 {
			t.Errorf("Series %d: expected 7x3, got %dx%d", series, b.Dx(), b.Dy())
		}
		if res.Series != series || res.Metadata.Series != series || res.Metadata.SeriesCount != 3 {
			t.Errorf("Series %d: unexpected metadata %+v", series, res.Metadata)
		}
		if res.Metadata.Width != 7 || res.Metadata.Height != 3 {
			t.Errorf("Series %d: expected metadata size 7x3, got %dx%d", series, res.Metadata.Width, res.Metadata.Height)
		}
		if res.Metadata.ColorModel != "rgba" {
			t.Errorf("Expected rgba color model, got %s", res.Metadata.ColorModel)
		}
	}

	if _, err := src.Decode(3); !errors.Is(err, ErrSeriesOutOfRange) {
		t.Errorf("Expected ErrSeriesOutOfRange, got %v", err)
	}
}

func TestDecodeGIFComposesFrames(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	green := color.RGBA{G: 255, A: 255}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black := color.RGBA{A: 255}
	pal := color.Palette{red, blue, green, white, black}

	frame := func(r image.Rectangle, c color.Color) *image.Paletted {
		p := image.NewPaletted(r, pal)
		idx := uint8(pal.Index(c))
		for i := range p.Pix {
			p.Pix[i] = idx
		}
		return p
	}

	g := &gif.GIF{
		Config: image.Config{ColorModel: pal, Width: 6, Height: 6},
		Image: []*image.Paletted{
			frame(image.Rect(0, 0, 6, 6), red),
			frame(image.Rect(2, 2, 4, 4), blue),
			frame(image.Rect(0, 0, 2, 2), green),
			frame(image.Rect(4, 4, 6, 6), white),
			frame(image.Rect(4, 0, 6, 2), black),
		},
		Delay:    []int{10, 10, 10, 10, 10},
		Disposal: []byte{gif.DisposalNone, gif.DisposalNone, gif.DisposalBackground, gif.DisposalPrevious, gif.DisposalNone},
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		t.Fatalf("Failed to encode gif: %v", err)
	}

	src, err := NewDecoder(0).Load(context.Background(), &memLocation{uri: "mem.gif", data: buf.Bytes()})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	transparent := color.RGBA{}
	tests := []struct {
		series   int
		x, y     int
		expected color.RGBA
	}{
		{series: 0, x: 3, y: 3, expected: red},
		{series: 1, x: 3, y: 3, expected: blue},
		{series: 1, x: 0, y: 0, expected: red},
		{series: 2, x: 0, y: 0, expected: green},
		{series: 2, x: 3, y: 3, expected: blue},
		{series: 3, x: 0, y: 0, expected: transparent},
		{series: 3, x: 5, y: 5, expected: white},
		{series: 4, x: 5, y: 5, expected: red},
		{series: 4, x: 5, y: 0, expected: black},
		{series: 4, x: 3, y: 3, expected: blue},
	}
	for _, tt := range tests {
		res, err := src.Decode(tt.series)
		if err != nil {
			t.Fatalf("Decode series %d failed: %v", tt.series, err)
		}
		if b := res.Image.Bounds(); b != image.Rect(0, 0, 6, 6) {
			t.Errorf("Series %d: expected 6x6 screen, got %v", tt.series, b)
		}
		if res.Metadata.Width != 6 || res.Metadata.Height != 6 {
			t.Errorf("Series %d: expected metadata 6x6, got %dx%d", tt.series, res.Metadata.Width, res.Metadata.Height)
		}
		got := color.RGBAModel.Convert(res.Image.At(tt.x, tt.y)).(color.RGBA)
		if got != tt.expected {
			t.Errorf("Series %d at (%d,%d): expected %v, got %v", tt.series, tt.x, tt.y, tt.expected, got)
		}
	}
}

func TestDecodeSeriesReadsOnce(t *testing.T) {
	loc := &countingLocation{memLocation: memLocation{uri: "mem.gif", data: gifBytes(t, 4)}}
	d := NewDecoder(0)

	var offered int
	results, err := d.DecodeSeries(context.Background(), loc, func(count int) ([]int, error) {
		offered = count
		return []int{1, 2, 3}, nil
	})
	if err != nil {
		t.Fatalf("DecodeSeries failed: %v", err)
	}
	if offered != 4 {
		t.Errorf("Expected pick to see 4 series, got %d", offered)
	}
	if len(results) != 3 || results[0].Series != 1 || results[2].Series != 3 {
		t.Errorf("Unexpected results: %d", len(results))
	}
	if loc.opens != 1 {
		t.Errorf("Expected 1 open, got %d", loc.opens)
	}

	if _, err := d.DecodeSeries(context.Background(), loc, func(int) ([]int, error) { return []int{9}, nil }); !errors.Is(err, ErrSeriesOutOfRange) {
		t.Errorf("Expected ErrSeriesOutOfRange, got %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		data     []byte
		maxBytes int64
		expected error
	}{
		{name: "empty", data: nil, expected: ErrEmptyImageLocation},
		{name: "not an image", data: []byte("hello, world"), expected: ErrUnsupportedFormat},
		{name: "too large", data: pngBytes(t, 20, 20), maxBytes: 16, expected: ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder(tt.maxBytes)
			_, err := d.Decode(ctx, &memLocation{uri: "mem", data: tt.data}, 0)
			if !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}
}
