package images

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/imgreader/internal/location"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxBytes caps how much of a location is read when no limit is set
const DefaultMaxBytes int64 = 256 << 20

var (
	ErrTooLarge           = errors.New("image exceeds size limit")
	ErrSeriesOutOfRange   = errors.New("series index out of range")
	ErrUnsupportedFormat  = errors.New("unsupported image format")
	ErrEmptyImageLocation = errors.New("location holds no data")
)

// Decoder turns resolved locations into images
type Decoder struct {
	MaxBytes int64
}

// NewDecoder creates a decoder reading at most maxBytes per location.
// Zero or negative means DefaultMaxBytes.
func NewDecoder(maxBytes int64) *Decoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Decoder{MaxBytes: maxBytes}
}

// Metadata describes one decoded series
type Metadata struct {
	URI         string `json:"uri"`
	Format      string `json:"format"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ColorModel  string `json:"color_model"`
	Series      int    `json:"series"`
	SeriesCount int    `json:"series_count"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// JSON renders the metadata for a metadata cell
func (m *Metadata) JSON() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return string(data), nil
}

// Result is the decoded image of one series and its metadata
type Result struct {
	Image    image.Image
	Format   string
	Series   int
	Metadata *Metadata
}

// Source holds the bytes of one location. Series are decoded from memory,
// so a location is fetched once however many of its series are read.
// A Source is not safe for concurrent use.
type Source struct {
	uri    string
	data   []byte
	format string
	count  int

	anim     *gif.GIF
	canvas   *image.RGBA
	composed []image.Image
}

// Load reads the location and detects its format and series count
func (d *Decoder) Load(ctx context.Context, loc location.Location) (*Source, error) {
	data, err := d.read(ctx, loc)
	if err != nil {
		return nil, err
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}

	src := &Source{uri: loc.URI(), data: data, format: format, count: 1}
	if format == "gif" {
		g, err := gif.DecodeAll(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode gif: %w", err)
		}
		src.anim = g
		src.count = len(g.Image)
	}
	return src, nil
}

// SeriesCount returns the number of series in the source
func (s *Source) SeriesCount() int {
	return s.count
}

// Format returns the detected image format
func (s *Source) Format() string {
	return s.format
}

// Decode decodes one series. Animated GIF frames are series, rendered as
// displayed on the logical screen; every other format has a single series 0.
func (s *Source) Decode(series int) (*Result, error) {
	if series < 0 || series >= s.count {
		return nil, fmt.Errorf("%w: %d of %d", ErrSeriesOutOfRange, series, s.count)
	}

	var img image.Image
	if s.anim != nil {
		img = s.frame(series)
	} else {
		var err error
		img, _, err = image.Decode(bytes.NewReader(s.data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", s.format, err)
		}
	}

	bounds := img.Bounds()
	slog.Debug("Decoded image", "uri", s.uri, "format", s.format, "series", series, "width", bounds.Dx(), "height", bounds.Dy())

	return &Result{
		Image:  img,
		Format: s.format,
		Series: series,
		Metadata: &Metadata{
			URI:         s.uri,
			Format:      s.format,
			Width:       bounds.Dx(),
			Height:      bounds.Dy(),
			ColorModel:  colorModelName(img),
			Series:      series,
			SeriesCount: s.count,
			Size:        int64(len(s.data)),
			ContentType: http.DetectContentType(s.data),
		},
	}, nil
}

// frame composes GIF frames onto the screen canvas up to series, applying
// each frame's disposal method before the next one is drawn.
func (s *Source) frame(series int) image.Image {
	if s.canvas == nil {
		s.canvas = image.NewRGBA(screenBounds(s.anim))
	}

	for i := len(s.composed); i <= series; i++ {
		p := s.anim.Image[i]
		var disposal byte
		if i < len(s.anim.Disposal) {
			disposal = s.anim.Disposal[i]
		}

		var previous *image.RGBA
		if disposal == gif.DisposalPrevious {
			previous = cloneRGBA(s.canvas)
		}

		draw.Draw(s.canvas, p.Bounds(), p, p.Bounds().Min, draw.Over)
		s.composed = append(s.composed, cloneRGBA(s.canvas))

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(s.canvas, p.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			s.canvas = previous
		}
	}
	return s.composed[series]
}

// screenBounds is the logical screen, or the union of all frames when the
// header leaves it empty
func screenBounds(g *gif.GIF) image.Rectangle {
	if g.Config.Width > 0 && g.Config.Height > 0 {
		return image.Rect(0, 0, g.Config.Width, g.Config.Height)
	}
	var r image.Rectangle
	for _, p := range g.Image {
		r = r.Union(p.Bounds())
	}
	return image.Rect(0, 0, r.Max.X, r.Max.Y)
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

// Decode reads the location and decodes a single series
func (d *Decoder) Decode(ctx context.Context, loc location.Location, series int) (*Result, error) {
	src, err := d.Load(ctx, loc)
	if err != nil {
		return nil, err
	}
	return src.Decode(series)
}

// DecodeSeries reads the location once and decodes the series pick chooses
// from the number available
func (d *Decoder) DecodeSeries(ctx context.Context, loc location.Location, pick func(count int) ([]int, error)) ([]*Result, error) {
	src, err := d.Load(ctx, loc)
	if err != nil {
		return nil, err
	}

	series, err := pick(src.SeriesCount())
	if err != nil {
		return nil, err
	}

	results := make([]*Result, 0, len(series))
	for _, n := range series {
		res, err := src.Decode(n)
		if err != nil {
			return nil, fmt.Errorf("failed to decode series %d: %w", n, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (d *Decoder) read(ctx context.Context, loc location.Location) ([]byte, error) {
	rc, err := loc.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", loc.URI(), err)
	}
	defer rc.Close()

	limit := d.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	if len(data) == 0 {
		return nil, ErrEmptyImageLocation
	}
	return data, nil
}

func colorModelName(img image.Image) string {
	switch img.(type) {
	case *image.Paletted:
		return "paletted"
	case *image.Gray, *image.Gray16:
		return "gray"
	case *image.RGBA, *image.RGBA64:
		return "rgba"
	case *image.NRGBA, *image.NRGBA64:
		return "nrgba"
	case *image.YCbCr:
		return "ycbcr"
	case *image.CMYK:
		return "cmyk"
	default:
		return fmt.Sprintf("%T", img)
	}
}
