package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// ErrBudgetUnsatisfiable signals that no quality in the configured range
// produced an encoding within the size budget.
var ErrBudgetUnsatisfiable = errors.New("compression budget unsatisfiable")

// Result carries the winning encoding of a compression run.
type Result struct {
	Bytes   []byte
	Quality int
}

// Options bound the quality search.
type Options struct {
	MinQuality int
	MaxQuality int
}

// DefaultOptions mirror the production quality range.
func DefaultOptions() Options {
	return Options{MinQuality: 5, MaxQuality: 95}
}

// Compress re-encodes raw as JPEG at the highest quality in
// [opts.MinQuality, opts.MaxQuality] whose encoded size fits budget bytes.
// The search relies on JPEG's monotonic quality/size trade-off: a higher
// quality index never encodes smaller. Transparency is flattened onto an
// opaque white background before encoding, since JPEG has no alpha channel.
//
// Compress is a pure function of its inputs and safe for concurrent use.
func Compress(raw []byte, budget int64, opts Options) (Result, error) {
	if budget <= 0 {
		return Result{}, fmt.Errorf("invalid size budget %d", budget)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Result{}, fmt.Errorf("decode image: %w", err)
	}

	img := flatten(src)

	low, high := opts.MinQuality, opts.MaxQuality
	var best []byte
	bestQuality := 0

	var buf bytes.Buffer
	for low <= high {
		q := (low + high) / 2

		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return Result{}, fmt.Errorf("encode quality %d: %w", q, err)
		}

		if int64(buf.Len()) <= budget {
			best = append(best[:0], buf.Bytes()...)
			bestQuality = q
			low = q + 1
		} else {
			high = q - 1
		}
	}

	if best == nil {
		return Result{}, ErrBudgetUnsatisfiable
	}

	return Result{Bytes: best, Quality: bestQuality}, nil
}

// flatten composites any non-opaque image onto white. The test is pixel
// opacity, not color model, so alpha-bearing decodes of every supported
// format (NRGBA png, Paletted gif, NYCbCrA webp) all take the flatten path.
func flatten(src image.Image) image.Image {
	if opaque, ok := src.(interface{ Opaque() bool }); ok && opaque.Opaque() {
		return src
	}

	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Over)
	return dst
}
