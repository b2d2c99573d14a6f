// Package goimage renders geometry plans in process with the imaging
// library.
package goimage

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
	"github.com/hashicorp/go-hclog"
	"github.com/szxp/imageop/geometry"
)

type Renderer struct {
	// Quality of JPEG outputs, 1 to 100. Defaults to 75.
	Quality int

	// Filter used for scaling. Defaults to Lanczos.
	Filter *imaging.ResampleFilter

	Logger hclog.Logger
}

func (r *Renderer) Render(ctx context.Context, dst, src string, plan geometry.Plan, background string) error {
	img, err := imaging.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %v: %v", geometry.ErrInvalidSource, src, err)
	}

	b := img.Bounds()
	if b.Dx() != plan.Source.Width || b.Dy() != plan.Source.Height {
		return fmt.Errorf("%w: %v is %dx%d, planned for %v",
			geometry.ErrInvalidSource, src, b.Dx(), b.Dy(), plan.Source)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	fill := color.Color(color.Transparent)
	if plan.Background {
		fill, err = ParseColor(background)
		if err != nil {
			return err
		}
	}

	out := Apply(img, plan, fill, r.filter())

	if err := ctx.Err(); err != nil {
		return err
	}

	r.logger().Debug("Save", "path", dst, "size", plan.Size())
	err = imaging.Save(out, dst, imaging.JPEGQuality(r.quality()))
	if err != nil {
		return fmt.Errorf("Failed to create thumbnail: %w", err)
	}
	return nil
}

// CanEncode reports whether outputs with file extension ext (".png") can
// be written. webp is decoded but never encoded.
func CanEncode(ext string) bool {
	_, err := imaging.FormatFromExtension(ext)
	return err == nil
}

// Apply runs the steps of plan on img. Areas added by borders or the
// extent are painted with fill.
func Apply(img image.Image, plan geometry.Plan, fill color.Color, filter imaging.ResampleFilter) image.Image {
	if plan.Cropped() {
		img = imaging.Crop(img, rect(img, plan.Crop))
	}
	if plan.Scaled() {
		img = imaging.Resize(img, plan.Scale.Width, plan.Scale.Height, filter)
	}
	if plan.Trimmed() {
		img = imaging.Crop(img, rect(img, plan.Trim))
	}

	final := plan.Size()
	if plan.Bordered() || (plan.Extent && plan.Trim.Size() != final) {
		canvas := imaging.New(final.Width, final.Height, fill)
		img = imaging.Paste(canvas, img, image.Pt(plan.Border.Left, plan.Border.Top))
	}
	return img
}

func rect(img image.Image, r geometry.CropRect) image.Rectangle {
	origin := img.Bounds().Min
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height).Add(origin)
}

// ParseColor parses "#rgb", "#rrggbb", "#rrggbbaa" and "transparent".
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "transparent" || s == "none" {
		return color.NRGBA{}, nil
	}

	if !strings.HasPrefix(s, "#") {
		return color.NRGBA{}, fmt.Errorf("invalid color: %q", s)
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color: %q", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color: %q", s)
	}
	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

func (r *Renderer) filter() imaging.ResampleFilter {
	if r.Filter == nil {
		return imaging.Lanczos
	}
	return *r.Filter
}

func (r *Renderer) quality() int {
	if r.Quality <= 0 {
		return 75
	}
	return r.Quality
}

func (r *Renderer) logger() hclog.Logger {
	if r.Logger == nil {
		return hclog.NewNullLogger()
	}
	return r.Logger
}
