// Package geometry computes the pixel geometry of image conversions:
// crop windows, bounded scale sizes and the border insets that center an
// image on a canvas.
//
// All ratio arithmetic uses FixedRatio, a 6 digit decimal with half-down
// rounding, so the same integers produce the same pixel sizes on every
// platform. Nothing in this package performs I/O and every function is
// safe for concurrent use.
package geometry

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidBound is returned when a bound, target or canvas dimension
	// is not positive.
	ErrInvalidBound = errors.New("invalid bound")

	// ErrInvalidSource is returned when a source dimension is not positive.
	ErrInvalidSource = errors.New("invalid source")

	ErrUnknownMode = errors.New("unknown mode")
)

type Size struct {
	Width  int
	Height int
}

func SizeOf(width, height int) Size {
	return Size{Width: width, Height: height}
}

func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Fits reports whether s is not larger than b on either axis.
func (s Size) Fits(b Size) bool {
	return s.Width <= b.Width && s.Height <= b.Height
}

func (s Size) Area() int64 {
	return int64(s.Width) * int64(s.Height)
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

func checkSource(s Size) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidSource, s)
	}
	return nil
}

func checkBound(s Size) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidBound, s)
	}
	return nil
}

// CropRect is a region of an image. X and Y are the offset of the top
// left corner.
type CropRect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// FullRect returns the rectangle covering all of s.
func FullRect(s Size) CropRect {
	return CropRect{Width: s.Width, Height: s.Height}
}

func (r CropRect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// Within reports whether r lies entirely inside an image of size s.
func (r CropRect) Within(s Size) bool {
	return r.X >= 0 && r.Y >= 0 && r.Width > 0 && r.Height > 0 &&
		r.X+r.Width <= s.Width && r.Y+r.Height <= s.Height
}

// Covers reports whether r is the whole of an image of size s.
func (r CropRect) Covers(s Size) bool {
	return r == FullRect(s)
}

func (r CropRect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// Border holds the insets added around an image.
type Border struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

func (b Border) IsZero() bool {
	return b == Border{}
}

// Grow returns s enlarged by the border.
func (b Border) Grow(s Size) Size {
	return Size{
		Width:  s.Width + b.Left + b.Right,
		Height: s.Height + b.Top + b.Bottom,
	}
}
