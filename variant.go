package imageop

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/szxp/imageop/geometry"
)

// Variant is one requested output of an image.
type Variant struct {
	Mode       geometry.Mode `toml:"mode"`
	Width      int           `toml:"width"`
	Height     int           `toml:"height"`
	Background string        `toml:"background"`
}

// Enabled reports whether the variant asks for an output at all. Variants
// without a size are skipped by the Processor.
func (v Variant) Enabled() bool {
	return v.Width > 0 && v.Height > 0
}

func (v Variant) Size() geometry.Size {
	return geometry.SizeOf(v.Width, v.Height)
}

func (v Variant) Plan(source geometry.Size) (geometry.Plan, error) {
	return geometry.Compute(v.Mode, source, v.Size())
}

// Path returns the variant as it appears in thumbnail keys: "crop/100x100".
func (v Variant) Path() string {
	return strings.ToLower(v.Mode.String()) + "/" + v.Size().String()
}

func (v Variant) String() string {
	return strings.ToLower(v.Mode.String()) + "-" + v.Size().String()
}

// ParseVariant parses "<mode>/<width>x<height>".
func ParseVariant(s string) (Variant, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return Variant{}, fmt.Errorf("invalid variant: %v", s)
	}

	mode, err := geometry.ParseMode(parts[0])
	if err != nil {
		return Variant{}, err
	}
	size, err := ParseSize(parts[1])
	if err != nil {
		return Variant{}, err
	}
	return Variant{Mode: mode, Width: size.Width, Height: size.Height}, nil
}

// ParseSize parses "<width>x<height>". Both dimensions must be positive.
func ParseSize(s string) (geometry.Size, error) {
	parts := strings.Split(strings.ToLower(s), "x")
	if len(parts) != 2 {
		return geometry.Size{}, fmt.Errorf("invalid size: %v", s)
	}

	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return geometry.Size{}, fmt.Errorf("invalid size: %v", s)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return geometry.Size{}, fmt.Errorf("invalid size: %v", s)
	}

	size := geometry.SizeOf(w, h)
	if !size.Valid() {
		return geometry.Size{}, fmt.Errorf("%w: %v", geometry.ErrInvalidBound, size)
	}
	return size, nil
}
