package geometry

import (
	"fmt"
	"strings"
)

// Mode is the strategy used to convert an image to a requested size.
type Mode int

const (
	// Resize using width and height as maximum values, keeping the
	// aspect ratio. The output may be smaller than requested.
	Max Mode = iota

	// Crop part of the image to match the requested aspect ratio, then
	// scale it to exactly the requested size.
	Crop

	// Scale to fit inside the requested size and pad with a background
	// so the output is exactly the requested size.
	Pad

	// Halfway between Pad and Crop: scale to the requested area, then
	// crop what still overflows and pad what is left over.
	PadArea
)

type modePolicy struct {
	name       string
	background bool
	extent     bool
}

var modePolicies = [...]modePolicy{
	Max:     {name: "Max", background: false, extent: false},
	Crop:    {name: "Crop", background: false, extent: true},
	Pad:     {name: "Pad", background: true, extent: true},
	PadArea: {name: "PadArea", background: true, extent: true},
}

// Modes lists every mode in declaration order.
func Modes() []Mode {
	return []Mode{Max, Crop, Pad, PadArea}
}

// ParseMode returns the mode with the given name. Names are matched
// without regard to case.
func ParseMode(name string) (Mode, error) {
	for _, m := range Modes() {
		if strings.EqualFold(name, modePolicies[m].name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, name)
}

func (m Mode) valid() bool {
	return m >= 0 && int(m) < len(modePolicies)
}

// HasBackground reports whether area not covered by the image must be
// painted with a background.
func (m Mode) HasBackground() bool {
	return m.valid() && modePolicies[m].background
}

// HasExtent reports whether the output is forced to exactly the requested
// size.
func (m Mode) HasExtent() bool {
	return m.valid() && modePolicies[m].extent
}

func (m Mode) String() string {
	if !m.valid() {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modePolicies[m].name
}

func (m Mode) MarshalText() ([]byte, error) {
	if !m.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
