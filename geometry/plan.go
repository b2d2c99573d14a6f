package geometry

import (
	"fmt"
)

// Plan is the geometry of one conversion. A renderer applies it in order:
//
//  1. crop the source to Crop
//  2. scale the result to Scale
//  3. crop the scaled image to Trim
//  4. add Border, painted with a background when Background is set
//  5. when Extent is set, pad or cut the result to exactly Canvas,
//     centered
//
// Steps whose rectangle covers the whole image are no-ops.
type Plan struct {
	Mode   Mode
	Source Size
	Canvas Size

	Crop   CropRect
	Scale  Size
	Trim   CropRect
	Border Border

	Background bool
	Extent     bool
}

// Compute returns the plan converting an image of size source to target
// with the given mode.
func Compute(mode Mode, source, target Size) (Plan, error) {
	if !mode.valid() {
		return Plan{}, fmt.Errorf("%w: %v", ErrUnknownMode, mode)
	}
	if err := checkSource(source); err != nil {
		return Plan{}, err
	}
	if err := checkBound(target); err != nil {
		return Plan{}, err
	}

	p := Plan{
		Mode:       mode,
		Source:     source,
		Canvas:     target,
		Crop:       FullRect(source),
		Background: mode.HasBackground(),
		Extent:     mode.HasExtent(),
	}

	switch mode {
	case Max:
		scaled, err := ComputeMax(source, target)
		if err != nil {
			return Plan{}, err
		}
		p.Scale = scaled

	case Crop:
		rect, scaled, err := ComputeCrop(source, target)
		if err != nil {
			return Plan{}, err
		}
		p.Crop = rect
		p.Scale = scaled

	case Pad:
		scaled, err := ComputeMax(source, target)
		if err != nil {
			return Plan{}, err
		}
		p.Scale = scaled

	case PadArea:
		scaled, err := ComputeArea(source, target)
		if err != nil {
			return Plan{}, err
		}
		p.Scale = scaled
	}

	p.Trim = FullRect(p.Scale)
	if mode == PadArea {
		p.Trim = centerTrim(p.Scale, target)
	}

	if mode == Pad || mode == PadArea {
		border, err := ComputeBorder(p.Trim.Size(), target)
		if err != nil {
			return Plan{}, err
		}
		p.Border = border
	}
	return p, nil
}

func (p Plan) Cropped() bool {
	return !p.Crop.Covers(p.Source)
}

func (p Plan) Scaled() bool {
	return p.Scale != p.Crop.Size()
}

func (p Plan) Trimmed() bool {
	return !p.Trim.Covers(p.Scale)
}

func (p Plan) Bordered() bool {
	return !p.Border.IsZero()
}

// Identity reports whether the output is the source as is.
func (p Plan) Identity() bool {
	return !p.Cropped() && !p.Scaled() && !p.Trimmed() && p.Size() == p.Source
}

// Size returns the size of the rendered output.
func (p Plan) Size() Size {
	if p.Extent {
		return p.Canvas
	}
	return p.Border.Grow(p.Trim.Size())
}

func (p Plan) String() string {
	return fmt.Sprintf("%v %v->%v crop=%v scale=%v trim=%v border=%d,%d,%d,%d size=%v",
		p.Mode, p.Source, p.Canvas, p.Crop, p.Scale, p.Trim,
		p.Border.Left, p.Border.Top, p.Border.Right, p.Border.Bottom, p.Size())
}
