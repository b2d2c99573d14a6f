package geometry

import (
	"math/big"
)

// ComputeArea shrinks source uniformly so that its area does not exceed
// the area of canvas, the way an area geometry (WxH@>) does in ImageMagick.
// A source that is already small enough is returned unchanged.
//
// The result may be larger than canvas on one axis; PadArea trims that
// excess and pads the other axis.
func ComputeArea(source, canvas Size) (Size, error) {
	if err := checkSource(source); err != nil {
		return Size{}, err
	}
	if err := checkBound(canvas); err != nil {
		return Size{}, err
	}
	if source.Area() <= canvas.Area() {
		return source, nil
	}
	return scaleBy(source, areaRatio(source, canvas)), nil
}

// areaRatio is sqrt(source area / canvas area) truncated to RatioDigits.
func areaRatio(source, canvas Size) FixedRatio {
	n := big.NewInt(source.Area())
	n.Mul(n, new(big.Int).Mul(bigRatioScale, bigRatioScale))
	n.Quo(n, big.NewInt(canvas.Area()))
	return FixedRatio{units: n.Sqrt(n).Int64()}
}

// centerTrim returns the centered window of s that fits inside canvas.
func centerTrim(s, canvas Size) CropRect {
	r := FullRect(s)
	if s.Width > canvas.Width {
		r.Width = canvas.Width
		r.X = (s.Width - canvas.Width) / 2
	}
	if s.Height > canvas.Height {
		r.Height = canvas.Height
		r.Y = (s.Height - canvas.Height) / 2
	}
	return r
}
