package geometry

// ComputeMax returns the largest size that fits inside bound while keeping
// the aspect ratio of source. A source that already fits is returned
// unchanged; images are never upscaled.
//
// Both axes are divided by the dominant ratio and rounded half-down to
// whole pixels. Results are never smaller than one pixel.
func ComputeMax(source, bound Size) (Size, error) {
	if err := checkSource(source); err != nil {
		return Size{}, err
	}
	if err := checkBound(bound); err != nil {
		return Size{}, err
	}
	if source.Fits(bound) {
		return source, nil
	}

	ratios, err := ComputeRatios(source, bound)
	if err != nil {
		return Size{}, err
	}
	return scaleBy(source, ratios.Dominant()), nil
}

func scaleBy(s Size, r FixedRatio) Size {
	return Size{
		Width:  atLeastOne(r.DivideInt(s.Width)),
		Height: atLeastOne(r.DivideInt(s.Height)),
	}
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
