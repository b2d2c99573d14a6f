package geometry

// Ratios are the per axis ratios of a source against a bound. A ratio
// above one means the source exceeds the bound on that axis.
type Ratios struct {
	Width  FixedRatio
	Height FixedRatio
}

func ComputeRatios(source, bound Size) (Ratios, error) {
	if err := checkSource(source); err != nil {
		return Ratios{}, err
	}
	if err := checkBound(bound); err != nil {
		return Ratios{}, err
	}

	w, err := Divide(source.Width, bound.Width)
	if err != nil {
		return Ratios{}, err
	}
	h, err := Divide(source.Height, bound.Height)
	if err != nil {
		return Ratios{}, err
	}
	return Ratios{Width: w, Height: h}, nil
}

// Dominant is the larger ratio, the one that needs the most shrinking.
func (r Ratios) Dominant() FixedRatio {
	return MaxRatio(r.Width, r.Height)
}

// Constraining is the smaller ratio.
func (r Ratios) Constraining() FixedRatio {
	return MinRatio(r.Width, r.Height)
}
