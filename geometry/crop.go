package geometry

// ComputeCrop returns the centered window of source that has the aspect
// ratio of target, and the size it must be scaled to afterwards, which is
// always target.
//
// The axis with the smaller ratio is kept whole and the other axis is
// cropped. When both ratios are equal the height is recomputed and comes
// out unchanged. When source equals target the window covers the
// whole source and no work is needed.
func ComputeCrop(source, target Size) (CropRect, Size, error) {
	if err := checkSource(source); err != nil {
		return CropRect{}, Size{}, err
	}
	if err := checkBound(target); err != nil {
		return CropRect{}, Size{}, err
	}
	if source == target {
		return FullRect(source), target, nil
	}

	ratios, err := ComputeRatios(source, target)
	if err != nil {
		return CropRect{}, Size{}, err
	}
	minRatio := ratios.Constraining()
	maxRatio := ratios.Dominant()

	rect := FullRect(source)
	if minRatio.Equal(ratios.Width) {
		rect.Height = cropLength(source.Height, minRatio, maxRatio)
		rect.Y = (source.Height - rect.Height) / 2
	} else {
		rect.Width = cropLength(source.Width, minRatio, maxRatio)
		rect.X = (source.Width - rect.Width) / 2
	}
	return rect, target, nil
}

// cropLength is length*min/max, computed as two 6 digit steps and then
// truncated.
func cropLength(length int, lo, hi FixedRatio) int {
	n := mulQuo(length, lo, hi).Int()
	if n > length {
		return length
	}
	return atLeastOne(n)
}
