package geometry

// ComputeBorder returns the insets that center scaled on canvas. Each axis
// gets (canvas - scaled) / 2 on both sides, or nothing when scaled already
// reaches the canvas on that axis. When the difference is odd the result is
// one pixel short of the canvas; renderers make up for it with an extent.
func ComputeBorder(scaled, canvas Size) (Border, error) {
	if err := checkSource(scaled); err != nil {
		return Border{}, err
	}
	if err := checkBound(canvas); err != nil {
		return Border{}, err
	}

	var vertical, horizontal int
	if scaled.Height < canvas.Height {
		vertical = (canvas.Height - scaled.Height) / 2
	}
	if scaled.Width < canvas.Width {
		horizontal = (canvas.Width - scaled.Width) / 2
	}
	return Border{
		Left:   horizontal,
		Top:    vertical,
		Right:  horizontal,
		Bottom: vertical,
	}, nil
}
