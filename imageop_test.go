package imageop

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/szxp/imageop/geometry"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+3] = 255, 255
	}
	img.Set(0, 0, color.White)

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// fakeRenderer writes the plan as text instead of pixels.
type fakeRenderer struct {
	mu    sync.Mutex
	plans []geometry.Plan
	err   error
}

func (r *fakeRenderer) Render(ctx context.Context, dst, src string, plan geometry.Plan, background string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		// leave a half written file behind like a crashed encoder
		_ = os.WriteFile(dst, []byte("partial"), 0644)
		return r.err
	}
	r.plans = append(r.plans, plan)
	return os.WriteFile(dst, []byte(plan.String()+" bg="+background), 0644)
}

func (r *fakeRenderer) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.plans)
}

func newTestProcessor(t *testing.T, r Renderer, main, thumb Variant) *Processor {
	t.Helper()
	p, err := NewProcessor(ProcessorConfig{
		Main:     main,
		Thumb:    thumb,
		TempDir:  t.TempDir(),
		Renderer: r,
	})
	require.NoError(t, err)
	return p
}
