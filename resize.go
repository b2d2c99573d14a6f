package imageop

import (
	"context"

	"github.com/szxp/imageop/geometry"
)

// Renderer executes a geometry plan against the pixels of src and writes
// the result to dst. The output format follows the extension of dst.
// Background is a color like "#ffffff", used only when plan.Background is
// set.
type Renderer interface {
	Render(ctx context.Context, dst, src string, plan geometry.Plan, background string) error
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, dst, src string, plan geometry.Plan, background string) error

func (f RendererFunc) Render(ctx context.Context, dst, src string, plan geometry.Plan, background string) error {
	return f(ctx, dst, src, plan, background)
}
