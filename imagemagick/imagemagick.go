package imagemagick

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/szxp/imageop/geometry"
)

// Renderer runs the ImageMagick convert command.
type Renderer struct {
	// Command defaults to "convert".
	Command string

	// Quality of lossy outputs, 1 to 100. Defaults to 75.
	Quality int

	Logger hclog.Logger
}

func (r *Renderer) Render(ctx context.Context, dst, src string, plan geometry.Plan, background string) error {
	args := Args(dst, src, plan, background, r.quality())
	r.logger().Debug("Run", "command", r.command(), "args", strings.Join(args, " "))

	out, err := exec.CommandContext(ctx, r.command(), args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("Failed to create thumbnail: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Args returns the convert arguments that apply plan to src.
func Args(dst, src string, plan geometry.Plan, background string, quality int) []string {
	args := []string{
		// use only the first frame
		src + "[0]",
	}

	if plan.Cropped() {
		args = append(args, "-crop", plan.Crop.String(), "+repage")
	}
	if plan.Scaled() {
		// the size is exact, the plan already kept the aspect ratio
		args = append(args, "-resize", plan.Scale.String()+"!")
	}
	if plan.Trimmed() {
		args = append(args, "-crop", plan.Trim.String(), "+repage")
	}

	grown := plan.Border.Grow(plan.Trim.Size())
	needsExtent := plan.Extent && grown != plan.Canvas
	if plan.Background && (plan.Bordered() || needsExtent) {
		args = append(args,
			"-background", background,
			"-bordercolor", background,
		)
	}
	if plan.Bordered() {
		args = append(args, "-border", fmt.Sprintf("%dx%d", plan.Border.Left, plan.Border.Top))
	}
	if needsExtent {
		args = append(args,
			"-gravity", "center",
			"-extent", plan.Canvas.String(),
		)
	}

	args = append(args,
		"-quality", strconv.Itoa(quality),

		// removes any ICM, EXIF, IPTC, or other profiles that might be present in the input and aren't needed in the thumbnail.
		"-strip",

		dst,
	)
	return args
}

func (r *Renderer) command() string {
	if r.Command == "" {
		return "convert"
	}
	return r.Command
}

func (r *Renderer) quality() int {
	if r.Quality <= 0 {
		return 75
	}
	return r.Quality
}

func (r *Renderer) logger() hclog.Logger {
	if r.Logger == nil {
		return hclog.NewNullLogger()
	}
	return r.Logger
}

func Version(ctx context.Context) (string, error) {
	ver, err := exec.CommandContext(ctx, "convert", "-version").Output()
	if err != nil {
		return "", err
	}
	return string(ver), nil
}
