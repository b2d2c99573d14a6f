package imageop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/szxp/imageop/geometry"
)

type ProcessorConfig struct {
	// Main is the variant used for the main image, usually Max.
	Main Variant

	// Thumb is the variant used for the thumbnail, usually Crop.
	Thumb Variant

	// TempDir receives the produced files. Defaults to os.TempDir().
	TempDir string

	Renderer Renderer
	Prober   *Prober
	Logger   hclog.Logger
}

// Processor converts an image into its main and thumbnail variants.
type Processor struct {
	conf *ProcessorConfig
}

// FileDetail describes one produced file.
type FileDetail struct {
	Name      string
	Extension string
	Width     int
	Height    int
	Length    int64
	Path      string
	Plan      geometry.Plan
}

// FileSet holds the files produced from one source image. Main or Thumb
// is nil when the corresponding variant is disabled.
type FileSet struct {
	SourceName      string
	SourceExtension string
	Main            *FileDetail
	Thumb           *FileDetail
}

// Remove deletes the produced files.
func (fs *FileSet) Remove() error {
	var errs []string
	for _, d := range []*FileDetail{fs.Main, fs.Thumb} {
		if d == nil {
			continue
		}
		err := os.Remove(d.Path)
		if err != nil && !os.IsNotExist(err) {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to remove files: %v", strings.Join(errs, "; "))
	}
	return nil
}

func NewProcessor(conf ProcessorConfig) (*Processor, error) {
	if conf.Renderer == nil {
		return nil, errors.New("no renderer")
	}
	if conf.Logger == nil {
		conf.Logger = hclog.NewNullLogger()
	}
	if conf.TempDir == "" {
		conf.TempDir = os.TempDir()
	}
	if conf.Prober == nil {
		p, err := NewProber(128, conf.Logger.Named("prober"))
		if err != nil {
			return nil, err
		}
		conf.Prober = p
	}
	return &Processor{conf: &conf}, nil
}

// Process produces the main and thumbnail variants of src. The name is
// the original file name of the upload and decides the output format.
func (p *Processor) Process(ctx context.Context, src, name string) (*FileSet, error) {
	p.conf.Logger.Debug("Processing", "name", name)

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return nil, fmt.Errorf("no ext: %v", name)
	}
	base := strings.TrimSuffix(filepath.Base(filepath.FromSlash(name)), filepath.Ext(name))

	fs := &FileSet{SourceName: base, SourceExtension: ext}

	var err error
	if p.conf.Main.Enabled() {
		fs.Main, err = p.processVariant(ctx, src, base, ext, "main", p.conf.Main)
		if err != nil {
			return nil, err
		}
	}
	if p.conf.Thumb.Enabled() {
		fs.Thumb, err = p.processVariant(ctx, src, base, ext, "thumb", p.conf.Thumb)
		if err != nil {
			_ = fs.Remove()
			return nil, err
		}
	}
	return fs, nil
}

func (p *Processor) processVariant(ctx context.Context, src, base, ext, kind string, v Variant) (*FileDetail, error) {
	fileName := fmt.Sprintf("%s-%s%s-%s.%s", base, kind, v.Size(), uuid.New(), ext)
	dst := filepath.Join(p.conf.TempDir, fileName)

	plan, err := p.Convert(ctx, dst, src, v)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(dst)
	if err != nil {
		return nil, err
	}

	out := plan.Size()
	return &FileDetail{
		Name:      fileName,
		Extension: ext,
		Width:     out.Width,
		Height:    out.Height,
		Length:    fi.Size(),
		Path:      dst,
		Plan:      plan,
	}, nil
}

// Convert writes variant v of src to dst and returns the plan it used.
// When the plan leaves the image untouched the source is copied as is.
func (p *Processor) Convert(ctx context.Context, dst, src string, v Variant) (geometry.Plan, error) {
	size, err := p.conf.Prober.Probe(src)
	if err != nil {
		return geometry.Plan{}, err
	}

	plan, err := v.Plan(size)
	if err != nil {
		return geometry.Plan{}, err
	}
	p.conf.Logger.Debug("Plan", "src", src, "variant", v, "plan", plan)

	background := v.Background
	if background == "" {
		background = DefaultBackground
	}

	if plan.Identity() && sameExt(dst, src) {
		p.conf.Logger.Debug("No crop or scale required", "src", src)
		err = copyFile(dst, src)
	} else {
		err = p.conf.Renderer.Render(ctx, dst, src, plan, background)
	}
	if err != nil {
		if rerr := os.Remove(dst); rerr != nil && !os.IsNotExist(rerr) {
			p.conf.Logger.Warn("Failed to remove partial output", "path", dst, "error", rerr)
		}
		return geometry.Plan{}, err
	}
	return plan, nil
}

func sameExt(a, b string) bool {
	return strings.EqualFold(filepath.Ext(a), filepath.Ext(b))
}

func copyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, in)
	if err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
