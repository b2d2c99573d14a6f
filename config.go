package imageop

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/szxp/imageop/geometry"
	"github.com/szxp/imageop/goimage"
)

// DefaultBackground fills padded areas when nothing else is configured.
const DefaultBackground = "#ffffff"

// Config is the file configuration of the service.
type Config struct {
	HTTPAddr      string             `toml:"http_addr"`
	LogLevel      string             `toml:"log_level"`
	SourceDir     string             `toml:"source_dir"`
	ThumbnailDir  string             `toml:"thumbnail_dir"`
	TempDir       string             `toml:"temp_dir"`
	AllowedExts   []string           `toml:"allowed_exts"`
	Renderer      string             `toml:"renderer"`
	Quality       int                `toml:"quality"`
	Background    string             `toml:"background"`
	MaxWidth      int                `toml:"max_width"`
	MaxHeight     int                `toml:"max_height"`
	SizeCache     int                `toml:"size_cache"`
	RenderTimeout Duration           `toml:"render_timeout"`
	Main          Variant            `toml:"main"`
	Thumb         Variant            `toml:"thumb"`
	Presets       map[string]Variant `toml:"presets"`
}

const (
	RendererGo          = "go"
	RendererImageMagick = "imagemagick"
)

// Duration is a time.Duration read from strings like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func DefaultConfig() Config {
	return Config{
		HTTPAddr:      ":7664",
		LogLevel:      "INFO",
		SourceDir:     "data/source",
		ThumbnailDir:  "data/thumbnail",
		AllowedExts:   []string{".jpg", ".jpeg", ".png", ".gif"},
		Renderer:      RendererGo,
		Quality:       75,
		Background:    DefaultBackground,
		SizeCache:     1024,
		RenderTimeout: Duration{30 * time.Second},
		Main:          Variant{Mode: geometry.Max, Width: 1200, Height: 1200},
		Thumb:         Variant{Mode: geometry.Crop, Width: 150, Height: 150},
	}
}

// LoadConfig reads a TOML file over the defaults.
func LoadConfig(path string) (Config, error) {
	conf := DefaultConfig()
	md, err := toml.DecodeFile(path, &conf)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load config %v: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown config keys in %v: %v", path, undecoded)
	}
	return conf, conf.Validate()
}

func (c Config) Validate() error {
	var errs []string
	if c.SourceDir == "" {
		errs = append(errs, "source_dir is empty")
	}
	if c.ThumbnailDir == "" {
		errs = append(errs, "thumbnail_dir is empty")
	}
	if c.Renderer != RendererGo && c.Renderer != RendererImageMagick {
		errs = append(errs, fmt.Sprintf("unknown renderer %q", c.Renderer))
	}
	if c.Quality < 1 || c.Quality > 100 {
		errs = append(errs, fmt.Sprintf("quality %d out of range", c.Quality))
	}
	if c.MaxWidth < 0 || c.MaxHeight < 0 {
		errs = append(errs, "negative max size")
	}
	for _, ext := range c.AllowedExts {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Sprintf("allowed ext %q has no leading dot", ext))
		} else if c.Renderer == RendererGo && !goimage.CanEncode(ext) {
			errs = append(errs, fmt.Sprintf("renderer %q cannot write %q", c.Renderer, ext))
		}
	}
	for name, v := range c.Presets {
		if !v.Enabled() {
			errs = append(errs, fmt.Sprintf("preset %q has no size", name))
		}
		if strings.Contains(name, "/") {
			errs = append(errs, fmt.Sprintf("preset %q contains a slash", name))
		}
	}
	if len(errs) > 0 {
		return errors.New("invalid config: " + strings.Join(errs, ", "))
	}
	return nil
}

func (c Config) MaxSize() geometry.Size {
	return geometry.SizeOf(c.MaxWidth, c.MaxHeight)
}
