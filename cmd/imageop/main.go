package main

import (
	"github.com/szxp/imageop"
	"github.com/szxp/imageop/geometry"
	"github.com/szxp/imageop/goimage"
	"github.com/szxp/imageop/imagemagick"

	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
)

// version will be set while building
var version string

// buildTime will be set while building
var buildTime string

const (
	envHTTPAddr = "IMAGEOP_HTTP_ADDR"
	envConfig   = "IMAGEOP_CONFIG"
)

func main() {
	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = serve(args)
	case "process":
		err = process(args)
	case "plan":
		err = plan(args)
	default:
		err = fmt.Errorf("unknown command: %v", cmd)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(fs *flag.FlagSet, args []string) (imageop.Config, error) {
	path := fs.String("config", getenv(envConfig, ""), "path of the TOML config file")
	if err := fs.Parse(args); err != nil {
		return imageop.Config{}, err
	}

	conf := imageop.DefaultConfig()
	if *path != "" {
		var err error
		conf, err = imageop.LoadConfig(*path)
		if err != nil {
			return imageop.Config{}, err
		}
	}
	conf.HTTPAddr = getenv(envHTTPAddr, conf.HTTPAddr)
	return conf, nil
}

func newLogger(conf imageop.Config) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Output:          os.Stdout,
		Level:           hclog.LevelFromString(conf.LogLevel),
		IncludeLocation: true,
	}).With("appVersion", version)
}

func newProcessor(conf imageop.Config, logger hclog.Logger) (*imageop.Processor, error) {
	prober, err := imageop.NewProber(conf.SizeCache, logger.Named("prober"))
	if err != nil {
		return nil, err
	}

	var renderer imageop.Renderer
	switch conf.Renderer {
	case imageop.RendererImageMagick:
		ver, err := imagemagick.Version(context.Background())
		if err != nil {
			return nil, fmt.Errorf("ImageMagick not available: %w", err)
		}
		logger.Info("ImageMagick", "version", ver)
		renderer = &imagemagick.Renderer{Quality: conf.Quality, Logger: logger.Named("imagemagick")}
	default:
		renderer = &goimage.Renderer{Quality: conf.Quality, Logger: logger.Named("goimage")}
	}

	return imageop.NewProcessor(imageop.ProcessorConfig{
		Main:     withBackground(conf.Main, conf.Background),
		Thumb:    withBackground(conf.Thumb, conf.Background),
		TempDir:  conf.TempDir,
		Renderer: renderer,
		Prober:   prober,
		Logger:   logger.Named("processor"),
	})
}

func withBackground(v imageop.Variant, background string) imageop.Variant {
	if v.Background == "" {
		v.Background = background
	}
	return v
}

func serve(args []string) error {
	conf, err := loadConfig(flag.NewFlagSet("serve", flag.ExitOnError), args)
	if err != nil {
		return err
	}

	logger := newLogger(conf)
	logger.Info("Build info", "time", buildTime)

	err = initialize(conf, logger)
	if err != nil {
		logger.Error("Failed to initialize. Exit now", "err", err)
		return err
	}
	logger.Info("Exit normally")
	return nil
}

func initialize(conf imageop.Config, logger hclog.Logger) error {
	processor, err := newProcessor(conf, logger)
	if err != nil {
		return err
	}

	presets := make(map[string]imageop.Variant, len(conf.Presets))
	for name, v := range conf.Presets {
		presets[name] = withBackground(v, conf.Background)
	}

	handler, err := imageop.NewServer(imageop.ServerConfig{
		SourceDir:     conf.SourceDir,
		ThumbnailDir:  conf.ThumbnailDir,
		AllowedExts:   conf.AllowedExts,
		Logger:        logger.Named("HTTP server"),
		Processor:     processor,
		Presets:       presets,
		MaxSize:       conf.MaxSize(),
		Background:    conf.Background,
		RenderTimeout: conf.RenderTimeout.Duration,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    conf.HTTPAddr,
		Handler: handler,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Signal received", "sig", sig)

		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error("HTTP server Shutdown", "error", err)
		}
		close(idleConnsClosed)
	}()

	logger.Info("Listening", "addr", conf.HTTPAddr)
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}

	<-idleConnsClosed
	return nil
}

// process converts the given files into their main and thumbnail
// variants and prints where they were written.
func process(args []string) error {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	conf, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	logger := newLogger(conf)
	processor, err := newProcessor(conf, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, src := range fs.Args() {
		set, err := processor.Process(ctx, src, src)
		if err != nil {
			return fmt.Errorf("%v: %w", src, err)
		}
		for _, d := range []*imageop.FileDetail{set.Main, set.Thumb} {
			if d != nil {
				fmt.Printf("%s\t%dx%d\t%d\t%s\n", src, d.Width, d.Height, d.Length, d.Path)
			}
		}
	}
	return nil
}

// plan prints the geometry of a conversion without touching any pixels.
func plan(args []string) error {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	modeName := fs.String("mode", "Max", "conversion mode: Max, Crop, Pad or PadArea")
	source := fs.String("source", "", "source size, WxH")
	target := fs.String("size", "", "target size, WxH")
	if err := fs.Parse(args); err != nil {
		return err
	}

	mode, err := geometry.ParseMode(*modeName)
	if err != nil {
		return err
	}
	src, err := imageop.ParseSize(*source)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	dst, err := imageop.ParseSize(*target)
	if err != nil {
		return fmt.Errorf("size: %w", err)
	}

	p, err := geometry.Compute(mode, src, dst)
	if err != nil {
		return err
	}
	fmt.Println(p)
	return nil
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if len(value) == 0 {
		return fallback
	}
	return value
}
