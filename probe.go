package imageop

import (
	"fmt"
	"image"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru"
	"github.com/szxp/imageop/geometry"
)

// Prober reads the pixel size of image files from their headers. Sizes
// are cached by path, modification time and file length.
type Prober struct {
	cache  *lru.Cache
	logger hclog.Logger
}

type probeKey struct {
	path    string
	modTime int64
	length  int64
}

func NewProber(cacheSize int, logger hclog.Logger) (*Prober, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if cacheSize <= 0 {
		cacheSize = 1
	}

	c, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Prober{cache: c, logger: logger}, nil
}

func (p *Prober) Probe(path string) (geometry.Size, error) {
	f, err := os.Open(path)
	if err != nil {
		return geometry.Size{}, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return geometry.Size{}, err
	}

	key := probeKey{path: path, modTime: fi.ModTime().UnixNano(), length: fi.Size()}
	if v, ok := p.cache.Get(key); ok {
		return v.(geometry.Size), nil
	}

	conf, format, err := image.DecodeConfig(f)
	if err != nil {
		return geometry.Size{}, fmt.Errorf("%w: %v: %v", geometry.ErrInvalidSource, path, err)
	}

	size := geometry.SizeOf(conf.Width, conf.Height)
	if !size.Valid() {
		return geometry.Size{}, fmt.Errorf("%w: %v is %v", geometry.ErrInvalidSource, path, size)
	}
	p.logger.Debug("Probe", "path", path, "format", format, "size", size)

	p.cache.Add(key, size)
	return size, nil
}

// Cached returns the number of sizes in the cache.
func (p *Prober) Cached() int {
	return p.cache.Len()
}
