package imageop

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/szxp/imageop/geometry"
)

type ServerConfig struct {
	SourceDir    string
	ThumbnailDir string
	AllowedExts  []string
	Logger       hclog.Logger

	// Processor renders thumbnails.
	Processor *Processor

	// Presets are named variants, requested as /thumbnail/<name>/<key>.
	Presets map[string]Variant

	// MaxSize limits the size of requested thumbnails. Ignored when zero.
	MaxSize geometry.Size

	// Background is used by variants requested without a preset.
	Background string

	RenderTimeout time.Duration
}

type Server struct {
	conf    *ServerConfig
	handler http.Handler

	thumbnailMutex    sync.Mutex
	pendingThumbnails map[string][]chan error
}

var errSourceNotFound = errors.New("source not found")

func NewServer(conf ServerConfig) (*Server, error) {
	if conf.Logger == nil {
		conf.Logger = hclog.NewNullLogger()
	}
	if conf.Processor == nil {
		return nil, errors.New("no processor")
	}
	if conf.RenderTimeout <= 0 {
		conf.RenderTimeout = 30 * time.Second
	}

	s := &Server{
		conf:              &conf,
		pendingThumbnails: make(map[string][]chan error),
	}

	mux := http.NewServeMux()
	mux.Handle("/source/", s.sourceHandler())
	mux.Handle("/thumbnail/", s.thumbnailHandler())
	mux.Handle("/health", s.healthHandler())

	h := http.Handler(mux)
	h = s.slashRemover(h)
	s.handler = h
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) thumbnailHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "GET" || r.Method == "HEAD" {
			s.serveThumbnail(w, r)
			return
		}

		http.Error(w, "Error", http.StatusBadRequest)
	})
}

// thumbnailRequest is a parsed /thumbnail/ key.
type thumbnailRequest struct {
	key     string
	variant Variant
	source  string
}

// parseThumbnailKey accepts "<preset>/<source key>" and
// "<mode>/<width>x<height>/<source key>".
func (s *Server) parseThumbnailKey(key string) (thumbnailRequest, error) {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) < 2 {
		return thumbnailRequest{}, fmt.Errorf("invalid key: %v", key)
	}

	if v, ok := s.conf.Presets[parts[0]]; ok {
		source := strings.Join(parts[1:], "/")
		return thumbnailRequest{key: key, variant: v, source: source}, s.validateKey(source)
	}

	if len(parts) < 3 {
		return thumbnailRequest{}, fmt.Errorf("invalid key: %v", key)
	}
	v, err := ParseVariant(parts[0] + "/" + parts[1])
	if err != nil {
		return thumbnailRequest{}, err
	}
	v.Background = s.conf.Background
	if s.conf.MaxSize.Valid() && !v.Size().Fits(s.conf.MaxSize) {
		return thumbnailRequest{}, fmt.Errorf("%v exceeds %v", v.Size(), s.conf.MaxSize)
	}
	return thumbnailRequest{key: key, variant: v, source: parts[2]}, s.validateKey(parts[2])
}

func (s *Server) serveThumbnail(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(removePrefix(r.URL.Path, "/thumbnail/"))
	req, err := s.parseThumbnailKey(key)
	if err != nil {
		s.conf.Logger.Error("Invalid key", "error", err)
		http.Error(w, "Invalid key", http.StatusBadRequest)
		return
	}

	f, err := s.openThumbnail(req)
	switch {
	case errors.Is(err, errSourceNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
		return
	case errors.Is(err, geometry.ErrInvalidSource), errors.Is(err, geometry.ErrInvalidBound):
		s.conf.Logger.Error("Rejected conversion", "key", key, "error", err)
		http.Error(w, "Invalid image", http.StatusBadRequest)
		return
	case err != nil:
		s.conf.Logger.Error("Failed to open thumbnail", "key", key, "error", err)
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		s.conf.Logger.Error("Failed to get file info", "key", key, "error", err)
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}

	if r.Method == "HEAD" {
		w.Header().Set("content-type", mime.TypeByExtension(filepath.Ext(fi.Name())))
		w.Header().Set("content-length", strconv.FormatInt(fi.Size(), 10))
		w.Header().Set("last-modified", fi.ModTime().UTC().Format(http.TimeFormat))
		w.WriteHeader(200)
		return
	}

	http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
}

func (s *Server) thumbnailPath(key string) string {
	return filepath.Join(s.conf.ThumbnailDir, keyFilepath(key))
}

func (s *Server) sourcePath(key string) string {
	return filepath.Join(s.conf.SourceDir, keyFilepath(key))
}

// openThumbnail opens the thumbnail, creating it first when missing.
// Concurrent requests for the same missing thumbnail wait for a single
// creation.
func (s *Server) openThumbnail(req thumbnailRequest) (*os.File, error) {
	path := s.thumbnailPath(req.key)
	s.conf.Logger.Debug("Open", "path", path)
	f, err := os.Open(path)
	if (err != nil && !os.IsNotExist(err)) || err == nil {
		return f, err
	}

	s.thumbnailMutex.Lock()
	ch := make(chan error, 1)
	s.pendingThumbnails[req.key] = append(s.pendingThumbnails[req.key], ch)
	if len(s.pendingThumbnails[req.key]) == 1 {
		go s.createThumbnail(req, path)
	}
	s.thumbnailMutex.Unlock()

	err = <-ch
	if err != nil {
		return nil, err
	}
	s.conf.Logger.Debug("Open", "path", path)
	return os.Open(path)
}

func (s *Server) createThumbnail(req thumbnailRequest, path string) {
	_, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		s.sendThumbnailResult(req.key, err)
		return
	}
	if err == nil {
		s.sendThumbnailResult(req.key, nil)
		return
	}

	s.sendThumbnailResult(req.key, s.renderThumbnail(req, path))
}

func (s *Server) renderThumbnail(req thumbnailRequest, path string) error {
	src := s.sourcePath(req.source)
	_, err := os.Stat(src)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", errSourceNotFound, req.source)
	}
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0754)
	if err != nil {
		return err
	}

	// Render next to the final path and rename, so readers never see a
	// partial file.
	tmp := filepath.Join(dir, ".tmp-"+filepath.Base(path))
	defer os.Remove(tmp)

	ctx, cancel := context.WithTimeout(context.Background(), s.conf.RenderTimeout)
	defer cancel()

	start := time.Now()
	plan, err := s.conf.Processor.Convert(ctx, tmp, src, req.variant)
	if err != nil {
		return err
	}
	s.conf.Logger.Info("Thumbnail created", "key", req.key, "size", plan.Size(), "elapsed", time.Since(start))

	return os.Rename(tmp, path)
}

func (s *Server) sendThumbnailResult(key string, err error) {
	s.thumbnailMutex.Lock()
	defer s.thumbnailMutex.Unlock()

	for _, ch := range s.pendingThumbnails[key] {
		if err != nil {
			ch <- err
		}
		close(ch)
	}
	delete(s.pendingThumbnails, key)
}

func (s *Server) sourceHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "GET" || r.Method == "HEAD" {
			s.serveSource(w, r)
			return
		}
		if r.Method == "PUT" {
			s.saveSource(w, r)
			return
		}

		http.Error(w, "Error", http.StatusBadRequest)
	})
}

func (s *Server) healthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "ok",
			"probeCached": s.conf.Processor.conf.Prober.Cached(),
		})
	})
}

func removePrefix(url, prefix string) string {
	return strings.Replace(url, prefix, "", 1)
}

func (s *Server) serveSource(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(removePrefix(r.URL.Path, "/source/"))
	err := s.validateKey(key)
	if err != nil {
		s.conf.Logger.Error("Invalid key", "error", err)
		http.Error(w, "Invalid key", http.StatusBadRequest)
		return
	}

	p := s.sourcePath(key)
	s.conf.Logger.Debug("Open", "path", p)
	f, err := os.Open(p)
	if err != nil && !os.IsNotExist(err) {
		s.conf.Logger.Error("Failed to open file", "path", p, "error", err)
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}
	if os.IsNotExist(err) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		s.conf.Logger.Error("Failed to get file info", "path", p, "error", err)
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}

	if r.Method == "HEAD" {
		w.Header().Set("content-type", mime.TypeByExtension(filepath.Ext(p)))
		w.Header().Set("content-length", strconv.FormatInt(fi.Size(), 10))
		w.Header().Set("last-modified", fi.ModTime().UTC().Format(http.TimeFormat))
		w.WriteHeader(200)
		return
	}

	s.conf.Logger.Debug("Serve", "path", p)
	http.ServeContent(w, r, p, fi.ModTime(), f)
}

func (s *Server) saveSource(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(removePrefix(r.URL.Path, "/source/"))
	err := s.validateKey(key)
	if err != nil {
		s.conf.Logger.Error("Invalid key", "error", err)
		http.Error(w, "Invalid key", http.StatusBadRequest)
		return
	}

	p := s.sourcePath(key)
	dir := filepath.Dir(p)
	err = os.MkdirAll(dir, 0754)
	if err != nil {
		s.conf.Logger.Error("Failed to create dir", "dir", dir, "error", err)
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}

	_, err = s.writeFileMD5(p, r.Body)
	if os.IsExist(err) {
		http.Error(w, "Already exists", http.StatusConflict)
		return
	}
	if err != nil {
		s.conf.Logger.Error("Failed to write file", "path", p, "error", err)
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(200)
}

func keyFilepath(key string) string {
	return filepath.FromSlash(key)
}

var keyRE *regexp.Regexp = regexp.MustCompile(`^[a-zA-Z0-9/._-]+$`)

func (s *Server) validateKey(key string) error {
	if !keyRE.Match([]byte(key)) {
		return fmt.Errorf("invalid key: %v", key)
	}

	keyCopy := key
	key = path.Clean(keyCopy)
	if key != keyCopy ||
		key == "." ||
		key[0] == '/' ||
		strings.Contains(key, "..") {
		return fmt.Errorf("invalid key: %v", key)
	}

	ext := strings.ToLower(path.Ext(key))
	if ext == "" {
		return fmt.Errorf("no ext: %v", key)
	}

	for _, e := range s.conf.AllowedExts {
		if ext == e {
			return nil
		}
	}
	return fmt.Errorf("invalid ext: %v", key)
}

func (s *Server) writeFileMD5(path string, r io.Reader) (int64, error) {
	s.conf.Logger.Debug("Write file", "path", path)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0754)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := md5.New()
	w := io.MultiWriter(f, h)
	n, err := io.Copy(w, r)
	if err != nil {
		return n, err
	}

	sum := fmt.Sprintf("%x", h.Sum(nil))
	pathMD5 := path + ".md5"
	s.conf.Logger.Debug("Write MD5 file", "path", pathMD5, "md5", sum)
	fmd5, err := os.OpenFile(pathMD5, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0754)
	if err != nil {
		return n, err
	}
	defer fmd5.Close()

	_, err = fmd5.Write([]byte(sum))
	if err != nil {
		return n, err
	}
	return n, nil
}

func (s *Server) slashRemover(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Google treats URLs with trailing slash
		// and URLs without trailing slash separately and equally.
		// Prefer non-trailing slash URLs over trailing slash URLs.
		p := r.URL.Path
		if p != "/" && p[len(p)-1] == '/' {
			p = strings.TrimRight(p, "/")
			http.Redirect(w, r, p, 301)
			return
		}
		h.ServeHTTP(w, r)
	})
}
