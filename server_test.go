package imageop

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/szxp/imageop/geometry"
)

type testServer struct {
	*httptest.Server
	renderer *fakeRenderer
	conf     ServerConfig
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	r := &fakeRenderer{}
	conf := ServerConfig{
		SourceDir:    filepath.Join(t.TempDir(), "source"),
		ThumbnailDir: filepath.Join(t.TempDir(), "thumbnail"),
		AllowedExts:  []string{".png", ".jpg"},
		Processor:    newTestProcessor(t, r, Variant{}, Variant{}),
		Presets: map[string]Variant{
			"small": {Mode: geometry.Pad, Width: 64, Height: 64, Background: "#123456"},
		},
		MaxSize:    geometry.SizeOf(2000, 2000),
		Background: "#ffffff",
	}
	s, err := NewServer(conf)
	require.NoError(t, err)

	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, renderer: r, conf: conf}
}

func (ts *testServer) do(t *testing.T, method, path string, body []byte) (int, string) {
	t.Helper()

	req, err := http.NewRequest(method, ts.URL+path, bytes.NewReader(body))
	require.NoError(t, err)

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	res, err := client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, string(b)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "img.png")
	writePNG(t, path, w, h)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return b
}

func TestServer_Source(t *testing.T) {
	a := assert.New(t)
	ts := newTestServer(t)

	img := pngBytes(t, 20, 10)
	code, _ := ts.do(t, "PUT", "/source/a/b.png", img)
	a.Equal(200, code)

	code, body := ts.do(t, "GET", "/source/a/b.png", nil)
	a.Equal(200, code)
	a.Equal(string(img), body)

	code, _ = ts.do(t, "PUT", "/source/a/b.png", img)
	a.Equal(http.StatusConflict, code)

	_, err := os.Stat(filepath.Join(ts.conf.SourceDir, "a", "b.png.md5"))
	a.NoError(err)

	code, _ = ts.do(t, "GET", "/source/missing.png", nil)
	a.Equal(404, code)

	code, _ = ts.do(t, "PUT", "/source/a%20b.png", img)
	a.Equal(400, code)

	code, _ = ts.do(t, "PUT", "/source/a.gif", img)
	a.Equal(400, code)

	code, _ = ts.do(t, "DELETE", "/source/a/b.png", nil)
	a.Equal(400, code)
}

func TestServer_Thumbnail(t *testing.T) {
	a := assert.New(t)
	ts := newTestServer(t)

	code, _ := ts.do(t, "PUT", "/source/p/a.png", pngBytes(t, 1200, 800))
	require.Equal(t, 200, code)

	code, body := ts.do(t, "GET", "/thumbnail/crop/100x100/p/a.png", nil)
	a.Equal(200, code)
	a.True(strings.HasPrefix(body, "Crop 1200x800->100x100 crop=800x800+200+0"), body)
	a.True(strings.HasSuffix(body, "bg=#ffffff"), body)
	a.Equal(1, ts.renderer.calls())

	// served from disk the second time
	code, _ = ts.do(t, "GET", "/thumbnail/crop/100x100/p/a.png", nil)
	a.Equal(200, code)
	a.Equal(1, ts.renderer.calls())

	_, err := os.Stat(filepath.Join(ts.conf.ThumbnailDir, "crop", "100x100", "p", "a.png"))
	a.NoError(err)

	code, _ = ts.do(t, "HEAD", "/thumbnail/crop/100x100/p/a.png", nil)
	a.Equal(200, code)

	code, body = ts.do(t, "GET", "/thumbnail/small/p/a.png", nil)
	a.Equal(200, code)
	a.True(strings.HasPrefix(body, "Pad 1200x800->64x64"), body)
	a.True(strings.HasSuffix(body, "bg=#123456"), body)
}

func TestServer_ThumbnailErrors(t *testing.T) {
	a := assert.New(t)
	ts := newTestServer(t)

	code, _ := ts.do(t, "PUT", "/source/a.png", pngBytes(t, 10, 10))
	require.Equal(t, 200, code)
	code, _ = ts.do(t, "PUT", "/source/broken.png", []byte("not an image"))
	require.Equal(t, 200, code)

	code, _ = ts.do(t, "GET", "/thumbnail/stretch/10x10/a.png", nil)
	a.Equal(400, code)

	code, _ = ts.do(t, "GET", "/thumbnail/crop/0x10/a.png", nil)
	a.Equal(400, code)

	code, _ = ts.do(t, "GET", "/thumbnail/crop/3000x10/a.png", nil)
	a.Equal(400, code)

	code, _ = ts.do(t, "GET", "/thumbnail/crop/10x10/missing.png", nil)
	a.Equal(404, code)

	code, _ = ts.do(t, "GET", "/thumbnail/crop/10x10/broken.png", nil)
	a.Equal(400, code)

	code, _ = ts.do(t, "GET", "/thumbnail/crop/10x10", nil)
	a.Equal(400, code)

	code, _ = ts.do(t, "POST", "/thumbnail/crop/10x10/a.png", nil)
	a.Equal(400, code)

	a.Equal(0, ts.renderer.calls())
}

func TestServer_ThumbnailConcurrent(t *testing.T) {
	ts := newTestServer(t)

	code, _ := ts.do(t, "PUT", "/source/a.png", pngBytes(t, 300, 200))
	require.Equal(t, 200, code)

	var wg sync.WaitGroup
	codes := make([]int, 8)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := http.Get(ts.URL + "/thumbnail/max/100x100/a.png")
			if err != nil {
				return
			}
			res.Body.Close()
			codes[i] = res.StatusCode
		}(i)
	}
	wg.Wait()

	for _, c := range codes {
		assert.Equal(t, 200, c)
	}
	assert.Equal(t, 1, ts.renderer.calls())
}

func TestServer_Misc(t *testing.T) {
	a := assert.New(t)
	ts := newTestServer(t)

	code, _ := ts.do(t, "GET", "/source/a.png/", nil)
	a.Equal(http.StatusMovedPermanently, code)

	code, body := ts.do(t, "GET", "/health", nil)
	a.Equal(200, code)
	var health map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	a.Equal("ok", health["status"])

	_, err := NewServer(ServerConfig{})
	a.Error(err)
}
