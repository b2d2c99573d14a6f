package imageop

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/szxp/imageop/geometry"
)

func TestProber_Probe(t *testing.T) {
	a := assert.New(t)

	path := filepath.Join(t.TempDir(), "a.png")
	writePNG(t, path, 120, 80)

	p, err := NewProber(4, nil)
	require.NoError(t, err)

	size, err := p.Probe(path)
	require.NoError(t, err)
	a.Equal(geometry.SizeOf(120, 80), size)
	a.Equal(1, p.Cached())

	size, err = p.Probe(path)
	require.NoError(t, err)
	a.Equal(geometry.SizeOf(120, 80), size)
	a.Equal(1, p.Cached())
}

func TestProber_NotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	p, err := NewProber(4, nil)
	require.NoError(t, err)

	_, err = p.Probe(path)
	assert.True(t, errors.Is(err, geometry.ErrInvalidSource))

	_, err = p.Probe(filepath.Join(t.TempDir(), "missing.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestProcessor_Process(t *testing.T) {
	a := assert.New(t)

	src := filepath.Join(t.TempDir(), "upload.png")
	writePNG(t, src, 1200, 800)

	r := &fakeRenderer{}
	p := newTestProcessor(t, r,
		Variant{Mode: geometry.Max, Width: 600, Height: 600},
		Variant{Mode: geometry.Crop, Width: 100, Height: 100, Background: "#000"})

	set, err := p.Process(context.Background(), src, "photos/Holiday.PNG")
	require.NoError(t, err)

	a.Equal("Holiday", set.SourceName)
	a.Equal("png", set.SourceExtension)

	require.NotNil(t, set.Main)
	a.Equal(600, set.Main.Width)
	a.Equal(400, set.Main.Height)
	a.Equal("png", set.Main.Extension)
	a.True(strings.HasPrefix(set.Main.Name, "Holiday-main600x600-"))
	a.True(strings.HasSuffix(set.Main.Name, ".png"))
	a.Equal(filepath.Join(p.conf.TempDir, set.Main.Name), set.Main.Path)
	a.Greater(set.Main.Length, int64(0))

	require.NotNil(t, set.Thumb)
	a.Equal(100, set.Thumb.Width)
	a.Equal(100, set.Thumb.Height)
	a.Equal(geometry.CropRect{X: 200, Y: 0, Width: 800, Height: 800}, set.Thumb.Plan.Crop)

	content, err := os.ReadFile(set.Thumb.Path)
	require.NoError(t, err)
	a.True(strings.HasSuffix(string(content), "bg=#000"))

	a.Equal(2, r.calls())

	require.NoError(t, set.Remove())
	_, err = os.Stat(set.Main.Path)
	a.True(os.IsNotExist(err))
	_, err = os.Stat(set.Thumb.Path)
	a.True(os.IsNotExist(err))
}

func TestProcessor_DisabledVariant(t *testing.T) {
	src := filepath.Join(t.TempDir(), "a.png")
	writePNG(t, src, 100, 100)

	r := &fakeRenderer{}
	p := newTestProcessor(t, r, Variant{Mode: geometry.Max, Width: 50, Height: 50}, Variant{})

	set, err := p.Process(context.Background(), src, "a.png")
	require.NoError(t, err)
	assert.NotNil(t, set.Main)
	assert.Nil(t, set.Thumb)
	assert.Equal(t, 1, r.calls())
}

func TestProcessor_IdentityCopies(t *testing.T) {
	a := assert.New(t)

	src := filepath.Join(t.TempDir(), "a.png")
	writePNG(t, src, 150, 150)

	r := &fakeRenderer{}
	p := newTestProcessor(t, r,
		Variant{Mode: geometry.Max, Width: 200, Height: 150},
		Variant{Mode: geometry.Crop, Width: 150, Height: 150})

	set, err := p.Process(context.Background(), src, "a.png")
	require.NoError(t, err)
	a.Equal(0, r.calls())
	a.True(set.Main.Plan.Identity())
	a.True(set.Thumb.Plan.Identity())

	want, err := os.ReadFile(src)
	require.NoError(t, err)
	got, err := os.ReadFile(set.Main.Path)
	require.NoError(t, err)
	a.Equal(want, got)
}

func TestProcessor_Errors(t *testing.T) {
	a := assert.New(t)

	src := filepath.Join(t.TempDir(), "a.png")
	writePNG(t, src, 100, 100)

	r := &fakeRenderer{err: errors.New("boom")}
	p := newTestProcessor(t, r,
		Variant{Mode: geometry.Max, Width: 50, Height: 50},
		Variant{Mode: geometry.Crop, Width: 10, Height: 10})

	_, err := p.Process(context.Background(), src, "a.png")
	a.EqualError(err, "boom")

	_, err = p.Process(context.Background(), src, "noext")
	a.Error(err)

	_, err = NewProcessor(ProcessorConfig{})
	a.Error(err)
}

func TestProcessor_RenderErrorRemovesOutput(t *testing.T) {
	a := assert.New(t)

	src := filepath.Join(t.TempDir(), "a.png")
	writePNG(t, src, 100, 100)

	for _, vs := range [][2]Variant{
		{{Mode: geometry.Max, Width: 50, Height: 50}, {}},
		{{}, {Mode: geometry.Crop, Width: 10, Height: 10}},
	} {
		p := newTestProcessor(t, &fakeRenderer{err: errors.New("boom")}, vs[0], vs[1])

		_, err := p.Process(context.Background(), src, "a.png")
		a.EqualError(err, "boom")

		entries, err := os.ReadDir(p.conf.TempDir)
		require.NoError(t, err)
		a.Empty(entries)
	}
}
