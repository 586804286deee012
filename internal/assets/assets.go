// Package assets resolves the textures the globe scene references by name
// and rasterizes text labels into sprite textures.
package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrUnsupportedFormat is returned for files that are not PNG or JPEG.
var ErrUnsupportedFormat = errors.New("unsupported texture format")

// Texture is a decoded texture header plus its encoded bytes.
type Texture struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	// Path is the source file, empty for generated textures.
	Path string `json:"path,omitempty"`
	Data []byte `json:"data,omitempty"`
}

// Loader resolves textures by name.
type Loader interface {
	Texture(name string) (Texture, bool)
}

// Catalog is a thread-safe named texture set.
type Catalog struct {
	mu       sync.RWMutex
	textures map[string]Texture
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{textures: make(map[string]Texture)}
}

// Register decodes t.Data's header when Width/Height are unset and stores
// the texture, replacing any previous one with the same name.
func (c *Catalog) Register(t Texture) error {
	if t.Name == "" {
		return fmt.Errorf("texture has no name")
	}
	if t.Width == 0 || t.Height == 0 {
		cfg, format, err := image.DecodeConfig(bytes.NewReader(t.Data))
		if err != nil {
			return fmt.Errorf("texture %q: %w", t.Name, err)
		}
		t.Width, t.Height, t.Format = cfg.Width, cfg.Height, format
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.textures[t.Name] = t
	return nil
}

// Texture implements Loader.
func (c *Catalog) Texture(name string) (Texture, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.textures[name]
	return t, ok
}

// Names lists registered texture names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.textures))
	for name := range c.textures {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Missing returns the names in required that are not registered.
func Missing(l Loader, required []string) []string {
	var out []string
	for _, name := range required {
		if _, ok := l.Texture(name); !ok {
			out = append(out, name)
		}
	}
	return out
}

// LoadDir registers every PNG/JPEG file in dir under its base name without
// extension ("earth.jpg" becomes "earth"). Other files are skipped.
func LoadDir(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read asset dir: %w", err)
	}
	c := NewCatalog()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		switch ext {
		case ".png", ".jpg", ".jpeg":
		default:
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		t := Texture{Name: strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())), Path: path, Data: data}
		if err := c.Register(t); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
	}
	return c, nil
}

// Solid returns a size×size PNG texture filled with col. It stands in for
// missing artwork in tools and tests.
func Solid(name string, size int, col color.Color) (Texture, error) {
	if size <= 0 {
		size = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, col)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Texture{}, err
	}
	return Texture{Name: name, Width: size, Height: size, Format: "png", Data: buf.Bytes()}, nil
}

// Placeholders returns a catalog with a solid texture for every name.
func Placeholders(names []string) (*Catalog, error) {
	c := NewCatalog()
	for _, name := range names {
		t, err := Solid(name, 2, color.White)
		if err != nil {
			return nil, err
		}
		if err := c.Register(t); err != nil {
			return nil, err
		}
	}
	return c, nil
}
