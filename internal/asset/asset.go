// Package asset loads the hairstyle overlay catalog.
package asset

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gocv.io/x/gocv"
)

// ManifestName is the catalog file looked up in the asset directory.
const ManifestName = "catalog.toml"

var (
	// ErrNotFound is returned when a requested asset does not exist.
	ErrNotFound = errors.New("asset not found")

	// ErrEmptyCatalog is returned when a directory holds no usable assets.
	ErrEmptyCatalog = errors.New("asset catalog is empty")
)

// Asset is one selectable hairstyle overlay.
type Asset struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Source string `json:"-"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Ratio returns the natural height/width ratio of the asset.
func (a Asset) Ratio() float64 {
	if a.Width <= 0 {
		return 0
	}
	return float64(a.Height) / float64(a.Width)
}

type manifest struct {
	Default string          `toml:"default"`
	Assets  []manifestAsset `toml:"asset"`
}

type manifestAsset struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
	File string `toml:"file"`
}

// Catalog is a static ordered list of assets.
type Catalog struct {
	dir      string
	assets   []Asset
	byID     map[string]int
	fallback string

	mu     sync.Mutex
	images map[string]image.Image
}

// Load reads the catalog in dir. When dir has no catalog.toml every PNG in
// it becomes an asset named after its file, in lexical order.
func Load(dir string) (*Catalog, error) {
	entries, def, err := readManifest(dir)
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		dir:    dir,
		byID:   make(map[string]int),
		images: make(map[string]image.Image),
	}

	for _, e := range entries {
		if e.ID == "" || e.File == "" {
			return nil, fmt.Errorf("asset %q: id and file are required", e.Name)
		}
		if _, dup := c.byID[e.ID]; dup {
			return nil, fmt.Errorf("asset %q: duplicate id", e.ID)
		}

		path := e.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		w, h, err := naturalSize(path)
		if err != nil {
			return nil, fmt.Errorf("asset %q: %w", e.ID, err)
		}

		name := e.Name
		if name == "" {
			name = e.ID
		}
		c.byID[e.ID] = len(c.assets)
		c.assets = append(c.assets, Asset{ID: e.ID, Name: name, Source: path, Width: w, Height: h})
	}

	if len(c.assets) == 0 {
		return nil, ErrEmptyCatalog
	}

	c.fallback = c.assets[0].ID
	if def != "" {
		if _, ok := c.byID[def]; !ok {
			return nil, fmt.Errorf("default asset %q: %w", def, ErrNotFound)
		}
		c.fallback = def
	}

	return c, nil
}

func readManifest(dir string) ([]manifestAsset, string, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err == nil {
		var m manifest
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, "", fmt.Errorf("parse %s: %w", ManifestName, err)
		}
		return m.Assets, m.Default, nil
	}
	if !os.IsNotExist(err) {
		return nil, "", err
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, "", err
	}

	var entries []manifestAsset
	for _, entry := range dirEntries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".png") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		entries = append(entries, manifestAsset{ID: id, Name: id, File: entry.Name()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	return entries, "", nil
}

func naturalSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("read %s: empty image", filepath.Base(path))
	}
	return cfg.Width, cfg.Height, nil
}

// Dir returns the directory the catalog was loaded from.
func (c *Catalog) Dir() string {
	return c.dir
}

// List returns the assets in catalog order.
func (c *Catalog) List() []Asset {
	out := make([]Asset, len(c.assets))
	copy(out, c.assets)
	return out
}

// Get returns an asset by id.
func (c *Catalog) Get(id string) (Asset, error) {
	i, ok := c.byID[id]
	if !ok {
		return Asset{}, ErrNotFound
	}
	return c.assets[i], nil
}

// Default returns the asset selected at startup.
func (c *Catalog) Default() Asset {
	return c.assets[c.byID[c.fallback]]
}

// Image returns the decoded pixels of an asset, alpha channel included.
// Images are read on first use and cached.
func (c *Catalog) Image(id string) (image.Image, error) {
	a, err := c.Get(id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if img, ok := c.images[id]; ok {
		return img, nil
	}

	mat := gocv.IMRead(a.Source, gocv.IMReadUnchanged)
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("asset %q: cannot read %s", id, a.Source)
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("asset %q: %w", id, err)
	}

	c.images[id] = img
	return img, nil
}
