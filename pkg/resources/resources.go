// Package resources provides fallback textures for assets a client may lack.
package resources

import (
	"embed"
	"image"
	"io/fs"
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/goopsie/hsCardTools/pkg/errs"
)

//go:embed data/*.png
var embedded embed.FS

// Pack is a set of named textures in Unity row order, bottom row first.
type Pack struct {
	textures map[string]*image.NRGBA
}

// Load reads every *.png at the top of fsys. The file stem is the texture name.
func Load(fsys fs.FS) (*Pack, error) {
	files, err := fs.Glob(fsys, "*.png")
	if err != nil {
		return nil, errs.IO("glob", "*.png", err)
	}
	p := &Pack{textures: make(map[string]*image.NRGBA, len(files))}
	for _, name := range files {
		f, err := fsys.Open(name)
		if err != nil {
			return nil, errs.IO("open", name, err)
		}
		img, err := imaging.Decode(f)
		f.Close()
		if err != nil {
			return nil, errs.WrapFormat(err, "resource %s", name)
		}
		p.textures[strings.TrimSuffix(path.Base(name), ".png")] = imaging.FlipV(img)
	}
	return p, nil
}

// Default loads the embedded fallbacks.
func Default() (*Pack, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// Texture returns the texture called name.
func (p *Pack) Texture(name string) (*image.NRGBA, error) {
	if p != nil {
		if img, ok := p.textures[name]; ok {
			return img, nil
		}
	}
	return nil, errs.AssetNotFound(name)
}

// Names returns the sorted texture names.
func (p *Pack) Names() []string {
	if p == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(p.textures))
}
