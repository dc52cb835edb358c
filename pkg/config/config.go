// Package config reads the YAML configuration of the card tools.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-redis/redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/goopsie/hsCardTools/pkg/builder"
	"github.com/goopsie/hsCardTools/pkg/cardgen"
	"github.com/goopsie/hsCardTools/pkg/cards"
	"github.com/goopsie/hsCardTools/pkg/catalog"
	"github.com/goopsie/hsCardTools/pkg/engine"
	"github.com/goopsie/hsCardTools/pkg/errs"
)

//go:embed default.yaml
var Default []byte

type CacheKind string

const (
	CacheNone  CacheKind = "none"
	CacheFS    CacheKind = "fs"
	CacheRedis CacheKind = "redis"
)

type Pass struct {
	Pattern string   `yaml:"pattern"`
	Kinds   []string `yaml:"kinds"`
}

type Assets struct {
	Root    string `yaml:"root"`
	Workers int    `yaml:"workers"`
	Passes  []Pass `yaml:"passes"`
}

type Cards struct {
	Path string `yaml:"path"`
}

type Cache struct {
	Kind CacheKind     `yaml:"kind"`
	Dir  string        `yaml:"dir"`
	Addr string        `yaml:"addr"`
	TTL  time.Duration `yaml:"ttl"`
}

type Output struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Bleed  float64 `yaml:"bleed"`
}

type Debug struct {
	Dir string `yaml:"dir"`
}

type Frames struct {
	// Ability maps a card class name to its ability frame texture.
	Ability         map[string]string `yaml:"ability"`
	Banner          string            `yaml:"banner"`
	BaseMesh        string            `yaml:"baseMesh"`
	DescriptionMesh string            `yaml:"descriptionMesh"`
	UV              int               `yaml:"uv"`
}

type Layer struct {
	Enabled bool    `yaml:"enabled"`
	Mesh    string  `yaml:"mesh"`
	Texture string  `yaml:"texture"`
	Overlay string  `yaml:"overlay"`
	Width   float32 `yaml:"width"`
	X       float32 `yaml:"x"`
	Y       float32 `yaml:"y"`
}

type Layout struct {
	Frames Frames           `yaml:"frames"`
	Layers map[string]Layer `yaml:"layers"`
}

type Config struct {
	Assets Assets `yaml:"assets"`
	Cards  Cards  `yaml:"cards"`
	Locale string `yaml:"locale"`
	Cache  Cache  `yaml:"cache"`
	Output Output `yaml:"output"`
	Debug  Debug  `yaml:"debug"`
	Layout Layout `yaml:"layout"`
}

func decode(data []byte, c *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Parse overlays data on the default configuration. Lists and individual
// layers given in data replace the defaults as a whole.
func Parse(data []byte) (*Config, error) {
	c := &Config{}
	if err := decode(Default, c); err != nil {
		return nil, fmt.Errorf("invalid default config: %w", err)
	}
	if err := decode(data, c); err != nil {
		return nil, errs.WrapFormat(err, "config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads the config file at path. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.IO("read", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return c, nil
}

// Validate reports every problem with c.
func (c *Config) Validate() error {
	var problems []error
	if c.Output.Width <= 0 || c.Output.Height <= 0 {
		problems = append(problems, fmt.Errorf("output size %dx%d must be positive", c.Output.Width, c.Output.Height))
	}
	if c.Output.Bleed < 1 {
		problems = append(problems, fmt.Errorf("output bleed %v is below 1", c.Output.Bleed))
	}
	if _, err := c.Passes(); err != nil {
		problems = append(problems, err)
	}
	switch c.Cache.Kind {
	case CacheNone, CacheFS, CacheRedis:
	default:
		problems = append(problems, fmt.Errorf("unknown cache kind %q", c.Cache.Kind))
	}
	if _, err := c.CardLayout(); err != nil {
		problems = append(problems, err)
	}
	return errors.Join(problems...)
}

// Passes converts the configured catalog passes.
func (c *Config) Passes() ([]catalog.Pass, error) {
	passes := make([]catalog.Pass, 0, len(c.Assets.Passes))
	for _, p := range c.Assets.Passes {
		var set engine.KindSet
		for _, name := range p.Kinds {
			k, err := engine.ParseKind(name)
			if err != nil {
				return nil, fmt.Errorf("pass %q: %w", p.Pattern, err)
			}
			set = set.Add(k)
		}
		passes = append(passes, catalog.Pass{Pattern: p.Pattern, Kinds: set})
	}
	return passes, nil
}

// CardLayout converts the layout section.
func (c *Config) CardLayout() (cardgen.Layout, error) {
	f := c.Layout.Frames
	frame := builder.FrameLayout{
		AbilityFrames:          make(map[cards.CardClass]string, len(f.Ability)),
		AbilityBanner:          f.Banner,
		AbilityBaseMesh:        f.BaseMesh,
		AbilityDescriptionMesh: f.DescriptionMesh,
		UV:                     f.UV,
	}
	for name, tex := range f.Ability {
		class, err := cards.ParseCardClass(name)
		if err != nil {
			return cardgen.Layout{}, fmt.Errorf("layout frames: %w", err)
		}
		frame.AbilityFrames[class] = tex
	}

	layers := make(map[cardgen.Layer]cardgen.LayerSpec, len(c.Layout.Layers))
	for name, l := range c.Layout.Layers {
		layer, err := cardgen.ParseLayer(name)
		if err != nil {
			return cardgen.Layout{}, fmt.Errorf("layout: %w", err)
		}
		layers[layer] = cardgen.LayerSpec{
			Enabled: l.Enabled,
			Mesh:    l.Mesh,
			Texture: l.Texture,
			Overlay: l.Overlay,
			Width:   l.Width,
			X:       l.X,
			Y:       l.Y,
		}
	}
	return cardgen.Layout{Frame: frame, Layers: layers}, nil
}

func (c *Config) CardOutput() cardgen.Output {
	return cardgen.Output{Width: c.Output.Width, Height: c.Output.Height, Bleed: c.Output.Bleed}
}

// OpenCache returns the configured snapshot store, or nil for none.
func (c *Config) OpenCache() catalog.Store {
	switch c.Cache.Kind {
	case CacheFS:
		return catalog.FSStore(c.Cache.Dir)
	case CacheRedis:
		client := redis.NewClient(&redis.Options{Addr: c.Cache.Addr})
		return catalog.NewRedisStore(client, c.Cache.TTL)
	}
	return nil
}
