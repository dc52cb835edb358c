// Package cardgen assembles complete card images.
//
// A Generator looks a card up, builds its frame, draws the enabled layout
// layers over it and scales the result onto the output canvas. Generation is
// synchronous; any failure is reported as a single *Error.
package cardgen

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/goopsie/hsCardTools/pkg/builder"
	"github.com/goopsie/hsCardTools/pkg/cards"
	"github.com/goopsie/hsCardTools/pkg/engine"
	"github.com/goopsie/hsCardTools/pkg/errs"
	"github.com/goopsie/hsCardTools/pkg/raster"
	"github.com/goopsie/hsCardTools/pkg/resources"
)

// Assets supplies decoded client assets.
type Assets interface {
	builder.Source
	Portrait(cardID string) (*image.NRGBA, error)
}

// Error reports why a card could not be generated.
type Error struct {
	CardID string
	Kind   errs.Kind
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generate %s: %v", e.CardID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Option configures a Generator.
type Option func(*Generator)

// WithResources sets the textures used when the client lacks one.
func WithResources(p *resources.Pack) Option {
	return func(g *Generator) { g.pack = p }
}

func WithLayout(l Layout) Option {
	return func(g *Generator) { g.layout = l }
}

func WithOutput(o Output) Option {
	return func(g *Generator) { g.output = o }
}

// WithDebugSink sends every intermediate layer to s.
func WithDebugSink(s DebugSink) Option {
	return func(g *Generator) { g.sink = s }
}

func WithLogger(l zerolog.Logger) Option {
	return func(g *Generator) { g.log = l }
}

// Generator renders cards from one set of assets and card metadata.
type Generator struct {
	assets Assets
	db     *cards.DB
	pack   *resources.Pack
	layout Layout
	output Output
	sink   DebugSink
	log    zerolog.Logger
}

// New returns a generator drawing from a and db.
func New(a Assets, db *cards.DB, opts ...Option) *Generator {
	g := &Generator{
		assets: a,
		db:     db,
		layout: DefaultLayout(),
		output: DefaultOutput(),
		log:    log.Logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate renders cardID. The image has top-down rows.
func (g *Generator) Generate(cardID string) (image.Image, error) {
	img, err := g.generate(cardID)
	if err != nil {
		g.log.Debug().Err(err).Str("card", cardID).Msg("generation failed")
		return nil, &Error{CardID: cardID, Kind: errs.KindOf(err), Err: err}
	}
	return img, nil
}

func (g *Generator) generate(cardID string) (image.Image, error) {
	card, err := g.db.Card(cardID)
	if err != nil {
		return nil, err
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}
	logger := g.log.With().Str("card", cardID).Logger()
	src := source{assets: g.assets, pack: g.pack}

	frame, err := builder.Frame(card.Type, card.Class(), g.layout.Frame, src)
	if err != nil {
		return nil, fmt.Errorf("frame: %w", err)
	}
	g.debug(cardID, "frame", frame)

	fb := frame.Bounds()
	canvas := raster.NewCanvas(fb.Dx(), fb.Dy())
	if err := canvas.DrawSprite(raster.Sprite{Texture: raster.NewTexture(frame, false)}); err != nil {
		return nil, err
	}
	for _, name := range layerOrder {
		spec, ok := g.layout.Layers[name]
		if !ok || !spec.Enabled {
			continue
		}
		img, err := g.layer(name, spec, card, src)
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", name, err)
		}
		if img == nil {
			logger.Debug().Str("layer", string(name)).Msg("layer skipped")
			continue
		}
		g.debug(cardID, string(name), img)
		if err := canvas.DrawSprite(raster.Sprite{
			Texture:   raster.NewTexture(img, true),
			Transform: raster.Identity().Translate(spec.X, spec.Y),
		}); err != nil {
			return nil, err
		}
		logger.Debug().Str("layer", string(name)).Msg("layer drawn")
	}
	composed := canvas.Finalize()
	g.debug(cardID, "card", composed)

	out, err := g.place(composed)
	if err != nil {
		return nil, err
	}
	return imaging.FlipV(out), nil
}

// layer builds one layout layer. It returns nil for layers the card has no
// use for.
func (g *Generator) layer(name Layer, spec LayerSpec, card *cards.Card, src source) (*image.NRGBA, error) {
	m, err := src.Mesh(spec.Mesh)
	if err != nil {
		return nil, err
	}
	if name == LayerPortrait {
		art, err := g.assets.Portrait(card.ID)
		if err != nil {
			return nil, err
		}
		shadow, err := src.Texture(spec.Overlay)
		if err != nil {
			return nil, err
		}
		return builder.Portrait(art, shadow, m)
	}

	tex, err := src.Texture(spec.Texture)
	if err != nil {
		return nil, err
	}
	switch name {
	case LayerPortraitFrame:
		return builder.PortraitFrame(tex, m)
	case LayerRaritySocket:
		return builder.RaritySocket(tex, m, spec.Width)
	case LayerRarityGem:
		q, ok := card.Rarity.GemQuadrant()
		if !ok {
			return nil, nil
		}
		shader, err := src.Texture(spec.Overlay)
		if err != nil {
			return nil, err
		}
		return builder.RarityGem(tex, shader, m, q, spec.Width)
	case LayerNameBanner:
		return builder.NameBanner(tex, m, spec.Width)
	case LayerManaGem:
		return builder.ManaGem(tex, m, spec.Width)
	}
	return nil, errs.NotImplementedf("layer %s", name)
}

// place scales the assembled card to the output size and centres it on the
// bleed canvas.
func (g *Generator) place(card *image.NRGBA) (*image.NRGBA, error) {
	o := g.output
	if o.Width <= 0 || o.Height <= 0 {
		return nil, fmt.Errorf("output size %dx%d", o.Width, o.Height)
	}
	bleed := max(o.Bleed, 1)
	bw := int(math.Round(float64(o.Width) * bleed))
	bh := int(math.Round(float64(o.Height) * bleed))

	scaled := raster.Resize(card, o.Width, o.Height)
	c := raster.NewCanvas(bw, bh)
	err := c.DrawSprite(raster.Sprite{
		Texture:   raster.NewTexture(scaled, false),
		Transform: raster.Identity().Translate(float32((bw-o.Width)/2), float32((bh-o.Height)/2)),
	})
	if err != nil {
		return nil, err
	}
	return c.Finalize(), nil
}

func (g *Generator) debug(cardID, name string, img image.Image) {
	if g.sink == nil {
		return
	}
	if err := g.sink.Layer(cardID, name, img); err != nil {
		g.log.Warn().Err(err).Str("card", cardID).Str("layer", name).Msg("debug sink")
	}
}

// source resolves textures from the client first and the resource pack second.
type source struct {
	assets Assets
	pack   *resources.Pack
}

func (s source) Texture(name string) (*image.NRGBA, error) {
	img, err := s.assets.Texture(name)
	if errors.Is(err, errs.ErrAssetNotFound) {
		if fb, ferr := s.pack.Texture(name); ferr == nil {
			return fb, nil
		}
	}
	return img, err
}

func (s source) Mesh(name string) (*engine.Mesh, error) {
	return s.assets.Mesh(name)
}
