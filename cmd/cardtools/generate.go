package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/goopsie/hsCardTools/pkg/assets"
	"github.com/goopsie/hsCardTools/pkg/cardgen"
	"github.com/goopsie/hsCardTools/pkg/cards"
	"github.com/goopsie/hsCardTools/pkg/config"
	"github.com/goopsie/hsCardTools/pkg/resources"
)

func generateCommand(cfg *config.Config, ids []string, outDir string) error {
	db, err := cards.LoadFile(cfg.Cards.Path)
	if err != nil {
		return err
	}
	c, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	pack, err := resources.Default()
	if err != nil {
		return err
	}
	layout, err := cfg.CardLayout()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	opts := []cardgen.Option{
		cardgen.WithResources(pack),
		cardgen.WithLayout(layout),
		cardgen.WithOutput(cfg.CardOutput()),
	}
	if cfg.Debug.Dir != "" {
		opts = append(opts, cardgen.WithDebugSink(cardgen.DirSink(cfg.Debug.Dir)))
	}
	gen := cardgen.New(assets.New(c), db, opts...)

	var failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for _, id := range ids {
		g.Go(func() error {
			logger := log.With().Str("card", id).Logger()
			if card, err := db.Card(id); err == nil {
				logger = logger.With().Str("name", card.Name.Get(cfg.Locale)).Logger()
			}

			img, err := gen.Generate(id)
			if err != nil {
				failed.Add(1)
				logger.Error().Err(err).Msg("generation failed")
				return nil
			}
			path := filepath.Join(outDir, id+".png")
			if err := imaging.Save(img, path); err != nil {
				failed.Add(1)
				logger.Error().Err(err).Str("path", path).Msg("write failed")
				return nil
			}
			logger.Info().Str("path", path).Msg("card written")
			return nil
		})
	}
	g.Wait()

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d cards failed", n, len(ids))
	}
	return nil
}
