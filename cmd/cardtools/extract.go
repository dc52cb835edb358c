package main

import (
	"fmt"
	"os"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	"github.com/goopsie/hsCardTools/pkg/assets"
	"github.com/goopsie/hsCardTools/pkg/config"
	"github.com/goopsie/hsCardTools/pkg/texture"
)

func extractCommand(cfg *config.Config, name, out string, dds bool) error {
	c, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	store := assets.New(c)

	if dds {
		tex, err := store.RawTexture(name)
		if err != nil {
			return err
		}
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		defer f.Close()
		if err := texture.WriteDDS(f, tex); err != nil {
			return err
		}
		log.Info().Str("texture", name).Str("format", texture.Format(tex.Format).String()).Msg("dds written")
		return f.Close()
	}

	img, err := store.Texture(name)
	if err != nil {
		return err
	}
	if err := imaging.Save(imaging.FlipV(img), out); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	log.Info().Str("texture", name).Str("path", out).Msg("texture written")
	return nil
}
