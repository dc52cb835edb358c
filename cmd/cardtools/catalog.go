package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"

	"github.com/goopsie/hsCardTools/pkg/catalog"
	"github.com/goopsie/hsCardTools/pkg/config"
)

func catalogCommand(cfg *config.Config, dump bool, snapshot string) error {
	c, err := openCatalog(cfg)
	if err != nil {
		return err
	}

	if snapshot != "" {
		passes, err := cfg.Passes()
		if err != nil {
			return err
		}
		fp, err := catalog.Fingerprint(cfg.Assets.Root, passes)
		if err != nil {
			return err
		}
		if err := catalog.Save(snapshot, c, fp); err != nil {
			return err
		}
		log.Info().Str("path", snapshot).Msg("snapshot written")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	for _, kind := range c.Kinds() {
		names := c.Names(kind)
		if !dump {
			fmt.Fprintf(w, "%s\t%d\n", kind, len(names))
			continue
		}
		for _, name := range names {
			loc, err := c.Lookup(kind, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", kind, name, loc)
		}
	}
	if !dump {
		fmt.Fprintf(w, "portraits\t%d\n", len(c.Cards()))
	}
	return nil
}
