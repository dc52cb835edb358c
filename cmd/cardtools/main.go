// Command cardtools renders card images from a game client's asset bundles.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/goopsie/hsCardTools/pkg/catalog"
	"github.com/goopsie/hsCardTools/pkg/config"
)

var CLI struct {
	Debug  bool   `help:"Enable debug logging."`
	Config string `help:"Configuration file, overlaid on the defaults." type:"existingfile" short:"c"`

	Generate struct {
		Cards  []string `arg:"" name:"card-id" help:"Cards to render."`
		Output string   `help:"Directory the images are written to." short:"o" default:"."`
	} `cmd:"" help:"Render cards to PNG files."`

	Catalog struct {
		Dump     bool   `help:"List every indexed object."`
		Snapshot string `help:"Also write the catalog snapshot to this file."`
	} `cmd:"" help:"Build or load the asset catalog."`

	Extract struct {
		Name string `arg:"" help:"Texture name."`
		Out  string `arg:"" help:"Output file."`
		DDS  bool   `name:"dds" help:"Write the stored texture data as DDS instead of decoding to PNG."`
	} `cmd:"" help:"Write one client texture to a file."`

	Defaults struct {
	} `cmd:"" help:"Write the default configuration to standard output."`
}

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

func main() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(consoleWriter)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx := kong.Parse(&CLI,
		kong.Name("cardtools"),
		kong.Description("render card images from Unity asset bundles"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	if CLI.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Debug().Msg("debug logging enabled")
	}

	if ctx.Command() == "defaults" {
		os.Stdout.Write(config.Default)
		return
	}

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		writeError(err)
	}

	switch ctx.Command() {
	case "generate <card-id>":
		err = generateCommand(cfg, CLI.Generate.Cards, CLI.Generate.Output)
	case "catalog":
		err = catalogCommand(cfg, CLI.Catalog.Dump, CLI.Catalog.Snapshot)
	case "extract <name> <out>":
		err = extractCommand(cfg, CLI.Extract.Name, CLI.Extract.Out, CLI.Extract.DDS)
	default:
		err = fmt.Errorf("unknown command %q", ctx.Command())
	}
	if err != nil {
		writeError(err)
	}
}

// openCatalog builds the catalog of the configured client, going through the
// snapshot cache when one is configured.
func openCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	passes, err := cfg.Passes()
	if err != nil {
		return nil, err
	}
	opts := []catalog.Option{catalog.WithWorkers(cfg.Assets.Workers)}

	start := time.Now()
	ctx := context.Background()
	var c *catalog.Catalog
	if store := cfg.OpenCache(); store != nil {
		c, err = catalog.Cached(ctx, store, cfg.Assets.Root, passes, opts...)
	} else {
		c, err = catalog.Build(ctx, cfg.Assets.Root, passes, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", cfg.Assets.Root, err)
	}
	log.Info().
		Str("root", cfg.Assets.Root).
		Int("objects", c.Len()).
		Dur("took", time.Since(start)).
		Msg("catalog ready")
	return c, nil
}
