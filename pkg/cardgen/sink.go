package cardgen

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/goopsie/hsCardTools/pkg/errs"
)

// DebugSink receives intermediate layers while a card is generated. Images are
// in Unity row order.
type DebugSink interface {
	Layer(cardID, name string, img image.Image) error
}

// DirSink writes layers as top-down PNG files named <card>_<layer>.png.
type DirSink string

func (d DirSink) Layer(cardID, name string, img image.Image) error {
	if err := os.MkdirAll(string(d), 0o755); err != nil {
		return errs.IO("mkdir", string(d), err)
	}
	p := filepath.Join(string(d), fmt.Sprintf("%s_%s.png", cardID, name))
	if err := imaging.Save(imaging.FlipV(img), p); err != nil {
		return errs.IO("write", p, err)
	}
	return nil
}
