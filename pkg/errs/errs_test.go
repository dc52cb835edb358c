package errs

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"io", IO("open", "/missing", os.ErrNotExist), KindIO},
		{"format", Formatf("bad header"), KindFormat},
		{"wrapped format", fmt.Errorf("read: %w", WrapFormat(errors.New("eof"), "block %d", 2)), KindFormat},
		{"object type", &ObjectTypeError{Want: "Mesh", Got: "Texture2D"}, KindObjectType},
		{"asset", AssetNotFound("missing-name"), KindAssetNotFound},
		{"card", &CardNotFoundError{ID: "EX1_000"}, KindCardNotFound},
		{"invalid", &InvalidCardError{ID: "EX1_000", Field: "rarity"}, KindInvalidCard},
		{"not implemented", NotImplementedf("card type %s", "HERO"), KindNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIOErrorUnwrap(t *testing.T) {
	err := IO("open", "/missing", os.ErrNotExist)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Nil(t, IO("open", "/x", nil))
}

func TestAssetNotFoundAs(t *testing.T) {
	err := fmt.Errorf("lookup: %w", AssetNotFound("missing-name"))

	var notFound *AssetNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing-name", notFound.Name)
	assert.Equal(t, "lookup: asset not found: missing-name", err.Error())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "not_implemented", KindNotImplemented.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}
