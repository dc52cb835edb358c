package catalog

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/goopsie/hsCardTools/pkg/errs"
)

// Locator addresses one object: a bundle file relative to the catalog root, the
// sub-container index inside it, and the object's path id.
type Locator struct {
	File  string `cbor:"1,keyasint"`
	Index int    `cbor:"2,keyasint"`
	ID    int64  `cbor:"3,keyasint"`
}

// Ref returns the locator of object id in sub-container index of file.
func Ref(file string, index int, id int64) Locator {
	return Locator{File: file, Index: index, ID: id}
}

// String renders the locator as file|index|id.
func (l Locator) String() string {
	return fmt.Sprintf("%s|%d|%d", l.File, l.Index, l.ID)
}

// ParseLocator parses the String form of a locator.
func ParseLocator(s string) (Locator, error) {
	idSep := strings.LastIndexByte(s, '|')
	if idSep < 0 {
		return Locator{}, errs.Formatf("locator %q: missing separators", s)
	}
	idxSep := strings.LastIndexByte(s[:idSep], '|')
	if idxSep < 0 {
		return Locator{}, errs.Formatf("locator %q: missing separators", s)
	}
	index, err := strconv.Atoi(s[idxSep+1 : idSep])
	if err != nil {
		return Locator{}, errs.WrapFormat(err, "locator %q: index", s)
	}
	id, err := strconv.ParseInt(s[idSep+1:], 10, 64)
	if err != nil {
		return Locator{}, errs.WrapFormat(err, "locator %q: id", s)
	}
	return Ref(s[:idxSep], index, id), nil
}

// NormalizePath maps an asset path to the form container keys are stored in:
// lower case, without a trailing ":hash" suffix, under "final/".
func NormalizePath(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if i := strings.LastIndexByte(p, ':'); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimPrefix(p, "/")
	if !strings.HasPrefix(p, "final/") {
		p = "final/" + p
	}
	return p
}

// basename returns the last element of a normalized path.
func basename(p string) string {
	return path.Base(p)
}
