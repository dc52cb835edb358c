package catalog

import (
	"fmt"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/fxamacker/cbor/v2"

	"github.com/goopsie/hsCardTools/pkg/archive"
	"github.com/goopsie/hsCardTools/pkg/engine"
	"github.com/goopsie/hsCardTools/pkg/errs"
)

// snapshot is the serialized form of a Catalog. Kinds are stored by name so a
// reordered Kind enum cannot remap old snapshots.
type snapshot struct {
	Root      string                        `cbor:"1,keyasint"`
	Objects   map[string]map[string]Locator `cbor:"2,keyasint"`
	Paths     map[string]Locator            `cbor:"3,keyasint"`
	Basenames map[string]Locator            `cbor:"4,keyasint"`
	Portraits map[string]string             `cbor:"5,keyasint"`
}

var encMode = func() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// MarshalBinary encodes the catalog as canonical CBOR.
func (c *Catalog) MarshalBinary() ([]byte, error) {
	s := snapshot{
		Root:      c.root,
		Objects:   make(map[string]map[string]Locator, len(c.objects)),
		Paths:     c.paths,
		Basenames: c.basenames,
		Portraits: c.portraits,
	}
	for kind, m := range c.objects {
		s.Objects[kind.String()] = m
	}
	data, err := encMode.Marshal(&s)
	if err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	return data, nil
}

// UnmarshalBinary replaces c with a catalog encoded by MarshalBinary.
func (c *Catalog) UnmarshalBinary(data []byte) error {
	var s snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return errs.WrapFormat(err, "decode catalog")
	}
	*c = *newCatalog(s.Root)
	for name, m := range s.Objects {
		kind, err := engine.ParseKind(name)
		if err != nil {
			return errs.WrapFormat(err, "decode catalog")
		}
		for n, loc := range m {
			c.put(kind, n, loc)
		}
	}
	for p, loc := range s.Paths {
		c.paths[p] = loc
	}
	for b, loc := range s.Basenames {
		c.basenames[b] = loc
	}
	for id, p := range s.Portraits {
		c.portraits[id] = p
	}
	return nil
}

// Fingerprint hashes the pass configuration and the path, size and modification
// time of every file the passes match under root.
func Fingerprint(root string, passes []Pass) (uint64, error) {
	files, err := matchFiles(root, passes)
	if err != nil {
		return 0, err
	}
	h := xxhash.New()
	for _, p := range passes {
		h.WriteString(p.String())
		h.WriteString("\x00")
	}
	for _, f := range files {
		info, err := os.Stat(f.path)
		if err != nil {
			return 0, errs.IO("stat", f.path, err)
		}
		h.WriteString(f.rel)
		h.WriteString("\x00")
		h.WriteString(strconv.FormatInt(info.Size(), 10))
		h.WriteString("\x00")
		h.WriteString(strconv.FormatInt(info.ModTime().UnixNano(), 10))
		h.WriteString("\x00")
	}
	return h.Sum64(), nil
}

// SnapshotKey is the store key of the snapshot with fingerprint fp.
func SnapshotKey(fp uint64) string {
	return fmt.Sprintf("catalog-%016x", fp)
}

// Marshal encodes c as a compressed snapshot stamped with fp.
func Marshal(c *Catalog, fp uint64) ([]byte, error) {
	data, err := c.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return archive.Marshal(fp, data)
}

// Unmarshal decodes a snapshot produced by Marshal and returns its fingerprint.
func Unmarshal(data []byte) (*Catalog, uint64, error) {
	header, payload, err := archive.Unmarshal(data)
	if err != nil {
		return nil, 0, fmt.Errorf("read snapshot: %w", err)
	}
	c := &Catalog{}
	if err := c.UnmarshalBinary(payload); err != nil {
		return nil, 0, err
	}
	return c, header.Fingerprint, nil
}

// Save writes c to path as a snapshot stamped with fp.
func Save(path string, c *Catalog, fp uint64) error {
	data, err := c.MarshalBinary()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errs.IO("create", path, err)
	}
	if err := archive.Encode(f, fp, data); err != nil {
		f.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return errs.IO("close", path, err)
	}
	return nil
}

// Load reads a snapshot written by Save.
func Load(path string) (*Catalog, uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, errs.IO("read", path, err)
	}
	return Unmarshal(data)
}
