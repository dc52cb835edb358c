package unityfs

import (
	"strings"

	"github.com/goopsie/hsCardTools/pkg/errs"
)

// decoder walks a type tree and reads the matching value from r.
type decoder struct {
	r    *reader
	tree TypeTree
}

func (d *decoder) read(i int) (any, error) {
	node := &d.tree[i]
	var (
		v   any
		err error
	)

	switch node.Type {
	case "bool":
		v = d.r.Bool()
	case "SInt8":
		v = int64(int8(d.r.U8()))
	case "UInt8", "char":
		v = uint64(d.r.U8())
	case "SInt16", "short":
		v = int64(d.r.I16())
	case "UInt16", "unsigned short":
		v = uint64(d.r.U16())
	case "SInt32", "int":
		v = int64(d.r.I32())
	case "UInt32", "unsigned int", "Type*":
		v = uint64(d.r.U32())
	case "SInt64", "long long":
		v = d.r.I64()
	case "UInt64", "unsigned long long", "FileSize":
		v = d.r.U64()
	case "float":
		v = d.r.F32()
	case "double":
		v = d.r.F64()

	case "string":
		size := d.r.Count(1)
		v = string(d.r.next(size))
		if i+1 < len(d.tree) && d.tree[i+1].Aligned() {
			d.r.Align(4)
		}

	case "TypelessData":
		size := d.r.Count(1)
		v = d.r.Bytes(size)

	case "pair":
		v, err = d.readPair(i)

	default:
		switch {
		case node.IsArray():
			v, err = d.readArray(i)
		case i+1 < len(d.tree) && d.tree[i+1].IsArray() && d.tree[i+1].Level == node.Level+1:
			v, err = d.readArray(i + 1)
			if d.tree[i+1].Aligned() {
				d.r.Align(4)
			}
		case strings.HasPrefix(node.Type, "PPtr<"):
			v, err = d.readPPtr(i)
		default:
			v, err = d.readStruct(i)
		}
	}

	if err != nil {
		return nil, err
	}
	if node.Aligned() {
		d.r.Align(4)
	}
	if err := d.r.Err(); err != nil {
		return nil, errs.WrapFormat(err, "read %s %s", node.Type, node.Name)
	}
	return v, nil
}

// readArray reads an Array node: an int32 size followed by elements described by
// the node's second child.
func (d *decoder) readArray(i int) (any, error) {
	kids := d.tree.children(i)
	if len(kids) != 2 {
		return nil, errs.Formatf("array %s has %d children, want 2", d.tree[i].Name, len(kids))
	}
	elem := kids[1]
	size := d.r.Count(0)
	if err := d.r.Err(); err != nil {
		return nil, err
	}

	switch d.tree[elem].Type {
	case "UInt8", "SInt8", "char":
		if d.tree.end(elem) == elem+1 {
			return d.r.Bytes(size), d.r.Err()
		}
	}

	if size > d.r.Len() {
		return nil, errs.Formatf("array %s of %d elements exceeds remaining %d bytes", d.tree[i].Name, size, d.r.Len())
	}
	out := make([]any, size)
	for j := range out {
		v, err := d.read(elem)
		if err != nil {
			return nil, err
		}
		out[j] = v
	}
	return out, nil
}

func (d *decoder) readPair(i int) (any, error) {
	kids := d.tree.children(i)
	if len(kids) != 2 {
		return nil, errs.Formatf("pair %s has %d children, want 2", d.tree[i].Name, len(kids))
	}
	first, err := d.read(kids[0])
	if err != nil {
		return nil, err
	}
	second, err := d.read(kids[1])
	if err != nil {
		return nil, err
	}
	return Pair{First: first, Second: second}, nil
}

func (d *decoder) readPPtr(i int) (any, error) {
	v, err := d.readStruct(i)
	if err != nil {
		return nil, err
	}
	m := v.(*Map)
	fileID, err := m.Int("m_FileID")
	if err != nil {
		return nil, err
	}
	pathID, err := m.Int("m_PathID")
	if err != nil {
		return nil, err
	}
	return PPtr{FileID: int32(fileID), PathID: pathID}, nil
}

func (d *decoder) readStruct(i int) (any, error) {
	m := NewMap()
	for _, k := range d.tree.children(i) {
		v, err := d.read(k)
		if err != nil {
			return nil, err
		}
		m.Set(d.tree[k].Name, v)
	}
	return m, nil
}
