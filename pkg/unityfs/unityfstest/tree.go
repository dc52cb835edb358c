// Package unityfstest writes synthetic UnityFS bundles for tests.
//
// Bundles are produced in the real on-disk format (serialized file version 17 with
// blob type trees), so tests exercise the same parsing paths as shipped data.
package unityfstest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/goopsie/hsCardTools/pkg/unityfs"
)

// M is a struct value keyed by field name. Missing fields encode as zero values.
type M map[string]any

// Field describes one type tree node and its children.
type Field struct {
	Type     string
	Name     string
	Align    bool
	Array    bool
	Children []Field
}

// Aligned returns a copy of f with 4-byte alignment after its value.
func (f Field) Aligned() Field {
	f.Align = true
	return f
}

// Prim returns a primitive field such as "int", "float" or "UInt8".
func Prim(typ, name string) Field {
	return Field{Type: typ, Name: name}
}

// Str returns a string field.
func Str(name string) Field {
	return Field{Type: "string", Name: name, Children: []Field{{
		Type: "Array", Name: "Array", Array: true, Align: true,
		Children: []Field{Prim("int", "size"), Prim("char", "data")},
	}}}
}

// Vector returns a vector field whose elements are described by elem.
func Vector(name string, elem Field) Field {
	elem.Name = "data"
	return Field{Type: "vector", Name: name, Children: []Field{{
		Type: "Array", Name: "Array", Array: true,
		Children: []Field{Prim("int", "size"), elem},
	}}}
}

// ByteVector returns an aligned vector of UInt8.
func ByteVector(name string) Field {
	return Vector(name, Prim("UInt8", "data")).Aligned()
}

// Typeless returns a TypelessData field.
func Typeless(name string) Field {
	return Field{Type: "TypelessData", Name: name, Align: true, Children: []Field{
		Prim("int", "size"), Prim("UInt8", "data"),
	}}
}

// Ptr returns a PPtr<target> field.
func Ptr(name, target string) Field {
	return Field{Type: "PPtr<" + target + ">", Name: name, Children: []Field{
		Prim("int", "m_FileID"), Prim("SInt64", "m_PathID"),
	}}
}

// Struct returns a struct field.
func Struct(typ, name string, children ...Field) Field {
	return Field{Type: typ, Name: name, Children: children}
}

// PairOf returns a pair<first, second> field.
func PairOf(name string, first, second Field) Field {
	first.Name = "first"
	second.Name = "second"
	return Field{Type: "pair", Name: name, Children: []Field{first, second}}
}

// MapOf returns a map<key, value> field.
func MapOf(name string, key, value Field) Field {
	return Field{Type: "map", Name: name, Children: []Field{{
		Type: "Array", Name: "Array", Array: true,
		Children: []Field{Prim("int", "size"), PairOf("data", key, value)},
	}}}
}

// flatten appends the pre-order node list of f.
func flatten(f Field, level uint8, out []unityfs.TypeTreeNode) []unityfs.TypeTreeNode {
	node := unityfs.TypeTreeNode{
		Version:  1,
		Level:    level,
		Type:     f.Type,
		Name:     f.Name,
		ByteSize: -1,
		Index:    int32(len(out)),
	}
	if f.Array {
		node.TypeFlags = unityfs.TypeFlagArray
	}
	if f.Align {
		node.MetaFlag = unityfs.MetaFlagAlign
	}
	out = append(out, node)
	for _, c := range f.Children {
		out = flatten(c, level+1, out)
	}
	return out
}

// encodeTree writes the blob type tree layout used by serialized file version 12 and later.
func encodeTree(root Field) []byte {
	nodes := flatten(root, 0, nil)

	var local bytes.Buffer
	offsets := make(map[string]uint32)
	str := func(s string) uint32 {
		if off, ok := unityfs.CommonStringOffset(s); ok {
			return off
		}
		if off, ok := offsets[s]; ok {
			return off
		}
		off := uint32(local.Len())
		local.WriteString(s)
		local.WriteByte(0)
		offsets[s] = off
		return off
	}

	var buf bytes.Buffer
	le := binary.LittleEndian
	binary.Write(&buf, le, int32(len(nodes)))
	var body bytes.Buffer
	for _, n := range nodes {
		binary.Write(&body, le, n.Version)
		body.WriteByte(n.Level)
		body.WriteByte(byte(n.TypeFlags))
		binary.Write(&body, le, str(n.Type))
		binary.Write(&body, le, str(n.Name))
		binary.Write(&body, le, n.ByteSize)
		binary.Write(&body, le, n.Index)
		binary.Write(&body, le, n.MetaFlag)
	}
	binary.Write(&buf, le, int32(local.Len()))
	buf.Write(body.Bytes())
	buf.Write(local.Bytes())
	return buf.Bytes()
}

// encoder writes values in little-endian order, aligning relative to the object start.
type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) align() {
	for e.buf.Len()%4 != 0 {
		e.buf.WriteByte(0)
	}
}

func (e *encoder) put(v any) {
	binary.Write(&e.buf, binary.LittleEndian, v)
}

func (e *encoder) encode(f Field, v any) error {
	if err := e.encodeValue(f, v); err != nil {
		return fmt.Errorf("%s %s: %w", f.Type, f.Name, err)
	}
	if f.Align {
		e.align()
	}
	return nil
}

func (e *encoder) encodeValue(f Field, v any) error {
	switch f.Type {
	case "bool":
		b, _ := v.(bool)
		if b {
			e.buf.WriteByte(1)
		} else {
			e.buf.WriteByte(0)
		}
		return nil
	case "SInt8", "UInt8", "char":
		e.buf.WriteByte(byte(asInt(v)))
		return nil
	case "SInt16", "short", "UInt16", "unsigned short":
		e.put(uint16(asInt(v)))
		return nil
	case "SInt32", "int", "UInt32", "unsigned int", "Type*":
		e.put(uint32(asInt(v)))
		return nil
	case "SInt64", "long long", "UInt64", "unsigned long long", "FileSize":
		e.put(uint64(asInt(v)))
		return nil
	case "float":
		e.put(math.Float32bits(float32(asFloat(v))))
		return nil
	case "double":
		e.put(math.Float64bits(asFloat(v)))
		return nil

	case "string":
		s, _ := v.(string)
		e.put(int32(len(s)))
		e.buf.WriteString(s)
		if f.Children[0].Align {
			e.align()
		}
		return nil

	case "TypelessData":
		b, _ := v.([]byte)
		e.put(int32(len(b)))
		e.buf.Write(b)
		return nil

	case "pair":
		p, _ := v.(unityfs.Pair)
		if err := e.encode(f.Children[0], p.First); err != nil {
			return err
		}
		return e.encode(f.Children[1], p.Second)
	}

	if len(f.Children) == 1 && f.Children[0].Array {
		arr := f.Children[0]
		elem := arr.Children[1]
		if b, ok := v.([]byte); ok {
			e.put(int32(len(b)))
			e.buf.Write(b)
		} else {
			items, _ := v.([]any)
			e.put(int32(len(items)))
			for _, item := range items {
				if err := e.encode(elem, item); err != nil {
					return err
				}
			}
		}
		if arr.Align {
			e.align()
		}
		return nil
	}

	if strings.HasPrefix(f.Type, "PPtr<") {
		p, _ := v.(unityfs.PPtr)
		e.put(p.FileID)
		e.put(p.PathID)
		return nil
	}

	m, _ := v.(M)
	for _, c := range f.Children {
		if err := e.encode(c, m[c.Name]); err != nil {
			return err
		}
	}
	return nil
}

func asInt(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case bool:
		if n {
			return 1
		}
	}
	return 0
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return float64(asInt(v))
}
