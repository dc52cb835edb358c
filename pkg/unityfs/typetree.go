package unityfs

import (
	"fmt"

	"github.com/goopsie/hsCardTools/pkg/errs"
)

// Type tree node flags.
const (
	TypeFlagArray = 0x1

	// MetaFlagAlign requests 4-byte alignment after the node's value.
	MetaFlagAlign = 0x4000
)

// TypeTreeNode is one field of a serialized type layout, flattened in pre-order.
// Children of a node follow it with Level+1.
type TypeTreeNode struct {
	Version   uint16
	Level     uint8
	TypeFlags uint32
	Type      string
	Name      string
	ByteSize  int32
	Index     int32
	MetaFlag  uint32
}

// IsArray reports whether the node is an array header (size followed by elements).
func (n *TypeTreeNode) IsArray() bool { return n.TypeFlags&TypeFlagArray != 0 }

// Aligned reports whether reading the node is followed by 4-byte alignment.
func (n *TypeTreeNode) Aligned() bool { return n.MetaFlag&MetaFlagAlign != 0 }

func (n *TypeTreeNode) String() string {
	return fmt.Sprintf("%*s%s %s", int(n.Level)*2, "", n.Type, n.Name)
}

// TypeTree is the flattened node list describing one serialized type.
type TypeTree []TypeTreeNode

// end returns the index just past the subtree rooted at i.
func (t TypeTree) end(i int) int {
	level := t[i].Level
	j := i + 1
	for j < len(t) && t[j].Level > level {
		j++
	}
	return j
}

// children returns the indices of the direct children of i.
func (t TypeTree) children(i int) []int {
	var out []int
	stop := t.end(i)
	for j := i + 1; j < stop; j = t.end(j) {
		out = append(out, j)
	}
	return out
}

func usesBlobTypeTree(version uint32) bool {
	return version >= 12 || version == 10
}

// readTypeTree decodes a type tree for the given serialized file version.
func readTypeTree(r *reader, version uint32) (TypeTree, error) {
	if usesBlobTypeTree(version) {
		return readBlobTypeTree(r, version)
	}
	var tree TypeTree
	if err := readLegacyTypeTree(r, version, 0, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func readBlobTypeTree(r *reader, version uint32) (TypeTree, error) {
	nodeSize := 24
	if version >= 19 {
		nodeSize = 32
	}
	count := r.Count(nodeSize)
	stringSize := r.I32()
	if err := r.Err(); err != nil {
		return nil, err
	}

	type rawNode struct {
		node       TypeTreeNode
		typeOffset uint32
		nameOffset uint32
	}
	raw := make([]rawNode, count)
	for i := range raw {
		n := &raw[i]
		n.node.Version = r.U16()
		n.node.Level = r.U8()
		n.node.TypeFlags = uint32(r.U8())
		n.typeOffset = r.U32()
		n.nameOffset = r.U32()
		n.node.ByteSize = r.I32()
		n.node.Index = r.I32()
		n.node.MetaFlag = r.U32()
		if version >= 19 {
			r.Skip(8) // ref type hash
		}
	}
	if stringSize < 0 {
		return nil, errs.Formatf("negative type tree string buffer size %d", stringSize)
	}
	local := r.next(int(stringSize))
	if err := r.Err(); err != nil {
		return nil, err
	}

	tree := make(TypeTree, count)
	for i, n := range raw {
		var ok bool
		node := n.node
		if node.Type, ok = lookupString(local, n.typeOffset); !ok {
			return nil, errs.Formatf("type tree node %d: bad type string offset %#x", i, n.typeOffset)
		}
		if node.Name, ok = lookupString(local, n.nameOffset); !ok {
			return nil, errs.Formatf("type tree node %d: bad name string offset %#x", i, n.nameOffset)
		}
		tree[i] = node
	}
	return tree, nil
}

func readLegacyTypeTree(r *reader, version uint32, level uint8, tree *TypeTree) error {
	var node TypeTreeNode
	node.Level = level
	node.Type = r.CString()
	node.Name = r.CString()
	node.ByteSize = r.I32()
	if version == 2 {
		r.Skip(4) // variable count
	}
	if version != 3 {
		node.Index = r.I32()
	}
	node.TypeFlags = r.U32()
	node.Version = uint16(r.I32())
	if version != 3 {
		node.MetaFlag = r.U32()
	}
	*tree = append(*tree, node)

	children := r.Count(1)
	if err := r.Err(); err != nil {
		return err
	}
	if level == 0xff {
		return errs.Formatf("type tree nested too deeply")
	}
	for range children {
		if err := readLegacyTypeTree(r, version, level+1, tree); err != nil {
			return err
		}
	}
	return r.Err()
}
