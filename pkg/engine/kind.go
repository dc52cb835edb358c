// Package engine turns generic serialized objects into typed Unity engine objects.
//
// Every object is classified once into a closed Kind; Decode is the single place
// that switches on it.
package engine

import (
	"fmt"
	"strings"

	"github.com/goopsie/hsCardTools/pkg/unityfs"
)

// Kind is the closed set of object types the pipeline understands.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindTexture2D
	KindTextAsset
	KindFont
	KindFontDef
	KindMesh
	KindGameObject
	KindAssetBundleManifest
	KindMonoBehaviour
	KindMonoScript
	KindGeneric

	numKinds
)

var kindNames = [numKinds]string{
	KindUnknown:             "Unknown",
	KindTexture2D:           "Texture2D",
	KindTextAsset:           "TextAsset",
	KindFont:                "Font",
	KindFontDef:             "FontDef",
	KindMesh:                "Mesh",
	KindGameObject:          "GameObject",
	KindAssetBundleManifest: "AssetBundleManifest",
	KindMonoBehaviour:       "MonoBehaviour",
	KindMonoScript:          "MonoScript",
	KindGeneric:             "Generic",
}

func (k Kind) String() string {
	if k >= numKinds {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// ParseKind maps a kind name, case-insensitively, to its Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			return Kind(k), nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown object kind %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// KindOf classifies a Unity class id. MonoBehaviours are refined to FontDef by
// Decode once their script is known.
func KindOf(classID int32) Kind {
	switch classID {
	case unityfs.ClassTexture2D:
		return KindTexture2D
	case unityfs.ClassTextAsset:
		return KindTextAsset
	case unityfs.ClassFont:
		return KindFont
	case unityfs.ClassMesh:
		return KindMesh
	case unityfs.ClassGameObject:
		return KindGameObject
	case unityfs.ClassAssetBundle:
		return KindAssetBundleManifest
	case unityfs.ClassMonoBehaviour:
		return KindMonoBehaviour
	case unityfs.ClassMonoScript:
		return KindMonoScript
	}
	return KindGeneric
}

// KindSet is a set of kinds.
type KindSet uint32

// NewKindSet returns a set holding kinds.
func NewKindSet(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s = s.Add(k)
	}
	return s
}

// Add returns s with k added.
func (s KindSet) Add(k Kind) KindSet { return s | 1<<k }

// Has reports whether k is in s.
func (s KindSet) Has(k Kind) bool { return s&(1<<k) != 0 }

// Kinds returns the members in enum order.
func (s KindSet) Kinds() []Kind {
	var out []Kind
	for k := KindUnknown; k < numKinds; k++ {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

func (s KindSet) String() string {
	names := make([]string, 0, numKinds)
	for _, k := range s.Kinds() {
		names = append(names, k.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}
