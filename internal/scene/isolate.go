package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/jinzhu/copier"
)

// Clone returns a deep copy of the material, including its Params map.
func (m *Material) Clone() (*Material, error) {
	out := &Material{}
	if err := copier.CopyWithOption(out, m, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("clone material %q: %w", m.Name, err)
	}
	return out, nil
}

// IsolateMaterials gives every mesh node under root a private Mesh value and
// a private deep copy of its material, so that no two nodes alias the same
// mutable material. Geometry stays shared; it is never mutated after decode.
//
// It is a load-time pass: run it once on a freshly decoded tree before the
// tree becomes visible to the renderer. It returns the number of materials
// cloned.
func IsolateMaterials(root *Node) (int, error) {
	cloned := 0
	var err error
	root.Walk(mgl32.Ident4(), func(n *Node, _ mgl32.Mat4) bool {
		if err != nil {
			return false
		}
		if n.Mesh == nil {
			return true
		}

		src := n.Mesh.Material
		if src == nil {
			src = DefaultMaterial()
		}
		mat, cerr := src.Clone()
		if cerr != nil {
			err = fmt.Errorf("node %q: %w", n.Name, cerr)
			return false
		}
		n.Mesh = &Mesh{Geometry: n.Mesh.Geometry, Material: mat}
		cloned++
		return true
	})
	return cloned, err
}

// AliasedMaterials reports how many mesh nodes under root share a material
// pointer with an earlier mesh node. Zero after IsolateMaterials.
func AliasedMaterials(root *Node) int {
	seen := make(map[*Material]bool)
	aliased := 0
	for _, n := range root.Meshes() {
		m := n.Mesh.Material
		if m == nil {
			continue
		}
		if seen[m] {
			aliased++
			continue
		}
		seen[m] = true
	}
	return aliased
}
