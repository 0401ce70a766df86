package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hschendel/stl"

	"github.com/Faultbox/folio-viewer/internal/scene"
)

// DecodeSTL reads an ASCII or binary STL file. STL carries no material, so
// the single mesh gets the default gray material. Stored facet normals are
// ignored in favour of normals recomputed from the winding, since many
// exporters write zero normals.
func DecodeSTL(ctx context.Context, path string) (*scene.Node, error) {
	solid, err := stl.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stl: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(solid.Triangles) == 0 {
		return nil, errors.New("stl contains no triangles")
	}

	geom := &scene.Geometry{
		Positions: make([][3]float32, 0, len(solid.Triangles)*3),
	}
	for _, t := range solid.Triangles {
		for _, v := range t.Vertices {
			geom.Positions = append(geom.Positions, [3]float32(v))
		}
	}
	geom.ComputeNormals()

	name := solid.Name
	if name == "" {
		name = filepath.Base(path)
	}
	root := scene.NewGroup(filepath.Base(path))
	root.AddChild(scene.NewMeshNode(name, &scene.Mesh{Geometry: geom, Material: scene.DefaultMaterial()}))
	return root, nil
}
