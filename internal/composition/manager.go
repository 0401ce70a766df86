// Package composition owns the ordered list of model instances in the live
// scene and the single process-wide hover/selection state over their meshes.
//
// A Manager is driven from the render thread only and is not safe for
// concurrent use.
package composition

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/Faultbox/folio-viewer/internal/highlight"
	"github.com/Faultbox/folio-viewer/internal/loader"
	"github.com/Faultbox/folio-viewer/internal/logger"
	"github.com/Faultbox/folio-viewer/internal/picking"
	"github.com/Faultbox/folio-viewer/internal/scene"
)

// Instance is one loaded asset. Its subtree is owned exclusively by the
// instance until it is removed.
type Instance struct {
	ID          uint64
	SourceURL   string
	Format      loader.Format
	DisplayName string
	Root        *scene.Node

	meshes []*scene.Node
}

// MeshCount returns the number of mesh leaves in the instance.
func (i *Instance) MeshCount() int {
	return len(i.meshes)
}

// Meshes returns the instance's mesh leaves in reference order.
func (i *Instance) Meshes() []*scene.Node {
	return i.meshes
}

// ChangeFunc is called after the selection or hover reference changes.
type ChangeFunc func(prev, next highlight.Selection)

// Manager is the sole owner of instance lifetime.
type Manager struct {
	nextID    uint64
	instances []*Instance
	sel       highlight.Selection
	listeners []ChangeFunc
	log       *zap.Logger
}

// NewManager returns an empty scene.
func NewManager() *Manager {
	return &Manager{log: logger.Named("composition")}
}

// OnChange registers fn to run after every selection change.
func (m *Manager) OnChange(fn ChangeFunc) {
	m.listeners = append(m.listeners, fn)
}

// AddInstance appends a decoded subtree and returns its id. Ids start at 1
// and are never reused.
func (m *Manager) AddInstance(root *scene.Node, name, sourceURL string, format loader.Format) uint64 {
	m.nextID++
	inst := &Instance{
		ID:          m.nextID,
		SourceURL:   sourceURL,
		Format:      format,
		DisplayName: displayName(name),
		Root:        root,
		meshes:      root.Meshes(),
	}
	m.instances = append(m.instances, inst)
	m.log.Info("instance added",
		zap.Uint64("id", inst.ID),
		zap.String("name", inst.DisplayName),
		zap.Int("meshes", len(inst.meshes)),
	)
	return inst.ID
}

func displayName(name string) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	if name == "" {
		return "untitled"
	}
	return name
}

// RemoveInstance detaches the instance and clears any selection or hover
// reference into it. It reports whether the id was present.
func (m *Manager) RemoveInstance(id uint64) bool {
	idx := m.index(id)
	if idx < 0 {
		return false
	}
	inst := m.instances[idx]

	prev := m.sel
	m.sel = m.sel.Forget(id)
	for _, n := range inst.meshes {
		highlight.Apply(n.Mesh.Material, highlight.Idle)
	}

	m.instances = append(m.instances[:idx], m.instances[idx+1:]...)
	inst.Root = nil
	inst.meshes = nil

	m.log.Info("instance removed", zap.Uint64("id", id), zap.String("name", inst.DisplayName))
	if prev != m.sel {
		m.notify(prev, m.sel)
	}
	return true
}

// Clear removes every instance.
func (m *Manager) Clear() {
	for len(m.instances) > 0 {
		m.RemoveInstance(m.instances[len(m.instances)-1].ID)
	}
}

func (m *Manager) index(id uint64) int {
	for i, inst := range m.instances {
		if inst.ID == id {
			return i
		}
	}
	return -1
}

// Instances returns the instances in display order. The slice must not be
// modified.
func (m *Manager) Instances() []*Instance {
	return m.instances
}

// Instance looks up an instance by id.
func (m *Manager) Instance(id uint64) (*Instance, bool) {
	if i := m.index(id); i >= 0 {
		return m.instances[i], true
	}
	return nil, false
}

// FindInstance returns the first instance with the given display name.
func (m *Manager) FindInstance(name string) (*Instance, bool) {
	name = displayName(name)
	for _, inst := range m.instances {
		if inst.DisplayName == name {
			return inst, true
		}
	}
	return nil, false
}

// Mesh resolves a reference to its live mesh node, or nil if it dangles.
func (m *Manager) Mesh(ref highlight.Ref) *scene.Node {
	inst, ok := m.Instance(ref.Instance)
	if !ok || ref.Mesh < 0 || ref.Mesh >= len(inst.meshes) {
		return nil
	}
	return inst.meshes[ref.Mesh]
}

// MeshRefs returns a reference for every mesh of the instance.
func (m *Manager) MeshRefs(id uint64) []highlight.Ref {
	inst, ok := m.Instance(id)
	if !ok {
		return nil
	}
	refs := make([]highlight.Ref, len(inst.meshes))
	for i := range inst.meshes {
		refs[i] = highlight.Ref{Instance: id, Mesh: i}
	}
	return refs
}

// FindMesh returns the first mesh of the instance with the given node name.
func (m *Manager) FindMesh(id uint64, name string) (highlight.Ref, bool) {
	inst, ok := m.Instance(id)
	if !ok {
		return highlight.None, false
	}
	for i, n := range inst.meshes {
		if n.Name == name {
			return highlight.Ref{Instance: id, Mesh: i}, true
		}
	}
	return highlight.None, false
}

// Selection returns the current hover/selection references.
func (m *Manager) Selection() highlight.Selection {
	return m.sel
}

// Selected returns the selected mesh node and its reference; the node is
// nil when nothing is selected.
func (m *Manager) Selected() (*scene.Node, highlight.Ref) {
	return m.Mesh(m.sel.Selected), m.sel.Selected
}

// Dispatch runs e through the highlight reducer, retints the meshes whose
// state changed and notifies listeners. A target that no longer resolves is
// treated as empty space.
func (m *Manager) Dispatch(e highlight.Event) bool {
	if !e.Target.IsZero() && m.Mesh(e.Target) == nil {
		e.Target = highlight.None
	}

	prev := m.sel
	next := highlight.Reduce(prev, e)
	if next == prev {
		return false
	}

	for _, ref := range highlight.Affected(prev, next) {
		if n := m.Mesh(ref); n != nil {
			highlight.Apply(n.Mesh.Material, next.StateOf(ref))
		}
	}
	m.sel = next

	m.log.Debug("selection changed",
		zap.Stringer("event", e.Kind),
		zap.Stringer("selected", next.Selected),
		zap.Stringer("hovered", next.Hovered),
	)
	m.notify(prev, next)
	return true
}

func (m *Manager) notify(prev, next highlight.Selection) {
	for _, fn := range m.listeners {
		fn(prev, next)
	}
}

// Pick returns the mesh nearest along the ray across all instances.
func (m *Manager) Pick(ray picking.Ray) (highlight.Ref, bool) {
	var best picking.Nearest[highlight.Ref]
	for _, inst := range m.instances {
		index := make(map[*scene.Node]int, len(inst.meshes))
		for i, n := range inst.meshes {
			index[n] = i
		}
		inst.Root.Walk(mgl32.Ident4(), func(n *scene.Node, world mgl32.Mat4) bool {
			if n.Mesh == nil {
				return true
			}
			if d, ok := ray.IntersectMesh(n.Mesh.Geometry, world); ok {
				best.Offer(highlight.Ref{Instance: inst.ID, Mesh: index[n]}, d)
			}
			return true
		})
	}
	return best.Target, best.Hit
}

// Bounds returns the world bounds of every instance combined.
func (m *Manager) Bounds() (lo, hi mgl32.Vec3, ok bool) {
	for _, inst := range m.instances {
		l, h, has := inst.Root.Bounds()
		if !has {
			continue
		}
		if !ok {
			lo, hi, ok = l, h, true
			continue
		}
		for a := range 3 {
			lo[a] = min(lo[a], l[a])
			hi[a] = max(hi[a], h[a])
		}
	}
	return lo, hi, ok
}
