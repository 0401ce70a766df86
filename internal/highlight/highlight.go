// Package highlight implements the hover/selection state machine as a pure
// reducer, plus the mapping from visual state to an emissive tint.
package highlight

import (
	"fmt"

	"github.com/Faultbox/folio-viewer/internal/scene"
)

// Ref names one mesh of one model instance without owning it. Mesh is the
// index into the instance's depth-first mesh list. The zero Ref means none.
type Ref struct {
	Instance uint64
	Mesh     int
}

// None is the empty reference.
var None = Ref{}

// IsZero reports whether r refers to nothing.
func (r Ref) IsZero() bool {
	return r.Instance == 0
}

func (r Ref) String() string {
	if r.IsZero() {
		return "none"
	}
	return fmt.Sprintf("%d/%d", r.Instance, r.Mesh)
}

// State is the visual state of one mesh.
type State int

const (
	Idle State = iota
	HoveredUnselected
	Selected
)

func (s State) String() string {
	switch s {
	case HoveredUnselected:
		return "hovered"
	case Selected:
		return "selected"
	default:
		return "idle"
	}
}

// EventKind enumerates the inputs to the reducer.
type EventKind int

const (
	PointerEnter EventKind = iota
	PointerLeave
	PointerDown
	Escape
)

func (k EventKind) String() string {
	switch k {
	case PointerEnter:
		return "pointer-enter"
	case PointerLeave:
		return "pointer-leave"
	case PointerDown:
		return "pointer-down"
	case Escape:
		return "escape"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is one discrete pointer or key event. Target is the nearest-hit
// mesh; a PointerDown with a zero Target is a click on empty space.
type Event struct {
	Kind   EventKind
	Target Ref
}

// Selection holds the two weak references: at most one selected mesh and
// at most one hovered mesh.
type Selection struct {
	Selected Ref
	Hovered  Ref
}

// Reduce returns the selection after applying e to s. It has no side
// effects.
func Reduce(s Selection, e Event) Selection {
	switch e.Kind {
	case PointerEnter:
		if !e.Target.IsZero() {
			s.Hovered = e.Target
		}
	case PointerLeave:
		if s.Hovered == e.Target {
			s.Hovered = None
		}
	case PointerDown:
		// The pointer is over whatever it pressed, including empty space
		s.Selected = e.Target
		s.Hovered = e.Target
	case Escape:
		s.Selected = None
	}
	return s
}

// StateOf returns the visual state of ref. Selection wins over hover.
func (s Selection) StateOf(ref Ref) State {
	switch {
	case ref.IsZero():
		return Idle
	case ref == s.Selected:
		return Selected
	case ref == s.Hovered:
		return HoveredUnselected
	default:
		return Idle
	}
}

// Forget drops any reference into the given instance.
func (s Selection) Forget(instance uint64) Selection {
	if s.Selected.Instance == instance {
		s.Selected = None
	}
	if s.Hovered.Instance == instance {
		s.Hovered = None
	}
	return s
}

// Affected lists the meshes whose visual state may differ between prev and
// next, without duplicates or zero refs.
func Affected(prev, next Selection) []Ref {
	var out []Ref
	for _, r := range []Ref{prev.Selected, prev.Hovered, next.Selected, next.Hovered} {
		if r.IsZero() {
			continue
		}
		dup := false
		for _, o := range out {
			if o == r {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r)
		}
	}
	return out
}

var (
	hoverTint    = scene.EmissiveTint{Color: scene.MustHexColor("#ffaa00"), Intensity: 0.3}
	selectedTint = scene.EmissiveTint{Color: scene.MustHexColor("#00ffff"), Intensity: 0.6}
)

// TintFor returns the emissive tint for a visual state.
func TintFor(s State) scene.EmissiveTint {
	switch s {
	case HoveredUnselected:
		return hoverTint
	case Selected:
		return selectedTint
	default:
		return scene.EmissiveTint{}
	}
}

// Apply sets the material's tint for state. It assigns rather than adds, so
// repeated calls leave the material unchanged.
func Apply(m *scene.Material, s State) {
	if m == nil {
		return
	}
	m.Tint = TintFor(s)
}
