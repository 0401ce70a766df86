package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/folio-viewer/internal/camera"
	"github.com/Faultbox/folio-viewer/internal/lighting"
	"github.com/Faultbox/folio-viewer/internal/scene"
)

// Command is one scripted action read from command.json in the automation
// directory. The file is deleted before the command runs.
type Command struct {
	Action   string    `json:"action"`
	Path     string    `json:"path,omitempty"`
	Instance string    `json:"instance,omitempty"`
	Mesh     string    `json:"mesh,omitempty"`
	Value    string    `json:"value,omitempty"`
	Number   *float32  `json:"number,omitempty"`
	Vector   []float32 `json:"vector,omitempty"`
}

// State is the JSON document written by the dump_state action.
type State struct {
	Timestamp string          `json:"timestamp"`
	Instances []InstanceState `json:"instances"`
	Selected  *MeshState      `json:"selected,omitempty"`
	Hovered   *MeshState      `json:"hovered,omitempty"`
	Fields    FieldState      `json:"fields"`
	Camera    CameraState     `json:"camera"`
	Lighting  LightingState   `json:"lighting"`
	Pending   int             `json:"pending"`
	Messages  []string        `json:"messages"`
}

// InstanceState describes one loaded instance.
type InstanceState struct {
	ID     uint64   `json:"id"`
	Name   string   `json:"name"`
	Format string   `json:"format"`
	Source string   `json:"source"`
	Meshes []string `json:"meshes"`
}

// MeshState describes a referenced mesh and its material.
type MeshState struct {
	Instance  uint64     `json:"instance"`
	Index     int        `json:"index"`
	Name      string     `json:"name"`
	Color     string     `json:"color"`
	Metalness float32    `json:"metalness"`
	Roughness float32    `json:"roughness"`
	Tint      float32    `json:"tint"`
	Position  [3]float32 `json:"position"`
}

// FieldState is the property panel.
type FieldState struct {
	Active    bool       `json:"active"`
	Color     string     `json:"color"`
	Metalness float32    `json:"metalness"`
	Roughness float32    `json:"roughness"`
	Position  [3]float32 `json:"position"`
}

// CameraState is the active view.
type CameraState struct {
	View     string     `json:"view"`
	Position [3]float32 `json:"position"`
}

// LightingState is the lighting controller.
type LightingState struct {
	Mode                 string  `json:"mode"`
	Ambient              float32 `json:"ambient"`
	Directional          float32 `json:"directional"`
	Environment          string  `json:"environment,omitempty"`
	EnvironmentIntensity float32 `json:"environmentIntensity"`
}

// pollCommands runs command.json if present. Commands are single-shot.
func (v *Viewer) pollCommands() {
	if v.automationDir == "" {
		return
	}
	cmdPath := filepath.Join(v.automationDir, "command.json")
	data, err := os.ReadFile(cmdPath)
	if err != nil {
		return // No command file, normal case
	}
	os.Remove(cmdPath)

	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		v.log.Warn("invalid command", zap.Error(err))
		return
	}
	if err := v.Execute(context.Background(), cmd); err != nil {
		v.log.Warn("command failed", zap.String("action", cmd.Action), zap.Error(err))
		v.addMessage(Error, err.Error())
	}
}

// Execute runs one command.
func (v *Viewer) Execute(ctx context.Context, cmd Command) error {
	v.log.Debug("executing command", zap.String("action", cmd.Action))
	switch cmd.Action {
	case "load":
		v.Load(ctx, cmd.Path)

	case "load_environment":
		v.LoadEnvironment(ctx, cmd.Path)

	case "remove":
		inst, ok := v.scene.FindInstance(cmd.Instance)
		if !ok {
			return fmt.Errorf("no instance named %q", cmd.Instance)
		}
		v.RemoveInstance(inst.ID)

	case "select":
		inst, ok := v.scene.FindInstance(cmd.Instance)
		if !ok {
			return fmt.Errorf("no instance named %q", cmd.Instance)
		}
		ref, ok := v.scene.FindMesh(inst.ID, cmd.Mesh)
		if !ok {
			return fmt.Errorf("no mesh %q in %q", cmd.Mesh, cmd.Instance)
		}
		v.Select(ref)

	case "clear_selection":
		v.KeyEscape()

	case "set_view":
		view, err := camera.ParseView(cmd.Value)
		if err != nil {
			return err
		}
		v.camera.SetView(view)

	case "frame":
		v.FrameScene()

	case "set_lighting":
		mode, err := lighting.ParseMode(cmd.Value)
		if err != nil {
			return err
		}
		v.lighting.SetMode(mode)

	case "set_roughness", "set_metalness":
		if cmd.Number == nil {
			return fmt.Errorf("%s needs a number", cmd.Action)
		}
		if cmd.Action == "set_roughness" {
			v.SetRoughness(*cmd.Number)
		} else {
			v.SetMetalness(*cmd.Number)
		}

	case "set_color":
		c, err := scene.ParseHexColor(cmd.Value)
		if err != nil {
			return err
		}
		v.SetColor(c)

	case "set_position":
		if len(cmd.Vector) != 3 {
			return fmt.Errorf("set_position needs a 3-element vector")
		}
		v.SetPosition(mgl32.Vec3{cmd.Vector[0], cmd.Vector[1], cmd.Vector[2]})

	case "snapshot":
		_, err := v.Snapshot()
		return err

	case "dump_state":
		return v.dumpState()

	default:
		return fmt.Errorf("unknown action %q", cmd.Action)
	}
	return nil
}

// State captures the viewer for dump_state and tests.
func (v *Viewer) State() State {
	st := State{
		Timestamp: time.Now().Format(time.RFC3339),
		Instances: make([]InstanceState, 0, len(v.scene.Instances())),
		Pending:   v.Pending(),
		Messages:  make([]string, 0, len(v.messages)),
	}
	for _, inst := range v.scene.Instances() {
		is := InstanceState{ID: inst.ID, Name: inst.DisplayName, Format: string(inst.Format), Source: inst.SourceURL}
		for _, n := range inst.Meshes() {
			is.Meshes = append(is.Meshes, n.Name)
		}
		st.Instances = append(st.Instances, is)
	}

	sel := v.scene.Selection()
	st.Selected = v.meshState(sel.Selected.Instance, sel.Selected.Mesh)
	st.Hovered = v.meshState(sel.Hovered.Instance, sel.Hovered.Mesh)

	f := v.binding.Fields()
	st.Fields = FieldState{
		Active:    v.binding.Active(),
		Color:     f.Color.Hex(),
		Metalness: f.Metalness,
		Roughness: f.Roughness,
		Position:  f.Position,
	}
	st.Camera = CameraState{View: v.camera.View().String(), Position: v.camera.Position()}

	l := v.lighting.Lights()
	st.Lighting = LightingState{
		Mode:                 v.lighting.Mode().String(),
		Ambient:              l.Ambient,
		Directional:          l.Directional,
		EnvironmentIntensity: v.lighting.EnvironmentIntensity(),
	}
	if env := v.lighting.Environment(); env != nil {
		st.Lighting.Environment = env.Source
	}
	for _, m := range v.messages {
		st.Messages = append(st.Messages, m.Kind.String()+": "+m.Text)
	}
	return st
}

func (v *Viewer) meshState(instance uint64, mesh int) *MeshState {
	inst, ok := v.scene.Instance(instance)
	if !ok || mesh < 0 || mesh >= inst.MeshCount() {
		return nil
	}
	n := inst.Meshes()[mesh]
	mat := n.Mesh.Material
	return &MeshState{
		Instance:  instance,
		Index:     mesh,
		Name:      n.Name,
		Color:     mat.Color.Hex(),
		Metalness: mat.Metalness,
		Roughness: mat.Roughness,
		Tint:      mat.Tint.Intensity,
		Position:  n.Position,
	}
}

// dumpState writes state.json to the automation directory.
func (v *Viewer) dumpState() error {
	dir := v.automationDir
	if dir == "" {
		dir = "."
	}
	data, err := json.MarshalIndent(v.State(), "", "  ")
	if err != nil {
		return fmt.Errorf("state dump failed: %w", err)
	}
	statePath := filepath.Join(dir, "state.json")
	if err := os.WriteFile(statePath, data, 0644); err != nil {
		return fmt.Errorf("state dump failed: %w", err)
	}
	v.log.Info("state saved", zap.String("path", statePath))
	return nil
}
