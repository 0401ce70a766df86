package ui

import (
	"fmt"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/folio-viewer/internal/camera"
	"github.com/Faultbox/folio-viewer/internal/lighting"
	"github.com/Faultbox/folio-viewer/internal/scene"
	"github.com/Faultbox/folio-viewer/internal/viewer"
)

const (
	leftPanelWidth  = float32(260)
	rightPanelWidth = float32(280)
	statusBarHeight = float32(30)
)

var (
	colorError    = imgui.NewVec4(1, 0.45, 0.4, 1)
	colorInfo     = imgui.NewVec4(0.6, 0.85, 0.6, 1)
	colorSelected = imgui.NewVec4(0, 1, 1, 1)
	colorHovered  = imgui.NewVec4(1, 0.67, 0, 1)
)

func (a *App) layout() {
	viewport := imgui.MainViewport()
	workPos := viewport.WorkPos()
	workSize := viewport.WorkSize()
	contentHeight := workSize.Y - statusBarHeight
	centerWidth := workSize.X - leftPanelWidth - rightPanelWidth

	flags := imgui.WindowFlagsNoMove | imgui.WindowFlagsNoResize | imgui.WindowFlagsNoCollapse

	imgui.SetNextWindowPos(workPos)
	imgui.SetNextWindowSize(imgui.NewVec2(leftPanelWidth, contentHeight))
	if imgui.BeginV("Models", nil, flags) {
		a.renderToolbar()
		imgui.Separator()
		a.renderModelList()
	}
	imgui.End()

	imgui.SetNextWindowPos(imgui.NewVec2(workPos.X+leftPanelWidth, workPos.Y))
	imgui.SetNextWindowSize(imgui.NewVec2(centerWidth, contentHeight))
	if imgui.BeginV("Viewport", nil, flags|imgui.WindowFlagsNoScrollbar) {
		a.renderViewport()
	}
	imgui.End()

	imgui.SetNextWindowPos(imgui.NewVec2(workPos.X+leftPanelWidth+centerWidth, workPos.Y))
	imgui.SetNextWindowSize(imgui.NewVec2(rightPanelWidth, contentHeight))
	if imgui.BeginV("Properties", nil, flags) {
		a.renderMaterialPanel()
		imgui.Separator()
		a.renderCameraPanel()
		imgui.Separator()
		a.renderLightingPanel()
	}
	imgui.End()

	imgui.SetNextWindowPos(imgui.NewVec2(workPos.X, workPos.Y+contentHeight))
	imgui.SetNextWindowSize(imgui.NewVec2(workSize.X, statusBarHeight))
	statusFlags := flags | imgui.WindowFlagsNoTitleBar | imgui.WindowFlagsNoScrollbar
	if imgui.BeginV("##StatusBar", nil, statusFlags) {
		a.renderStatusBar()
	}
	imgui.End()
}

func (a *App) renderToolbar() {
	if imgui.ButtonV("Open Model...", imgui.NewVec2(-1, 0)) {
		a.openDialog(fileModel)
	}
	if imgui.ButtonV("Frame All", imgui.NewVec2(-1, 0)) {
		a.viewer.FrameScene()
	}
	if imgui.ButtonV("Snapshot", imgui.NewVec2(-1, 0)) {
		a.snapshotRequested = true
	}
	if imgui.IsItemHovered() {
		imgui.SetTooltip("Save the viewport as PNG (F12)")
	}
	if n := a.viewer.Pending(); n > 0 {
		imgui.TextDisabled(fmt.Sprintf("Loading %d file(s)...", n))
	}
}

func (a *App) renderModelList() {
	sc := a.viewer.Scene()
	instances := sc.Instances()
	if len(instances) == 0 {
		imgui.TextDisabled("No models loaded")
		imgui.TextWrapped("Open a .glb, .gltf, .obj or .stl file, or drop one on the window.")
		return
	}

	sel := sc.Selection()
	removeID := uint64(0)
	for _, inst := range instances {
		label := fmt.Sprintf("%s##inst%d", inst.DisplayName, inst.ID)
		open := imgui.TreeNodeExStrV(label, imgui.TreeNodeFlagsDefaultOpen|imgui.TreeNodeFlagsSpanAvailWidth)
		if imgui.IsItemHovered() {
			imgui.SetTooltip(fmt.Sprintf("%s (%s)", inst.SourceURL, inst.Format))
		}
		if open {
			refs := sc.MeshRefs(inst.ID)
			for i, n := range inst.Meshes() {
				ref := refs[i]
				name := n.Name
				if name == "" {
					name = fmt.Sprintf("mesh %d", i)
				}
				if ref == sel.Hovered && ref != sel.Selected {
					imgui.TextColored(colorHovered, ">")
					imgui.SameLine()
				}
				if imgui.SelectableBoolV(fmt.Sprintf("%s##%s", name, ref), ref == sel.Selected, 0, imgui.NewVec2(0, 0)) {
					a.viewer.Select(ref)
				}
			}
			if imgui.ButtonV(fmt.Sprintf("Remove##rm%d", inst.ID), imgui.NewVec2(-1, 0)) {
				removeID = inst.ID
			}
			imgui.TreePop()
		}
	}
	// Removal mutates the list being iterated above
	if removeID != 0 {
		a.viewer.RemoveInstance(removeID)
	}
}

func (a *App) renderMaterialPanel() {
	imgui.Text("Material")
	b := a.viewer.Binding()
	if !b.Active() {
		imgui.TextDisabled("Click a part to edit it")
	} else if n, ref := a.viewer.Scene().Selected(); n != nil {
		imgui.TextColored(colorSelected, n.Name)
		imgui.SameLine()
		imgui.TextDisabled(ref.String())
	}

	f := b.Fields()
	col := [3]float32(f.Color)
	if imgui.ColorEdit3("Color", &col) {
		a.viewer.SetColor(scene.Color(col))
	}
	metal := f.Metalness
	if imgui.SliderFloat("Metalness", &metal, 0, 1) {
		a.viewer.SetMetalness(metal)
	}
	rough := f.Roughness
	if imgui.SliderFloat("Roughness", &rough, 0, 1) {
		a.viewer.SetRoughness(rough)
	}
	pos := [3]float32(f.Position)
	if imgui.DragFloat3V("Position", &pos, 0.01, 0, 0, "%.3f", imgui.SliderFlagsNone) {
		a.viewer.SetPosition(mgl32.Vec3(pos))
	}
}

func (a *App) renderCameraPanel() {
	imgui.Text("Camera")
	cam := a.viewer.Camera()
	for _, v := range camera.Views() {
		if imgui.SelectableBoolV(viewLabel(v), cam.View() == v, 0, imgui.NewVec2(0, 0)) {
			cam.SetView(v)
		}
	}
	if cam.InputEnabled() {
		imgui.TextDisabled("Drag to orbit, right-drag to pan, scroll to zoom")
	} else {
		imgui.TextDisabled("Fixed view, select Free to orbit")
	}
}

func viewLabel(v camera.View) string {
	s := v.String()
	return string(s[0]-'a'+'A') + s[1:]
}

func (a *App) renderLightingPanel() {
	imgui.Text("Lighting")
	lc := a.viewer.Lighting()
	if imgui.SelectableBoolV("Procedural lights", lc.Mode() == lighting.Procedural, 0, imgui.NewVec2(0, 0)) {
		lc.SetMode(lighting.Procedural)
	}
	if imgui.SelectableBoolV("Environment image", lc.Mode() == lighting.ImageBased, 0, imgui.NewVec2(0, 0)) {
		lc.SetMode(lighting.ImageBased)
	}
	imgui.Spacing()

	if lc.Mode() == lighting.Procedural {
		l := lc.Lights()
		if imgui.SliderFloat("Ambient", &l.Ambient, 0, 2) {
			lc.SetAmbient(l.Ambient)
		}
		if imgui.SliderFloat("Directional", &l.Directional, 0, 3) {
			lc.SetDirectional(l.Directional)
		}
		dir := [3]float32(l.DirectionalPosition)
		if imgui.DragFloat3V("Light position", &dir, 0.05, 0, 0, "%.2f", imgui.SliderFlagsNone) {
			lc.SetDirectionalPosition(mgl32.Vec3(dir))
		}
		a.renderSaveLighting()
		return
	}

	intensity := lc.EnvironmentIntensity()
	if imgui.SliderFloat("Intensity", &intensity, 0, 3) {
		lc.SetEnvironmentIntensity(intensity)
	}
	if env := lc.Environment(); env != nil {
		kind := "LDR"
		if env.HDR {
			kind = "HDR"
		}
		imgui.TextWrapped(fmt.Sprintf("%s (%dx%d %s)", env.Source, env.Width, env.Height, kind))
	} else {
		imgui.TextDisabled("No environment image, the scene is unlit")
	}
	if imgui.ButtonV("Load Environment...", imgui.NewVec2(-1, 0)) {
		a.openDialog(fileEnvironment)
	}
	a.renderSaveLighting()
}

func (a *App) renderSaveLighting() {
	if a.saveSettings == nil {
		return
	}
	if imgui.ButtonV("Save as default", imgui.NewVec2(-1, 0)) {
		if err := a.saveSettings(); err != nil {
			a.log.Warn("saving settings failed", zap.Error(err))
		}
	}
}

func (a *App) renderStatusBar() {
	msgs := a.viewer.Messages()
	if len(msgs) == 0 {
		imgui.TextDisabled(fmt.Sprintf("%d model(s)", len(a.viewer.Scene().Instances())))
		return
	}
	// Newest message only; dismissing reveals the previous one
	i := len(msgs) - 1
	m := msgs[i]
	if imgui.Button(fmt.Sprintf("x##msg%d", i)) {
		a.viewer.DismissMessage(i)
	}
	imgui.SameLine()
	color := colorInfo
	if m.Kind == viewer.Error {
		color = colorError
	}
	text := m.Text
	if len(msgs) > 1 {
		text = fmt.Sprintf("%s  (+%d more)", text, len(msgs)-1)
	}
	imgui.TextColored(color, text)
}
