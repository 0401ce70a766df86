package ui

import (
	"github.com/AllenDang/cimgui-go/imgui"

	"github.com/Faultbox/folio-viewer/internal/render"
)

// localPoint converts a screen position into viewport pixels, reporting
// whether it lies inside the viewport.
func localPoint(mouse, origin, size imgui.Vec2) (x, y float32, inside bool) {
	x, y = mouse.X-origin.X, mouse.Y-origin.Y
	inside = x >= 0 && y >= 0 && x < size.X && y < size.Y
	return x, y, inside
}

// pointerActions are the pick-driven events one frame sends to the viewer.
type pointerActions struct {
	move, down bool
}

// pointerEvents maps this frame's pointer activity to pick events. A pointer
// resting inside the viewport sends nothing, so the scene is not re-picked.
func pointerEvents(entered, moved, clicked bool) pointerActions {
	return pointerActions{move: entered || moved, down: clicked}
}

func (a *App) renderViewport() {
	avail := imgui.ContentRegionAvail()
	if avail.X < 1 || avail.Y < 1 {
		return
	}

	cam := a.viewer.Camera()
	a.renderer.Resize(int32(avail.X), int32(avail.Y))
	a.renderer.Render(render.Frame{
		Instances: a.viewer.Scene().Instances(),
		View:      cam.ViewMatrix(),
		Eye:       cam.Position(),
		Lighting:  a.viewer.Lighting().Setup(),
	})

	origin := imgui.CursorScreenPos()
	texRef := imgui.NewTextureRefTextureID(imgui.TextureID(a.renderer.Texture()))
	imgui.ImageWithBgV(
		*texRef,
		avail,
		imgui.NewVec2(0, 1), // UV flipped
		imgui.NewVec2(1, 0),
		imgui.NewVec4(0, 0, 0, 1),
		imgui.NewVec4(1, 1, 1, 1),
	)
	a.handleViewportInput(origin, avail, imgui.IsItemHovered())
}

// handleViewportInput routes pointer events to picking and the camera.
// Picking uses the matrices of the frame just drawn.
func (a *App) handleViewportInput(origin, size imgui.Vec2, hovered bool) {
	mouse := imgui.MousePos()
	defer func() { a.lastMouse = mouse }()

	x, y, inside := localPoint(mouse, origin, size)
	if !hovered || !inside {
		if a.viewportHovered {
			a.viewer.PointerExit()
			a.viewportHovered = false
		}
		return
	}
	entered := !a.viewportHovered
	a.viewportHovered = true

	act := pointerEvents(entered, mouse != a.lastMouse, imgui.IsMouseClickedBool(imgui.MouseButtonLeft))
	if act.move || act.down {
		ray := a.renderer.PickRay(x, y)
		if act.move {
			a.viewer.PointerMove(ray)
		}
		if act.down {
			a.viewer.PointerDown(ray)
		}
	}

	cam := a.viewer.Camera()
	dx, dy := mouse.X-a.lastMouse.X, mouse.Y-a.lastMouse.Y
	if imgui.IsMouseDragging(imgui.MouseButtonLeft) {
		cam.HandleDrag(dx, dy)
	}
	if imgui.IsMouseDragging(imgui.MouseButtonRight) {
		cam.HandlePan(dx, dy)
	}
	if wheel := imgui.CurrentIO().MouseWheel(); wheel != 0 {
		cam.HandleZoom(wheel)
	}
}
