// Package render draws the composed scene into an offscreen framebuffer
// with OpenGL 4.1. The framebuffer texture is shown by the UI viewport and
// read back for snapshots.
package render

import (
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/folio-viewer/internal/composition"
	"github.com/Faultbox/folio-viewer/internal/lighting"
	"github.com/Faultbox/folio-viewer/internal/logger"
	"github.com/Faultbox/folio-viewer/internal/picking"
	"github.com/Faultbox/folio-viewer/internal/scene"
)

const (
	fovDegrees = 50
	nearPlane  = 0.01
	farPlane   = 1000
)

// ClearColor is the viewport background when no environment is shown.
var ClearColor = scene.MustHexColor("#1e1e24")

// Frame is everything one Render call needs.
type Frame struct {
	Instances []*composition.Instance
	View      mgl32.Mat4
	Eye       mgl32.Vec3
	Lighting  lighting.Setup
}

type gpuMesh struct {
	vao, vbo, ebo uint32
	indexCount    int32
}

type surfaceUniforms struct {
	model, view, projection                       int32
	baseColor, opacity, metalness, roughness      int32
	emissive, tintColor, tintIntensity            int32
	cameraPos, ambient, directional, lightDir     int32
	useEnv, env, envAverage, envIntensity         int32
}

type backgroundUniforms struct {
	invViewProj, cameraPos, env, envIntensity int32
}

// Renderer owns the GL resources for the viewport. All methods must be
// called on the thread holding the GL context.
type Renderer struct {
	fb *framebuffer

	surface    uint32
	su         surfaceUniforms
	background uint32
	bu         backgroundUniforms
	emptyVAO   uint32

	meshes map[*scene.Geometry]*gpuMesh

	envTex    uint32
	envSource *lighting.EnvironmentMap

	view, projection mgl32.Mat4
	rendered         bool

	log *zap.Logger
}

// New compiles the shaders and allocates a width x height framebuffer.
func New(width, height int32) (*Renderer, error) {
	r := &Renderer{
		meshes: make(map[*scene.Geometry]*gpuMesh),
		log:    logger.Named("render"),
	}

	fb, err := newFramebuffer(width, height)
	if err != nil {
		return nil, err
	}
	r.fb = fb

	r.surface, err = compileProgram("surface", surfaceVertexShader, surfaceFragmentShader)
	if err != nil {
		r.Destroy()
		return nil, err
	}
	p := r.surface
	r.su = surfaceUniforms{
		model:         uniform(p, "uModel"),
		view:          uniform(p, "uView"),
		projection:    uniform(p, "uProjection"),
		baseColor:     uniform(p, "uBaseColor"),
		opacity:       uniform(p, "uOpacity"),
		metalness:     uniform(p, "uMetalness"),
		roughness:     uniform(p, "uRoughness"),
		emissive:      uniform(p, "uEmissive"),
		tintColor:     uniform(p, "uTintColor"),
		tintIntensity: uniform(p, "uTintIntensity"),
		cameraPos:     uniform(p, "uCameraPos"),
		ambient:       uniform(p, "uAmbient"),
		directional:   uniform(p, "uDirectional"),
		lightDir:      uniform(p, "uLightDir"),
		useEnv:        uniform(p, "uUseEnvironment"),
		env:           uniform(p, "uEnvironment"),
		envAverage:    uniform(p, "uEnvironmentAverage"),
		envIntensity:  uniform(p, "uEnvironmentIntensity"),
	}

	r.background, err = compileProgram("background", backgroundVertexShader, backgroundFragmentShader)
	if err != nil {
		r.Destroy()
		return nil, err
	}
	r.bu = backgroundUniforms{
		invViewProj:  uniform(r.background, "uInvViewProjection"),
		cameraPos:    uniform(r.background, "uCameraPos"),
		env:          uniform(r.background, "uEnvironment"),
		envIntensity: uniform(r.background, "uEnvironmentIntensity"),
	}
	gl.GenVertexArrays(1, &r.emptyVAO)

	r.log.Debug("renderer ready", zap.Int32("width", width), zap.Int32("height", height))
	return r, nil
}

// Projection returns the perspective projection for the given aspect ratio.
func Projection(aspect float32) mgl32.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return mgl32.Perspective(mgl32.DegToRad(fovDegrees), aspect, nearPlane, farPlane)
}

// Resize changes the framebuffer size. The next snapshot waits for a new
// frame.
func (r *Renderer) Resize(width, height int32) {
	if r.fb.resize(width, height) {
		r.rendered = false
	}
}

// Size returns the framebuffer size.
func (r *Renderer) Size() (int32, int32) {
	return r.fb.width, r.fb.height
}

// Texture returns the color attachment for display.
func (r *Renderer) Texture() uint32 {
	return r.fb.color
}

// Render draws one frame into the framebuffer.
func (r *Renderer) Render(f Frame) {
	restore := r.fb.bind()
	defer restore()

	r.view = f.View
	r.projection = Projection(float32(r.fb.width) / float32(r.fb.height))

	gl.Disable(gl.CULL_FACE)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.ClearColor(ClearColor[0], ClearColor[1], ClearColor[2], 1)
	gl.ClearDepth(clearDepth)
	gl.DepthMask(true)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	env := f.Lighting.Environment
	if env != nil {
		r.bindEnvironment(env)
		r.drawBackground(f)
	}
	surfaceDepth.apply()

	gl.UseProgram(r.surface)
	gl.UniformMatrix4fv(r.su.view, 1, false, &r.view[0])
	gl.UniformMatrix4fv(r.su.projection, 1, false, &r.projection[0])
	gl.Uniform3fv(r.su.cameraPos, 1, &f.Eye[0])
	gl.Uniform1f(r.su.ambient, f.Lighting.Ambient)
	gl.Uniform1f(r.su.directional, f.Lighting.Directional)
	gl.Uniform3fv(r.su.lightDir, 1, &f.Lighting.LightDir[0])
	if env != nil {
		gl.Uniform1i(r.su.useEnv, 1)
		gl.ActiveTexture(gl.TEXTURE0)
		gl.BindTexture(gl.TEXTURE_2D, r.envTex)
		gl.Uniform1i(r.su.env, 0)
		gl.Uniform3fv(r.su.envAverage, 1, &env.Average[0])
		gl.Uniform1f(r.su.envIntensity, f.Lighting.EnvironmentIntensity)
	} else {
		gl.Uniform1i(r.su.useEnv, 0)
	}

	seen := make(map[*scene.Geometry]bool, len(r.meshes))
	for _, inst := range f.Instances {
		if inst.Root == nil {
			continue
		}
		inst.Root.Walk(mgl32.Ident4(), func(n *scene.Node, world mgl32.Mat4) bool {
			if n.Mesh == nil || n.Mesh.Geometry == nil || n.Mesh.Material == nil {
				return true
			}
			seen[n.Mesh.Geometry] = true
			r.drawMesh(n.Mesh, world)
			return true
		})
	}
	gl.BindVertexArray(0)
	r.prune(seen)
	r.rendered = true
}

func (r *Renderer) drawMesh(m *scene.Mesh, world mgl32.Mat4) {
	gm := r.meshes[m.Geometry]
	if gm == nil {
		gm = upload(m.Geometry)
		r.meshes[m.Geometry] = gm
	}
	if gm.indexCount == 0 {
		return
	}

	mat := m.Material
	gl.UniformMatrix4fv(r.su.model, 1, false, &world[0])
	gl.Uniform3fv(r.su.baseColor, 1, &mat.Color[0])
	gl.Uniform1f(r.su.opacity, mat.Opacity)
	gl.Uniform1f(r.su.metalness, mat.Metalness)
	gl.Uniform1f(r.su.roughness, mat.Roughness)
	gl.Uniform3fv(r.su.emissive, 1, &mat.Emissive[0])
	gl.Uniform3fv(r.su.tintColor, 1, &mat.Tint.Color[0])
	gl.Uniform1f(r.su.tintIntensity, mat.Tint.Intensity)

	gl.BindVertexArray(gm.vao)
	gl.DrawElements(gl.TRIANGLES, gm.indexCount, gl.UNSIGNED_INT, nil)
}

func (r *Renderer) drawBackground(f Frame) {
	inv := r.projection.Mul4(r.view).Inv()
	backgroundDepth.apply()
	gl.UseProgram(r.background)
	gl.UniformMatrix4fv(r.bu.invViewProj, 1, false, &inv[0])
	gl.Uniform3fv(r.bu.cameraPos, 1, &f.Eye[0])
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.envTex)
	gl.Uniform1i(r.bu.env, 0)
	gl.Uniform1f(r.bu.envIntensity, f.Lighting.EnvironmentIntensity)
	gl.BindVertexArray(r.emptyVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
}

// clearDepth is the depth buffer value after Clear; the background
// triangle is emitted at exactly this depth.
const clearDepth = 1.0

// depthState is the depth configuration one draw pass runs with.
type depthState struct {
	test  bool
	write bool
	fn    uint32
}

var (
	surfaceDepth = depthState{test: true, write: true, fn: gl.LESS}
	// Far-plane fragments equal the cleared depth, so LESS would drop them.
	backgroundDepth = depthState{test: true, write: false, fn: gl.LEQUAL}
)

func (d depthState) apply() {
	if d.test {
		gl.Enable(gl.DEPTH_TEST)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	gl.DepthMask(d.write)
	gl.DepthFunc(d.fn)
}

// passes reports whether a fragment at depth z survives against stored.
func (d depthState) passes(z, stored float32) bool {
	if !d.test {
		return true
	}
	switch d.fn {
	case gl.LESS:
		return z < stored
	case gl.LEQUAL:
		return z <= stored
	case gl.ALWAYS:
		return true
	default:
		return false
	}
}

// bindEnvironment uploads env when it differs from the cached texture.
func (r *Renderer) bindEnvironment(env *lighting.EnvironmentMap) {
	if env == r.envSource && r.envTex != 0 {
		return
	}
	if r.envTex == 0 {
		gl.GenTextures(1, &r.envTex)
	}
	gl.BindTexture(gl.TEXTURE_2D, r.envTex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGB32F, int32(env.Width), int32(env.Height), 0, gl.RGB, gl.FLOAT, gl.Ptr(env.Pixels))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	r.envSource = env
	r.log.Debug("environment uploaded", zap.String("source", env.Source))
}

// prune releases buffers for geometry no longer in the scene.
func (r *Renderer) prune(seen map[*scene.Geometry]bool) {
	for g, gm := range r.meshes {
		if seen[g] {
			continue
		}
		gm.release()
		delete(r.meshes, g)
	}
}

func upload(g *scene.Geometry) *gpuMesh {
	vertices, indices := interleave(g)
	gm := &gpuMesh{indexCount: int32(len(indices))}
	if len(indices) == 0 {
		return gm
	}

	gl.GenVertexArrays(1, &gm.vao)
	gl.BindVertexArray(gm.vao)

	gl.GenBuffers(1, &gm.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, gm.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)

	gl.GenBuffers(1, &gm.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gm.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)

	stride := int32(vertexStride * 4)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 3*4)
	gl.EnableVertexAttribArray(1)

	gl.BindVertexArray(0)
	return gm
}

func (gm *gpuMesh) release() {
	if gm.vao != 0 {
		gl.DeleteVertexArrays(1, &gm.vao)
	}
	if gm.vbo != 0 {
		gl.DeleteBuffers(1, &gm.vbo)
	}
	if gm.ebo != 0 {
		gl.DeleteBuffers(1, &gm.ebo)
	}
}

// vertexStride is position + normal, in floats.
const vertexStride = 6

// interleave packs geometry as position/normal pairs with an index list,
// generating sequential indices for non-indexed geometry.
func interleave(g *scene.Geometry) ([]float32, []uint32) {
	if len(g.Positions) == 0 {
		return nil, nil
	}
	vertices := make([]float32, 0, len(g.Positions)*vertexStride)
	for i, p := range g.Positions {
		n := [3]float32{0, 1, 0}
		if i < len(g.Normals) {
			n = g.Normals[i]
		}
		vertices = append(vertices, p[0], p[1], p[2], n[0], n[1], n[2])
	}

	indices := g.Indices
	if len(indices) == 0 {
		indices = make([]uint32, len(g.Positions)/3*3)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	return vertices, indices
}

// PickRay converts a pixel in the framebuffer (origin top-left) into a
// world ray using the matrices of the last frame.
func (r *Renderer) PickRay(x, y float32) picking.Ray {
	inv := r.projection.Mul4(r.view).Inv()
	return picking.ScreenToRay(x, y, float32(r.fb.width), float32(r.fb.height), inv)
}

// ReadFrame returns the last rendered frame as bottom-up RGBA rows. ok is
// false until a frame has been drawn at the current size.
func (r *Renderer) ReadFrame() ([]byte, int, int, bool) {
	if !r.rendered {
		return nil, 0, 0, false
	}
	return r.fb.readPixels(), int(r.fb.width), int(r.fb.height), true
}

// Destroy releases every GL resource.
func (r *Renderer) Destroy() {
	for g, gm := range r.meshes {
		gm.release()
		delete(r.meshes, g)
	}
	if r.envTex != 0 {
		gl.DeleteTextures(1, &r.envTex)
		r.envTex = 0
	}
	if r.emptyVAO != 0 {
		gl.DeleteVertexArrays(1, &r.emptyVAO)
		r.emptyVAO = 0
	}
	if r.surface != 0 {
		gl.DeleteProgram(r.surface)
		r.surface = 0
	}
	if r.background != 0 {
		gl.DeleteProgram(r.background)
		r.background = 0
	}
	if r.fb != nil {
		r.fb.destroy()
	}
}
