package render

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// framebuffer is the offscreen target the viewport shows and snapshots read.
// Color is a sampleable texture; depth lives in a renderbuffer.
type framebuffer struct {
	fbo, color, depth uint32
	width, height     int32
}

func newFramebuffer(width, height int32) (*framebuffer, error) {
	fb := &framebuffer{}
	gl.GenFramebuffers(1, &fb.fbo)
	gl.GenTextures(1, &fb.color)
	gl.GenRenderbuffers(1, &fb.depth)
	fb.allocate(width, height)

	restore := bindFramebuffer(fb.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, fb.color, 0)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, fb.depth)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	restore()

	if status != gl.FRAMEBUFFER_COMPLETE {
		fb.destroy()
		return nil, fmt.Errorf("offscreen target incomplete (status 0x%x, %dx%d)", status, fb.width, fb.height)
	}
	return fb, nil
}

// allocate (re)creates attachment storage at the given size, clamped to 1x1.
func (fb *framebuffer) allocate(width, height int32) {
	fb.width, fb.height = max(width, 1), max(height, 1)

	gl.BindTexture(gl.TEXTURE_2D, fb.color)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, fb.width, fb.height, 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	gl.BindRenderbuffer(gl.RENDERBUFFER, fb.depth)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, fb.width, fb.height)
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
}

// bindFramebuffer makes id current and returns a func restoring the
// previous binding.
func bindFramebuffer(id uint32) func() {
	var prev int32
	gl.GetIntegerv(gl.FRAMEBUFFER_BINDING, &prev)
	gl.BindFramebuffer(gl.FRAMEBUFFER, id)
	return func() { gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(prev)) }
}

// bind targets the framebuffer with a matching viewport. The returned func
// restores both.
func (fb *framebuffer) bind() func() {
	var vp [4]int32
	gl.GetIntegerv(gl.VIEWPORT, &vp[0])
	restore := bindFramebuffer(fb.fbo)
	gl.Viewport(0, 0, fb.width, fb.height)
	return func() {
		restore()
		gl.Viewport(vp[0], vp[1], vp[2], vp[3])
	}
}

// resize reports whether storage was reallocated; contents are lost if so.
func (fb *framebuffer) resize(width, height int32) bool {
	if max(width, 1) == fb.width && max(height, 1) == fb.height {
		return false
	}
	fb.allocate(width, height)
	return true
}

// readPixels returns tightly packed RGBA rows, bottom row first.
func (fb *framebuffer) readPixels() []byte {
	pixels := make([]byte, int(fb.width)*int(fb.height)*4)
	restore := bindFramebuffer(fb.fbo)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, fb.width, fb.height, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	restore()
	return pixels
}

func (fb *framebuffer) destroy() {
	if fb.fbo != 0 {
		gl.DeleteFramebuffers(1, &fb.fbo)
	}
	if fb.color != 0 {
		gl.DeleteTextures(1, &fb.color)
	}
	if fb.depth != 0 {
		gl.DeleteRenderbuffers(1, &fb.depth)
	}
	*fb = framebuffer{}
}
