package render

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
)

type stage struct {
	kind   uint32
	label  string
	source string
}

// compileProgram builds and links a vertex+fragment program. name prefixes
// any compile or link error.
func compileProgram(name, vertexSrc, fragmentSrc string) (uint32, error) {
	program := gl.CreateProgram()
	for _, st := range []stage{
		{gl.VERTEX_SHADER, "vertex", vertexSrc},
		{gl.FRAGMENT_SHADER, "fragment", fragmentSrc},
	} {
		sh, err := compileStage(st)
		if err != nil {
			gl.DeleteProgram(program)
			return 0, fmt.Errorf("%s program: %w", name, err)
		}
		gl.AttachShader(program, sh)
		// Flagged for deletion; freed with the program.
		gl.DeleteShader(sh)
	}

	gl.LinkProgram(program)
	if msg, failed := infoLog(program, gl.GetProgramiv, gl.GetProgramInfoLog, gl.LINK_STATUS); failed {
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("%s program: link: %s", name, msg)
	}
	return program, nil
}

func compileStage(st stage) (uint32, error) {
	sh := gl.CreateShader(st.kind)
	src, free := gl.Strs(st.source + "\x00")
	gl.ShaderSource(sh, 1, src, nil)
	free()
	gl.CompileShader(sh)

	if msg, failed := infoLog(sh, gl.GetShaderiv, gl.GetShaderInfoLog, gl.COMPILE_STATUS); failed {
		gl.DeleteShader(sh)
		return 0, fmt.Errorf("%s shader: %s", st.label, msg)
	}
	return sh, nil
}

// infoLog checks a status flag on a shader or program object and returns
// the driver's log when it is false.
func infoLog(
	obj uint32,
	getiv func(uint32, uint32, *int32),
	getLog func(uint32, int32, *int32, *uint8),
	statusFlag uint32,
) (string, bool) {
	var status int32
	getiv(obj, statusFlag, &status)
	if status != gl.FALSE {
		return "", false
	}
	var n int32
	getiv(obj, gl.INFO_LOG_LENGTH, &n)
	buf := make([]byte, n+1)
	getLog(obj, n, nil, &buf[0])
	return strings.TrimSpace(strings.TrimRight(string(buf), "\x00")), true
}

func uniform(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}
