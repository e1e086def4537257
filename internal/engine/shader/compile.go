package shader

import (
	"strings"

	"github.com/Faultbox/forge3d/internal/engine/gfx"
)

// attributeDefines maps vertex semantics to the defines the common vertex
// code expects.
var attributeDefines = map[gfx.Semantic]string{
	gfx.Position:  "ATTR_POSITION",
	gfx.Normal:    "ATTR_NORMAL",
	gfx.TexCoord0: "ATTR_TEXCOORD0",
}

// AttributeDefines returns the defines for the attributes in mask, in
// location order.
func AttributeDefines(mask gfx.AttributeMask) []string {
	var defines []string
	for _, s := range gfx.Semantics() {
		if mask.Has(s) {
			defines = append(defines, attributeDefines[s])
		}
	}
	return defines
}

// InjectDefines replaces the defines marker in header with one #define line
// per entry. Without a marker the lines go right after the #version line.
func InjectDefines(header string, defines []string) string {
	var sb strings.Builder
	for _, d := range defines {
		sb.WriteString("#define ")
		sb.WriteString(d)
		sb.WriteByte('\n')
	}
	block := sb.String()

	if strings.Contains(header, DefinesMarker) {
		return strings.Replace(header, DefinesMarker+"\n", block, 1)
	}
	if strings.HasPrefix(header, "#version") {
		if i := strings.IndexByte(header, '\n'); i >= 0 {
			return header[:i+1] + block + header[i+1:]
		}
	}
	return block + header
}

// compileProgram compiles and links vertex and fragment sources. Shader
// objects are deleted on every path; the program is deleted on failure.
func compileProgram(ctx gfx.Context, name, vertexSrc, fragmentSrc string) (gfx.Program, error) {
	vert, err := compileStage(ctx, name, gfx.VertexStage, vertexSrc)
	if err != nil {
		return 0, err
	}
	defer ctx.DeleteShader(vert)

	frag, err := compileStage(ctx, name, gfx.FragmentStage, fragmentSrc)
	if err != nil {
		return 0, err
	}
	defer ctx.DeleteShader(frag)

	program := ctx.CreateProgram()
	ctx.AttachShader(program, vert)
	ctx.AttachShader(program, frag)

	if !ctx.LinkProgram(program) {
		log := ctx.ProgramInfoLog(program)
		ctx.DeleteProgram(program)
		return 0, &CompileError{Shader: name, Stage: "link", Log: log}
	}

	return program, nil
}

func compileStage(ctx gfx.Context, name string, stage gfx.Stage, source string) (gfx.ShaderObject, error) {
	s := ctx.CreateShader(stage)
	ctx.ShaderSource(s, source)

	if !ctx.CompileShader(s) {
		log := ctx.ShaderInfoLog(s)
		ctx.DeleteShader(s)
		return 0, &CompileError{Shader: name, Stage: stage.String(), Log: log}
	}
	return s, nil
}
