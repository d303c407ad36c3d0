package shader

import (
	"fmt"
	"log"

	"github.com/richinsley/gochromakey/gpu"
)

// ShaderCompileError reports a stage that failed to translate or compile.
type ShaderCompileError struct {
	Stage  gpu.Stage
	Source string
	Log    string
}

func (e *ShaderCompileError) Error() string {
	return fmt.Sprintf("failed to compile %s shader: %s", e.Stage, e.Log)
}

// ProgramLinkError reports a program that failed to link.
type ProgramLinkError struct {
	Log string
}

func (e *ProgramLinkError) Error() string {
	return fmt.Sprintf("failed to link program: %s", e.Log)
}

// LocationError reports an attribute or uniform with no location in the
// linked program.
type LocationError struct {
	Name string
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("no location for %q in linked program", e.Name)
}

// Translator rewrites a stage into the dialect of the current context and
// reports the names the rewritten code uses for declared variables.
type Translator interface {
	Translate(stage gpu.Stage, source string) (code string, names map[string]string, err error)
}

type BuildOption func(*buildConfig)

type buildConfig struct {
	translator Translator
}

// WithTranslator translates both stages before compiling them.
func WithTranslator(t Translator) BuildOption {
	return func(c *buildConfig) {
		c.translator = t
	}
}

// Program is a linked compositor program with every handle resolved.
type Program struct {
	ID uint32

	VertexPosition int32
	TextureCoord   int32

	ProjectionMatrix int32
	ModelViewMatrix  int32
	// Samplers holds uSampler1, uSampler2 and uSampler3 in that order.
	Samplers [3]int32
}

// Build compiles and links the stage pair and resolves the compositor's
// attribute and uniform locations. On any failure no program is returned.
func Build(dev gpu.Device, vertexSource, fragmentSource string, opts ...BuildOption) (*Program, error) {
	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	names := make(map[string]string)
	vs, err := compileStage(dev, cfg.translator, gpu.VertexStage, vertexSource, names)
	if err != nil {
		return nil, err
	}
	defer dev.DeleteShader(vs)

	fs, err := compileStage(dev, cfg.translator, gpu.FragmentStage, fragmentSource, names)
	if err != nil {
		return nil, err
	}
	defer dev.DeleteShader(fs)

	id, err := dev.LinkProgram(vs, fs)
	if err != nil {
		log.Printf("Failed to link shader program: %v", err)
		return nil, &ProgramLinkError{Log: err.Error()}
	}

	p := &Program{ID: id}
	attribs := []struct {
		name string
		dst  *int32
	}{
		{AttribVertexPosition, &p.VertexPosition},
		{AttribTextureCoord, &p.TextureCoord},
	}
	for _, a := range attribs {
		*a.dst = dev.AttribLocation(id, mapped(names, a.name))
		if *a.dst < 0 {
			dev.DeleteProgram(id)
			return nil, &LocationError{Name: a.name}
		}
	}

	uniforms := []struct {
		name string
		dst  *int32
	}{
		{UniformProjection, &p.ProjectionMatrix},
		{UniformModelView, &p.ModelViewMatrix},
		{Sampler1, &p.Samplers[0]},
		{Sampler2, &p.Samplers[1]},
		{Sampler3, &p.Samplers[2]},
	}
	for _, u := range uniforms {
		*u.dst = dev.UniformLocation(id, mapped(names, u.name))
		if *u.dst < 0 {
			dev.DeleteProgram(id)
			return nil, &LocationError{Name: u.name}
		}
	}

	return p, nil
}

// BuildColorKey builds the compositor's own shader pair.
func BuildColorKey(dev gpu.Device, opts ...BuildOption) (*Program, error) {
	return Build(dev, GetVertexShader(), GetColorKeyFragmentShader(), opts...)
}

// Destroy releases the program object.
func (p *Program) Destroy(dev gpu.Device) {
	if p == nil || p.ID == 0 {
		return
	}
	dev.DeleteProgram(p.ID)
	p.ID = 0
}

func compileStage(dev gpu.Device, tr Translator, stage gpu.Stage, source string, names map[string]string) (uint32, error) {
	code := source
	if tr != nil {
		translated, stageNames, err := tr.Translate(stage, source)
		if err != nil {
			log.Printf("Shader error %s:\n%s", stage, source)
			return 0, &ShaderCompileError{Stage: stage, Source: source, Log: err.Error()}
		}
		code = translated
		for k, v := range stageNames {
			names[k] = v
		}
	}

	id, err := dev.CompileShader(stage, code)
	if err != nil {
		log.Printf("Shader error %s:\n%s", stage, code)
		return 0, &ShaderCompileError{Stage: stage, Source: code, Log: err.Error()}
	}
	return id, nil
}

func mapped(names map[string]string, name string) string {
	if m, ok := names[name]; ok && m != "" {
		return m
	}
	return name
}
