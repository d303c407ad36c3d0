package translator

import (
	"context"
	"fmt"
	"sync"

	"github.com/richinsley/gochromakey/gpu"
	gst "github.com/richinsley/goshadertranslator"
)

var (
	translator     *gst.ShaderTranslator
	translatorErr  error
	translatorOnce sync.Once
)

// GetTranslator returns the process-wide shader translator, creating it on
// first use. Startup of the underlying module is slow, so it is shared.
func GetTranslator() (*gst.ShaderTranslator, error) {
	translatorOnce.Do(func() {
		translator, translatorErr = gst.NewShaderTranslator(context.Background())
	})
	return translator, translatorErr
}

// WebGL2 translates WebGL2 (ESSL 3.00) sources into the dialect of the
// current context: GLSL 4.10 core, or ESSL when GLES is set.
type WebGL2 struct {
	GLES bool
}

func stageName(stage gpu.Stage) string {
	if stage == gpu.FragmentStage {
		return "fragment"
	}
	return "vertex"
}

// Translate returns the translated code and the mapping from declared
// variable names to the names the translated code uses.
func (w WebGL2) Translate(stage gpu.Stage, source string) (string, map[string]string, error) {
	tr, err := GetTranslator()
	if err != nil {
		return "", nil, fmt.Errorf("failed to start shader translator: %w", err)
	}

	outputFormat := gst.OutputFormatGLSL410
	if w.GLES {
		outputFormat = gst.OutputFormatESSL
	}
	res, err := tr.TranslateShader(source, stageName(stage), gst.ShaderSpecWebGL2, outputFormat)
	if err != nil {
		return "", nil, fmt.Errorf("%s shader translation failed: %w", stageName(stage), err)
	}
	return res.Code, mappedNames(res.Variables), nil
}

func mappedNames(vars map[string]gst.ShaderVariable) map[string]string {
	names := make(map[string]string, len(vars))
	for name, v := range vars {
		names[name] = v.MappedName
	}
	return names
}
