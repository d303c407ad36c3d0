package shader

import (
	"image/color"
)

// Names declared by the compositor shaders.
const (
	AttribVertexPosition = "aVertexPosition"
	AttribTextureCoord   = "aTextureCoord"
	UniformProjection    = "uProjectionMatrix"
	UniformModelView     = "uModelViewMatrix"
	Sampler1             = "uSampler1" // background shown where the video is keyed out
	Sampler2             = "uSampler2" // background shown everywhere else
	Sampler3             = "uSampler3" // video
)

// ────────────────────────────────── WebGL2 ─────────────────────────────────────

// The matrices' homogeneous terms multiply to one for the compositor's
// fixed transforms. Scaling every clip component by the same factor never
// moves a vertex, so the quad keeps covering the viewport.
const vertexShaderSource = `#version 300 es
in vec4 aVertexPosition;
in vec2 aTextureCoord;

uniform mat4 uModelViewMatrix;
uniform mat4 uProjectionMatrix;

out highp vec2 vTextureCoord;

void main() {
    gl_Position = aVertexPosition * (uModelViewMatrix[3][3] * -uProjectionMatrix[2][3]);
    vTextureCoord = aTextureCoord;
}
`

const colorKeyFragmentShaderSource = `#version 300 es
precision mediump float;

in highp vec2 vTextureCoord;

uniform sampler2D uSampler1;
uniform sampler2D uSampler2;
uniform sampler2D uSampler3;

out vec4 fragColor;

void main(void) {
    vec4 videoColor = texture(uSampler3, vTextureCoord);

    vec4 sceneColor = videoColor.r == 0.0 && videoColor.g == 0.0 && videoColor.b == 0.0
        ? texture(uSampler1, vTextureCoord)
        : texture(uSampler2, vTextureCoord);
    fragColor = vec4(sceneColor.r, sceneColor.g, sceneColor.b, sceneColor.a);
}
`

// ────────────────────────────────── Public API ─────────────────────────────────

func GetVertexShader() string {
	return vertexShaderSource
}

func GetColorKeyFragmentShader() string {
	return colorKeyFragmentShaderSource
}

// ColorKey is the fragment stage's selection rule: pure black video (alpha
// ignored) shows a, anything else shows b. Equality is exact.
func ColorKey(video, a, b color.RGBA) color.RGBA {
	if video.R == 0 && video.G == 0 && video.B == 0 {
		return a
	}
	return b
}
