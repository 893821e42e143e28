package shader

import "sort"

// Location is a resolved uniform or vertex attribute location.
//
// For uniforms it is the byte offset of the member inside the uniform block
// at @group(0) @binding(0); for attributes it is the @location index.
type Location int32

// Absent is the location of a name the program does not declare. Writing
// to it is a no-op.
const Absent Location = -1

// Valid reports whether l refers to a declared name.
func (l Location) Valid() bool { return l >= 0 }

// Uniform names of the enhancement program.
const (
	UniformSigma        = "sigma"
	UniformN            = "n"
	UniformBrightThresh = "brightThresh"
	UniformBrightK      = "brightK"
	UniformGamma        = "gamma"
	UniformEnabled      = "enabled"
	UniformTexelSize    = "texelSize"
)

// Vertex attribute names of the full-screen quad.
const (
	AttribPosition = "position"
	AttribTexCoord = "texCoord"
)

// Bindings of bind group 0, the only group a program may use.
const (
	BindingUniforms = 0
	BindingTexture  = 1
	BindingSampler  = 2
)

// uniformAlign is the size granularity of a uniform buffer binding.
const uniformAlign = 16

// Program is a linked vertex/fragment pair with its uniform and attribute
// locations resolved. It is immutable.
type Program struct {
	vertexSource   string
	fragmentSource string
	vertexEntry    string
	fragmentEntry  string

	uniforms   map[string]Location
	attributes map[string]Location
	blockSize  uint32
	hasTexture bool
	hasSampler bool
}

// Uniform returns the location of the named uniform, or Absent.
func (p *Program) Uniform(name string) Location {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	return Absent
}

// Attribute returns the location of the named vertex input, or Absent.
func (p *Program) Attribute(name string) Location {
	if loc, ok := p.attributes[name]; ok {
		return loc
	}
	return Absent
}

// Uniforms returns the declared uniform names in sorted order.
func (p *Program) Uniforms() []string {
	return sortedKeys(p.uniforms)
}

// Attributes returns the declared attribute names in sorted order.
func (p *Program) Attributes() []string {
	return sortedKeys(p.attributes)
}

// UniformBlockSize returns the size in bytes of the uniform buffer the
// program needs, rounded up to 16. It is never zero.
func (p *Program) UniformBlockSize() uint32 {
	size := p.blockSize
	if size == 0 {
		size = uniformAlign
	}
	return (size + uniformAlign - 1) &^ (uniformAlign - 1)
}

// SamplesTexture reports whether the fragment stage declares the camera
// texture and its sampler.
func (p *Program) SamplesTexture() bool { return p.hasTexture && p.hasSampler }

// VertexEntry returns the name of the @vertex entry point.
func (p *Program) VertexEntry() string { return p.vertexEntry }

// FragmentEntry returns the name of the @fragment entry point.
func (p *Program) FragmentEntry() string { return p.fragmentEntry }

// VertexSource returns the WGSL source of the vertex stage.
func (p *Program) VertexSource() string { return p.vertexSource }

// FragmentSource returns the WGSL source of the fragment stage.
func (p *Program) FragmentSource() string { return p.fragmentSource }

func sortedKeys(m map[string]Location) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
