package shader

import (
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"

	"github.com/gogpu/nightview/internal/cache"
)

// stageKey identifies a translated stage.
type stageKey struct {
	stage Stage
	src   string
}

// modules holds validated stage modules. A context recreated after a loss
// links the same sources again without re-running naga. Linking only reads
// the modules.
var modules = cache.New[stageKey, *ir.Module](16)

// Compile compiles and links a WGSL vertex and fragment stage.
//
// A stage that does not parse, lower or validate yields a *CompileError
// carrying the naga diagnostic. Stages that compile but disagree on their
// interface yield a *LinkError. On success every uniform and attribute
// location is resolved once and cached in the returned Program.
func Compile(vertexSource, fragmentSource string) (*Program, error) {
	vs, err := compileStage(StageVertex, vertexSource)
	if err != nil {
		return nil, err
	}
	fs, err := compileStage(StageFragment, fragmentSource)
	if err != nil {
		return nil, err
	}
	p, err := link(vs, fs)
	if err != nil {
		return nil, err
	}
	p.vertexSource = vertexSource
	p.fragmentSource = fragmentSource
	return p, nil
}

func compileStage(stage Stage, src string) (*ir.Module, error) {
	return modules.GetOrCreate(stageKey{stage, src}, func() (*ir.Module, error) {
		return translate(stage, src)
	})
}

// translate parses, lowers and validates one stage.
func translate(stage Stage, src string) (*ir.Module, error) {
	if strings.TrimSpace(src) == "" {
		return nil, &CompileError{Stage: stage, Diagnostic: "empty source"}
	}
	ast, err := naga.Parse(src)
	if err != nil {
		return nil, &CompileError{Stage: stage, Diagnostic: err.Error()}
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return nil, &CompileError{Stage: stage, Diagnostic: err.Error()}
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, &CompileError{Stage: stage, Diagnostic: err.Error()}
	}
	if len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, ve := range verrs {
			msgs[i] = ve.Error()
		}
		return nil, &CompileError{Stage: stage, Diagnostic: strings.Join(msgs, "; ")}
	}
	return module, nil
}

// link checks the vertex outputs against the fragment inputs and the bind
// group 0 interface of both stages, then resolves all locations.
func link(vs, fs *ir.Module) (*Program, error) {
	vEntry := findEntry(vs, ir.StageVertex)
	if vEntry == nil {
		return nil, &LinkError{Diagnostic: "vertex source has no @vertex entry point"}
	}
	fEntry := findEntry(fs, ir.StageFragment)
	if fEntry == nil {
		return nil, &LinkError{Diagnostic: "fragment source has no @fragment entry point"}
	}

	outputs := make(map[uint32]ioVar)
	if res := vEntry.Function.Result; res != nil {
		for _, v := range collectIO(vs, "", res.Type, res.Binding, nil) {
			outputs[v.loc] = v
		}
	}
	for _, arg := range fEntry.Function.Arguments {
		for _, in := range collectIO(fs, arg.Name, arg.Type, arg.Binding, nil) {
			out, ok := outputs[in.loc]
			if !ok {
				return nil, &LinkError{Diagnostic: fmt.Sprintf(
					"fragment input %q at location %d has no matching vertex output", in.name, in.loc)}
			}
			if out.sig != in.sig {
				return nil, &LinkError{Diagnostic: fmt.Sprintf(
					"location %d: vertex writes %s, fragment reads %s", in.loc, out.sig, in.sig)}
			}
		}
	}

	p := &Program{
		vertexEntry:   vEntry.Name,
		fragmentEntry: fEntry.Name,
		uniforms:      make(map[string]Location),
		attributes:    make(map[string]Location),
	}

	var blocks []uniformBlock
	for _, m := range []*ir.Module{vs, fs} {
		iface, err := reflectGroup0(m)
		if err != nil {
			return nil, err
		}
		if iface.block != nil {
			blocks = append(blocks, *iface.block)
		}
		p.hasTexture = p.hasTexture || iface.texture
		p.hasSampler = p.hasSampler || iface.sampler
	}
	if len(blocks) == 2 && !blocks[0].compatible(blocks[1]) {
		return nil, &LinkError{Diagnostic: "uniform block layout differs between vertex and fragment stages"}
	}
	for _, b := range blocks {
		for _, m := range b.members {
			p.uniforms[m.name] = Location(m.offset)
		}
		p.blockSize = max(p.blockSize, b.span)
	}

	for _, arg := range vEntry.Function.Arguments {
		for _, in := range collectIO(vs, arg.Name, arg.Type, arg.Binding, nil) {
			p.attributes[in.name] = Location(in.loc)
		}
	}
	return p, nil
}

func findEntry(m *ir.Module, stage ir.ShaderStage) *ir.EntryPoint {
	for i := range m.EntryPoints {
		if m.EntryPoints[i].Stage == stage {
			return &m.EntryPoints[i]
		}
	}
	return nil
}

// ioVar is one user-defined (@location) stage input or output.
type ioVar struct {
	name string
	loc  uint32
	sig  string
}

// collectIO flattens a binding or a struct of bindings into @location
// variables. Builtins are skipped.
func collectIO(m *ir.Module, name string, ty ir.TypeHandle, b *ir.Binding, out []ioVar) []ioVar {
	if b != nil {
		if lb, ok := (*b).(ir.LocationBinding); ok {
			out = append(out, ioVar{name: name, loc: lb.Location, sig: typeName(m, ty)})
		}
		return out
	}
	if int(ty) >= len(m.Types) {
		return out
	}
	if st, ok := m.Types[ty].Inner.(ir.StructType); ok {
		for _, mem := range st.Members {
			out = collectIO(m, mem.Name, mem.Type, mem.Binding, out)
		}
	}
	return out
}

type blockMember struct {
	name   string
	offset uint32
	sig    string
}

type uniformBlock struct {
	members []blockMember
	span    uint32
}

func (b uniformBlock) compatible(o uniformBlock) bool {
	if b.span != o.span {
		return false
	}
	theirs := make(map[string]blockMember, len(o.members))
	for _, m := range o.members {
		theirs[m.name] = m
	}
	for _, m := range b.members {
		if t, ok := theirs[m.name]; ok && t != m {
			return false
		}
	}
	return true
}

type group0 struct {
	block   *uniformBlock
	texture bool
	sampler bool
}

// reflectGroup0 inspects the resource globals of a stage. Only the three
// bindings of group 0 are supported.
func reflectGroup0(m *ir.Module) (group0, error) {
	var g group0
	for _, gv := range m.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		rb := *gv.Binding
		if rb.Group != 0 {
			return g, &LinkError{Diagnostic: fmt.Sprintf("%q: only @group(0) is supported, got @group(%d)", gv.Name, rb.Group)}
		}
		var inner ir.TypeInner
		if int(gv.Type) < len(m.Types) {
			inner = m.Types[gv.Type].Inner
		}
		switch rb.Binding {
		case BindingUniforms:
			st, ok := inner.(ir.StructType)
			if gv.Space != ir.SpaceUniform || !ok {
				return g, &LinkError{Diagnostic: fmt.Sprintf("%q: @binding(0) must be a uniform struct", gv.Name)}
			}
			block := uniformBlock{span: st.Span}
			for _, mem := range st.Members {
				block.members = append(block.members, blockMember{
					name:   mem.Name,
					offset: mem.Offset,
					sig:    typeName(m, mem.Type),
				})
			}
			g.block = &block
		case BindingTexture:
			img, ok := inner.(ir.ImageType)
			if !ok || img.Class != ir.ImageClassSampled || img.Dim != ir.Dim2D {
				return g, &LinkError{Diagnostic: fmt.Sprintf("%q: @binding(1) must be a texture_2d", gv.Name)}
			}
			g.texture = true
		case BindingSampler:
			if _, ok := inner.(ir.SamplerType); !ok {
				return g, &LinkError{Diagnostic: fmt.Sprintf("%q: @binding(2) must be a sampler", gv.Name)}
			}
			g.sampler = true
		default:
			return g, &LinkError{Diagnostic: fmt.Sprintf("%q: unsupported @binding(%d)", gv.Name, rb.Binding)}
		}
	}
	return g, nil
}

// typeName renders a type the way WGSL spells it, for diagnostics and
// interface comparison.
func typeName(m *ir.Module, h ir.TypeHandle) string {
	if int(h) >= len(m.Types) {
		return "?"
	}
	switch t := m.Types[h].Inner.(type) {
	case ir.ScalarType:
		return scalarName(t)
	case ir.VectorType:
		return fmt.Sprintf("vec%d<%s>", t.Size, scalarName(t.Scalar))
	case ir.MatrixType:
		return fmt.Sprintf("mat%dx%d<%s>", t.Columns, t.Rows, scalarName(t.Scalar))
	default:
		if name := m.Types[h].Name; name != "" {
			return name
		}
		return fmt.Sprintf("%T", t)
	}
}

func scalarName(s ir.ScalarType) string {
	bits := int(s.Width) * 8
	switch s.Kind {
	case ir.ScalarFloat:
		return fmt.Sprintf("f%d", bits)
	case ir.ScalarSint:
		return fmt.Sprintf("i%d", bits)
	case ir.ScalarUint:
		return fmt.Sprintf("u%d", bits)
	case ir.ScalarBool:
		return "bool"
	default:
		return "scalar"
	}
}
