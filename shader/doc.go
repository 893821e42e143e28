// Package shader compiles and links the WGSL programs used by the renderer.
//
// Sources are parsed, lowered and validated with naga. Linking checks the
// interface between the vertex and fragment stage and resolves every
// uniform and vertex attribute name to a Location exactly once:
//
//	vs, fs, err := shader.LoadDefaults()
//	if err != nil {
//		return err
//	}
//	prog, err := shader.Compile(vs, fs)
//	if err != nil {
//		return err // *CompileError or *LinkError
//	}
//	off := prog.Uniform(shader.UniformGamma) // byte offset in the uniform block
//
// Names a program does not declare resolve to Absent.
package shader
