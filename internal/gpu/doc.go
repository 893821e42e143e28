// Package gpu holds the HAL side of the renderer: the camera texture, the
// full-screen quad, the uniform block and the render context that draws
// them with the enhancement pipeline.
//
// # Resources
//
// A Context is created per display surface and owns:
//
//   - ExternalTexture: RGBA8 texture mirroring a frame.Surface, with a
//     linear clamp-to-edge sampler
//   - Quad: a 4-vertex triangle strip, x,y,z,u,v interleaved
//   - UniformBlock: CPU staging for the uniform struct at @binding(0)
//   - the pipeline built from a linked shader.Program
//
// Device and queue are borrowed from the host and never destroyed here.
//
// # Drawing
//
// Context.Draw uploads the newest frame if there is one, uploads the staged
// uniforms and submits a single render pass:
//
//	clear -> SetPipeline -> SetBindGroup(0) -> SetVertexBuffer(0) -> Draw(4, 1)
//
// All GPU calls must come from one goroutine.
package gpu
