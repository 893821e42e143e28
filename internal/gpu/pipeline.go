// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/nightview/shader"
)

// enhancePipeline owns the GPU objects built from a linked program: one
// shader module per stage, the group 0 layout, the pipeline layout, the
// triangle-strip render pipeline and the bind group tying uniforms, camera
// texture and sampler together.
type enhancePipeline struct {
	device hal.Device

	vertexModule   hal.ShaderModule
	fragmentModule hal.ShaderModule
	groupLayout    hal.BindGroupLayout
	pipeLayout     hal.PipelineLayout
	pipeline       hal.RenderPipeline
	bindGroup      hal.BindGroup
}

func newEnhancePipeline(
	device hal.Device,
	prog *shader.Program,
	vertexLayout []gputypes.VertexBufferLayout,
	targetFormat gputypes.TextureFormat,
	uniforms *UniformBlock,
	camera *ExternalTexture,
) (*enhancePipeline, error) {
	p := &enhancePipeline{device: device}
	if err := p.create(prog, vertexLayout, targetFormat, uniforms, camera); err != nil {
		p.destroy()
		return nil, err
	}
	return p, nil
}

func (p *enhancePipeline) create(
	prog *shader.Program,
	vertexLayout []gputypes.VertexBufferLayout,
	targetFormat gputypes.TextureFormat,
	uniforms *UniformBlock,
	camera *ExternalTexture,
) error {
	var err error
	p.vertexModule, err = p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "nightview_vertex",
		Source: hal.ShaderSource{WGSL: prog.VertexSource()},
	})
	if err != nil {
		return fmt.Errorf("create vertex module: %w", err)
	}
	p.fragmentModule, err = p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "nightview_fragment",
		Source: hal.ShaderSource{WGSL: prog.FragmentSource()},
	})
	if err != nil {
		return fmt.Errorf("create fragment module: %w", err)
	}

	// Group 0:
	//   binding 0: uniform block (vertex+fragment)
	//   binding 1: camera texture_2d (fragment)
	//   binding 2: filtering sampler (fragment)
	p.groupLayout, err = p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "nightview_group0_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    shader.BindingUniforms,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    shader.BindingTexture,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    shader.BindingSampler,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}

	p.pipeLayout, err = p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "nightview_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.groupLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}

	p.pipeline, err = p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "nightview_enhance",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.vertexModule,
			EntryPoint: prog.VertexEntry(),
			Buffers:    vertexLayout,
		},
		Fragment: &hal.FragmentState{
			Module:     p.fragmentModule,
			EntryPoint: prog.FragmentEntry(),
			Targets: []gputypes.ColorTargetState{{
				Format:    targetFormat,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleStrip,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create render pipeline: %w", err)
	}

	p.bindGroup, err = p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "nightview_group0",
		Layout: p.groupLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: shader.BindingUniforms, Resource: gputypes.BufferBinding{
				Buffer: uniforms.Buffer().NativeHandle(), Offset: 0, Size: uniforms.Size(),
			}},
			{Binding: shader.BindingTexture, Resource: gputypes.TextureViewBinding{
				TextureView: camera.View().NativeHandle(),
			}},
			{Binding: shader.BindingSampler, Resource: gputypes.SamplerBinding{
				Sampler: camera.Sampler().NativeHandle(),
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	return nil
}

// destroy releases everything in reverse creation order. Safe on a
// partially created pipeline.
func (p *enhancePipeline) destroy() {
	if p.bindGroup != nil {
		p.device.DestroyBindGroup(p.bindGroup)
		p.bindGroup = nil
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.groupLayout != nil {
		p.device.DestroyBindGroupLayout(p.groupLayout)
		p.groupLayout = nil
	}
	if p.fragmentModule != nil {
		p.device.DestroyShaderModule(p.fragmentModule)
		p.fragmentModule = nil
	}
	if p.vertexModule != nil {
		p.device.DestroyShaderModule(p.vertexModule)
		p.vertexModule = nil
	}
}
