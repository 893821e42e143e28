// Package driver hosts a nightview.Renderer on a real GPU.
//
// OpenDevice selects a registered HAL backend and opens a device on the
// best adapter. A WindowTarget presents into a native window surface; an
// OffscreenTarget renders into a texture for headless runs. A Loop drives
// the renderer's lifecycle hooks from one locked OS thread:
//
//	dev, err := driver.OpenDevice(driver.Config{Backend: "auto"})
//	...
//	target, err := driver.NewWindowTarget(dev, driver.WindowOptions{
//	    DisplayHandle: display, WindowHandle: hwnd, Width: w, Height: h,
//	})
//	...
//	loop := driver.NewLoop(target, renderer, driver.LoopConfig{FPS: 30})
//	err = loop.Run(ctx)
//
// Backends register themselves on import; the command imports
// github.com/gogpu/wgpu/hal/allbackends.
package driver
