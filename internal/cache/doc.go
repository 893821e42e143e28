// Package cache provides a small generic LRU cache.
//
//	c := cache.New[string, *ir.Module](16)
//	m, err := c.GetOrCreate(src, func() (*ir.Module, error) { return compile(src) })
//
// Cache is safe for concurrent use and must not be copied.
package cache
