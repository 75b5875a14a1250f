package hub

// Service combines the file cache with the alias registry. It is the
// artifact locator handed to the chat template resolver.
type Service struct {
	*Cache
	*Registry
}

// NewService returns a Service over cache and registry.
func NewService(cache *Cache, registry *Registry) *Service {
	return &Service{Cache: cache, Registry: registry}
}
