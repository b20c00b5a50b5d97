package filesystem

import (
	"github.com/GriffinCanCode/fsorch/internal/shared/types"
)

func (p *Provider) cacheStats() (*types.Result, error) {
	return Success(map[string]interface{}{"stats": p.cache.Stats()})
}

func (p *Provider) cacheClear() (*types.Result, error) {
	p.cache.Clear()
	return Success(map[string]interface{}{"cleared": true})
}
