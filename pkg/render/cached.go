package render

import (
	"context"
	"time"

	"github.com/matzehuels/algoviz/pkg/cache"
)

// SVGCacheTTL is how long a rendered SVG stays cached.
const SVGCacheTTL = 7 * 24 * time.Hour

// SVGKey returns the cache key of the SVG rendered from dot.
func SVGKey(dot string) string {
	return cache.Key("svg", dot)
}

// RenderSVGCached is [RenderSVG] backed by c. It reports whether the SVG
// came from the cache. Cache read and write failures fall back to rendering
// and are otherwise ignored.
func RenderSVGCached(ctx context.Context, c cache.Cache, dot string) ([]byte, bool, error) {
	key := SVGKey(dot)
	if data, ok, err := c.Get(ctx, key); err == nil && ok {
		return data, true, nil
	}

	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, false, err
	}
	_ = c.Set(ctx, key, svg, SVGCacheTTL)
	return svg, false, nil
}
