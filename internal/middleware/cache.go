package middleware

import "github.com/gin-gonic/gin"

const (
	cacheHitKey    = "cache_hit"
	cacheHeaderKey = "X-Cache"
)

// SetCacheHit reports cache utilisation through the X-Cache response header.
func SetCacheHit(c *gin.Context, hit bool) {
	if c == nil {
		return
	}
	c.Set(cacheHitKey, hit)
	if hit {
		c.Header(cacheHeaderKey, "HIT")
		return
	}
	c.Header(cacheHeaderKey, "MISS")
}

// CacheHit returns the value recorded by SetCacheHit.
func CacheHit(c *gin.Context) (bool, bool) {
	if c == nil {
		return false, false
	}
	v, ok := c.Get(cacheHitKey)
	if !ok {
		return false, false
	}
	hit, ok := v.(bool)
	return hit, ok
}
