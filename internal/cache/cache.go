package cache

import (
	"math"
	"strconv"
	"time"

	"github.com/cocosci/fishchain/internal/model"
)

// Cache memoizes credible intervals
type Cache interface {
	Get(key string) (model.CredibleInterval, bool)
	Set(key string, value model.CredibleInterval, ttl time.Duration)
	Delete(key string)
	Clear()
	Len() int
}

// Key builds an exact cache key from a policy name and its inputs.
// Float bits are used so nearby inputs never collide.
func Key(policy string, p, n float64) string {
	return "fishchain:v1:" + policy + ":" +
		strconv.FormatUint(math.Float64bits(p), 16) + ":" +
		strconv.FormatUint(math.Float64bits(n), 16)
}
