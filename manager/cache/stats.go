package cache

import (
	"sync/atomic"
	"time"
)

type CacheStats struct {
	Reads   atomic.Int64
	Created time.Time
}
