package types

import (
	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"
)

const (
	DefaultRateLimit = 1 * humanize.GByte // 1GB/s
	DefaultRateBurst = 1 * humanize.MByte
)

type RateLimiter struct {
	*rate.Limiter
}

func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter(DefaultRateLimit, DefaultRateBurst)
}

func NewRateLimiter(rateLimit, rateBurst Bytes) *RateLimiter {
	rateInt := rateLimit.Bytes()

	// A rate of 0 means unlimited
	if rateInt == 0 {
		return &RateLimiter{rate.NewLimiter(rate.Inf, 0)}
	}

	burstSize := int(rateBurst.Bytes())

	// Keep burst sane relative to the rate
	if burstSize > int(rateInt/10) && rateInt > 0 {
		burstSize = int(rateInt / 10)
	}
	if burstSize < 1 {
		burstSize = 1
	}

	return &RateLimiter{rate.NewLimiter(rate.Limit(rateInt), burstSize)}
}
