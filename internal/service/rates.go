package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/paycore/internal/domain"
)

// RateSource resolves one exchange rate per call.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Normalized is the result of converting an incoming amount into the
// receiving account's ledger currency.
type Normalized struct {
	Amount    decimal.Decimal
	Rate      decimal.Decimal
	Converted bool
}

// Normalizer converts amounts between currencies. A single rate lookup per
// call guarantees the transaction and the pending payment record the same
// rate.
type Normalizer struct {
	src RateSource
}

func NewNormalizer(src RateSource) *Normalizer {
	return &Normalizer{src: src}
}

func (n *Normalizer) Normalize(ctx context.Context, amount decimal.Decimal, from, to string) (Normalized, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)

	if from == to {
		return Normalized{Amount: amount.Round(2), Rate: decimal.NewFromInt(1)}, nil
	}

	rate, err := n.src.Rate(ctx, from, to)
	if err != nil {
		return Normalized{}, fmt.Errorf("rate %s->%s: %w", from, to, err)
	}

	return Normalized{
		Amount:    amount.Mul(rate).Round(2),
		Rate:      rate,
		Converted: true,
	}, nil
}

// StaticRateSource serves rates from a fixed table, falling back to the
// reciprocal of the opposite pair when only that is configured.
type StaticRateSource struct {
	rates map[string]decimal.Decimal
}

func NewStaticRateSource(rates map[string]decimal.Decimal) *StaticRateSource {
	table := make(map[string]decimal.Decimal, len(rates))
	for k, v := range rates {
		table[strings.ToUpper(k)] = v
	}
	return &StaticRateSource{rates: table}
}

// DefaultRates is the fallback table used when no external source is wired.
func DefaultRates() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"USD:PKR": decimal.RequireFromString("278.50"),
		"USD:EUR": decimal.RequireFromString("0.92"),
		"USD:KES": decimal.RequireFromString("129.50"),
		"EUR:PKR": decimal.RequireFromString("302.70"),
	}
}

func (s *StaticRateSource) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if r, ok := s.rates[from+":"+to]; ok {
		return r, nil
	}
	if r, ok := s.rates[to+":"+from]; ok && !r.IsZero() {
		return decimal.NewFromInt(1).DivRound(r, 6), nil
	}
	return decimal.Zero, domain.ErrRateUnavailable
}

// CachedRateSource caches resolved rates in redis in front of another
// source. Cache failures fall through to the underlying source.
type CachedRateSource struct {
	rdb  *redis.Client
	next RateSource
	ttl  time.Duration
}

func NewCachedRateSource(rdb *redis.Client, next RateSource, ttl time.Duration) *CachedRateSource {
	return &CachedRateSource{rdb: rdb, next: next, ttl: ttl}
}

func (c *CachedRateSource) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	key := "fx:rate:" + from + ":" + to

	if cached, err := c.rdb.Get(ctx, key).Result(); err == nil {
		if r, perr := decimal.NewFromString(cached); perr == nil {
			return r, nil
		}
	} else if ctx.Err() != nil {
		return decimal.Zero, ctx.Err()
	}

	rate, err := c.next.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}

	// Best-effort write-through.
	c.rdb.Set(ctx, key, rate.String(), c.ttl)
	return rate, nil
}
