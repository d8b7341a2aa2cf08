package provider

import (
	"context"
	"hash/fnv"
)

// fingerprint derives a stable pseudo-random value from the provider
// name and lookup key. The bundled providers estimate their signals
// from this fingerprint; swapping one for a live integration only
// changes its Evaluate body.
func fingerprint(provider, key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(provider))
	h.Write([]byte{':'})
	h.Write([]byte(key))
	return h.Sum32()
}

// checkCtx returns the context error, if any. Providers call it before
// doing work so cancelled evaluations fail fast.
func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
