package selector

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mtlprog/walletview/internal/store"
)

const defaultCacheSize = 4096

// input names a snapshot slice a selector reads.
type input uint8

const (
	inAssets input = 1 << iota
	inMarket
	inPortfolio
	inValidators
	inPreferences
)

// memoKey identifies a selector result by the generations of the slices it
// reads plus its parameters. Slices a selector does not read stay zero, so
// unrelated updates keep hitting the cache.
type memoKey struct {
	name   string
	gens   [5]uint64
	params string
}

func newKey(snap *store.Snapshot, name string, in input, params ...any) memoKey {
	k := memoKey{name: name}
	if in&inAssets != 0 {
		k.gens[0] = snap.Assets.Generation()
	}
	if in&inMarket != 0 {
		k.gens[1] = snap.Market.Generation()
	}
	if in&inPortfolio != 0 {
		k.gens[2] = snap.Portfolio.Generation()
	}
	if in&inValidators != 0 {
		k.gens[3] = snap.Validators.Generation()
	}
	if in&inPreferences != 0 {
		k.gens[4] = snap.Preferences.Generation()
	}
	if len(params) > 0 {
		k.params = fmt.Sprintf("%q", params)
	}
	return k
}

// Recorder observes cache behaviour.
type Recorder interface {
	SelectorHit(name string)
	SelectorMiss(name string)
}

// memoize returns the cached value for key, computing and storing it on a miss.
// Repeated calls on an unchanged snapshot return the same value, so maps and
// slices are reference-equal between calls.
func memoize[T any](s *Selectors, key memoKey, compute func() T) T {
	if v, ok := s.cache.Get(key); ok {
		if t, ok := v.(T); ok {
			s.recordHit(key.name)
			return t
		}
	}
	s.recordMiss(key.name)
	v := compute()
	s.cache.Add(key, v)
	return v
}

func (s *Selectors) recordHit(name string) {
	if s.recorder != nil {
		s.recorder.SelectorHit(name)
	}
}

func (s *Selectors) recordMiss(name string) {
	if s.recorder != nil {
		s.recorder.SelectorMiss(name)
	}
}

func newCache(size int) *lru.Cache[memoKey, any] {
	if size <= 0 {
		size = defaultCacheSize
	}
	c, err := lru.New[memoKey, any](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return c
}
