package bloom

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bitset"
)

// Config sizes a Filter from the expected number of elements and the
// desired false-positive rate at that load.
type Config struct {
	ExpectedElements  uint64
	FalsePositiveRate float64
}

// DefaultConfig is used by New when Config.ExpectedElements is zero.
var DefaultConfig = Config{ExpectedElements: 100_000, FalsePositiveRate: 0.01}

// Stats is the snapshot returned by Filter.Stats.
type Stats struct {
	Size              uint64
	HashCount         uint64
	ElementCount      uint64
	FalsePositiveRate float64
	LoadFactor        float64
}

// Filter is a fixed-size Bloom filter. It is safe for concurrent use:
// Add mutates the shared bit array under a mutex and MightContain
// takes the same lock for reading.
type Filter struct {
	m uint64 // bit array size
	k uint64 // hash count
	n uint64 // expected elements, for the reported false-positive rate

	mu   sync.Mutex
	bits *bitset.BitSet

	elementCount atomic.Uint64
}

// New sizes and allocates a Filter for cfg.
func New(cfg Config) *Filter {
	if cfg.ExpectedElements == 0 {
		cfg = DefaultConfig
	}
	if cfg.FalsePositiveRate <= 0 || cfg.FalsePositiveRate >= 1 {
		cfg.FalsePositiveRate = DefaultConfig.FalsePositiveRate
	}

	n := float64(cfg.ExpectedElements)
	p := cfg.FalsePositiveRate

	m := uint64(math.Ceil(-n * math.Log(p) / (math.Ln2 * math.Ln2)))
	if m == 0 {
		m = 1
	}
	k := uint64(math.Ceil((float64(m) / n) * math.Ln2))
	if k == 0 {
		k = 1
	}

	return &Filter{
		m:    m,
		k:    k,
		n:    cfg.ExpectedElements,
		bits: bitset.New(uint(m)),
	}
}

// fnvOffset and fnvPrime are the 64-bit FNV-1a constants, used as the
// base of the reseeded multiplicative hash.
const (
	fnvOffset = 14695981039346656037
	fnvPrime  = 1099511628211
)

// hashSeeded computes a deterministic multiplicative hash of s, seeded
// by seed so that the same string yields k independent-looking indices
// as seed ranges over [0, k).
func hashSeeded(s string, seed uint64) uint64 {
	h := fnvOffset ^ seed
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime
	}
	return h
}

func (f *Filter) indexes(key string) []uint {
	idx := make([]uint, f.k)
	for i := uint64(0); i < f.k; i++ {
		idx[i] = uint(hashSeeded(key, i) % f.m)
	}
	return idx
}

// Add records key as present. Safe for concurrent use.
func (f *Filter) Add(key string) {
	idx := f.indexes(key)

	f.mu.Lock()
	for _, i := range idx {
		f.bits.Set(i)
	}
	f.mu.Unlock()

	f.elementCount.Add(1)
}

// MightContain reports whether key may have been added. false is
// authoritative (key was never added); true is advisory.
func (f *Filter) MightContain(key string) bool {
	idx := f.indexes(key)

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, i := range idx {
		if !f.bits.Test(i) {
			return false
		}
	}
	return true
}

// Clear zeroes the bit array and resets the element counter.
func (f *Filter) Clear() {
	f.mu.Lock()
	f.bits.ClearAll()
	f.mu.Unlock()
	f.elementCount.Store(0)
}

// Stats reports the filter's sizing and current load.
func (f *Filter) Stats() Stats {
	f.mu.Lock()
	setBits := f.bits.Count()
	f.mu.Unlock()

	n := float64(f.elementCount.Load())
	empiricalFP := math.Pow(1-math.Exp(-float64(f.k)*n/float64(f.m)), float64(f.k))

	return Stats{
		Size:              f.m,
		HashCount:         f.k,
		ElementCount:      f.elementCount.Load(),
		FalsePositiveRate: empiricalFP,
		LoadFactor:        float64(setBits) / float64(f.m),
	}
}
