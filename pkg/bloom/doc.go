/*
Package bloom implements the fixed-size probabilistic membership
pre-check used to short-circuit definite cache misses before a
Manager ever touches its Storage.

Sizing follows the standard formulas for a target false-positive rate:

	m = ceil(-n * ln(p) / (ln 2)^2)   // bit array size
	k = ceil((m / n) * ln 2)          // hash count

The k hash functions are derived from a single deterministic
multiplicative string hash re-seeded with the hash index, rather than k
independently chosen hash families — this exact construction is what
makes "MightContain(k)=false implies Add(k) was never called" hold, so
it is hand-written here instead of delegated to a general-purpose
Bloom filter package. The underlying bit array itself is a
github.com/bits-and-blooms/bitset.BitSet: mechanical bit storage has
no bearing on that property, so there is no reason to hand-roll it.
*/
package bloom
