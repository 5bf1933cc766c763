package hybridhll

import (
	"fmt"
	"hash"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"

	hllerrors "github.com/tamirms/hybridhll/errors"
)

// Hasher is a 64-bit non-cryptographic hash function.
//
// The sketch takes the bucket index from the low bits of the hash and the
// register and residual from the rest, so every bit must be well mixed.
type Hasher interface {
	// Name identifies the hash function. Sketches are compatible only when
	// their hashers share a name.
	Name() string

	// Sum64 hashes data.
	Sum64(data []byte) uint64

	// Sum64String hashes s without copying it where the backend allows.
	Sum64String(s string) uint64

	// New returns a streaming digest computing the same function.
	New() hash.Hash64
}

// Available hashers.
var (
	// XXHash64 is xxHash64 with seed 0. It is the default.
	XXHash64 Hasher = xxhash64Hasher{}

	// XXH3 is the 64-bit xxh3 hash.
	XXH3 Hasher = xxh3Hasher{}

	// Murmur3 is the first half of MurmurHash3 x64 128.
	Murmur3 Hasher = murmur3Hasher{}
)

// Hashers lists the available hashers in a stable order.
func Hashers() []Hasher {
	return []Hasher{XXHash64, XXH3, Murmur3}
}

// ParseHasher returns the hasher with the given name.
func ParseHasher(name string) (Hasher, error) {
	for _, h := range Hashers() {
		if h.Name() == name {
			return h, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", hllerrors.ErrUnknownHasher, name)
}

type xxhash64Hasher struct{}

func (xxhash64Hasher) Name() string                { return "xxhash64" }
func (xxhash64Hasher) Sum64(data []byte) uint64    { return xxhash.Sum64(data) }
func (xxhash64Hasher) Sum64String(s string) uint64 { return xxhash.Sum64String(s) }
func (xxhash64Hasher) New() hash.Hash64            { return xxhash.New() }

type xxh3Hasher struct{}

func (xxh3Hasher) Name() string                { return "xxh3" }
func (xxh3Hasher) Sum64(data []byte) uint64    { return xxh3.Hash(data) }
func (xxh3Hasher) Sum64String(s string) uint64 { return xxh3.HashString(s) }
func (xxh3Hasher) New() hash.Hash64            { return xxh3.New() }

type murmur3Hasher struct{}

func (murmur3Hasher) Name() string                { return "murmur3" }
func (murmur3Hasher) Sum64(data []byte) uint64    { return murmur3.Sum64(data) }
func (murmur3Hasher) Sum64String(s string) uint64 { return murmur3.Sum64([]byte(s)) }
func (murmur3Hasher) New() hash.Hash64            { return murmur3.New64() }
