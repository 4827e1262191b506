package algorithm

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/spaolacci/murmur3"
)

// Position is an unsigned 128-bit point on the ring
type Position struct {
	Hi uint64
	Lo uint64
}

// Compare returns -1, 0 or +1 as p is numerically less than, equal to or greater than o
func (p Position) Compare(o Position) int {
	switch {
	case p.Hi < o.Hi:
		return -1
	case p.Hi > o.Hi:
		return 1
	case p.Lo < o.Lo:
		return -1
	case p.Lo > o.Lo:
		return 1
	default:
		return 0
	}
}

// Less reports whether p < o
func (p Position) Less(o Position) bool {
	return p.Compare(o) < 0
}

// String renders the position as 32 hex digits
func (p Position) String() string {
	return fmt.Sprintf("%016x%016x", p.Hi, p.Lo)
}

// BigInt returns the position as an arbitrary precision integer
func (p Position) BigInt() *big.Int {
	hi := new(big.Int).SetUint64(p.Hi)
	return hi.Lsh(hi, 64).Or(hi, new(big.Int).SetUint64(p.Lo))
}

// HashFunc maps a byte sequence to a ring position. Implementations must be
// deterministic across processes so that ownership can be recomputed anywhere.
type HashFunc func(data []byte) Position

// MD5Hash reads the MD5 digest as a big-endian 128-bit integer
func MD5Hash(data []byte) Position {
	sum := md5.Sum(data)
	return Position{
		Hi: binary.BigEndian.Uint64(sum[:8]),
		Lo: binary.BigEndian.Uint64(sum[8:]),
	}
}

// Murmur3Hash uses the 128-bit x64 murmur3 variant
func Murmur3Hash(data []byte) Position {
	h1, h2 := murmur3.Sum128(data)
	return Position{Hi: h1, Lo: h2}
}

// Hash function names accepted by HashFuncByName
const (
	HashMD5     = "md5"
	HashMurmur3 = "murmur3"
)

// HashFuncByName resolves a configured hash function name
func HashFuncByName(name string) (HashFunc, error) {
	switch name {
	case "", HashMD5:
		return MD5Hash, nil
	case HashMurmur3:
		return Murmur3Hash, nil
	default:
		return nil, fmt.Errorf("unknown hash function %q", name)
	}
}
