package algorithm

import (
	"crypto/md5"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosition_Compare(t *testing.T) {
	tests := []struct {
		name string
		a, b Position
		want int
	}{
		{name: "equal", a: Position{Hi: 1, Lo: 2}, b: Position{Hi: 1, Lo: 2}, want: 0},
		{name: "hi decides", a: Position{Hi: 1, Lo: 9}, b: Position{Hi: 2, Lo: 0}, want: -1},
		{name: "lo decides", a: Position{Hi: 3, Lo: 5}, b: Position{Hi: 3, Lo: 4}, want: 1},
		{name: "zero", a: Position{}, b: Position{Lo: 1}, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
			assert.Equal(t, -tt.want, tt.b.Compare(tt.a))
			assert.Equal(t, tt.want < 0, tt.a.Less(tt.b))
		})
	}
}

func TestMD5Hash_MatchesDigest(t *testing.T) {
	for _, input := range []string{"", "A:0", "user:42", "node-17:2"} {
		sum := md5.Sum([]byte(input))
		digest := hex.EncodeToString(sum[:])

		pos := MD5Hash([]byte(input))
		assert.Equal(t, digest, pos.String())

		want, ok := new(big.Int).SetString(digest, 16)
		require.True(t, ok)
		assert.Equal(t, 0, want.Cmp(pos.BigInt()))
	}

	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", MD5Hash(nil).String())
}

func TestMurmur3Hash_Deterministic(t *testing.T) {
	a := Murmur3Hash([]byte("user:42"))
	b := Murmur3Hash([]byte("user:42"))
	c := Murmur3Hash([]byte("user:43"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestHashFuncByName(t *testing.T) {
	md5Func, err := HashFuncByName("")
	require.NoError(t, err)
	assert.Equal(t, MD5Hash([]byte("k")), md5Func([]byte("k")))

	md5Func, err = HashFuncByName(HashMD5)
	require.NoError(t, err)
	assert.Equal(t, MD5Hash([]byte("k")), md5Func([]byte("k")))

	murmur, err := HashFuncByName(HashMurmur3)
	require.NoError(t, err)
	assert.Equal(t, Murmur3Hash([]byte("k")), murmur([]byte("k")))

	_, err = HashFuncByName("crc32")
	assert.Error(t, err)
}
