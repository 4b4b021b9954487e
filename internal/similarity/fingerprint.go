package similarity

import (
	"encoding/hex"
	"hash/fnv"
	"math/bits"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// MaxSimHashDistance is the largest Hamming distance between two SimHashes
// still reported as a content match.
const MaxSimHashDistance = 3

// shingleSize is the number of consecutive words hashed together.
const shingleSize = 3

// Fingerprint identifies an article body for duplicate lookups. Digest
// matches identical text after normalization; SimHash matches near-identical
// text.
type Fingerprint struct {
	Digest  string
	SimHash int64
}

// Compute derives the fingerprint of body.
func Compute(body string) Fingerprint {
	norm := normalize(body)
	sum := blake2b.Sum256([]byte(norm))

	return Fingerprint{
		Digest:  hex.EncodeToString(sum[:]),
		SimHash: int64(simHash(strings.Fields(norm))),
	}
}

// simHash builds a 64-bit Charikar SimHash over word shingles.
func simHash(words []string) uint64 {
	if len(words) == 0 {
		return 0
	}

	var shingles []string
	if len(words) < shingleSize {
		shingles = []string{strings.Join(words, " ")}
	} else {
		for i := 0; i+shingleSize <= len(words); i++ {
			shingles = append(shingles, strings.Join(words[i:i+shingleSize], " "))
		}
	}

	var weights [64]int
	for _, s := range shingles {
		h := fnv.New64a()
		h.Write([]byte(s))
		v := h.Sum64()
		for bit := 0; bit < 64; bit++ {
			if v&(1<<uint(bit)) != 0 {
				weights[bit]++
			} else {
				weights[bit]--
			}
		}
	}

	var out uint64
	for bit, w := range weights {
		if w > 0 {
			out |= 1 << uint(bit)
		}
	}
	return out
}

// Distance returns the number of differing bits between two SimHashes.
func Distance(a, b int64) int {
	return bits.OnesCount64(uint64(a) ^ uint64(b))
}

// ContentScore compares two fingerprints. ok is false when they are not
// close enough to count as a match.
func ContentScore(a, b Fingerprint) (score float64, ok bool) {
	if a.Digest != "" && a.Digest == b.Digest {
		return 1, true
	}

	d := Distance(a.SimHash, b.SimHash)
	if d > MaxSimHashDistance {
		return 0, false
	}
	return 1 - float64(d)/64, true
}
