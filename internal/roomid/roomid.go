// Package roomid generates human-shareable room codes. The hub treats room
// ids as opaque strings; codes exist purely so people can read one aloud.
package roomid

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
)

// New creates a random, memorable room code from word combinations.
// Format: word-word-word (e.g., "harbor-velvet-sparrow").
func New() string {
	lists := [][]string{places, textures, birds}

	words := make([]string, len(lists))
	for i, list := range lists {
		words[i] = list[randomIndex(len(list))]
	}

	return fmt.Sprintf("%s-%s-%s", words[0], words[1], words[2])
}

// randomIndex returns a cryptographically secure random index for a slice of
// given length.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		log.Panic("Failed to generate random index:", err)
	}
	return int(n.Int64())
}
