package game

import (
	"math/rand"
	"strings"
)

// joinCodeAlphabet drops 0/O/1/I so codes survive being read aloud.
const joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const joinCodeLength = 6

func newJoinCode(rng *rand.Rand) string {
	var sb strings.Builder
	for i := 0; i < joinCodeLength; i++ {
		sb.WriteByte(joinCodeAlphabet[rng.Intn(len(joinCodeAlphabet))])
	}
	return sb.String()
}

// NormalizeJoinCode uppercases and trims user input before lookup.
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
