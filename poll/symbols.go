package poll

import "fmt"

// symbolAlphabet is the fixed total order of vote symbols: keycap digits
// 0 through 10, then regional indicator letters A through Z. Sending the
// raw unicode for the keycaps requires the combining enclosing keycap,
// not the emoji presentation sequence.
var symbolAlphabet = []string{
	"0⃣", "1⃣", "2⃣", "3⃣", "4⃣",
	"5⃣", "6⃣", "7⃣", "8⃣", "9⃣",
	"\U0001F51F",
	"\U0001F1E6", "\U0001F1E7", "\U0001F1E8", "\U0001F1E9", "\U0001F1EA",
	"\U0001F1EB", "\U0001F1EC", "\U0001F1ED", "\U0001F1EE", "\U0001F1EF",
	"\U0001F1F0", "\U0001F1F1", "\U0001F1F2", "\U0001F1F3", "\U0001F1F4",
	"\U0001F1F5", "\U0001F1F6", "\U0001F1F7", "\U0001F1F8", "\U0001F1F9",
	"\U0001F1FA", "\U0001F1FB", "\U0001F1FC", "\U0001F1FD", "\U0001F1FE",
	"\U0001F1FF",
}

// MaxAnswers caps a poll well below the alphabet size; the platform limits
// how many distinct reactions a single message can carry.
const MaxAnswers = 20

// SymbolFor returns the vote symbol for a 1-based answer ordinal. The
// first answer gets the "1" keycap, so the ordering matches the numbering
// a reader expects; the "0" keycap stays reserved.
func SymbolFor(ordinal int) (string, error) {
	if ordinal < 1 || ordinal >= len(symbolAlphabet) {
		return "", fmt.Errorf("no vote symbol for answer ordinal %d", ordinal)
	}
	return symbolAlphabet[ordinal], nil
}
