// Package phonetic implements the cascade's phonetic tier: five
// sound-alike encodings voted into a weighted consensus.
package phonetic

import (
	"strings"
	"unicode"

	"github.com/hjonck/leadscout-sub002/internal/domain"
)

// soundexCodes maps a consonant to its Soundex digit group.
var soundexCodes = map[rune]byte{
	'B': '1', 'F': '1', 'P': '1', 'V': '1',
	'C': '2', 'G': '2', 'J': '2', 'K': '2', 'Q': '2', 'S': '2', 'X': '2', 'Z': '2',
	'D': '3', 'T': '3',
	'L': '4',
	'M': '5', 'N': '5',
	'R': '6',
}

// Soundex computes the classic 4-character Soundex code.
func Soundex(name string) string {
	letters := onlyLetters(name)
	if len(letters) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteByte(letters[0])

	lastCode := soundexCodes[rune(letters[0])]
	for _, r := range letters[1:] {
		code, ok := soundexCodes[rune(r)]
		if !ok {
			// Vowels separate equal codes; H and W do not.
			if r != 'H' && r != 'W' {
				lastCode = 0
			}
			continue
		}
		if code != lastCode {
			b.WriteByte(code)
			lastCode = code
		}
	}

	out := b.String()
	for len(out) < 4 {
		out += "0"
	}
	return out[:4]
}

// Metaphone computes a simplified Metaphone key: common digraph rules
// collapsed to a single consonant skeleton, vowels dropped except
// leading.
func Metaphone(name string) string {
	s := onlyLetters(name)
	if len(s) == 0 {
		return ""
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case 'A', 'E', 'I', 'O', 'U':
			if i == 0 {
				b.WriteByte(c)
			}
		case 'C':
			switch {
			case i+1 < len(s) && s[i+1] == 'H':
				b.WriteByte('X')
				i++
			case i+1 < len(s) && (s[i+1] == 'I' || s[i+1] == 'E' || s[i+1] == 'Y'):
				b.WriteByte('S')
			default:
				b.WriteByte('K')
			}
		case 'G':
			if i+1 < len(s) && s[i+1] == 'H' {
				b.WriteByte('F')
				i++
			} else {
				b.WriteByte('K')
			}
		case 'P':
			if i+1 < len(s) && s[i+1] == 'H' {
				b.WriteByte('F')
				i++
			} else {
				b.WriteByte('P')
			}
		case 'T':
			if i+1 < len(s) && s[i+1] == 'H' {
				b.WriteByte('0')
				i++
			} else {
				b.WriteByte('T')
			}
		case 'W', 'H', 'Y':
			// silent unless leading vowel carrier; dropped otherwise
			if i == 0 {
				b.WriteByte(c)
			}
		default:
			b.WriteByte(c)
		}
	}
	return collapseRuns(b.String())
}

// DoubleMetaphone approximates the primary code of the Double Metaphone
// algorithm: Metaphone's consonant skeleton with the common B/V and
// K/C/Q alternate-spelling merges folded together, since those are the
// pairs that most often diverge between South African name spellings.
func DoubleMetaphone(name string) string {
	key := Metaphone(name)
	key = strings.ReplaceAll(key, "V", "B")
	key = strings.ReplaceAll(key, "Q", "K")
	key = strings.ReplaceAll(key, "C", "K")
	return key
}

// NYSIIS computes a simplified New York State Identification and
// Intelligence System key: leading-letter translation rules plus
// trailing-vowel and doubled-letter collapsing.
func NYSIIS(name string) string {
	s := onlyLetters(name)
	if len(s) == 0 {
		return ""
	}

	switch {
	case strings.HasPrefix(s, "MAC"):
		s = "MCC" + s[3:]
	case strings.HasPrefix(s, "KN"):
		s = "NN" + s[2:]
	case strings.HasPrefix(s, "K"):
		s = "C" + s[1:]
	case strings.HasPrefix(s, "PH") || strings.HasPrefix(s, "PF"):
		s = "FF" + s[2:]
	case strings.HasPrefix(s, "SCH"):
		s = "SSS" + s[3:]
	}

	var b strings.Builder
	b.WriteByte(s[0])
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch c {
		case 'A', 'E', 'I', 'O', 'U':
			c = 'A'
		case 'Q':
			c = 'G'
		case 'Z':
			c = 'S'
		case 'M':
			c = 'N'
		case 'K':
			c = 'C'
		case 'V':
			c = 'F'
		}
		b.WriteByte(c)
	}
	return collapseRuns(strings.TrimRight(b.String(), "AS"))
}

// MatchRating computes a Match Rating Codex key: first and last
// letters kept, remaining vowels dropped, doubled consonants collapsed,
// then cut to 6 characters by keeping the first 3 and the last 3 — the
// classic MRA encoding.
func MatchRating(name string) string {
	s := onlyLetters(name)
	if len(s) == 0 {
		return ""
	}
	collapsed := collapseRuns(s)

	var b strings.Builder
	for i, c := range collapsed {
		if i == 0 || i == len(collapsed)-1 {
			b.WriteRune(c)
			continue
		}
		switch c {
		case 'A', 'E', 'I', 'O', 'U':
			continue
		default:
			b.WriteRune(c)
		}
	}
	out := b.String()
	if len(out) > 6 {
		out = out[:3] + out[len(out)-3:]
	}
	return out
}

// Key computes the phonetic key for a given algorithm.
func Key(algo domain.PhoneticAlgorithm, name string) string {
	switch algo {
	case domain.AlgorithmSoundex:
		return Soundex(name)
	case domain.AlgorithmMetaphone:
		return Metaphone(name)
	case domain.AlgorithmDoubleMetaphone:
		return DoubleMetaphone(name)
	case domain.AlgorithmNYSIIS:
		return NYSIIS(name)
	case domain.AlgorithmMatchRating:
		return MatchRating(name)
	}
	return ""
}

func onlyLetters(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		if unicode.IsLetter(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseRuns(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	last := byte(0)
	for i := 0; i < len(s); i++ {
		if s[i] != last {
			b.WriteByte(s[i])
			last = s[i]
		}
	}
	return b.String()
}
