// Package phonetic implements the sound-alike encodings shared by scoring and blocking.
package phonetic

import (
	"strings"
	"unicode"
)

// Soundex calculates the Soundex encoding of a string
func Soundex(str string) string {
	str = lettersOnly(strings.ToUpper(str))
	if len(str) == 0 {
		return ""
	}

	// Keep the first letter
	result := string(str[0])
	prevCode := soundexCode(str[0])

	for i := 1; i < len(str) && len(result) < 4; i++ {
		code := soundexCode(str[i])
		if code != '0' && code != prevCode {
			result += string(code)
		}
		// H and W do not separate letters with the same code
		if str[i] != 'H' && str[i] != 'W' {
			prevCode = code
		}
	}

	// Pad with zeros
	for len(result) < 4 {
		result += "0"
	}

	return result
}

func soundexCode(char byte) byte {
	switch char {
	case 'B', 'F', 'P', 'V':
		return '1'
	case 'C', 'G', 'J', 'K', 'Q', 'S', 'X', 'Z':
		return '2'
	case 'D', 'T':
		return '3'
	case 'L':
		return '4'
	case 'M', 'N':
		return '5'
	case 'R':
		return '6'
	default:
		return '0'
	}
}

// Metaphone calculates a simplified Metaphone encoding, capped at six codes
func Metaphone(str string) string {
	str = lettersOnly(strings.ToUpper(str))
	if len(str) == 0 {
		return ""
	}

	var metaphone strings.Builder
	prevCode := byte(0)

	for i := 0; i < len(str) && metaphone.Len() < 6; i++ {
		code := metaphoneCode(str[i], i, str)
		if code != 0 && code != prevCode {
			metaphone.WriteByte(code)
		}
		prevCode = code
	}

	return metaphone.String()
}

func metaphoneCode(char byte, pos int, word string) byte {
	next := byte(0)
	if pos+1 < len(word) {
		next = word[pos+1]
	}

	switch char {
	case 'A', 'E', 'I', 'O', 'U':
		if pos == 0 {
			return char
		}
		return 0
	case 'C':
		if next == 'I' || next == 'E' || next == 'Y' {
			return 'S'
		}
		if next == 'H' {
			return 'X'
		}
		return 'K'
	case 'D':
		return 'T'
	case 'G':
		if next == 'I' || next == 'E' || next == 'Y' {
			return 'J'
		}
		return 'K'
	case 'H', 'W', 'Y':
		return 0
	case 'P':
		if next == 'H' {
			return 'F'
		}
		return 'P'
	case 'Q':
		return 'K'
	case 'V':
		return 'F'
	case 'X', 'Z':
		return 'S'
	case 'B', 'F', 'J', 'K', 'L', 'M', 'N', 'R', 'S', 'T':
		return char
	default:
		return 0
	}
}

// lettersOnly drops everything but ASCII letters so multi-byte runes never reach the byte encoders
func lettersOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
