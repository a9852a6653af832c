package service

import "unicode/utf8"

// runeIndex maps byte offsets of a UTF-8 string to rune offsets.
type runeIndex []int

func newRuneIndex(s string) runeIndex {
	idx := make(runeIndex, len(s)+1)
	r := 0
	for i := 0; i < len(s); {
		_, size := utf8.DecodeRuneInString(s[i:])
		for j := 0; j < size; j++ {
			idx[i+j] = r
		}
		i += size
		r++
	}
	idx[len(s)] = r
	return idx
}

func (idx runeIndex) rune(byteOffset int) int {
	return idx[byteOffset]
}
