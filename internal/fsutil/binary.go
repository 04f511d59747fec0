package fsutil

import "unicode/utf8"

// binarySampleSize is how many leading bytes are inspected, the same window
// git uses for its binary heuristic.
const binarySampleSize = 8000

// IsBinaryContent reports whether content cannot be edited as UTF-8 text:
// the leading sample holds a NUL byte or is not valid UTF-8. UTF-16 and
// UTF-32 files count as binary since their ASCII code units carry NULs.
func IsBinaryContent(content []byte) bool {
	truncated := len(content) > binarySampleSize
	sample := content[:min(len(content), binarySampleSize)]

	for i := 0; i < len(sample); {
		if sample[i] == 0 {
			return true
		}
		if sample[i] < utf8.RuneSelf {
			i++
			continue
		}
		r, size := utf8.DecodeRune(sample[i:])
		if r == utf8.RuneError && size == 1 {
			// A rune cut off by the sample window.
			if truncated && len(sample)-i < utf8.UTFMax && !utf8.FullRune(sample[i:]) {
				return false
			}
			return true
		}
		i += size
	}
	return false
}
