// Package natsort orders path-like strings the way a human orders
// numbered filenames: embedded digit runs compare by numeric value, so
// "f2.sql" sorts before "f10.sql". Non-digit segments compare
// ASCII-case-insensitively, and a full case-sensitive comparison is the
// final tie-break so the order is total and deterministic.
package natsort

import "sort"

// Sort orders paths naturally, in place.
func Sort(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		return Less(paths[i], paths[j])
	})
}

// Sorted returns a naturally ordered copy, leaving the input untouched.
func Sorted(paths []string) []string {
	out := make([]string, len(paths))
	copy(out, paths)
	Sort(out)
	return out
}

// Less reports whether a orders before b under natural ordering.
func Less(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if isDigit(a[i]) && isDigit(b[j]) {
			ai, bj := i, j
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			for j < len(b) && isDigit(b[j]) {
				j++
			}
			an := trimZeros(a[ai:i])
			bn := trimZeros(b[bj:j])
			// Equal-length digit strings compare correctly as text.
			if len(an) != len(bn) {
				return len(an) < len(bn)
			}
			if an != bn {
				return an < bn
			}
			continue
		}
		af, bf := foldASCII(a[i]), foldASCII(b[j])
		if af != bf {
			return af < bf
		}
		i++
		j++
	}
	if len(a)-i != len(b)-j {
		return len(a)-i < len(b)-j
	}
	return a < b
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func foldASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func trimZeros(s string) string {
	for len(s) > 1 && s[0] == '0' {
		s = s[1:]
	}
	return s
}
