// Package position generates lexicographic ordering keys for sibling
// entities (columns and swimlanes within a board, cards within a
// column/swimlane cell). Keys are short strings over a fixed alphabet;
// ordinary string comparison is the sort order, so rows never need
// renumbering when something is inserted between two neighbors.
//
// The empty string stands for an absent boundary. Every function is pure
// and side-effect free; concurrent callers need no coordination. Keeping
// two siblings from ending up with the same final key is the write path's
// job, not this package's.
//
// Repeated insertion at the exact same boundary grows keys by one digit
// per round. There is no rebalancing pass; this is a known limitation.
package position

import "fmt"

// alphabet is the 62 ASCII alphanumerics in byte order, so digits sort
// before uppercase before lowercase and string comparison matches key
// comparison. Generated keys never end in the lowest digit ('0'), which
// guarantees a strict midpoint always exists below any key.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const radix = len(alphabet)

// First returns the seed key for an empty scope: the alphabet midpoint,
// leaving equal headroom on both sides.
func First() string {
	return string(alphabet[radix/2])
}

// After returns a key strictly greater than key. An empty key means the
// scope is empty and the seed key is returned.
func After(key string) string {
	if key == "" {
		return First()
	}
	return midpoint(key, "")
}

// Before returns a key strictly less than key. An empty key means the
// scope is empty and the seed key is returned.
func Before(key string) string {
	if key == "" {
		return First()
	}
	return midpoint("", key)
}

// Between returns a key strictly inside the open interval (low, high).
// Either bound may be empty, meaning unbounded in that direction. Callers
// must pass the two keys currently adjacent in the target scope; low >= high
// with both present is a caller bug and panics rather than returning a key
// that would corrupt the ordering.
func Between(low, high string) string {
	switch {
	case low == "" && high == "":
		return First()
	case low == "":
		return Before(high)
	case high == "":
		return After(low)
	}
	if low >= high {
		panic(fmt.Sprintf("position: Between(%q, %q): bounds out of order", low, high))
	}
	return midpoint(low, high)
}

// midpoint returns a key strictly between low and high, where an empty
// low means "smaller than every key" and an empty high means "greater
// than every key". Works digit by digit: shared prefixes are copied, then
// either an intermediate digit exists at the current length or the key is
// extended one digit and the search recurses on the remainder.
func midpoint(low, high string) string {
	if high != "" {
		// Copy the common prefix, padding low with implicit '0's.
		n := 0
		for n < len(high) && digitAt(low, n) == indexOf(high[n]) {
			n++
		}
		if n > 0 {
			return high[:n] + midpoint(sliceFrom(low, n), high[n:])
		}
	}

	lowDigit := digitAt(low, 0)
	highDigit := radix
	if high != "" {
		highDigit = indexOf(high[0])
	}

	if highDigit-lowDigit > 1 {
		// Room for an intermediate digit at this length.
		return string(alphabet[(lowDigit+highDigit+1)/2])
	}

	// Consecutive first digits. Anything of the form high[0:1] works when
	// high has a non-zero suffix; otherwise descend under low's digit.
	if len(high) > 1 {
		return high[:1]
	}
	return string(alphabet[lowDigit]) + midpoint(sliceFrom(low, 1), "")
}

func digitAt(key string, i int) int {
	if i >= len(key) {
		return 0
	}
	return indexOf(key[i])
}

func indexOf(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 36
	}
	panic(fmt.Sprintf("position: key contains byte %q outside the alphabet", c))
}

func sliceFrom(key string, i int) string {
	if i >= len(key) {
		return ""
	}
	return key[i:]
}
