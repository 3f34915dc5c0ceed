package match

import "fmt"

// MinSimilarity is the score a candidate needs to be suggested.
const MinSimilarity = 0.6

// Closest returns the candidate most similar to name. Ties keep the earliest
// candidate. ok is false when no candidate reaches MinSimilarity.
func Closest(name string, candidates []string) (best string, ok bool) {
	score := MinSimilarity

	for _, c := range candidates {
		if c == name {
			return c, true
		}

		if s := similarity(name, c); s > score || (s == score && !ok) {
			best, score, ok = c, s, true
		}
	}

	return best, ok
}

// Hint formats a " (did you mean ...?)" suffix for name, or "" when nothing
// is close enough.
func Hint(name string, candidates []string) string {
	best, ok := Closest(name, candidates)
	if !ok || best == name {
		return ""
	}

	return fmt.Sprintf(" (did you mean %q?)", best)
}
