package match

// distance is the edit distance between a and b, counted in runes.
func distance(a, b []rune) int {
	if len(a) > len(b) {
		a, b = b, a
	}

	if len(a) == 0 {
		return len(b)
	}

	row := make([]int, len(a)+1)
	for i := range row {
		row[i] = i
	}

	for j := 1; j <= len(b); j++ {
		diag := row[0]
		row[0] = j

		for i := 1; i <= len(a); i++ {
			up := row[i]

			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}

			row[i] = min(row[i]+1, row[i-1]+1, diag+cost)
			diag = up
		}
	}

	return row[len(a)]
}

// similarity scores a and b in [0, 1] after folding both; 1 means equal.
func similarity(a, b string) float64 {
	fa, fb := []rune(fold(a)), []rune(fold(b))

	longest := max(len(fa), len(fb))
	if longest == 0 {
		return 1
	}

	return 1 - float64(distance(fa, fb))/float64(longest)
}
