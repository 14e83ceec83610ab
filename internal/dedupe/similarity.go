package dedupe

import (
	"strings"
)

// Similarity returns 2*LCS/(len(a)+len(b)) over runes of the case-folded,
// whitespace-collapsed inputs. Either side empty yields 0.
func Similarity(a, b string) float64 {
	ra := []rune(normalize(a))
	rb := []rune(normalize(b))
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	return 2 * float64(lcsLength(ra, rb)) / float64(len(ra)+len(rb))
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// lcsLength is the classic two-row dynamic program.
func lcsLength(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
