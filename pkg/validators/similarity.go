package validators

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// similarity compares the rune multisets of a and b, the same upper bound
// on the matching-blocks ratio that python's difflib exposes as quick_ratio
func similarity(a, b string) float64 {
	return difflib.NewMatcher(runes(a), runes(b)).QuickRatio()
}

func runes(s string) []string {
	return strings.Split(s, "")
}
