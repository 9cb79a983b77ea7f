package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// BestSubstringMatch returns the index of the label that contains `query` case-insensitively.
// When several labels contain it, the one most similar to the query (Jaro-Winkler) wins, and
// earlier labels win exact ties. It returns -1 when nothing contains the query.
func BestSubstringMatch(query string, labels []string) int {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return -1
	}

	best := -1
	bestScore := -1.0
	for i, label := range labels {
		haystack := strings.ToLower(strings.TrimSpace(label))
		if !strings.Contains(haystack, needle) {
			continue
		}
		score := matchr.JaroWinkler(haystack, needle, false)
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}
