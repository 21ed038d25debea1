package nfse

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Lines longer than this are not considered by the fuzzy label search.
const maxFuzzyLineRunes = 120

// Label locates a label phrase in text. Variants are tried in order; if none matches,
// Fuzzy is searched line by line with accent and case folding.
type Label struct {
	Variants []*regexp.Regexp
	Fuzzy    string
}

func label(fuzzyPhrase string, variants ...string) Label {
	l := Label{Fuzzy: fuzzyPhrase}
	for _, v := range variants {
		l.Variants = append(l.Variants, regexp.MustCompile(v))
	}
	return l
}

// Locate returns the byte offset where the label starts.
func (l Label) Locate(text string) (int, bool) {
	for _, re := range l.Variants {
		if loc := re.FindStringIndex(text); loc != nil {
			return loc[0], true
		}
	}
	if l.Fuzzy == "" {
		return -1, false
	}
	return fuzzyLineOffset(text, l.Fuzzy)
}

// fuzzyLineOffset returns the start of the closest short line containing phrase
// as a compact folded subsequence: the match starts on the phrase's first letter and
// spans at most fuzzySpan(phrase) runes.
func fuzzyLineOffset(text, phrase string) (int, bool) {
	best, bestRank := -1, -1
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		start := offset
		offset += len(line)

		candidate := strings.TrimSpace(line)
		if candidate == "" || utf8.RuneCountInString(candidate) > maxFuzzyLineRunes {
			continue
		}
		at, rank := compactMatch(phrase, candidate)
		if at < 0 {
			continue
		}
		if bestRank < 0 || rank < bestRank {
			best = start + strings.Index(line, candidate) + at
			bestRank = rank
		}
	}
	return best, best >= 0
}

// fuzzySpan is the widest stretch of a line that may hold phrase.
func fuzzySpan(phrase string) int {
	n := utf8.RuneCountInString(phrase)
	return n + n/2
}

// compactMatch returns the byte offset in line of the tightest window holding phrase
// and its rank, or -1.
func compactMatch(phrase, line string) (int, int) {
	first, _ := utf8.DecodeRuneInString(phrase)
	if first == utf8.RuneError {
		return -1, -1
	}
	span := fuzzySpan(phrase)

	var starts []int
	for i := range line {
		starts = append(starts, i)
	}
	starts = append(starts, len(line))

	at, bestRank := -1, -1
	for k := 0; k < len(starts)-1; k++ {
		r, _ := utf8.DecodeRuneInString(line[starts[k]:])
		if !fuzzy.MatchNormalizedFold(string(first), string(r)) {
			continue
		}
		end := k + span
		if end > len(starts)-1 {
			end = len(starts) - 1
		}
		rank := fuzzy.RankMatchNormalizedFold(phrase, line[starts[k]:starts[end]])
		if rank >= 0 && (bestRank < 0 || rank < bestRank) {
			at, bestRank = starts[k], rank
		}
	}
	return at, bestRank
}
