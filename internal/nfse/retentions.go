package nfse

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var reTableAmount = regexp.MustCompile(`\b` + tableAmount + `\b`)

// Strategy names recorded for retention values that did not come from a label pattern.
const (
	strategyTableTight    = "table-tight"
	strategyTableNextLine = "table-next-line"
	strategyPositional    = "positional-scan"
)

type retentionField struct {
	name        string
	chain       Chain
	defaultZero bool
}

// retentionGroup is one fixed-order retention table.
type retentionGroup struct {
	name   string
	header *regexp.Regexp // full header sequence
	tight  *regexp.Regexp // header immediately followed by the values
	detect *regexp.Regexp // any label of the group
	anchor *regexp.Regexp // first header label, for the positional scan
	fields []retentionField
}

// groupValues holds one table's values in column order with the strategy behind each.
type groupValues struct {
	values     []*decimal.Decimal
	strategies []string
}

func newGroupValues(n int) groupValues {
	return groupValues{
		values:     make([]*decimal.Decimal, n),
		strategies: make([]string, n),
	}
}

func (g groupValues) setAll(tokens []string, strategy string) bool {
	parsed := make([]decimal.Decimal, len(tokens))
	for i, tok := range tokens {
		d, ok := ParseDecimal(tok)
		if !ok {
			return false
		}
		parsed[i] = d
	}
	for i := range parsed {
		g.values[i] = &parsed[i]
		g.strategies[i] = strategy
	}
	return true
}

// extract runs the table cascade: tight header+values, header then the first line
// carrying all values, per-label search and finally the anchored positional scan.
// labelText is the collapsed text used for per-label search.
func (g retentionGroup) extract(doc Document, labelText string) groupValues {
	n := len(g.fields)
	out := newGroupValues(n)

	if m := g.tight.FindStringSubmatch(doc.Raw); m != nil && out.setAll(m[1:], strategyTableTight) {
		return out
	}
	if tokens, ok := amountsAfterHeader(doc.Raw, g.header, n); ok && out.setAll(tokens, strategyTableNextLine) {
		return out
	}

	detected := g.detect.MatchString(labelText)
	allZero := true
	for i, f := range g.fields {
		m, ok := f.chain.FindIn(labelText)
		if !ok {
			continue
		}
		d, ok := ParseDecimal(m.Value)
		if !ok {
			continue
		}
		out.values[i] = decimalPtr(d)
		out.strategies[i] = m.Strategy
		detected = true
		if !d.IsZero() {
			allZero = false
		}
	}

	if !detected {
		return out
	}

	if allZero {
		if found, ok := ScanNumericSequenceNear(doc.Raw, g.anchor, positionalWindowSize, n); ok && anyNonZero(found) {
			for i := range found {
				out.values[i] = decimalPtr(found[i])
				out.strategies[i] = strategyPositional
			}
			return out
		}
	}

	for i, f := range g.fields {
		if out.values[i] == nil && f.defaultZero {
			out.values[i] = decimalPtr(decimal.Zero)
			out.strategies[i] = SourceDefault
		}
	}
	return out
}

// amountsAfterHeader finds header and returns the first count amounts of the first
// following line that carries at least count of them.
func amountsAfterHeader(text string, header *regexp.Regexp, count int) ([]string, bool) {
	loc := header.FindStringIndex(text)
	if loc == nil {
		return nil, false
	}

	lines := strings.Split(text[loc[1]:], "\n")
	if len(lines) > maxLinesAfterHeader {
		lines = lines[:maxLinesAfterHeader]
	}
	for _, line := range lines {
		if tokens := reTableAmount.FindAllString(line, -1); len(tokens) >= count {
			return tokens[:count], true
		}
	}
	return nil, false
}

// ScanNumericSequenceNear locates anchor in text, collects the grouped decimal
// amounts (1.234,56) in the windowSize bytes starting at the anchor and returns the
// first expectedCount of them in order. It reports false if the anchor is missing
// or fewer amounts are found.
func ScanNumericSequenceNear(text string, anchor *regexp.Regexp, windowSize, expectedCount int) ([]decimal.Decimal, bool) {
	if anchor == nil || windowSize <= 0 || expectedCount <= 0 {
		return nil, false
	}
	loc := anchor.FindStringIndex(text)
	if loc == nil {
		return nil, false
	}

	tokens := reTableAmount.FindAllString(window(text, loc[0], windowSize), -1)
	if len(tokens) < expectedCount {
		return nil, false
	}

	values := make([]decimal.Decimal, 0, expectedCount)
	for _, tok := range tokens[:expectedCount] {
		d, ok := ParseDecimal(tok)
		if !ok {
			return nil, false
		}
		values = append(values, d)
	}
	return values, true
}

func anyNonZero(values []decimal.Decimal) bool {
	for _, v := range values {
		if !v.IsZero() {
			return true
		}
	}
	return false
}
