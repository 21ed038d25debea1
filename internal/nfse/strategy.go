package nfse

import "regexp"

// Strategy is one candidate pattern for a field. The value is the first capture group
// unless the pattern names a group "value".
type Strategy struct {
	Name    string
	View    View
	Pattern *regexp.Regexp
}

// Chain is an ordered list of strategies, most specific first.
type Chain []Strategy

// Match is the result of the first strategy that matched.
type Match struct {
	Strategy string
	Value    string
	groups   []string
	names    []string
}

// Group returns the named capture group, or "" if the pattern has none by that name.
func (m Match) Group(name string) string {
	for i, n := range m.names {
		if n == name && i < len(m.groups) {
			return m.groups[i]
		}
	}
	return ""
}

// Find evaluates the chain against doc and returns the first match.
func (c Chain) Find(doc Document) (Match, bool) {
	for _, s := range c {
		if m, ok := s.match(doc.View(s.View)); ok {
			return m, true
		}
	}
	return Match{}, false
}

// FindIn evaluates the chain against a single text, ignoring each strategy's view.
func (c Chain) FindIn(text string) (Match, bool) {
	for _, s := range c {
		if m, ok := s.match(text); ok {
			return m, true
		}
	}
	return Match{}, false
}

func (s Strategy) match(text string) (Match, bool) {
	groups := s.Pattern.FindStringSubmatch(text)
	if groups == nil {
		return Match{}, false
	}

	m := Match{Strategy: s.Name, groups: groups, names: s.Pattern.SubexpNames()}
	if i := s.Pattern.SubexpIndex("value"); i > 0 {
		m.Value = groups[i]
	} else if len(groups) > 1 {
		m.Value = groups[1]
	}
	return m, true
}

func raw(name, expr string) Strategy {
	return Strategy{Name: name, View: Raw, Pattern: regexp.MustCompile(expr)}
}

func collapsed(name, expr string) Strategy {
	return Strategy{Name: name, View: Collapsed, Pattern: regexp.MustCompile(expr)}
}
