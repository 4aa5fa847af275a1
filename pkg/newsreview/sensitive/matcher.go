// Package sensitive implements dictionary-driven sensitive word detection.
//
// A Matcher is an immutable Aho-Corasick automaton built from a fixed set of
// terms. Matching is exact and case-sensitive over Unicode code points: no
// folding, trimming or normalization is applied to either the terms or the
// scanned text. Every occurrence is reported, including occurrences that
// overlap other occurrences of the same or a different term.
//
// A Dictionary owns the current Matcher and rebuilds it from a Source when
// refreshed. Readers never observe a partially built automaton.
package sensitive

import (
	"sort"
	"unicode/utf8"
)

const root = 0

type node struct {
	next map[rune]int32
	fail int32
	// dict points at the nearest node on the failure chain that terminates
	// a term, or -1.
	dict int32
	// term is the index into Matcher.terms of the term ending here, or -1.
	term int32
}

// Match is a single occurrence of a term inside scanned text.
// Start and End are byte offsets, so text[Start:End] == Term.
type Match struct {
	Term  string `json:"term"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Matcher is a multi-pattern search index. It is safe for concurrent use.
type Matcher struct {
	nodes []node
	terms []string
}

// Build constructs a Matcher from terms. Empty strings and duplicates are
// ignored. A Matcher built from no terms reports nothing.
func Build(terms []string) *Matcher {
	m := &Matcher{
		nodes: []node{newNode()},
	}

	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		m.insert(t)
	}

	m.link()
	return m
}

func newNode() node {
	return node{fail: root, dict: -1, term: -1}
}

func (m *Matcher) insert(term string) {
	cur := int32(root)
	for _, r := range term {
		n := &m.nodes[cur]
		if n.next == nil {
			n.next = make(map[rune]int32)
		}
		child, ok := n.next[r]
		if !ok {
			m.nodes = append(m.nodes, newNode())
			child = int32(len(m.nodes) - 1)
			m.nodes[cur].next[r] = child
		}
		cur = child
	}
	m.nodes[cur].term = int32(len(m.terms))
	m.terms = append(m.terms, term)
}

// link computes failure and dictionary-suffix links breadth first.
func (m *Matcher) link() {
	queue := make([]int32, 0, len(m.nodes))
	for _, child := range m.nodes[root].next {
		m.nodes[child].fail = root
		queue = append(queue, child)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for r, child := range m.nodes[cur].next {
			f := m.nodes[cur].fail
			for f != root {
				if _, ok := m.nodes[f].next[r]; ok {
					break
				}
				f = m.nodes[f].fail
			}
			if target, ok := m.nodes[f].next[r]; ok && target != child {
				m.nodes[child].fail = target
			} else {
				m.nodes[child].fail = root
			}

			fail := m.nodes[child].fail
			if m.nodes[fail].term >= 0 {
				m.nodes[child].dict = fail
			} else {
				m.nodes[child].dict = m.nodes[fail].dict
			}
			queue = append(queue, child)
		}
	}
}

func (m *Matcher) step(cur int32, r rune) int32 {
	for {
		if next, ok := m.nodes[cur].next[r]; ok {
			return next
		}
		if cur == root {
			return root
		}
		cur = m.nodes[cur].fail
	}
}

// walk feeds every occurrence to fn in order of end position. fn receives
// the term index and the byte offset just past the occurrence.
func (m *Matcher) walk(text string, fn func(term int32, end int)) {
	if len(m.terms) == 0 || text == "" {
		return
	}
	cur := int32(root)
	for end := 0; end < len(text); {
		r, size := utf8.DecodeRuneInString(text[end:])
		end += size
		cur = m.step(cur, r)
		if t := m.nodes[cur].term; t >= 0 {
			fn(t, end)
		}
		for d := m.nodes[cur].dict; d >= 0; d = m.nodes[d].dict {
			fn(m.nodes[d].term, end)
		}
	}
}

// Scan returns the number of occurrences of each term found in text.
// An empty map means the text is clean.
func (m *Matcher) Scan(text string) map[string]int {
	counts := make(map[string]int)
	m.walk(text, func(term int32, _ int) {
		counts[m.terms[term]]++
	})
	return counts
}

// Contains reports whether text contains at least one term.
func (m *Matcher) Contains(text string) bool {
	found := false
	m.walk(text, func(int32, int) { found = true })
	return found
}

// FindAll returns every occurrence ordered by start offset, longer terms
// first on ties.
func (m *Matcher) FindAll(text string) []Match {
	var matches []Match
	m.walk(text, func(term int32, end int) {
		t := m.terms[term]
		matches = append(matches, Match{Term: t, Start: end - len(t), End: end})
	})
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Start != matches[j].Start {
			return matches[i].Start < matches[j].Start
		}
		return matches[i].End > matches[j].End
	})
	return matches
}

// Len returns the number of distinct terms in the index.
func (m *Matcher) Len() int {
	return len(m.terms)
}

// Terms returns a sorted copy of the indexed terms.
func (m *Matcher) Terms() []string {
	out := make([]string, len(m.terms))
	copy(out, m.terms)
	sort.Strings(out)
	return out
}
