package knowledge

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultThreshold is the minimum raw similarity the best passage must reach
// when the caller passes a non-positive threshold.
const DefaultThreshold = 0.20

const candidatePool = 10

// Selection is the outcome of a precision-gated lookup: one passage, or two
// when the runner-up is nearly as good and covers the same entities.
type Selection struct {
	Passages []Result
	Score    float64 // raw similarity of the top passage
}

// Text joins the selected passages one per line.
func (s Selection) Text() string {
	lines := make([]string, 0, len(s.Passages))
	for _, p := range s.Passages {
		lines = append(lines, p.Snippet)
	}
	return strings.Join(lines, "\n")
}

// Select picks the passages that answer query, or reports false when nothing
// is relevant enough.
//
// Candidates must contain at least one content term of the query (long,
// non-generic, lower-case words and quoted phrases). When the query names
// two or more strong entities (numbers, proper nouns, capitalized bigrams) a
// candidate must contain at least two of them; with a single entity it must
// contain it unless its overlap is high. Survivors are ranked by
// 0.5*normalized index score + 0.5*overlap and the top one must reach
// threshold on its raw index score.
func Select(idx Index, query string, threshold float64) (Selection, bool) {
	if idx == nil || strings.TrimSpace(query) == "" {
		return Selection{}, false
	}

	results := idx.TopK(query, candidatePool)
	if len(results) == 0 {
		if simplified := simplifyQuery(query); simplified != "" && simplified != query {
			results = idx.TopK(simplified, candidatePool)
		}
	}
	if len(results) == 0 {
		return Selection{}, false
	}

	q := extractQueryTerms(query)
	content := contentTerms(query)
	strong := strongEntities(query, q)

	required := 0
	switch n := len(strong); {
	case n >= 2:
		required = 2
	case n == 1:
		required = 1
	}

	maxScore := 0.0
	for _, r := range results {
		maxScore = max(maxScore, r.Score)
	}
	if maxScore == 0 {
		maxScore = 1
	}

	type cand struct {
		res      Result
		combined float64
		hits     map[string]struct{}
	}

	const (
		strictFloor  = 0.20
		lenientFloor = 0.10
	)

	cands := make([]cand, 0, len(results))
	for _, r := range results {
		lower := strings.ToLower(r.Snippet)
		if len(content) > 0 && !containsAny(lower, content) {
			continue
		}

		ov := overlapRelevance(r.Snippet, q)
		combined := 0.5*(r.Score/maxScore) + 0.5*ov

		hits := make(map[string]struct{}, len(strong))
		for e := range strong {
			if strings.Contains(lower, e) {
				hits[e] = struct{}{}
			}
		}

		switch required {
		case 2:
			if len(hits) < 2 {
				continue
			}
		case 1:
			if len(hits) < 1 && ov < strictFloor {
				continue
			}
		default:
			if ov < lenientFloor && utf8.RuneCountInString(r.Snippet) < 12 {
				continue
			}
		}
		if len(hits) > required {
			combined += 0.03
		}
		cands = append(cands, cand{res: r, combined: combined, hits: hits})
	}
	if len(cands) == 0 {
		return Selection{}, false
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].combined > cands[j].combined })
	top := cands[0]

	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if top.res.Score < threshold {
		return Selection{}, false
	}

	sel := Selection{Passages: []Result{top.res}, Score: top.res.Score}
	if len(cands) > 1 && cands[1].combined >= top.combined*0.9 {
		covers := true
		for e := range top.hits {
			if _, ok := cands[1].hits[e]; !ok {
				covers = false
				break
			}
		}
		if covers {
			sel.Passages = append(sel.Passages, cands[1].res)
		}
	}
	return sel, true
}

// --- query analysis ---

var (
	qwordRE        = regexp.MustCompile(`[\p{L}\p{N}]+`)
	quotedPhraseRE = regexp.MustCompile(`"([^"]+)"|‘([^’]+)’|“([^”]+)”|'([^']+)'`)
)

var qStop = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "was": {}, "were": {},
	"how": {}, "much": {}, "more": {}, "do": {}, "does": {}, "what": {}, "which": {},
	"can": {}, "i": {}, "my": {}, "me": {}, "you": {}, "your": {}, "should": {}, "about": {},
}

// Words too generic to anchor a health question on their own.
var genericContent = map[string]struct{}{
	"please": {}, "could": {}, "would": {}, "there": {}, "their": {}, "these": {},
	"people": {}, "person": {}, "someone": {}, "thing": {}, "things": {},
	"really": {}, "usually": {}, "often": {}, "common": {}, "general": {},
	"question": {}, "information": {}, "explain": {}, "describe": {}, "about": {},
}

type queryTerms struct {
	tokens   map[string]struct{}
	entities []string
}

func extractQueryTerms(query string) queryTerms {
	q := queryTerms{tokens: map[string]struct{}{}}
	for _, t := range qwordRE.FindAllString(strings.ToLower(query), -1) {
		if _, stop := qStop[t]; !stop {
			q.tokens[t] = struct{}{}
		}
	}
	seen := map[string]struct{}{}
	add := func(e string) {
		if _, ok := seen[e]; !ok && e != "" {
			seen[e] = struct{}{}
			q.entities = append(q.entities, e)
		}
	}
	for _, ph := range quotedPhrases(query) {
		add(ph)
	}
	for _, raw := range qwordRE.FindAllString(query, -1) {
		lc := strings.ToLower(raw)
		if _, stop := qStop[lc]; stop {
			continue
		}
		if isNumber(raw) || isCapitalized(raw) || len(lc) >= 6 {
			add(lc)
		}
	}
	return q
}

// contentTerms returns the lower-case topic words of the query: long
// non-generic words and quoted phrases, minus capitalized qualifiers.
func contentTerms(query string) []string {
	set := map[string]struct{}{}
	for _, tok := range qwordRE.FindAllString(strings.ToLower(query), -1) {
		if _, stop := qStop[tok]; stop || len(tok) < 5 {
			continue
		}
		if _, generic := genericContent[tok]; generic {
			continue
		}
		set[tok] = struct{}{}
	}
	for _, ph := range quotedPhrases(query) {
		if _, generic := genericContent[ph]; len(ph) >= 5 && !generic {
			set[ph] = struct{}{}
		}
	}
	for _, raw := range qwordRE.FindAllString(query, -1) {
		if isCapitalized(raw) {
			delete(set, strings.ToLower(raw))
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func strongEntities(query string, q queryTerms) map[string]struct{} {
	strong := map[string]struct{}{}
	for _, e := range q.entities {
		if isNumber(e) || len(e) >= 5 {
			strong[e] = struct{}{}
		}
	}
	toks := qwordRE.FindAllString(query, -1)
	phrase := func(parts ...string) {
		strong[strings.ToLower(strings.Join(parts, " "))] = struct{}{}
	}
	for i := 0; i+1 < len(toks); i++ {
		a, b := toks[i], toks[i+1]
		if isCapitalized(a) && isCapitalized(b) {
			phrase(a, b)
			if i+2 < len(toks) && isCapitalized(toks[i+2]) {
				phrase(a, b, toks[i+2])
			}
		}
	}
	// The first word of a sentence is capitalized by grammar, not because it
	// names something, so only later capitalized words count as proper nouns.
	for i, w := range toks {
		if i > 0 && isCapitalized(w) && utf8.RuneCountInString(w) >= 4 {
			strong[strings.ToLower(w)] = struct{}{}
		}
	}
	return strong
}

func quotedPhrases(s string) []string {
	var out []string
	for _, m := range quotedPhraseRE.FindAllStringSubmatch(s, -1) {
		for _, g := range m[1:] {
			if p := strings.ToLower(strings.TrimSpace(g)); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// simplifyQuery reduces a natural-language question to its keywords.
func simplifyQuery(s string) string {
	toks := qwordRE.FindAllString(strings.ToLower(s), -1)
	if len(toks) == 0 {
		return ""
	}
	keep := make([]string, 0, len(toks))
	for _, t := range toks {
		if _, stop := qStop[t]; !stop {
			keep = append(keep, t)
		}
	}
	if len(keep) == 0 {
		return strings.Join(toks, " ")
	}
	return strings.Join(keep, " ")
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func isNumber(s string) bool {
	hasDigit := false
	for _, r := range s {
		if unicode.IsDigit(r) {
			hasDigit = true
		} else if !(unicode.IsLetter(r) || r == '.' || r == ',' || r == '%') {
			return false
		}
	}
	return hasDigit
}

func isCapitalized(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r != utf8.RuneError && unicode.IsUpper(r)
}

// overlapRelevance is the Jaccard overlap of query and passage tokens plus a
// small capped boost per query entity found verbatim in the passage.
func overlapRelevance(snippet string, q queryTerms) float64 {
	if len(q.tokens) == 0 {
		return 0
	}
	lower := strings.ToLower(snippet)
	sTokens := map[string]struct{}{}
	for _, t := range qwordRE.FindAllString(lower, -1) {
		sTokens[t] = struct{}{}
	}
	inter := 0
	for t := range q.tokens {
		if _, ok := sTokens[t]; ok {
			inter++
		}
	}
	union := len(sTokens) + len(q.tokens) - inter
	if union == 0 {
		return 0
	}
	boost := 0.0
	for _, e := range q.entities {
		if strings.Contains(lower, e) {
			boost += 0.06
		}
	}
	return min(float64(inter)/float64(union)+min(boost, 0.24), 1.0)
}
