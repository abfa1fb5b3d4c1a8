// Package knowledge provides the in-memory knowledge base the conversational
// engine grounds its answers in. A markdown document is parsed with goldmark
// into passages (paragraphs, list items and flattened table rows, each tagged
// with its section heading) and ranked with Jaccard similarity:
// score = |Q ∩ P| / |Q ∪ P|.
//
// The index is immutable after construction and safe for concurrent use.
// The package does not log; callers decide what to report.
package knowledge

import (
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Result is a ranked passage with its similarity score.
type Result struct {
	Section string
	Snippet string
	Score   float64
}

// Index is the read side of the knowledge base.
type Index interface {
	TopK(query string, k int) []Result
	Len() int
}

// Option configures index construction.
type Option func(*config)

type config struct {
	minPassageRunes int
	stopwords       map[string]struct{}
	maxDocs         int
}

func defaultConfig() config {
	return config{minPassageRunes: 20}
}

// WithMinPassageRunes drops passages shorter than n runes.
func WithMinPassageRunes(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.minPassageRunes = n
		}
	}
}

// WithStopwords excludes words from tokenization on both sides of a match.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithMaxDocs caps the number of indexed passages.
func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

type doc struct {
	section string
	text    string
	tokens  map[string]struct{}
}

type index struct {
	cfg  config
	docs []doc
}

// Load reads the markdown file at path and builds an Index from it.
func Load(path string, opts ...Option) (Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return FromReader(f, opts...)
}

// FromReader builds an Index from markdown provided by r.
func FromReader(r io.Reader, opts ...Option) (Index, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return FromMarkdown(src, opts...), nil
}

// FromMarkdown builds an Index from markdown source.
func FromMarkdown(src []byte, opts ...Option) Index {
	return build(passages(src), opts)
}

// FromStrings builds an Index directly from plain passages, mainly for tests
// and callers that already hold pre-split text.
func FromStrings(items []string, opts ...Option) Index {
	ps := make([]passage, 0, len(items))
	for _, s := range items {
		ps = append(ps, passage{text: s})
	}
	return build(ps, opts)
}

func build(ps []passage, opts []Option) *index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	docs := make([]doc, 0, len(ps))
	for _, p := range ps {
		t := strings.Join(strings.Fields(p.text), " ")
		if t == "" {
			continue
		}
		if cfg.minPassageRunes > 0 && utf8.RuneCountInString(t) < cfg.minPassageRunes {
			continue
		}
		toks := tokenize(t, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		docs = append(docs, doc{section: p.section, text: t, tokens: toks})
		if cfg.maxDocs > 0 && len(docs) >= cfg.maxDocs {
			break
		}
	}
	return &index{cfg: cfg, docs: docs}
}

func (i *index) Len() int { return len(i.docs) }

// TopK returns up to k best-matching passages. Ties are broken by shorter
// text, then lexically, so results are deterministic.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}

	type scored struct {
		Result
		runes int
	}
	buf := make([]scored, 0, min(k*4, len(i.docs)))
	for _, d := range i.docs {
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		union := float64(len(qTokens) + len(d.tokens) - over)
		buf = append(buf, scored{
			Result: Result{Section: d.section, Snippet: d.text, Score: float64(over) / union},
			runes:  utf8.RuneCountInString(d.text),
		})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].Score != buf[b].Score {
			return buf[a].Score > buf[b].Score
		}
		if buf[a].runes != buf[b].runes {
			return buf[a].runes < buf[b].runes
		}
		return buf[a].Snippet < buf[b].Snippet
	})

	k = min(k, len(buf))
	out := make([]Result, k)
	for n := 0; n < k; n++ {
		out[n] = buf[n].Result
	}
	return out
}

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*|\p{N}+`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(strings.ToLower(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, skip := stop[w]; skip {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
