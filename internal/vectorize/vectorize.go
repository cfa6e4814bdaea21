// Package vectorize turns documents into sparse bag-of-words or TF-IDF rows.
package vectorize

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// Kind selects the weighting scheme
type Kind string

const (
	Count Kind = "count"
	TFIDF Kind = "tfidf"
)

var (
	// ErrEmptyVocabulary is returned when no term survives tokenizing and pruning
	ErrEmptyVocabulary = errors.New("empty vocabulary; documents may only contain stop words or df bounds prune every term")
	// ErrNotFitted is returned by Transform before Fit
	ErrNotFitted = errors.New("vectorizer is not fitted")
)

// Options configures a Vectorizer.
//
// MinDF is a document count when >= 1, otherwise a proportion of documents.
// MaxDF is a proportion when <= 1, otherwise a document count.
type Options struct {
	Kind     Kind
	MinDF    float64
	MaxDF    float64
	NGramMin int
	NGramMax int
}

// Vector is a sparse row with ascending column indices
type Vector struct {
	Indices []int
	Values  []float64
}

// Matrix is a list of sparse rows over Cols columns
type Matrix struct {
	Rows []Vector
	Cols int
}

// Len returns the number of rows
func (m Matrix) Len() int { return len(m.Rows) }

// Vectorizer learns a vocabulary and, for TF-IDF, inverse document frequencies.
// Exported fields keep it gob-encodable.
type Vectorizer struct {
	Opts       Options
	Vocabulary map[string]int
	Features   []string
	IDF        []float64
}

// New creates an unfitted vectorizer, applying defaults for zero options
func New(opts Options) *Vectorizer {
	if opts.Kind == "" {
		opts.Kind = TFIDF
	}
	if opts.MinDF <= 0 {
		opts.MinDF = 1
	}
	if opts.MaxDF <= 0 {
		opts.MaxDF = 1
	}
	if opts.NGramMin < 1 {
		opts.NGramMin = 1
	}
	if opts.NGramMax < opts.NGramMin {
		opts.NGramMax = opts.NGramMin
	}
	return &Vectorizer{Opts: opts}
}

// Fitted reports whether Fit has succeeded
func (v *Vectorizer) Fitted() bool { return v.Vocabulary != nil }

// FeatureNames returns the vocabulary in column order
func (v *Vectorizer) FeatureNames() []string {
	return append([]string(nil), v.Features...)
}

// Fit learns the vocabulary from docs
func (v *Vectorizer) Fit(docs []string) error {
	if v.Opts.Kind != Count && v.Opts.Kind != TFIDF {
		return fmt.Errorf("unknown vectorizer kind %q", v.Opts.Kind)
	}

	df := map[string]int{}
	for _, doc := range docs {
		seen := map[string]bool{}
		for _, term := range v.analyze(doc) {
			if !seen[term] {
				seen[term] = true
				df[term]++
			}
		}
	}
	if len(df) == 0 {
		return ErrEmptyVocabulary
	}

	n := float64(len(docs))
	minCount := v.Opts.MinDF
	if minCount < 1 {
		minCount = v.Opts.MinDF * n
	}
	maxCount := v.Opts.MaxDF
	if maxCount <= 1 {
		maxCount = v.Opts.MaxDF * n
	}
	if maxCount < minCount {
		return fmt.Errorf("max_df corresponds to fewer documents than min_df")
	}

	features := make([]string, 0, len(df))
	for term, count := range df {
		c := float64(count)
		if c >= minCount && c <= maxCount {
			features = append(features, term)
		}
	}
	if len(features) == 0 {
		return ErrEmptyVocabulary
	}
	sort.Strings(features)

	vocab := make(map[string]int, len(features))
	idf := make([]float64, len(features))
	for i, term := range features {
		vocab[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	v.Vocabulary = vocab
	v.Features = features
	if v.Opts.Kind == TFIDF {
		v.IDF = idf
	} else {
		v.IDF = nil
	}
	return nil
}

// Transform maps docs onto the fitted vocabulary. Unknown terms are ignored.
func (v *Vectorizer) Transform(docs []string) (Matrix, error) {
	if !v.Fitted() {
		return Matrix{}, ErrNotFitted
	}
	m := Matrix{Rows: make([]Vector, len(docs)), Cols: len(v.Features)}
	for i, doc := range docs {
		m.Rows[i] = v.row(doc)
	}
	return m, nil
}

// FitTransform fits on docs and transforms them
func (v *Vectorizer) FitTransform(docs []string) (Matrix, error) {
	if err := v.Fit(docs); err != nil {
		return Matrix{}, err
	}
	return v.Transform(docs)
}

func (v *Vectorizer) row(doc string) Vector {
	counts := map[int]float64{}
	for _, term := range v.analyze(doc) {
		if idx, ok := v.Vocabulary[term]; ok {
			counts[idx]++
		}
	}

	vec := Vector{Indices: make([]int, 0, len(counts)), Values: make([]float64, 0, len(counts))}
	for idx := range counts {
		vec.Indices = append(vec.Indices, idx)
	}
	sort.Ints(vec.Indices)
	for _, idx := range vec.Indices {
		vec.Values = append(vec.Values, counts[idx])
	}

	if v.Opts.Kind == TFIDF {
		var norm float64
		for j, idx := range vec.Indices {
			vec.Values[j] *= v.IDF[idx]
			norm += vec.Values[j] * vec.Values[j]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := range vec.Values {
				vec.Values[j] /= norm
			}
		}
	}
	return vec
}

func (v *Vectorizer) analyze(doc string) []string {
	tokens := Tokenize(doc)
	if v.Opts.NGramMin == 1 && v.Opts.NGramMax == 1 {
		return tokens
	}
	var terms []string
	for n := v.Opts.NGramMin; n <= v.Opts.NGramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}

// Tokenize lower-cases doc and returns runs of two or more word characters
func Tokenize(doc string) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			if tok := b.String(); len([]rune(tok)) >= 2 {
				tokens = append(tokens, tok)
			}
			b.Reset()
		}
	}
	for _, r := range strings.ToLower(doc) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}
