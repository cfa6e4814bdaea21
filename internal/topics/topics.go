// Package topics extracts topics from the listings of one city with
// non-negative matrix factorization over a TF-IDF matrix.
package topics

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/khrees2412/jobhunter/internal/textproc"
	"github.com/khrees2412/jobhunter/internal/vectorize"
	"github.com/khrees2412/jobhunter/pkg/models"
	"gonum.org/v1/gonum/mat"
)

// ErrNoDocuments is returned when no listing of the requested city survives cleaning
var ErrNoDocuments = errors.New("no documents for city")

// Topic is one factor with its highest-weighted terms
type Topic struct {
	Index int
	Words []string
}

// NMFOptions tunes the factorization
type NMFOptions struct {
	MaxIter int
	Tol     float64
	Seed    int64
}

// DefaultNMFOptions are used by Model
var DefaultNMFOptions = NMFOptions{MaxIter: 200, Tol: 1e-4, Seed: 1}

// Options returns the processing options used for topic extraction
func Options() textproc.Options {
	opts := textproc.DefaultOptions()
	opts.MinDF = 0.01
	opts.MaxDF = 0.95
	opts.NumCities = 4
	opts.NGramMin = 1
	opts.NGramMax = 2
	opts.UseStopwords = true
	opts.Vectorizer = vectorize.TFIDF
	return opts
}

// Model returns nTopics topics of the listings scraped for city, each with
// its nWords strongest terms
func Model(listings []models.Listing, city string, nWords, nTopics int) ([]Topic, error) {
	if nWords < 1 || nTopics < 1 {
		return nil, fmt.Errorf("words and topics must be positive, got %d and %d", nWords, nTopics)
	}

	var subset []models.Listing
	for _, l := range listings {
		if l.CityTerm == city {
			subset = append(subset, l)
		}
	}

	p, err := textproc.NewProcessor(Options())
	if err != nil {
		return nil, err
	}
	docs, _ := p.ModelData(subset)
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w %q", ErrNoDocuments, city)
	}
	x, _, err := p.FitTransform(subset)
	if err != nil {
		return nil, err
	}

	_, h := NMF(Dense(x), nTopics, DefaultNMFOptions)
	return TopWords(h, p.Vectorize.FeatureNames(), nWords), nil
}

// Dense converts a sparse matrix into a gonum matrix
func Dense(x vectorize.Matrix) *mat.Dense {
	d := mat.NewDense(x.Len(), x.Cols, nil)
	for i, row := range x.Rows {
		for j, idx := range row.Indices {
			d.Set(i, idx, row.Values[j])
		}
	}
	return d
}

// NMF factorizes the non-negative matrix x (n×m) into w (n×k) and h (k×m)
// using Lee and Seung multiplicative updates on the Frobenius loss.
func NMF(x *mat.Dense, k int, opts NMFOptions) (w, h *mat.Dense) {
	n, m := x.Dims()
	rng := rand.New(rand.NewSource(opts.Seed))

	// scale the random start to the magnitude of x
	scale := math.Sqrt(mat.Sum(x) / float64(n*m) / float64(k))
	w = mat.NewDense(n, k, nil)
	w.Apply(func(_, _ int, _ float64) float64 { return scale * math.Abs(rng.NormFloat64()) }, w)
	h = mat.NewDense(k, m, nil)
	h.Apply(func(_, _ int, _ float64) float64 { return scale * math.Abs(rng.NormFloat64()) }, h)

	const eps = 1e-10
	var num, den, wtw, hht, wh, diff mat.Dense
	prev := math.Inf(1)
	for iter := 0; iter < opts.MaxIter; iter++ {
		// H <- H * (WᵀX) / (WᵀWH)
		num.Mul(w.T(), x)
		wtw.Mul(w.T(), w)
		den.Mul(&wtw, h)
		den.Apply(func(_, _ int, v float64) float64 { return v + eps }, &den)
		num.DivElem(&num, &den)
		h.MulElem(h, &num)

		// W <- W * (XHᵀ) / (WHHᵀ)
		num.Reset()
		den.Reset()
		num.Mul(x, h.T())
		hht.Mul(h, h.T())
		den.Mul(w, &hht)
		den.Apply(func(_, _ int, v float64) float64 { return v + eps }, &den)
		num.DivElem(&num, &den)
		w.MulElem(w, &num)
		num.Reset()
		den.Reset()

		if opts.Tol > 0 && iter%10 == 9 {
			wh.Mul(w, h)
			diff.Sub(x, &wh)
			loss := mat.Norm(&diff, 2)
			wh.Reset()
			diff.Reset()
			if prev-loss < opts.Tol*prev {
				break
			}
			prev = loss
		}
		wtw.Reset()
		hht.Reset()
	}
	return w, h
}

// TopWords returns, for every row of h, the n features with the largest weight
func TopWords(h *mat.Dense, features []string, n int) []Topic {
	k, m := h.Dims()
	if n > m {
		n = m
	}
	out := make([]Topic, k)
	for t := 0; t < k; t++ {
		row := mat.Row(nil, t, h)
		idx := make([]int, m)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return row[idx[a]] > row[idx[b]] })
		words := make([]string, n)
		for i := 0; i < n; i++ {
			words[i] = features[idx[i]]
		}
		out[t] = Topic{Index: t, Words: words}
	}
	return out
}
