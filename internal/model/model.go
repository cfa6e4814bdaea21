// Package model couples the text processing pipeline with a classifier into a
// single unit that can be fitted, cross-validated, queried and serialized.
package model

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"

	"github.com/khrees2412/jobhunter/internal/textproc"
	"github.com/khrees2412/jobhunter/pkg/models"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotFitted is returned when a model is used before Fit
	ErrNotFitted = errors.New("model is not fitted")
	// ErrNoImportances is returned when the classifier cannot score features
	ErrNoImportances = errors.New("classifier does not provide feature importances")
)

func init() {
	gob.Register(&MultinomialNB{})
	gob.Register(&NearestCentroid{})
}

// Spec describes how to build a model
type Spec struct {
	Processing textproc.Options
	Classifier string // nb or centroid
}

// Model is the fit/predict/cross-validate/serialize unit
type Model struct {
	Spec       Spec
	Processing *textproc.Processor
	Classifier Classifier
	Fitted     bool
}

// Feature is a vocabulary term with its importance score
type Feature struct {
	Name       string
	Importance float64
}

// CVReport summarizes a K-fold cross-validation
type CVReport struct {
	FoldScores   []float64
	MeanAccuracy float64
	Confusion    [][]int // [true][predicted]
	Documents    int
}

// New builds an unfitted model from spec
func New(spec Spec) (*Model, error) {
	p, err := textproc.NewProcessor(spec.Processing)
	if err != nil {
		return nil, err
	}
	clf, err := NewClassifier(spec.Classifier)
	if err != nil {
		return nil, err
	}
	spec.Processing = p.Opts
	return &Model{Spec: spec, Processing: p, Classifier: clf}, nil
}

// Classes returns the number of classes the model predicts
func (m *Model) Classes() int {
	return m.Spec.Processing.NumCities
}

// Fit cleans and vectorizes the listings and fits the classifier
func (m *Model) Fit(listings []models.Listing) error {
	x, y, err := m.Processing.FitTransform(listings)
	if err != nil {
		return err
	}
	if err := m.Classifier.Fit(x, y, m.Classes()); err != nil {
		return fmt.Errorf("fit classifier: %w", err)
	}
	m.Fitted = true
	return nil
}

// Predict returns the predicted class of each document
func (m *Model) Predict(docs []string) ([]int, error) {
	if !m.Fitted {
		return nil, ErrNotFitted
	}
	x, err := m.Processing.TransformText(docs)
	if err != nil {
		return nil, err
	}
	return m.Classifier.Predict(x)
}

// Rank returns every city ordered by predicted probability, highest first
func (m *Model) Rank(doc string) ([]models.CityScore, error) {
	if !m.Fitted {
		return nil, ErrNotFitted
	}
	x, err := m.Processing.TransformText([]string{doc})
	if err != nil {
		return nil, err
	}
	proba, err := m.Classifier.PredictProba(x)
	if err != nil {
		return nil, err
	}

	display := map[int]string{}
	for _, c := range m.Spec.Processing.Cities {
		display[c.Label] = c.Display
	}
	scores := make([]models.CityScore, 0, len(proba[0]))
	for label, p := range proba[0] {
		scores = append(scores, models.CityScore{Label: label, City: display[label], Probability: p})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Probability > scores[j].Probability
	})
	return scores, nil
}

// Score returns the accuracy on listings together with true and predicted labels
func (m *Model) Score(listings []models.Listing) (float64, []int, []int, error) {
	if !m.Fitted {
		return 0, nil, nil, ErrNotFitted
	}
	x, y, err := m.Processing.Transform(listings)
	if err != nil {
		return 0, nil, nil, err
	}
	if len(y) == 0 {
		return 0, nil, nil, errors.New("no usable documents to score")
	}
	pred, err := m.Classifier.Predict(x)
	if err != nil {
		return 0, nil, nil, err
	}
	correct := 0
	for i := range y {
		if pred[i] == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y)), y, pred, nil
}

// CrossValidate runs shuffled K-fold cross-validation. Each fold trains an
// independent model built from the same spec; folds run concurrently.
func (m *Model) CrossValidate(ctx context.Context, listings []models.Listing, nSplits int, seed int64) (*CVReport, error) {
	if nSplits < 2 {
		return nil, fmt.Errorf("n_splits must be at least 2, got %d", nSplits)
	}
	if nSplits > len(listings) {
		return nil, fmt.Errorf("cannot have n_splits=%d greater than the number of listings=%d", nSplits, len(listings))
	}

	folds := KFold(len(listings), nSplits, seed)
	type result struct {
		score     float64
		truth     []int
		predicted []int
	}
	results := make([]result, nSplits)

	g, ctx := errgroup.WithContext(ctx)
	for i, test := range folds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			train, held := split(listings, test)
			fold, err := New(m.Spec)
			if err != nil {
				return err
			}
			if err := fold.Fit(train); err != nil {
				return fmt.Errorf("fold %d: %w", i, err)
			}
			score, truth, predicted, err := fold.Score(held)
			if err != nil {
				return fmt.Errorf("fold %d: %w", i, err)
			}
			results[i] = result{score: score, truth: truth, predicted: predicted}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &CVReport{Documents: len(listings), Confusion: make([][]int, m.Classes())}
	for c := range report.Confusion {
		report.Confusion[c] = make([]int, m.Classes())
	}
	var total float64
	for _, r := range results {
		report.FoldScores = append(report.FoldScores, r.score)
		total += r.score
		for j := range r.truth {
			report.Confusion[r.truth[j]][r.predicted[j]]++
		}
	}
	report.MeanAccuracy = total / float64(nSplits)
	return report, nil
}

// KFold shuffles [0, n) with seed and splits it into k test folds; the first
// n%k folds hold one extra index
func KFold(n, k int, seed int64) [][]int {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	folds := make([][]int, k)
	start := 0
	for i := 0; i < k; i++ {
		size := n / k
		if i < n%k {
			size++
		}
		fold := append([]int(nil), perm[start:start+size]...)
		sort.Ints(fold)
		folds[i] = fold
		start += size
	}
	return folds
}

func split(listings []models.Listing, test []int) (train, held []models.Listing) {
	inTest := make(map[int]bool, len(test))
	for _, i := range test {
		inTest[i] = true
	}
	for i, l := range listings {
		if inTest[i] {
			held = append(held, l)
		} else {
			train = append(train, l)
		}
	}
	return train, held
}

// InformativeFeatures returns the n least and n most important features.
// The model must be fitted with a classifier that implements FeatureImporter.
func (m *Model) InformativeFeatures(n int) (least, most []Feature, err error) {
	if !m.Fitted {
		return nil, nil, ErrNotFitted
	}
	importer, ok := m.Classifier.(FeatureImporter)
	if !ok {
		return nil, nil, ErrNoImportances
	}
	importances := importer.FeatureImportances()
	names := m.Processing.Vectorize.FeatureNames()
	if len(importances) != len(names) {
		return nil, nil, fmt.Errorf("importances (%d) and features (%d) differ", len(importances), len(names))
	}

	features := make([]Feature, len(names))
	for i, name := range names {
		features[i] = Feature{Name: name, Importance: importances[i]}
	}
	sort.Slice(features, func(i, j int) bool {
		if features[i].Importance != features[j].Importance {
			return features[i].Importance < features[j].Importance
		}
		return features[i].Name < features[j].Name
	})

	if n > len(features) {
		n = len(features)
	}
	least = append([]Feature(nil), features[:n]...)
	for i := len(features) - 1; i >= len(features)-n; i-- {
		most = append(most, features[i])
	}
	return least, most, nil
}

// Save writes the model with gob
func (m *Model) Save(w io.Writer) error {
	if !m.Fitted {
		return ErrNotFitted
	}
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return nil
}

// Load reads a model written by Save
func Load(r io.Reader) (*Model, error) {
	m := &Model{}
	if err := gob.NewDecoder(r).Decode(m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if !m.Fitted || m.Processing == nil || m.Classifier == nil {
		return nil, errors.New("decoded model is incomplete")
	}
	// Re-validate method names so a hand-edited object fails early
	methods, err := textproc.ParseStemLem(m.Processing.Opts.StemLem)
	if err != nil {
		return nil, err
	}
	m.Processing.Methods = methods
	return m, nil
}
