package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/khrees2412/jobhunter/internal/vectorize"
)

// ErrClassifierNotFitted is returned when predicting with an unfitted classifier
var ErrClassifierNotFitted = errors.New("classifier is not fitted")

// Classifier is a probabilistic multi-class classifier over sparse rows
type Classifier interface {
	Fit(x vectorize.Matrix, y []int, numClasses int) error
	PredictProba(x vectorize.Matrix) ([][]float64, error)
	Predict(x vectorize.Matrix) ([]int, error)
}

// FeatureImporter is implemented by classifiers that can score features
type FeatureImporter interface {
	FeatureImportances() []float64
}

// NewClassifier builds a classifier by name: nb or centroid
func NewClassifier(name string) (Classifier, error) {
	switch name {
	case "", "nb":
		return &MultinomialNB{Alpha: 1}, nil
	case "centroid":
		return &NearestCentroid{}, nil
	default:
		return nil, fmt.Errorf("unknown classifier %q", name)
	}
}

func checkTraining(x vectorize.Matrix, y []int, numClasses int) error {
	if x.Len() == 0 {
		return errors.New("no training documents")
	}
	if x.Len() != len(y) {
		return fmt.Errorf("feature rows (%d) and labels (%d) differ", x.Len(), len(y))
	}
	if numClasses < 1 {
		return fmt.Errorf("numClasses must be positive, got %d", numClasses)
	}
	for _, label := range y {
		if label < 0 || label >= numClasses {
			return fmt.Errorf("label %d outside [0, %d)", label, numClasses)
		}
	}
	return nil
}

// MultinomialNB is a multinomial naive Bayes classifier with additive smoothing
type MultinomialNB struct {
	Alpha         float64
	NumClasses    int
	ClassLogPrior []float64
	FeatureLogP   [][]float64 // [class][feature]
}

// Fit estimates class priors and smoothed per-class feature probabilities
func (nb *MultinomialNB) Fit(x vectorize.Matrix, y []int, numClasses int) error {
	if err := checkTraining(x, y, numClasses); err != nil {
		return err
	}
	alpha := nb.Alpha
	if alpha <= 0 {
		alpha = 1
	}

	classCount := make([]float64, numClasses)
	featureCount := make([][]float64, numClasses)
	for c := range featureCount {
		featureCount[c] = make([]float64, x.Cols)
	}
	for i, row := range x.Rows {
		c := y[i]
		classCount[c]++
		for j, idx := range row.Indices {
			featureCount[c][idx] += row.Values[j]
		}
	}

	n := float64(x.Len())
	nb.ClassLogPrior = make([]float64, numClasses)
	nb.FeatureLogP = make([][]float64, numClasses)
	for c := 0; c < numClasses; c++ {
		if classCount[c] == 0 {
			nb.ClassLogPrior[c] = math.Inf(-1)
		} else {
			nb.ClassLogPrior[c] = math.Log(classCount[c] / n)
		}
		var total float64
		for _, v := range featureCount[c] {
			total += v
		}
		denom := math.Log(total + alpha*float64(x.Cols))
		nb.FeatureLogP[c] = make([]float64, x.Cols)
		for f, v := range featureCount[c] {
			nb.FeatureLogP[c][f] = math.Log(v+alpha) - denom
		}
	}
	nb.Alpha = alpha
	nb.NumClasses = numClasses
	return nil
}

// PredictProba returns per-class posterior probabilities for each row
func (nb *MultinomialNB) PredictProba(x vectorize.Matrix) ([][]float64, error) {
	if nb.NumClasses == 0 {
		return nil, ErrClassifierNotFitted
	}
	out := make([][]float64, x.Len())
	for i, row := range x.Rows {
		joint := make([]float64, nb.NumClasses)
		for c := range joint {
			joint[c] = nb.ClassLogPrior[c]
			for j, idx := range row.Indices {
				if idx < len(nb.FeatureLogP[c]) {
					joint[c] += row.Values[j] * nb.FeatureLogP[c][idx]
				}
			}
		}
		out[i] = softmax(joint)
	}
	return out, nil
}

// Predict returns the most probable class of each row
func (nb *MultinomialNB) Predict(x vectorize.Matrix) ([]int, error) {
	return predictFromProba(nb, x)
}

// FeatureImportances scores each feature by the spread of its log
// probability across the trained classes
func (nb *MultinomialNB) FeatureImportances() []float64 {
	if nb.NumClasses == 0 {
		return nil
	}
	var trained [][]float64
	for c, prior := range nb.ClassLogPrior {
		if !math.IsInf(prior, -1) {
			trained = append(trained, nb.FeatureLogP[c])
		}
	}
	return spread(trained)
}

// NearestCentroid assigns each row to the class with the closest mean row
type NearestCentroid struct {
	NumClasses int
	Centroids  [][]float64 // nil for classes without training rows
}

// Fit computes the mean row of every class
func (nc *NearestCentroid) Fit(x vectorize.Matrix, y []int, numClasses int) error {
	if err := checkTraining(x, y, numClasses); err != nil {
		return err
	}
	counts := make([]float64, numClasses)
	sums := make([][]float64, numClasses)
	for i, row := range x.Rows {
		c := y[i]
		if sums[c] == nil {
			sums[c] = make([]float64, x.Cols)
		}
		counts[c]++
		for j, idx := range row.Indices {
			sums[c][idx] += row.Values[j]
		}
	}
	for c := range sums {
		for f := range sums[c] {
			sums[c][f] /= counts[c]
		}
	}
	nc.Centroids = sums
	nc.NumClasses = numClasses
	return nil
}

// PredictProba converts centroid distances into normalized inverse-distance weights
func (nc *NearestCentroid) PredictProba(x vectorize.Matrix) ([][]float64, error) {
	if nc.NumClasses == 0 {
		return nil, ErrClassifierNotFitted
	}
	const eps = 1e-9
	out := make([][]float64, x.Len())
	for i, row := range x.Rows {
		weights := make([]float64, nc.NumClasses)
		var total float64
		for c, centroid := range nc.Centroids {
			if len(centroid) == 0 {
				continue
			}
			weights[c] = 1 / (math.Sqrt(squaredDistance(row, centroid)) + eps)
			total += weights[c]
		}
		for c := range weights {
			weights[c] /= total
		}
		out[i] = weights
	}
	return out, nil
}

// Predict returns the class of the nearest centroid for each row
func (nc *NearestCentroid) Predict(x vectorize.Matrix) ([]int, error) {
	return predictFromProba(nc, x)
}

// FeatureImportances scores each feature by the spread of its centroid values
func (nc *NearestCentroid) FeatureImportances() []float64 {
	var trained [][]float64
	for _, centroid := range nc.Centroids {
		if len(centroid) > 0 {
			trained = append(trained, centroid)
		}
	}
	return spread(trained)
}

func squaredDistance(row vectorize.Vector, centroid []float64) float64 {
	var sum float64
	for _, v := range centroid {
		sum += v * v
	}
	for j, idx := range row.Indices {
		if idx >= len(centroid) {
			sum += row.Values[j] * row.Values[j]
			continue
		}
		c := centroid[idx]
		d := row.Values[j] - c
		sum += d*d - c*c
	}
	if sum < 0 {
		return 0
	}
	return sum
}

func predictFromProba(c Classifier, x vectorize.Matrix) ([]int, error) {
	proba, err := c.PredictProba(x)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		out[i] = argmax(p)
	}
	return out, nil
}

func spread(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	out := make([]float64, len(rows[0]))
	for f := range out {
		lo, hi := rows[0][f], rows[0][f]
		for _, r := range rows[1:] {
			lo = math.Min(lo, r[f])
			hi = math.Max(hi, r[f])
		}
		out[f] = hi - lo
	}
	return out
}

func softmax(logits []float64) []float64 {
	maxv := math.Inf(-1)
	for _, v := range logits {
		maxv = math.Max(maxv, v)
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		if math.IsInf(v, -1) {
			continue
		}
		out[i] = math.Exp(v - maxv)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
