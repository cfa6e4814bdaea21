package model

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/khrees2412/jobhunter/internal/textproc"
	"github.com/khrees2412/jobhunter/internal/vectorize"
	"github.com/khrees2412/jobhunter/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func corpus() []models.Listing {
	var out []models.Listing
	for i := 0; i < 10; i++ {
		out = append(out,
			models.Listing{
				URL:            fmt.Sprintf("sf-%d", i),
				CityTerm:       "San+Francisco",
				JobDescription: fmt.Sprintf("startup spark python machine learning team %d", i),
			},
			models.Listing{
				URL:            fmt.Sprintf("ny-%d", i),
				CityTerm:       "New+York",
				JobDescription: fmt.Sprintf("bank finance trading sql risk desk %d", i),
			},
		)
	}
	return out
}

func newTestModel(t *testing.T, classifier string) *Model {
	t.Helper()
	m, err := New(Spec{Processing: textproc.DefaultOptions(), Classifier: classifier})
	require.NoError(t, err)
	return m
}

func TestNewClassifier(t *testing.T) {
	c, err := NewClassifier("")
	require.NoError(t, err)
	assert.IsType(t, &MultinomialNB{}, c)

	c, err = NewClassifier("centroid")
	require.NoError(t, err)
	assert.IsType(t, &NearestCentroid{}, c)

	_, err = NewClassifier("forest")
	assert.Error(t, err)
}

func TestMultinomialNB_Fit(t *testing.T) {
	x := vectorize.Matrix{Cols: 2, Rows: []vectorize.Vector{
		{Indices: []int{0}, Values: []float64{3}},
		{Indices: []int{1}, Values: []float64{3}},
	}}
	nb := &MultinomialNB{}
	require.NoError(t, nb.Fit(x, []int{0, 1}, 3))

	proba, err := nb.PredictProba(vectorize.Matrix{Cols: 2, Rows: []vectorize.Vector{
		{Indices: []int{0}, Values: []float64{1}},
	}})
	require.NoError(t, err)
	require.Len(t, proba[0], 3)
	assert.Greater(t, proba[0][0], proba[0][1])
	// a class with no training rows can never be predicted
	assert.Zero(t, proba[0][2])
	assert.InDelta(t, 1.0, proba[0][0]+proba[0][1]+proba[0][2], 1e-9)

	assert.Error(t, nb.Fit(x, []int{0, 5}, 3))
	assert.Error(t, nb.Fit(x, []int{0}, 3))
}

func TestClassifier_NotFitted(t *testing.T) {
	x := vectorize.Matrix{Cols: 1, Rows: []vectorize.Vector{{}}}
	_, err := (&MultinomialNB{}).Predict(x)
	assert.ErrorIs(t, err, ErrClassifierNotFitted)
	_, err = (&NearestCentroid{}).Predict(x)
	assert.ErrorIs(t, err, ErrClassifierNotFitted)
}

func TestModel_FitPredict(t *testing.T) {
	for _, name := range []string{"nb", "centroid"} {
		t.Run(name, func(t *testing.T) {
			m := newTestModel(t, name)
			require.NoError(t, m.Fit(corpus()))

			got, err := m.Predict([]string{"Python spark startup", "SQL for a bank"})
			require.NoError(t, err)
			assert.Equal(t, []int{0, 1}, got)
		})
	}
}

func TestModel_NotFitted(t *testing.T) {
	m := newTestModel(t, "nb")

	_, err := m.Predict([]string{"python"})
	assert.ErrorIs(t, err, ErrNotFitted)
	_, err = m.Rank("python")
	assert.ErrorIs(t, err, ErrNotFitted)
	_, _, err = m.InformativeFeatures(5)
	assert.ErrorIs(t, err, ErrNotFitted)
	assert.ErrorIs(t, m.Save(&bytes.Buffer{}), ErrNotFitted)
}

func TestModel_Rank(t *testing.T) {
	m := newTestModel(t, "nb")
	require.NoError(t, m.Fit(corpus()))

	scores, err := m.Rank("finance and trading risk")
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "New York, NY", scores[0].City)
	assert.Equal(t, 1, scores[0].Label)
	assert.GreaterOrEqual(t, scores[0].Probability, scores[1].Probability)
	assert.InDelta(t, 1.0, scores[0].Probability+scores[1].Probability, 1e-9)
}

func TestKFold(t *testing.T) {
	folds := KFold(10, 3, 42)
	require.Len(t, folds, 3)
	assert.Len(t, folds[0], 4)
	assert.Len(t, folds[1], 3)
	assert.Len(t, folds[2], 3)

	seen := map[int]bool{}
	for _, f := range folds {
		for _, i := range f {
			assert.False(t, seen[i], "index %d in two folds", i)
			seen[i] = true
		}
	}
	assert.Len(t, seen, 10)

	assert.Equal(t, folds, KFold(10, 3, 42))
}

func TestModel_CrossValidate(t *testing.T) {
	m := newTestModel(t, "nb")

	report, err := m.CrossValidate(context.Background(), corpus(), 5, 1)
	require.NoError(t, err)
	assert.Len(t, report.FoldScores, 5)
	assert.InDelta(t, 1.0, report.MeanAccuracy, 1e-9)
	assert.Equal(t, 20, report.Documents)

	var total int
	for _, row := range report.Confusion {
		for _, n := range row {
			total += n
		}
	}
	assert.Equal(t, 20, total)
	assert.Equal(t, 10, report.Confusion[0][0])
	assert.Equal(t, 10, report.Confusion[1][1])

	// the receiver is not fitted by cross-validation
	assert.False(t, m.Fitted)
}

func TestModel_CrossValidateInvalidSplits(t *testing.T) {
	m := newTestModel(t, "nb")

	_, err := m.CrossValidate(context.Background(), corpus(), 1, 1)
	assert.Error(t, err)
	_, err = m.CrossValidate(context.Background(), corpus()[:3], 4, 1)
	assert.Error(t, err)
}

func TestModel_CrossValidateCanceled(t *testing.T) {
	m := newTestModel(t, "nb")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.CrossValidate(ctx, corpus(), 2, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModel_InformativeFeatures(t *testing.T) {
	m := newTestModel(t, "nb")
	require.NoError(t, m.Fit(corpus()))

	least, most, err := m.InformativeFeatures(3)
	require.NoError(t, err)
	require.Len(t, least, 3)
	require.Len(t, most, 3)
	assert.LessOrEqual(t, least[0].Importance, least[2].Importance)
	assert.GreaterOrEqual(t, most[0].Importance, most[2].Importance)
	assert.GreaterOrEqual(t, most[2].Importance, least[2].Importance)

	least, most, err = m.InformativeFeatures(1000)
	require.NoError(t, err)
	assert.Len(t, least, len(m.Processing.Vectorize.FeatureNames()))
	assert.Len(t, most, len(least))
}

func TestModel_SaveLoad(t *testing.T) {
	m := newTestModel(t, "centroid")
	require.NoError(t, m.Fit(corpus()))

	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	assert.IsType(t, &NearestCentroid{}, loaded.Classifier)

	want, err := m.Predict([]string{"spark", "bank"})
	require.NoError(t, err)
	got, err := loaded.Predict([]string{"spark", "bank"})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoad_Garbage(t *testing.T) {
	_, err := Load(bytes.NewBufferString("not a model"))
	assert.Error(t, err)
}
