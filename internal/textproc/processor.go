package textproc

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/khrees2412/jobhunter/internal/vectorize"
	"github.com/khrees2412/jobhunter/pkg/models"
)

// ErrNotFitted is returned when transforming with a processor that was never fitted
var ErrNotFitted = errors.New("must fit a processing pipeline before calling transform")

// Options configures a Processor
type Options struct {
	StemLem      string // comma separated: wordnet, snowball, porter
	MinDF        float64
	MaxDF        float64
	NumCities    int
	NGramMin     int
	NGramMax     int
	UseStopwords bool
	Vectorizer   vectorize.Kind
	Cities       []models.City
}

// DefaultOptions mirrors the configuration defaults
func DefaultOptions() Options {
	return Options{
		MinDF:        1,
		MaxDF:        1.0,
		NumCities:    2,
		NGramMin:     1,
		NGramMax:     1,
		UseStopwords: true,
		Vectorizer:   vectorize.TFIDF,
		Cities:       models.DefaultCities,
	}
}

// Processor cleans listings, normalizes their words and vectorizes them
type Processor struct {
	Opts      Options
	Methods   []string
	Vectorize *vectorize.Vectorizer
}

// NewProcessor validates opts and returns an unfitted processor
func NewProcessor(opts Options) (*Processor, error) {
	methods, err := ParseStemLem(opts.StemLem)
	if err != nil {
		return nil, err
	}
	if opts.NumCities < 1 {
		return nil, fmt.Errorf("num_cities must be positive, got %d", opts.NumCities)
	}
	if len(opts.Cities) == 0 {
		opts.Cities = models.DefaultCities
	}
	return &Processor{Opts: opts, Methods: methods}, nil
}

// Fitted reports whether the vectorizer has been fitted
func (p *Processor) Fitted() bool {
	return p.Vectorize != nil && p.Vectorize.Fitted()
}

// ModelData runs the cleaning chain and returns documents with their labels
func (p *Processor) ModelData(listings []models.Listing) ([]string, []int) {
	return Descriptions(CreateModelData(listings, p.Opts.Cities, p.Opts.NumCities))
}

// Fit learns the vocabulary from the cleaned listings
func (p *Processor) Fit(listings []models.Listing) error {
	docs, _ := p.ModelData(listings)
	return p.fitDocs(docs)
}

// Transform cleans listings and maps them onto the fitted vocabulary
func (p *Processor) Transform(listings []models.Listing) (vectorize.Matrix, []int, error) {
	if !p.Fitted() {
		return vectorize.Matrix{}, nil, ErrNotFitted
	}
	docs, labels := p.ModelData(listings)
	x, err := p.TransformText(docs)
	if err != nil {
		return vectorize.Matrix{}, nil, err
	}
	return x, labels, nil
}

// FitTransform fits on listings and transforms them in one pass
func (p *Processor) FitTransform(listings []models.Listing) (vectorize.Matrix, []int, error) {
	docs, labels := p.ModelData(listings)
	if err := p.fitDocs(docs); err != nil {
		return vectorize.Matrix{}, nil, err
	}
	x, err := p.TransformText(docs)
	if err != nil {
		return vectorize.Matrix{}, nil, err
	}
	return x, labels, nil
}

// TransformText normalizes and vectorizes raw documents, e.g. a description
// pasted into the web form
func (p *Processor) TransformText(docs []string) (vectorize.Matrix, error) {
	if !p.Fitted() {
		return vectorize.Matrix{}, ErrNotFitted
	}
	normalized, err := p.Normalize(docs)
	if err != nil {
		return vectorize.Matrix{}, err
	}
	return p.Vectorize.Transform(normalized)
}

func (p *Processor) fitDocs(docs []string) error {
	normalized, err := p.Normalize(docs)
	if err != nil {
		return err
	}
	v := vectorize.New(vectorize.Options{
		Kind:     p.Opts.Vectorizer,
		MinDF:    p.Opts.MinDF,
		MaxDF:    p.Opts.MaxDF,
		NGramMin: p.Opts.NGramMin,
		NGramMax: p.Opts.NGramMax,
	})
	if err := v.Fit(normalized); err != nil {
		return fmt.Errorf("fit vectorizer: %w", err)
	}
	p.Vectorize = v
	return nil
}

// Normalize tokenizes every document and applies stop-word removal and the
// configured lemmatizer/stemmer. Lemmatizing runs before stemming; Snowball
// takes precedence over Porter when both are configured.
func (p *Processor) Normalize(docs []string) ([]string, error) {
	out := make([]string, len(docs))
	for i, doc := range docs {
		words, err := p.normalizeWords(vectorize.Tokenize(doc))
		if err != nil {
			return nil, err
		}
		out[i] = strings.Join(words, " ")
	}
	return out, nil
}

func (p *Processor) normalizeWords(words []string) ([]string, error) {
	var err error
	if p.Opts.UseStopwords {
		words = RemoveStopwords(words)
	}
	if slices.Contains(p.Methods, WordNet) {
		if words, err = Lemmatize(words); err != nil {
			return nil, err
		}
	}
	switch {
	case slices.Contains(p.Methods, Snowball):
		if words, err = SnowballStem(words); err != nil {
			return nil, err
		}
	case slices.Contains(p.Methods, Porter):
		words = PorterStem(words)
	}
	return words, nil
}
