package textproc

import (
	"fmt"
	"strings"
	"sync"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
	"github.com/kljensen/snowball"
	porterstemmer "github.com/reiver/go-porterstemmer"
)

// Stem/lemma method names accepted in StemLem
const (
	WordNet  = "wordnet"
	Snowball = "snowball"
	Porter   = "porter"
)

var (
	lemmatizerOnce sync.Once
	lemmatizer     *golem.Lemmatizer
	lemmatizerErr  error
)

// englishLemmatizer loads the English dictionary once per process
func englishLemmatizer() (*golem.Lemmatizer, error) {
	lemmatizerOnce.Do(func() {
		lemmatizer, lemmatizerErr = golem.New(en.New())
	})
	return lemmatizer, lemmatizerErr
}

// ParseStemLem splits a comma separated method list and rejects unknown names
func ParseStemLem(s string) ([]string, error) {
	var methods []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		switch part {
		case "":
			continue
		case WordNet, Snowball, Porter:
			methods = append(methods, part)
		default:
			return nil, fmt.Errorf("unknown stem/lemma method %q", part)
		}
	}
	return methods, nil
}

// Lemmatize reduces every word to its dictionary lemma
func Lemmatize(words []string) ([]string, error) {
	lem, err := englishLemmatizer()
	if err != nil {
		return nil, fmt.Errorf("load lemmatizer: %w", err)
	}
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = lem.Lemma(w)
	}
	return out, nil
}

// SnowballStem applies the English Snowball (Porter2) stemmer
func SnowballStem(words []string) ([]string, error) {
	out := make([]string, len(words))
	for i, w := range words {
		stemmed, err := snowball.Stem(w, "english", true)
		if err != nil {
			return nil, fmt.Errorf("snowball stem %q: %w", w, err)
		}
		out[i] = stemmed
	}
	return out, nil
}

// PorterStem applies the original Porter stemmer
func PorterStem(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = porterstemmer.StemString(w)
	}
	return out
}

// RemoveStopwords drops English stop words
func RemoveStopwords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if !IsStopword(w) {
			out = append(out, w)
		}
	}
	return out
}
