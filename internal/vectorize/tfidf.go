// Package vectorize projects notes into sparse TF-IDF weight vectors over a
// corpus-wide vocabulary of unigrams and bigrams.
package vectorize

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/eniileme/nuclinotion/internal/models"
)

const maxFeatures = 50000

var (
	fencedCodeRe = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe = regexp.MustCompile("`[^`]+`")
	bareURLRe    = regexp.MustCompile(`https?://\S+`)
	punctRe      = regexp.MustCompile(`[^\w\s]`)
)

// Vector is a sparse token→weight mapping; absent entries are zero.
type Vector map[string]float64

// TFIDF builds a vocabulary and IDF weights from a fixed corpus, then
// projects documents against it. Fit must be called before Transform;
// Transform never mutates the fitted model, so notes outside the corpus may
// be transformed too.
type TFIDF struct {
	vocabulary map[string]struct{}
	idf        map[string]float64
}

// New returns an unfitted vectorizer.
func New() *TFIDF {
	return &TFIDF{}
}

// Tokenize lowercases, strips code and bare URLs, replaces punctuation with
// spaces, splits on whitespace, drops tokens of length <= 2, and emits all
// unigrams followed by every adjacent bigram joined with "_".
func Tokenize(text string) []string {
	s := strings.ToLower(text)
	s = fencedCodeRe.ReplaceAllString(s, "")
	s = inlineCodeRe.ReplaceAllString(s, "")
	s = bareURLRe.ReplaceAllString(s, "")
	s = punctRe.ReplaceAllString(s, " ")

	var words []string
	for _, w := range strings.Fields(s) {
		if len(w) > 2 {
			words = append(words, w)
		}
	}

	tokens := make([]string, 0, 2*len(words))
	tokens = append(tokens, words...)
	for i := 0; i+1 < len(words); i++ {
		tokens = append(tokens, words[i]+"_"+words[i+1])
	}
	return tokens
}

// Fit builds the vocabulary and IDF table from the corpus. The vocabulary
// keeps the top maxFeatures tokens by document frequency, ties broken by
// discovery order. IDF is ln(totalDocs / (docFrequency + 1)).
func (v *TFIDF) Fit(notes []*models.Note) {
	docFreq := make(map[string]int)
	var order []string

	for _, note := range notes {
		seen := make(map[string]struct{})
		for _, tok := range Tokenize(note.NormalizedContent) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			if _, ok := docFreq[tok]; !ok {
				order = append(order, tok)
			}
			docFreq[tok]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return docFreq[order[i]] > docFreq[order[j]]
	})
	if len(order) > maxFeatures {
		order = order[:maxFeatures]
	}

	totalDocs := float64(len(notes))
	v.vocabulary = make(map[string]struct{}, len(order))
	v.idf = make(map[string]float64, len(order))
	for _, tok := range order {
		v.vocabulary[tok] = struct{}{}
		v.idf[tok] = math.Log(totalDocs / float64(docFreq[tok]+1))
	}
}

// Transform projects one note to a sparse TF-IDF vector. Term frequency is
// the raw token count divided by the document's modal token count; weight is
// TF times IDF. A document with no vocabulary tokens yields an empty vector.
func (v *TFIDF) Transform(note *models.Note) Vector {
	counts := make(map[string]int)
	maxCount := 0
	for _, tok := range Tokenize(note.NormalizedContent) {
		if _, ok := v.vocabulary[tok]; !ok {
			continue
		}
		counts[tok]++
		if counts[tok] > maxCount {
			maxCount = counts[tok]
		}
	}

	vec := Vector{}
	if maxCount == 0 {
		return vec
	}
	for tok, c := range counts {
		tf := float64(c) / float64(maxCount)
		vec[tok] = tf * v.idf[tok]
	}
	return vec
}

// TransformAll projects every note in corpus order.
func (v *TFIDF) TransformAll(notes []*models.Note) []Vector {
	out := make([]Vector, len(notes))
	for i, n := range notes {
		out[i] = v.Transform(n)
	}
	return out
}
