// Package section turns a parsed note corpus into named, disjoint sections
// using one of three grouping strategies: K-means clustering over TF-IDF
// vectors, first level-1 heading, or first tag.
package section

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/eniileme/nuclinotion/internal/cluster"
	"github.com/eniileme/nuclinotion/internal/models"
	"github.com/eniileme/nuclinotion/internal/vectorize"
)

const topTermCount = 10

// BuildInfo describes how the sections were produced. EffectiveK and
// TopTerms are only set for the cluster strategy.
type BuildInfo struct {
	Strategy   string
	EffectiveK int
	TopTerms   []string
}

// Builder groups notes into sections.
type Builder struct {
	kmeans *cluster.KMeans
}

// NewBuilder creates a Builder. A custom fitter (for example with a fixed
// random source) can be injected; nil uses the default.
func NewBuilder(km *cluster.KMeans) *Builder {
	if km == nil {
		km = cluster.New()
	}
	return &Builder{kmeans: km}
}

// Build produces an ordered list of sections whose membership partitions
// the corpus: every note lands in exactly one section.
func (b *Builder) Build(notes []*models.Note, opts models.ProcessingOptions) ([]*models.Section, *BuildInfo, error) {
	switch opts.Strategy {
	case models.StrategyHeadings:
		return groupByKey(notes, firstHeadingKey), &BuildInfo{Strategy: opts.Strategy}, nil
	case models.StrategyTags:
		return groupByKey(notes, firstTagKey), &BuildInfo{Strategy: opts.Strategy}, nil
	default:
		return b.groupByClustering(notes, opts)
	}
}

// AutoK computes the heuristic cluster count max(6, min(40, floor(sqrt(n/2)))).
func AutoK(noteCount int) int {
	k := int(math.Floor(math.Sqrt(float64(noteCount) / 2)))
	if k > 40 {
		k = 40
	}
	if k < 6 {
		k = 6
	}
	return k
}

func (b *Builder) groupByClustering(notes []*models.Note, opts models.ProcessingOptions) ([]*models.Section, *BuildInfo, error) {
	if len(notes) == 0 {
		return nil, &BuildInfo{Strategy: models.StrategyCluster}, nil
	}

	// Only the heuristic k is clamped to the corpus size. A caller-supplied
	// k out of range is passed through so Fit rejects it and fails the job.
	k := opts.ClusteringK
	if k == models.AutoK {
		k = AutoK(len(notes))
		if k > len(notes) {
			k = len(notes)
		}
	}

	vectorizer := vectorize.New()
	vectorizer.Fit(notes)
	vectors := vectorizer.TransformAll(notes)

	result, err := b.kmeans.Fit(vectors, k)
	if err != nil {
		return nil, nil, fmt.Errorf("section: cluster notes: %w", err)
	}

	clusters := buildClusters(notes, result)

	sections := make([]*models.Section, 0, len(clusters))
	var allTopTerms []string
	for i, c := range clusters {
		label := fmt.Sprintf("Section_%02d_%s", i+1, c.Label)
		sections = append(sections, newSection(c.ID, label, c.Notes))
		allTopTerms = append(allTopTerms, c.TopTerms...)
	}

	info := &BuildInfo{
		Strategy:   models.StrategyCluster,
		EffectiveK: k,
		TopTerms:   allTopTerms,
	}
	return sections, info, nil
}

// buildClusters converts the K-means result into one Cluster per non-empty
// group, each labeled from its centroid's top vocabulary terms.
func buildClusters(notes []*models.Note, result *cluster.Result) []*models.Cluster {
	var clusters []*models.Cluster
	for j, centroid := range result.Centroids {
		var members []*models.Note
		for i, label := range result.Labels {
			if label == j {
				members = append(members, notes[i])
			}
		}
		if len(members) == 0 {
			continue
		}
		top := TopTerms(centroid, result.Vocabulary, topTermCount)
		clusters = append(clusters, &models.Cluster{
			ID:       fmt.Sprintf("cluster_%d", j),
			Label:    GenerateLabel(top),
			Notes:    members,
			TopTerms: top,
			Centroid: centroid,
		})
	}
	return clusters
}

// TopTerms returns the topN vocabulary terms ranked by centroid weight,
// ties keeping vocabulary order.
func TopTerms(centroid []float64, vocabulary []string, topN int) []string {
	idx := make([]int, len(vocabulary))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return centroid[idx[a]] > centroid[idx[b]]
	})
	if len(idx) > topN {
		idx = idx[:topN]
	}
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = vocabulary[j]
	}
	return out
}

type keyFunc func(*models.Note) string

func firstHeadingKey(n *models.Note) string {
	for _, h := range n.Headings {
		if h.Level == 1 {
			return h.Text
		}
	}
	return "Untitled"
}

func firstTagKey(n *models.Note) string {
	if len(n.Tags) > 0 {
		return capitalize(n.Tags[0])
	}
	return "Untagged"
}

// groupByKey buckets notes by key in first-seen order.
func groupByKey(notes []*models.Note, key keyFunc) []*models.Section {
	buckets := make(map[string][]*models.Note)
	var order []string
	for _, n := range notes {
		k := key(n)
		if _, ok := buckets[k]; !ok {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], n)
	}

	sections := make([]*models.Section, 0, len(order))
	for i, k := range order {
		id := fmt.Sprintf("section_%d", i)
		sections = append(sections, newSection(id, SanitizeLabel(k), buckets[k]))
	}
	return sections
}

func newSection(id, label string, notes []*models.Note) *models.Section {
	samples := make([]string, 0, 3)
	for _, n := range notes {
		if len(samples) == 3 {
			break
		}
		samples = append(samples, n.Title)
	}
	return &models.Section{
		ID:           id,
		Label:        label,
		Notes:        notes,
		IndexContent: IndexContent(notes),
		NoteCount:    len(notes),
		SampleTitles: samples,
	}
}

// IndexContent renders a section's table of contents: one link entry per
// member note in membership order.
func IndexContent(notes []*models.Note) string {
	if len(notes) == 0 {
		return "# Section\n\nNo notes in this section."
	}
	lines := []string{"# Section Contents", "", "This section contains the following notes:", ""}
	for _, n := range notes {
		lines = append(lines, fmt.Sprintf("- [%s](%s)", n.Title, n.Filename))
	}
	return strings.Join(lines, "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
