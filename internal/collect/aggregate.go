package collect

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mosaic-agent/mosaic/pkg/models"
)

// consensusKeyLen is how much normalized content the similarity key keeps.
const consensusKeyLen = 50

func (c *Collector) aggregate(refined *models.RefinedPrompt, valid []models.SourceResult, scores []float64) (*models.AggregatedStructure, error) {
	var (
		ordered      []models.SourceResult
		mainContent  []models.SourceResult
		alternatives []models.ConsensusGroup
		agreement    float64
	)

	switch c.opts.Strategy {
	case models.StrategyWeighted:
		items := Weighted(valid, scores)
		ordered = make([]models.SourceResult, len(items))
		for i, it := range items {
			ordered[i] = it.Source
		}
		mainContent = topN(ordered, 3)

	case models.StrategyConsensus:
		groups := Consensus(valid)
		largest := 0
		for _, g := range groups {
			if len(g.Sources) > largest {
				largest = len(g.Sources)
			}
		}
		agreement = float64(largest) / float64(len(valid))
		mainContent = groups[0].Sources
		for _, g := range groups[1:] {
			alternatives = append(alternatives, g)
			ordered = append(ordered, g.Sources...)
		}
		ordered = append(append([]models.SourceResult{}, groups[0].Sources...), ordered...)

	case models.StrategyChronological:
		ordered = append([]models.SourceResult{}, valid...)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Timestamp.After(ordered[j].Timestamp)
		})
		mainContent = topN(ordered, 3)

	case models.StrategySimple:
		ordered = append([]models.SourceResult{}, valid...)
		mainContent = topN(ordered, 3)

	default:
		return nil, fmt.Errorf("unknown aggregation strategy %q", c.opts.Strategy)
	}

	overall := overallConfidence(valid)
	coverage := Coverage(refined, valid)

	var evidence []models.SourceResult
	for _, r := range ordered {
		if r.Confidence > 0.7 {
			evidence = append(evidence, r)
		}
	}

	consistency := 0.7
	if c.opts.Strategy == models.StrategyConsensus {
		consistency = agreement
	}

	return &models.AggregatedStructure{
		MainContent:    mainContent,
		SupportingData: ordered[len(mainContent):],
		Evidence:       evidence,
		Alternatives:   alternatives,
		Quality: models.QualityScores{
			Completeness: models.Clamp01(0.5*coverage + 0.5*float64(len(valid))/float64(c.opts.MaxDataSources)),
			Consistency:  consistency,
			Reliability:  overall,
		},
		Metadata: models.AggregateMetadata{
			SourceCount:       len(valid),
			OverallConfidence: overall,
			Coverage:          coverage,
			AgreementLevel:    agreement,
			Strategy:          c.opts.Strategy,
			AggregatedAt:      time.Now().UTC(),
		},
	}, nil
}

// Weighted ranks sources by confidence times validation score, with the
// normalized weights summing to 1 when any weight is positive.
func Weighted(valid []models.SourceResult, scores []float64) []models.WeightedItem {
	items := make([]models.WeightedItem, len(valid))
	total := 0.0
	for i, r := range valid {
		w := r.Confidence * scores[i]
		items[i] = models.WeightedItem{Source: r, ValidationScore: scores[i], Weight: w}
		total += w
	}
	if total > 0 {
		for i := range items {
			items[i].NormalizedWeight = items[i].Weight / total
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Weight > items[j].Weight
	})
	return items
}

// Consensus clusters sources by a similarity key over their content and
// returns the groups ranked by total confidence, strongest first.
func Consensus(valid []models.SourceResult) []models.ConsensusGroup {
	index := map[string]int{}
	var groups []models.ConsensusGroup
	for _, r := range valid {
		key := consensusKey(r.Data)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, models.ConsensusGroup{Key: key})
		}
		groups[i].Sources = append(groups[i].Sources, r)
		groups[i].TotalConfidence += r.Confidence
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].TotalConfidence > groups[j].TotalConfidence
	})
	return groups
}

// consensusKey normalizes content to lowercase single-spaced text and
// keeps its head as the similarity key.
func consensusKey(data any) string {
	s := strings.ToLower(contentString(data))
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > consensusKeyLen {
		s = s[:consensusKeyLen]
	}
	return s
}

// overallConfidence is the mean source confidence plus a convergence
// bonus of 0.05 per source, capped at 0.2, clamped to [0,1].
func overallConfidence(valid []models.SourceResult) float64 {
	if len(valid) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range valid {
		sum += r.Confidence
	}
	bonus := 0.05 * float64(len(valid))
	if bonus > 0.2 {
		bonus = 0.2
	}
	return models.Clamp01(sum/float64(len(valid)) + bonus)
}

// Coverage measures which share of the prompt's leading keywords appear
// somewhere in the serialized source data. Only the first ten distinct
// keywords longer than three characters count.
func Coverage(refined *models.RefinedPrompt, valid []models.SourceResult) float64 {
	keywords := promptKeywords(refined)
	if len(keywords) == 0 {
		return 0
	}

	serialized := make([]string, 0, len(valid))
	for _, r := range valid {
		raw, err := json.Marshal(r.Data)
		if err != nil {
			raw = []byte(contentString(r.Data))
		}
		serialized = append(serialized, strings.ToLower(string(raw)))
	}

	found := 0
	for _, kw := range keywords {
		for _, s := range serialized {
			if strings.Contains(s, kw) {
				found++
				break
			}
		}
	}
	return float64(found) / float64(len(keywords))
}

func promptKeywords(refined *models.RefinedPrompt) []string {
	if refined == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, w := range strings.Fields(strings.ToLower(refined.Refined)) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if len(w) <= 3 || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) == 10 {
			break
		}
	}
	return out
}

func topN(s []models.SourceResult, n int) []models.SourceResult {
	if len(s) < n {
		n = len(s)
	}
	return s[:n]
}
