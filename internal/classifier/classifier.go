// Package classifier maps a free-text ticket description to a category
// through a deterministic fallback chain: external model suggestion, keyword
// voting, TF-IDF vector similarity, then the first configured category.
package classifier

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/approval-service/internal/domain"
)

// Tier labels reported in Result for observability.
const (
	TierModel   = "model"
	TierKeyword = "keyword"
	TierVector  = "vector"
	TierDefault = "default"
)

// similarityThreshold is the minimum cosine similarity the vector tier
// accepts before falling through to the default.
const similarityThreshold = 0.1

// Result is the outcome of a classification. Category is nil only when zero
// categories are configured. UsedModel is true only when the external model
// tier produced the result.
type Result struct {
	Category  *domain.Category
	UsedModel bool
	Tier      string
}

// Config carries the classifier's collaborators. Suggester may be nil when
// no external model is configured; the fallback chain absorbs that.
type Config struct {
	Suggester Suggester
	Logger    *zap.Logger
}

// Classifier resolves categories for ticket descriptions.
type Classifier struct {
	suggester Suggester
	logger    *zap.Logger
}

// New builds a classifier from explicit configuration.
func New(cfg Config) *Classifier {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{suggester: cfg.Suggester, logger: logger}
}

// Classify resolves one category for the description. Categories must be in
// stable creation order; the default tier returns the first one.
func (c *Classifier) Classify(ctx context.Context, categories []domain.Category, description string) Result {
	if len(categories) == 0 {
		return Result{Tier: TierDefault}
	}

	if cat, ok := c.suggestTier(ctx, categories, description); ok {
		return Result{Category: cat, UsedModel: true, Tier: TierModel}
	}
	if cat, ok := keywordTier(categories, description); ok {
		return Result{Category: cat, Tier: TierKeyword}
	}
	if cat, ok := vectorTier(categories, description); ok {
		return Result{Category: cat, Tier: TierVector}
	}
	return Result{Category: &categories[0], Tier: TierDefault}
}

// suggestTier asks the external model for a single-label reply and accepts
// it only when the normalized reply contains a configured category name.
func (c *Classifier) suggestTier(ctx context.Context, categories []domain.Category, description string) (*domain.Category, bool) {
	if c.suggester == nil {
		return nil, false
	}
	label, err := c.suggester.Suggest(ctx, categories, description)
	if err != nil {
		c.logger.Warn("model suggestion failed, falling back", zap.Error(err))
		return nil, false
	}
	normalized := strings.ToLower(strings.TrimSpace(label))
	for i := range categories {
		if strings.Contains(normalized, strings.ToLower(categories[i].Name)) {
			return &categories[i], true
		}
	}
	c.logger.Debug("model suggestion matched no category", zap.String("label", label))
	return nil, false
}

// keywordTier counts how many of each category's keywords occur as
// substrings of the normalized description. The strictly highest count wins;
// ties keep the first-seen highest; zero matches falls through.
func keywordTier(categories []domain.Category, description string) (*domain.Category, bool) {
	normalized := strings.ToLower(description)
	var best *domain.Category
	maxMatches := 0
	for i := range categories {
		matches := 0
		for _, keyword := range categories[i].KeywordList() {
			if strings.Contains(normalized, keyword) {
				matches++
			}
		}
		if matches > maxMatches {
			maxMatches = matches
			best = &categories[i]
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// vectorTier builds a TF-IDF space over the category descriptive texts plus
// the input, and picks the most similar category when similarity clears the
// threshold.
func vectorTier(categories []domain.Category, description string) (*domain.Category, bool) {
	docs := make([]string, 0, len(categories)+1)
	for _, cat := range categories {
		docs = append(docs, cat.Name+" "+cat.Description+" "+cat.Keywords)
	}
	docs = append(docs, description)

	vectors := vectorize(docs)
	input := vectors[len(vectors)-1]

	bestIdx := -1
	bestSim := 0.0
	for i := 0; i < len(categories); i++ {
		sim := cosine(input, vectors[i])
		if sim > bestSim {
			bestSim = sim
			bestIdx = i
		}
	}
	if bestIdx < 0 || bestSim <= similarityThreshold {
		return nil, false
	}
	return &categories[bestIdx], true
}
