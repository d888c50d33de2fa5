package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveStrategyHonorsExplicitChoice(t *testing.T) {
	assert.Equal(t, StrategyVector, resolveStrategy("anything at all here", StrategyVector))
}

func TestResolveStrategyQuotedPhraseUsesHybrid(t *testing.T) {
	assert.Equal(t, StrategyHybrid, resolveStrategy(`find "exact phrase match"`, StrategyAuto))
}

func TestResolveStrategyAcronymUsesHybrid(t *testing.T) {
	assert.Equal(t, StrategyHybrid, resolveStrategy("what is the HTTP status for this", StrategyAuto))
}

func TestResolveStrategyLongQueryUsesHybrid(t *testing.T) {
	q := "how do I configure the ingestion pipeline to retry failed jobs automatically after a crash"
	assert.Equal(t, StrategyHybrid, resolveStrategy(q, StrategyAuto))
}

func TestResolveStrategyShortQueryUsesVector(t *testing.T) {
	assert.Equal(t, StrategyVector, resolveStrategy("rate limiting design", StrategyAuto))
}

func TestShouldRerankDefersToKThreshold(t *testing.T) {
	assert.True(t, shouldRerank(10, true, nil))
	assert.False(t, shouldRerank(30, true, nil))
	assert.False(t, shouldRerank(10, false, nil))
}

func TestShouldRerankHonorsExplicitOverride(t *testing.T) {
	yes := true
	no := false
	assert.True(t, shouldRerank(30, true, &yes))
	assert.False(t, shouldRerank(5, true, &no))
}
