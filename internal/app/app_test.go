package app

import (
	"ai-master-bot/internal/config"
	"ai-master-bot/internal/intake"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifierRulesFromConfig(t *testing.T) {
	assert.Nil(t, classifierRules(config.Classifier{}))

	rules := classifierRules(config.Classifier{Rules: []config.ClassifierRule{
		{Category: "startup", Keywords: []string{"boot"}, Summary: "s"},
		{Category: "BROWSER", Keywords: []string{"chrome"}},
	}})
	require.Len(t, rules, 2)
	assert.Equal(t, intake.Startup, rules[0].Category)
	assert.Equal(t, "s", rules[0].Summary)

	c := intake.New(rules)
	assert.Equal(t, intake.Startup, c.Classify("chrome boot loop"))
	assert.Equal(t, "s", c.Summary(intake.Startup))
}

func TestRunFailsWithoutConfig(t *testing.T) {
	err := Run("does-not-exist.yaml", false, false, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "failed to read config file")
}
