package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pable/s2-analytics/internal/model"
)

func TestAnalyzePromptExplainsTagCount(t *testing.T) {
	tag := model.WeaponTag("SteyrAUG", 2)
	assert.Equal(t, "SteyrAUG_x2", tag)
	assert.Contains(t, analyzeSystemPrompt, `"<weapon>_x<count>"`)
	assert.Contains(t, analyzeSystemPrompt, `"`+tag+`"`)
}
