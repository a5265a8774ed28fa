package filter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notify-step-filter/internal/logger"
)

func writeStepFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadFromDirectory(t *testing.T) {
	dir := t.TempDir()

	writeStepFile(t, dir, "steps.json", `[
		{
			"id": "digest",
			"workflowId": "onboarding",
			"name": "Daily digest",
			"filters": [
				{
					"value": "AND",
					"children": [
						{"on": "payload", "field": "severity", "operator": "EQUAL", "value": "critical"},
						{"on": "subscriber", "field": "plan", "operator": "IN", "value": "pro"}
					]
				}
			]
		}
	]`)

	writeStepFile(t, dir, "more.yaml", `
- id: welcome
  workflowId: onboarding
  filters:
    - children:
        - on: webhook
          field: approved
          operator: EQUAL
          value: "true"
          webhookUrl: http://example.com/hook
`)

	// Non-step files are ignored
	writeStepFile(t, dir, "README.md", "not a step file")

	loader := NewStepLoader(logger.NewNop())
	steps, err := loader.LoadFromDirectory(dir)
	require.NoError(t, err)
	require.Len(t, steps, 2)

	byID := make(map[string]Step)
	for _, s := range steps {
		byID[s.ID] = s
	}

	digest := byID["digest"]
	assert.Equal(t, "onboarding", digest.WorkflowID)
	require.Len(t, digest.Filters, 1)
	assert.Equal(t, CombinatorAnd, digest.Filters[0].Value)
	require.Len(t, digest.Filters[0].Children, 2)
	assert.Equal(t, OperatorEqual, digest.Filters[0].Children[0].Operator)

	welcome := byID["welcome"]
	require.Len(t, welcome.Filters, 1)
	require.Len(t, welcome.Filters[0].Children, 1)
	assert.Equal(t, OnWebhook, welcome.Filters[0].Children[0].On)
	assert.Equal(t, "http://example.com/hook", welcome.Filters[0].Children[0].WebhookURL)
}

func TestLoadFromDirectoryNested(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "team-a")
	require.NoError(t, os.Mkdir(sub, 0755))

	writeStepFile(t, sub, "steps.json", `[
		{"id": "s1", "workflowId": "w1"}
	]`)

	loader := NewStepLoader(logger.NewNop())
	steps, err := loader.LoadFromDirectory(dir)
	require.NoError(t, err)
	assert.Len(t, steps, 1)
}

func TestLoadFromDirectoryInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeStepFile(t, dir, "broken.json", `{not json`)

	loader := NewStepLoader(logger.NewNop())
	_, err := loader.LoadFromDirectory(dir)
	assert.Error(t, err)
}

func TestLoadFromDirectoryInvalidStep(t *testing.T) {
	dir := t.TempDir()
	writeStepFile(t, dir, "steps.json", `[
		{"id": "s1", "workflowId": "w1", "filters": [
			{"value": "AND", "children": [
				{"on": "payload", "field": "x", "operator": "REGEX", "value": "1"},
				{"on": "payload", "field": "y", "operator": "EQUAL", "value": "2"}
			]}
		]}
	]`)

	loader := NewStepLoader(logger.NewNop())
	_, err := loader.LoadFromDirectory(dir)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid operator")
}

func TestLoadFromDirectoryMissing(t *testing.T) {
	loader := NewStepLoader(logger.NewNop())
	_, err := loader.LoadFromDirectory("/does/not/exist")
	assert.Error(t, err)
}
