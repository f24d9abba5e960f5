package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfitem/news-collector/internal/domain/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadKeywordGroups_YAML(t *testing.T) {
	path := writeFile(t, "feeds.yaml", `
keyword_groups:
  - name: Tech
    terms:
      - quantum computing
      - "  semiconductor  "
      - ""
  - monsoon
  - terms: [sensex]
`)

	groups, err := LoadKeywordGroups(path)
	require.NoError(t, err)
	assert.Equal(t, []model.KeywordGroup{
		{Name: "Tech", Terms: []string{"quantum computing", "semiconductor"}},
		{Name: "monsoon", Terms: []string{"monsoon"}},
		{Name: "Group 3", Terms: []string{"sensex"}},
	}, groups)
}

func TestLoadKeywordGroups_JSONList(t *testing.T) {
	path := writeFile(t, "feeds.json", `[{"name": "Tech", "terms": ["quantum computing"]}, "ai"]`)

	groups, err := LoadKeywordGroups(path)
	require.NoError(t, err)
	assert.Equal(t, []model.KeywordGroup{
		{Name: "Tech", Terms: []string{"quantum computing"}},
		{Name: "ai", Terms: []string{"ai"}},
	}, groups)
}

func TestLoadKeywordGroups_OPML(t *testing.T) {
	path := writeFile(t, "feeds.opml", `<?xml version="1.0" encoding="UTF-8"?>
<opml version="1.0">
  <head><title>Keywords</title></head>
  <body>
    <outline text="Tech">
      <outline text="quantum computing"/>
      <outline title="semiconductor"/>
      <outline text="Nested">
        <outline text="robotics"/>
      </outline>
    </outline>
    <outline text="monsoon"/>
  </body>
</opml>`)

	groups, err := LoadKeywordGroups(path)
	require.NoError(t, err)
	assert.Equal(t, []model.KeywordGroup{
		{Name: "Tech", Terms: []string{"quantum computing", "semiconductor", "robotics"}},
		{Name: "monsoon", Terms: []string{"monsoon"}},
	}, groups)
}

func TestLoadKeywordGroups_Errors(t *testing.T) {
	_, err := LoadKeywordGroups(writeFile(t, "feeds.txt", "ai"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = LoadKeywordGroups(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadKeywordGroups(writeFile(t, "bad.yaml", "keyword_groups:\n  - [nested, list]\n"))
	assert.Error(t, err)
}

func TestParseKeywordGroups_Empty(t *testing.T) {
	groups, err := ParseKeywordGroups([]byte(""))
	require.NoError(t, err)
	assert.Empty(t, groups)
}
