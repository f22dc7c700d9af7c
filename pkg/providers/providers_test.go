package providers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProvidersFile(t *testing.T, name, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	return file
}

func TestLoadRegistryYAML(t *testing.T) {
	file := writeProvidersFile(t, "providers.yaml", `
providers:
  - id: AWS
    name: Amazon Web Services
    type: aws
    source_url: https://status.aws.amazon.com/rss/all.rss
  - id: gcp
    name: Google Cloud
    type: gcp
    source_url: https://status.cloud.google.com/en/feed.atom
`)

	reg, err := LoadRegistry(file)
	require.NoError(t, err)

	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, "aws", all[0].ID, "ids are lower-cased")

	p, ok := reg.ByID("GCP")
	require.True(t, ok)
	assert.Equal(t, "https://status.cloud.google.com/en/feed.atom", p.SourceURL)
	assert.Equal(t, []string{"aws", "gcp"}, reg.IDs())
}

func TestLoadRegistryJSONDefaultsTypeAndName(t *testing.T) {
	file := writeProvidersFile(t, "providers.json", `{"providers":[{"id":"azure","source_url":"https://azure.status/feed"}]}`)

	reg, err := LoadRegistry(file)
	require.NoError(t, err)
	p, ok := reg.ByID("azure")
	require.True(t, ok)
	assert.Equal(t, "azure", p.Type)
	assert.Equal(t, "azure", p.Name)
}

func TestLoadRegistryDuplicateID(t *testing.T) {
	file := writeProvidersFile(t, "providers.yaml", `
providers:
  - id: duplicate
    source_url: https://p1.example
  - id: Duplicate
    source_url: https://p2.example
`)

	_, err := LoadRegistry(file)
	assert.Error(t, err)
}

func TestNewRegistryRejectsReservedID(t *testing.T) {
	_, err := NewRegistry([]Provider{{ID: "all", SourceURL: "https://x"}})
	assert.Error(t, err)
}

func TestHeadersDefaultsAccept(t *testing.T) {
	h := Headers(Provider{Config: map[string]any{ConfigUserAgentKey: "UA"}})
	assert.NotEmpty(t, h["Accept"])
	assert.Equal(t, "UA", h["User-Agent"])
	assert.NotContains(t, h, "Cache-Control", "unset header is skipped")
}

func TestConfigStringFormatsScalars(t *testing.T) {
	p := Provider{Config: map[string]any{"n": 5, "blank": "  ", "list": []string{"x"}}}
	assert.Equal(t, "5", ConfigString(p, "n", ""))
	assert.Equal(t, "fb", ConfigString(p, "blank", "fb"))
	assert.Equal(t, "fb", ConfigString(p, "list", "fb"))
	assert.Equal(t, "fb", ConfigString(Provider{}, "missing", "fb"))
}

func TestResponseSnippetCondensesBody(t *testing.T) {
	assert.Equal(t, "<html> <body>Service Unavailable</body> </html>",
		responseSnippet([]byte("<html>\n  <body>Service\tUnavailable</body>\n</html>")))
	assert.Equal(t, "<empty>", responseSnippet(nil))

	long := strings.Repeat("é", 600)
	assert.Len(t, []rune(responseSnippet([]byte(long))), 515, "512 runes plus ellipsis")
}
