// Consistency checks between the README's Testing Branch section and the
// standalone policy document. The two describe the same workflow and the
// same prohibitions; this keeps them from drifting apart.
package docs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readDoc(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", rel))
	require.NoError(t, err, "missing %s", rel)
	return string(data)
}

// readmeTestingSection extracts the "## Testing Branch" section from the
// root README.
func readmeTestingSection(t *testing.T) string {
	t.Helper()
	readme := readDoc(t, "README.md")
	start := strings.Index(readme, "## Testing Branch")
	require.GreaterOrEqual(t, start, 0, "README has no Testing Branch section")

	section := readme[start:]
	if end := strings.Index(section[3:], "\n## "); end >= 0 {
		section = section[:end+3]
	}
	return section
}

// Both documents must describe the same four-step workflow.
func TestWorkflowMatchesBetweenDocuments(t *testing.T) {
	section := readmeTestingSection(t)
	policy := readDoc(t, "docs/testing-branch.md")

	steps := []string{
		"feature branch from `testing`",
		"pull request from your feature branch into `testing`",
		"validated on `testing`",
		"promotes `testing` into `main`",
	}
	for _, step := range steps {
		assert.Contains(t, section, step, "README is missing workflow step %q", step)
		assert.Contains(t, policy, step, "policy document is missing workflow step %q", step)
	}
}

// Both documents must list the same prohibitions.
func TestProhibitionsMatchBetweenDocuments(t *testing.T) {
	section := readmeTestingSection(t)
	policy := readDoc(t, "docs/testing-branch.md")

	prohibitions := []string{
		"No long-term work lands without review",
		"No secrets or credentials are ever committed",
	}
	for _, p := range prohibitions {
		assert.Contains(t, section, p, "README is missing prohibition %q", p)
		assert.Contains(t, policy, p, "policy document is missing prohibition %q", p)
	}
}

// Both documents must agree on which branch is stable.
func TestBranchRolesMatchBetweenDocuments(t *testing.T) {
	section := readmeTestingSection(t)
	policy := readDoc(t, "docs/testing-branch.md")

	role := "only moves by promotion from `testing`"
	assert.Contains(t, section, role)
	assert.Contains(t, policy, role)
}

// Secrets stay in the environment; no credential-looking strings may appear
// in committed docs or config.
func TestNoSecretsInDocuments(t *testing.T) {
	for _, rel := range []string{"README.md", "docs/testing-branch.md"} {
		content := readDoc(t, rel)
		for _, marker := range []string{
			"Bot MTA",      // Discord bot token prefix
			"xoxb-",        // leaked token shapes from other platforms
			"BEGIN RSA PRIVATE KEY",
		} {
			assert.NotContains(t, content, marker, "%s looks like it contains a credential", rel)
		}
	}
}
