package buildconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionInfo_LdflagsWin(t *testing.T) {
	oldV, oldC, oldT := version, commit, buildTime
	t.Cleanup(func() { version, commit, buildTime = oldV, oldC, oldT })

	version, commit, buildTime = "v1.2.0", "abc123", "2026-01-02T03:04:05Z"
	assert.Equal(t, map[string]string{
		"service":  "clawguild",
		"version":  "v1.2.0",
		"commit":   "abc123",
		"built_at": "2026-01-02T03:04:05Z",
	}, VersionInfo())
}

func TestCommit_NeverEmpty(t *testing.T) {
	old := commit
	t.Cleanup(func() { commit = old })

	commit = ""
	assert.NotEmpty(t, Commit())
	assert.Equal(t, "clawguild", VersionInfo()["service"])
}
