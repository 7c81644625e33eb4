package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	info := Get()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestString_WithoutGitInfo(t *testing.T) {
	origVersion, origCommit, origBranch, origDate := Version, GitCommit, GitBranch, BuildDate
	defer func() { Version, GitCommit, GitBranch, BuildDate = origVersion, origCommit, origBranch, origDate }()

	Version, GitCommit, GitBranch, BuildDate = "1.0.0", "", "", ""
	assert.Contains(t, String(), "1.0.0")
}

func TestString_WithGitInfo(t *testing.T) {
	origVersion, origCommit, origBranch, origDate := Version, GitCommit, GitBranch, BuildDate
	defer func() { Version, GitCommit, GitBranch, BuildDate = origVersion, origCommit, origBranch, origDate }()

	Version, GitCommit, GitBranch, BuildDate = "1.0.0", "abcdef1234567890", "main", "2025-01-11"

	str := String()
	assert.Contains(t, str, "1.0.0")
	assert.Contains(t, str, "abcdef1")
	assert.Contains(t, str, "main")
}

func TestShort(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	defer func() { Version, GitCommit = origVersion, origCommit }()

	Version, GitCommit = "1.0.0", ""
	require.Equal(t, "1.0.0", Short())

	GitCommit = "abcdef1234567890"
	require.Equal(t, "1.0.0-abcdef1", Short())
}

func TestUserAgent(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	defer func() { Version, GitCommit = origVersion, origCommit }()

	Version, GitCommit = "1.0.0", ""
	require.Equal(t, "agora/1.0.0", UserAgent())

	GitCommit = "abcdef1234567890"
	require.Equal(t, "agora/1.0.0-abcdef1", UserAgent())
}

func TestGetModuleVersion_NeverEmpty(t *testing.T) {
	assert.NotEmpty(t, GetModuleVersion())
}

func TestPrintVersion_DoesNotPanic(t *testing.T) {
	require.NotPanics(t, PrintVersion)
}

func TestPrintVersionJSON_DoesNotPanic(t *testing.T) {
	require.NotPanics(t, PrintVersionJSON)
}

func TestVersionConstants(t *testing.T) {
	assert.NotEmpty(t, Version)
	assert.NotEmpty(t, GoVersion)
	assert.True(t, len(GoVersion) > 2 && GoVersion[:2] == "go")
}

func TestInfoStruct(t *testing.T) {
	info := Info{
		Version:   "1.0.0",
		GitCommit: "abc123",
		GitBranch: "main",
		BuildDate: "2025-01-11",
		GoVersion: "go1.23.0",
		Platform:  "linux/amd64",
	}

	assert.Equal(t, "1.0.0", info.Version)
	assert.Equal(t, "abc123", info.GitCommit)
	assert.Equal(t, "main", info.GitBranch)
	assert.Equal(t, "2025-01-11", info.BuildDate)
	assert.Equal(t, "go1.23.0", info.GoVersion)
	assert.Equal(t, "linux/amd64", info.Platform)
}
