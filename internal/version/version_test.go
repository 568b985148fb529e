package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withVersion temporarily overrides the build variables.
func withVersion(t *testing.T, v, commit string) {
	t.Helper()
	origVersion, origCommit := Version, GitCommit
	Version, GitCommit = v, commit
	t.Cleanup(func() { Version, GitCommit = origVersion, origCommit })
}

func TestGetInfo(t *testing.T) {
	withVersion(t, "1.2.3", "unknown")

	info, err := GetInfo()
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, uint64(1), info.SemVer.Major())
	assert.Contains(t, info.Platform, "/")
	assert.True(t, strings.HasPrefix(info.GoVersion, "go"))
}

func TestGetInfo_InvalidVersion(t *testing.T) {
	withVersion(t, "not-a-version", "unknown")

	_, err := GetInfo()
	assert.Error(t, err)
	assert.Equal(t, "gemchat vnot-a-version", GetFormattedVersion())
}

func TestGetBaseVersion(t *testing.T) {
	tests := []struct {
		version  string
		expected string
	}{
		{version: "0.1.0", expected: "0.1.0"},
		{version: "0.2.0+15.abc1234", expected: "0.2.0"},
		{version: "1.0.0-rc.1", expected: "1.0.0"},
		{version: "garbage", expected: "garbage"},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			withVersion(t, tt.version, "unknown")
			assert.Equal(t, tt.expected, GetBaseVersion())
		})
	}
}

func TestGetFormattedVersion(t *testing.T) {
	withVersion(t, "0.3.1", "abcdef1234567")
	assert.Equal(t, "gemchat v0.3.1 (abcdef1)", GetFormattedVersion())

	withVersion(t, "0.3.1", "unknown")
	assert.Equal(t, "gemchat v0.3.1", GetFormattedVersion())

	detailed := GetDetailedVersion()
	assert.Contains(t, detailed, "Build Date:")
	assert.Contains(t, detailed, "Platform:")
}

func TestSatisfies(t *testing.T) {
	withVersion(t, "0.4.2", "unknown")

	ok, err := Satisfies(">= 0.4")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Satisfies("^1.0")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Satisfies("not a constraint !!")
	assert.Error(t, err)
}

func TestUserAgent(t *testing.T) {
	withVersion(t, "0.2.0+7.deadbee", "unknown")
	assert.Equal(t, "gemchat/0.2.0", UserAgent())
}
