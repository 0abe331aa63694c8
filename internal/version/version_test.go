package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()
	assert.NotEmpty(t, info.Version)
	assert.Contains(t, info.Platform, "/")
	assert.True(t, strings.HasPrefix(info.GoVersion, "go"))
}

func TestGetVersionString(t *testing.T) {
	orig := GitCommit
	defer func() { GitCommit = orig }()

	GitCommit = "unknown"
	assert.Equal(t, "mailrag "+Version, GetVersionString())
	assert.False(t, IsRelease())

	GitCommit = "0123456789abcdef"
	assert.Equal(t, "mailrag "+Version+" (01234567)", GetVersionString())
	assert.True(t, IsRelease())
}

func TestGetDetailedVersionString(t *testing.T) {
	detailed := GetDetailedVersionString()
	for _, field := range []string{"mailrag", "Git commit:", "Build date:", "Go version:", "Platform:"} {
		assert.Contains(t, detailed, field)
	}
}

func TestUserAgent(t *testing.T) {
	assert.Equal(t, "mailrag/"+Version, UserAgent())
}
