package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildIDStable(t *testing.T) {
	first := BuildID()
	assert.Len(t, first, 16)
	assert.Equal(t, first, BuildID())
}

func TestFullInfo(t *testing.T) {
	info := FullInfo()
	assert.Regexp(t, `^`+Version+` \(commit `, info)
	assert.Contains(t, info, "feature schema 1")
	assert.Contains(t, info, BuildID())
}

func TestReadBuild_VCSStamps(t *testing.T) {
	info := &debug.BuildInfo{
		GoVersion: "go1.24.2",
		Main:      debug.Module{Path: "github.com/standardbeagle/jslibsig"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
			{Key: "GOARCH", Value: "amd64"},
		},
	}

	b := readBuild(info, true)
	assert.Equal(t, "0123456789abcdef0123", b.Commit)
	assert.Equal(t, "2026-10-01T12:00:00Z", b.Date)
	assert.True(t, b.Modified)
	assert.Equal(t, "go1.24.2", b.GoVersion)

	assert.Equal(t, b.ID, readBuild(info, true).ID)

	info.Settings[0].Value = "fedcba"
	assert.NotEqual(t, b.ID, readBuild(info, true).ID)
}

func TestReadBuild_NoBuildInfo(t *testing.T) {
	b := readBuild(nil, false)
	assert.Equal(t, "unknown", b.Commit)
	assert.Equal(t, "development", b.Date)
	assert.Len(t, b.ID, 16)
}
