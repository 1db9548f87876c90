package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromBuildInfo(t *testing.T) {
	tests := []struct {
		name     string
		info     debug.BuildInfo
		expected string
	}{
		{
			name:     "dependency",
			info:     debug.BuildInfo{Deps: []*debug.Module{{Path: "golang.org/x/sys", Version: "v0.18.0"}, {Path: modulePath, Version: "v1.2.3"}}},
			expected: "v1.2.3",
		},
		{
			name:     "main module",
			info:     debug.BuildInfo{Main: debug.Module{Path: modulePath, Version: "v0.1.0"}},
			expected: "v0.1.0",
		},
		{
			name:     "devel",
			info:     debug.BuildInfo{Main: debug.Module{Path: modulePath, Version: "(devel)"}},
			expected: Default,
		},
		{
			name:     "other main module",
			info:     debug.BuildInfo{Main: debug.Module{Path: "example.com/rasterizer", Version: "v2.0.0"}},
			expected: Default,
		},
	}

	for _, tt := range tests {
		tc := tt

		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, fromBuildInfo(&tc.info))
		})
	}
}

func TestGetPxjitVersion(t *testing.T) {
	defer func() { version = "" }()

	version = "v9.9.9"
	require.Equal(t, "v9.9.9", GetPxjitVersion())

	version = ""
	require.NotEmpty(t, GetPxjitVersion())
}
