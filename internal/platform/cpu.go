package platform

import (
	"strings"

	"golang.org/x/sys/cpu"
)

// CpuFeature is an instruction set extension the generated code may need
// beyond the SSE2 baseline of amd64.
type CpuFeature uint64

const (
	CpuFeatureSSSE3 CpuFeature = 1 << iota
	CpuFeatureSSE41
)

var cpuFeatureNames = []struct {
	f    CpuFeature
	name string
}{
	{CpuFeatureSSSE3, "ssse3"},
	{CpuFeatureSSE41, "sse4.1"},
}

// CpuFeatureFlags is a set of CpuFeature.
type CpuFeatureFlags uint64

// CpuFeatures is the set supported by the host.
var CpuFeatures = hostFeatures()

func hostFeatures() (f CpuFeatureFlags) {
	if cpu.X86.HasSSSE3 {
		f = f.With(CpuFeatureSSSE3)
	}
	if cpu.X86.HasSSE41 {
		f = f.With(CpuFeatureSSE41)
	}
	return f
}

// Has returns true when the set includes feature.
func (f CpuFeatureFlags) Has(feature CpuFeature) bool {
	return uint64(f)&uint64(feature) != 0
}

// With returns the set extended by feature.
func (f CpuFeatureFlags) With(feature CpuFeature) CpuFeatureFlags {
	return f | CpuFeatureFlags(feature)
}

// Raw returns the bits of the set.
func (f CpuFeatureFlags) Raw() uint64 {
	return uint64(f)
}

// String returns the names of the features, comma separated.
func (f CpuFeatureFlags) String() string {
	var names []string
	for _, n := range cpuFeatureNames {
		if f.Has(n.f) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, ",")
}

// ParseCpuFeatures is the reverse of CpuFeatureFlags.String. Unknown names
// are reported with ok set to false.
func ParseCpuFeatures(s string) (f CpuFeatureFlags, ok bool) {
	ok = true
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		found := false
		for _, n := range cpuFeatureNames {
			if n.name == name {
				f, found = f.With(n.f), true
			}
		}
		ok = ok && found
	}
	return f, ok
}
