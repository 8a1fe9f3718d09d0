package version

import (
	"runtime/debug"
	"testing"
)

func TestFromBuildInfo(t *testing.T) {
	t.Parallel()

	var info Info
	fromBuildInfo(&info, &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Main:      debug.Module{Version: "v0.3.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.modified", Value: "true"},
		},
	})
	if info.Version != "v0.3.1" || info.Commit != "0123456789ab" || !info.Modified || info.GoVersion != "go1.26.0" {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestFromBuildInfoKeepsLdflags(t *testing.T) {
	t.Parallel()

	info := Info{Version: "v1.0.0", Commit: "abc"}
	fromBuildInfo(&info, &debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "fff"}},
	})
	if info.Version != "v1.0.0" || info.Commit != "abc" {
		t.Fatalf("ldflags values overwritten: %+v", info)
	}
}

func TestResolveNeverEmpty(t *testing.T) {
	t.Parallel()

	if Resolve().Version == "" {
		t.Fatal("Resolve returned an empty version")
	}
	if String() == "" {
		t.Fatal("String returned an empty version")
	}
}
