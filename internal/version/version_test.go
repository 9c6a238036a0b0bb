package version

import (
	"runtime/debug"
	"testing"
)

func TestFromBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Main:      debug.Module{Version: "v0.3.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
		},
	}

	var info Info
	fromBuildInfo(&info, bi)
	if info.Version != "v0.3.1" || info.Commit != "0123456789abcdef0123" || info.BuildTime != "2026-10-01T12:00:00Z" {
		t.Fatalf("unexpected info %+v", info)
	}

	pinned := Info{Version: "v1.0.0", Commit: "abc"}
	fromBuildInfo(&pinned, bi)
	if pinned.Version != "v1.0.0" || pinned.Commit != "abc" {
		t.Fatalf("ldflags values were overwritten: %+v", pinned)
	}
}

func TestFromBuildInfoDevel(t *testing.T) {
	var info Info
	fromBuildInfo(&info, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	if info.Version != "" {
		t.Fatalf("devel build should leave version empty, got %q", info.Version)
	}
}

func TestResolveNeverEmpty(t *testing.T) {
	if Resolve().Version == "" {
		t.Fatal("empty version")
	}
}

func TestShortCommit(t *testing.T) {
	if got := shortCommit("0123456789abcdef"); got != "0123456789ab" {
		t.Fatalf("shortCommit = %q", got)
	}
	if got := shortCommit("abc"); got != "abc" {
		t.Fatalf("shortCommit = %q", got)
	}
}
