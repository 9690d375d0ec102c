package buildinfo

import (
	"runtime/debug"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version == "" {
		t.Error("Version should not be empty")
	}
	if info.Commit == "" {
		t.Error("Commit should not be empty")
	}
	if info.BuildTime == "" {
		t.Error("BuildTime should not be empty")
	}
	if info.GoVersion == "" || info.GoVersion == "unknown" {
		t.Errorf("GoVersion = %q, want the toolchain version", info.GoVersion)
	}
}

func TestString(t *testing.T) {
	info := Get()
	expected := info.Version + " (" + info.Commit + ") built at " + info.BuildTime
	if s := String(); s != expected {
		t.Errorf("String() = %q, want %q", s, expected)
	}
}

func fakeBuildInfo(t *testing.T, bi *debug.BuildInfo, ok bool) {
	t.Helper()
	orig := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, ok }
	t.Cleanup(func() { readBuildInfo = orig })
}

func TestGet_FromBuildInfo(t *testing.T) {
	fakeBuildInfo(t, &debug.BuildInfo{
		GoVersion: "go1.24.4",
		Main:      debug.Module{Version: "v0.3.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	}, true)

	want := Info{
		Version:   "v0.3.0",
		Commit:    "abc123",
		BuildTime: "2026-01-02T03:04:05Z",
		GoVersion: "go1.24.4",
	}
	if got := Get(); got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestGet_LdflagsWin(t *testing.T) {
	fakeBuildInfo(t, &debug.BuildInfo{
		Main:     debug.Module{Version: "v0.3.0"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc123"}},
	}, true)

	origVersion, origCommit := Version, Commit
	Version, Commit = "v9.9.9", "feedbeef"
	t.Cleanup(func() { Version, Commit = origVersion, origCommit })

	info := Get()
	if info.Version != "v9.9.9" || info.Commit != "feedbeef" {
		t.Errorf("Get() = %+v, want ldflags values", info)
	}
}

func TestGet_DevelVersionIgnored(t *testing.T) {
	fakeBuildInfo(t, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true)

	if info := Get(); info.Version != "dev" {
		t.Errorf("Version = %q, want dev", info.Version)
	}
}

func TestGet_NoBuildInfo(t *testing.T) {
	fakeBuildInfo(t, nil, false)

	if info := Get(); info.GoVersion == "unknown" {
		t.Error("GoVersion should fall back to the runtime version")
	}
}
