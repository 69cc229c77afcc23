package runtimeconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	got, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Defaults(), got); diff != "" {
		t.Fatalf("limits mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FileOverridesOnlySetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.json")
	if err := os.WriteFile(path, []byte(`{"maxIterations": 5, "costCapUsd": 1.25}`), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := Defaults()
	want.MaxIterations = 5
	want.CostCapUSD = 1.25
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("limits mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("malformed config file must error")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CONTENTSCOUT_MODEL", "gpt-4o")
	t.Setenv("CONTENTSCOUT_MAX_ITERATIONS", "7")
	t.Setenv("CONTENTSCOUT_COST_CAP_USD", "0.50")
	t.Setenv("CONTENTSCOUT_MAX_POSTS", "not-a-number")

	got := FromEnv(Defaults())
	if got.Model != "gpt-4o" || got.MaxIterations != 7 || got.CostCapUSD != 0.50 {
		t.Fatalf("env overrides not applied: %+v", got)
	}
	if got.MaxPostsPerScrape != Defaults().MaxPostsPerScrape {
		t.Fatalf("unparseable env value must keep previous setting, got %d", got.MaxPostsPerScrape)
	}
}

func TestTimeoutAccessors(t *testing.T) {
	limits := Defaults()
	if limits.FeedProbeTimeout().Seconds() != 8 {
		t.Fatalf("feed timeout = %v", limits.FeedProbeTimeout())
	}
	if limits.PageFetchTimeout().Seconds() != 12 {
		t.Fatalf("page timeout = %v", limits.PageFetchTimeout())
	}
}
