package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.Execute()
}

// swapGenerateRunner installs a stub runner and restores the real one when
// the test finishes. Tests using it must not run in parallel.
func swapGenerateRunner(t *testing.T, fn func(context.Context, *GenerateConfig) error) {
	t.Helper()
	orig := generateRunner
	generateRunner = fn
	t.Cleanup(func() { generateRunner = orig })
}

func TestGenerate_FlagsPopulateConfig(t *testing.T) {
	var got *GenerateConfig
	swapGenerateRunner(t, func(ctx context.Context, cfg *GenerateConfig) error {
		got = cfg
		return nil
	})

	err := runCLI(t,
		"--verbose",
		"generate",
		"--input", "swagger.json",
		"--out", "./client",
		"--client-name", "PetClient",
		"--package-name", "petstore",
		"--include-resources", "pet,store",
		"--exclude-resources", "internal",
		"--dry-run",
		"--force",
	)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got == nil {
		t.Fatalf("runner not invoked")
	}
	if got.Input != "swagger.json" || got.Out != "./client" {
		t.Fatalf("input/out: got %q / %q", got.Input, got.Out)
	}
	if got.ClientName != "PetClient" || got.PackageName != "petstore" {
		t.Fatalf("names: got %q / %q", got.ClientName, got.PackageName)
	}
	if !reflect.DeepEqual(got.IncludeResources, []string{"pet", "store"}) {
		t.Fatalf("include: got %v", got.IncludeResources)
	}
	if !reflect.DeepEqual(got.ExcludeResources, []string{"internal"}) {
		t.Fatalf("exclude: got %v", got.ExcludeResources)
	}
	if !got.DryRun || !got.Force || !got.Verbose {
		t.Fatalf("bools: %+v", got)
	}
}

func TestGenerate_RequiresInput(t *testing.T) {
	swapGenerateRunner(t, func(ctx context.Context, cfg *GenerateConfig) error {
		t.Fatalf("runner must not run without --input")
		return nil
	})
	err := runCLI(t, "generate")
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestGenerate_IncludeExcludeOverlap(t *testing.T) {
	swapGenerateRunner(t, func(ctx context.Context, cfg *GenerateConfig) error {
		t.Fatalf("runner must not run on overlap")
		return nil
	})
	err := runCLI(t, "generate",
		"--input", "swagger.json",
		"--include-resources", "pet",
		"--exclude-resources", "pet")
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "overlap") {
		t.Fatalf("error: got %v", err)
	}
}

func TestGenerate_UnknownFlag(t *testing.T) {
	err := runCLI(t, "generate", "--nope")
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestGenerate_ConfigFileMergesAndFlagsWin(t *testing.T) {
	var got *GenerateConfig
	swapGenerateRunner(t, func(ctx context.Context, cfg *GenerateConfig) error {
		got = cfg
		return nil
	})

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := strings.TrimSpace(`
input: from-config.yaml
out: ./from-config
clientName: ConfigClient
include-resources: [pet, store]
dry_run: "yes"
`) + "\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	err := runCLI(t, "--config", cfgPath, "generate", "--input", "from-flag.yaml")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got.Input != "from-flag.yaml" {
		t.Fatalf("flag should override config input: got %q", got.Input)
	}
	if got.Out != "./from-config" || got.ClientName != "ConfigClient" {
		t.Fatalf("config values lost: %+v", got)
	}
	if !reflect.DeepEqual(got.IncludeResources, []string{"pet", "store"}) {
		t.Fatalf("include: got %v", got.IncludeResources)
	}
	if !got.DryRun {
		t.Fatalf("string boolean not parsed")
	}
	if got.ConfigPath != cfgPath {
		t.Fatalf("config path: got %q", got.ConfigPath)
	}
}

func TestGenerate_UnknownConfigKey(t *testing.T) {
	swapGenerateRunner(t, func(ctx context.Context, cfg *GenerateConfig) error {
		t.Fatalf("runner must not run on bad config")
		return nil
	})

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("inptu: typo.yaml\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	err := runCLI(t, "--config", cfgPath, "generate", "--input", "x.yaml")
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("error: got %v", err)
	}
}

func TestGenerate_MissingConfigFile(t *testing.T) {
	err := runCLI(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "generate", "--input", "x.yaml")
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestDerivePackageName(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"Pet Store":            "pet_store",
		"Orders API: v2.1":     "orders_api_v2_1",
		"  spaced   out  ":     "spaced_out",
		"":                     "",
		"weird/slash-and.dots": "weird_slash_and_dots",
	}
	for in, want := range cases {
		if got := derivePackageName(in); got != want {
			t.Errorf("derivePackageName(%q): want %q got %q", in, want, got)
		}
	}
}

func TestSanitizeList(t *testing.T) {
	t.Parallel()
	got := sanitizeList([]string{" pet ", "", "store", "pet"})
	if !reflect.DeepEqual(got, []string{"pet", "store"}) {
		t.Fatalf("got %v", got)
	}
	if sanitizeList(nil) != nil {
		t.Fatalf("nil input should stay nil")
	}
	if sanitizeList([]string{" ", ""}) != nil {
		t.Fatalf("all-blank input should collapse to nil")
	}
}
