package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vcf2loc/internal/duckdb"
	"github.com/inodb/vcf2loc/internal/vcf"
)

// setup isolates viper state and the home directory for one test.
func setup(t *testing.T) string {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

// execute runs the command tree and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	viper.Reset()

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), errOut.String(), err
}

func copyTestFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(findTestFile(t, name))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestConvert_Panel(t *testing.T) {
	setup(t)
	input := copyTestFile(t, "panel.vcf")
	output := filepath.Join(t.TempDir(), "panel.loc")

	_, stderr, err := execute(t, "convert", "-i", input, "-o", output)
	require.NoError(t, err)

	assert.Equal(t, readFile(t, findTestFile(t, "panel.loc")), readFile(t, output))
	assert.Contains(t, stderr, "Wrote 4 markers")
}

func TestConvert_PositionalInputAndWorkers(t *testing.T) {
	setup(t)
	input := copyTestFile(t, "panel.vcf")
	output := filepath.Join(t.TempDir(), "panel.loc")

	_, _, err := execute(t, "convert", input, "-o", output, "--workers", "3")
	require.NoError(t, err)
	assert.Equal(t, readFile(t, findTestFile(t, "panel.loc")), readFile(t, output))
}

func TestConvert_MissingAF(t *testing.T) {
	setup(t)
	input := copyTestFile(t, "missing_af.vcf")
	output := filepath.Join(t.TempDir(), "bad.loc")

	_, _, err := execute(t, "convert", "-i", input, "-o", output)
	require.Error(t, err)
	assert.True(t, errors.Is(err, vcf.ErrMalformedRecord))

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "no output should be written on failure")
}

func TestConvert_SkipPolicy(t *testing.T) {
	setup(t)
	input := copyTestFile(t, "missing_af.vcf")
	output := filepath.Join(t.TempDir(), "skip.loc")

	_, stderr, err := execute(t, "convert", "-i", input, "-o", output, "--on-error", "skip")
	require.NoError(t, err)

	assert.Equal(t, "rs1 AUTOSOME 1 1 0.00\nC 0.3\nrs3 AUTOSOME 1 1 0.00\nA 0.2\n", readFile(t, output))
	assert.Contains(t, stderr, "1 malformed records skipped")
}

func TestConvert_MismatchFromEnv(t *testing.T) {
	setup(t)
	input := copyTestFile(t, "mismatch.vcf")
	output := filepath.Join(t.TempDir(), "mismatch.loc")

	_, _, err := execute(t, "convert", "-i", input, "-o", output)
	require.Error(t, err)
	assert.True(t, errors.Is(err, vcf.ErrFieldCountMismatch))

	t.Setenv("VCF2LOC_CONVERT_MISMATCH", "truncate")
	_, _, err = execute(t, "convert", "-i", input, "-o", output)
	require.NoError(t, err)
	assert.Equal(t, "rs1 AUTOSOME 2 chr1 0.00\nC 0.1\nG 0.2\n", readFile(t, output))
}

func TestConvert_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no input", []string{"convert"}},
		{"unknown flag", []string{"convert", "--bogus"}},
		{"bad mismatch policy", []string{"convert", "-i", "x.vcf", "--mismatch", "ignore"}},
		{"bad error policy", []string{"convert", "-i", "x.vcf", "--on-error", "retry"}},
		{"input twice", []string{"convert", "-i", "x.vcf", "y.vcf"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup(t)
			assert.Equal(t, ExitUsage, run(tt.args))
		})
	}
}

func TestConvert_IOFailureExitCode(t *testing.T) {
	setup(t)
	missing := filepath.Join(t.TempDir(), "missing.vcf")
	assert.Equal(t, ExitError, run([]string{"convert", "-i", missing, "-o", filepath.Join(t.TempDir(), "out.loc")}))
}

func TestCatalog_RoundTrip(t *testing.T) {
	setup(t)
	input := copyTestFile(t, "panel.vcf")
	output := filepath.Join(t.TempDir(), "panel.loc")
	catalog := filepath.Join(t.TempDir(), "markers.duckdb")

	_, _, err := execute(t, "convert", "-i", input, "-o", output, "--catalog", catalog)
	require.NoError(t, err)

	store, err := duckdb.Open(catalog)
	require.NoError(t, err)
	runs, err := store.Runs()
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.Len(t, runs, 1)
	runID := runs[0].ID
	assert.Equal(t, 4, runs[0].Stats.Emitted)

	stdout, _, err := execute(t, "catalog", "runs", "--catalog", catalog)
	require.NoError(t, err)
	assert.Contains(t, stdout, runID)

	stdout, _, err = execute(t, "catalog", "markers", "--catalog", catalog, runID)
	require.NoError(t, err)
	assert.Equal(t, readFile(t, output), stdout)

	stdout, _, err = execute(t, "catalog", "lookup", "--catalog", catalog, "2_45895")
	require.NoError(t, err)
	assert.Equal(t, "# run "+runID+"\n2_45895 AUTOSOME 1 2 0.00\nC 0.5\n", stdout)

	_, _, err = execute(t, "catalog", "lookup", "--catalog", catalog, "rs404")
	assert.Error(t, err)
}

func TestCatalog_FailedRunNotRecorded(t *testing.T) {
	setup(t)
	input := copyTestFile(t, "missing_af.vcf")
	catalog := filepath.Join(t.TempDir(), "markers.duckdb")

	_, _, err := execute(t, "convert", "-i", input, "-o", filepath.Join(t.TempDir(), "bad.loc"), "--catalog", catalog)
	require.Error(t, err)

	stdout, _, err := execute(t, "catalog", "runs", "--catalog", catalog)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(stdout, "\n"), "only the header row expected")
}

func TestCatalog_RequiresPath(t *testing.T) {
	setup(t)
	assert.Equal(t, ExitUsage, run([]string{"catalog", "runs"}))
}

func TestConfig_SetGet(t *testing.T) {
	home := setup(t)

	stdout, _, err := execute(t, "config", "set", "convert.workers", "4")
	require.NoError(t, err)
	assert.Contains(t, stdout, filepath.Join(home, configName))

	stdout, _, err = execute(t, "config", "get", "convert.workers")
	require.NoError(t, err)
	assert.Equal(t, "4\n", stdout)

	stdout, _, err = execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, stdout, "workers: 4")

	_, _, err = execute(t, "config", "get", "no.such.key")
	assert.Error(t, err)
}

func TestConfig_SetWritesOnlyFileKeys(t *testing.T) {
	home := setup(t)
	cfg := filepath.Join(home, configName)
	require.NoError(t, os.WriteFile(cfg, []byte("convert:\n  on_error: skip\n"), 0o644))

	t.Setenv("VCF2LOC_CONVERT_MISMATCH", "truncate")
	_, _, err := execute(t, "config", "set", "catalog.path", "/tmp/x.duckdb")
	require.NoError(t, err)

	written := readFile(t, cfg)
	assert.Contains(t, written, "on_error: skip")
	assert.Contains(t, written, "path: /tmp/x.duckdb")
	assert.NotContains(t, written, "mismatch")
	assert.NotContains(t, written, "workers")
	assert.NotContains(t, written, "output.loc")
	assert.NotContains(t, written, "level")
}

func TestConfig_SetRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"convert.workers", "many"},
		{"convert.workers", "0"},
		{"convert.mismatch", "ignore"},
		{"convert.on_error", "retry"},
		{"log.level", "loud"},
		{"log.verbose", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			home := setup(t)
			assert.Equal(t, ExitUsage, run([]string{"config", "set", tt.key, tt.value}))

			_, err := os.Stat(filepath.Join(home, configName))
			assert.True(t, os.IsNotExist(err), "invalid value must not create the config file")
		})
	}
}

func TestConfig_FileDrivesConvert(t *testing.T) {
	setup(t)
	input := copyTestFile(t, "missing_af.vcf")
	output := filepath.Join(t.TempDir(), "skip.loc")
	cfg := filepath.Join(t.TempDir(), "vcf2loc.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("convert:\n  on_error: skip\n"), 0o644))

	_, _, err := execute(t, "--config", cfg, "convert", "-i", input, "-o", output)
	require.NoError(t, err)
	assert.Equal(t, "rs1 AUTOSOME 1 1 0.00\nC 0.3\nrs3 AUTOSOME 1 1 0.00\nA 0.2\n", readFile(t, output))
}

func TestVersion(t *testing.T) {
	setup(t)
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "vcf2loc version dev (none) built unknown\n", stdout)
}

// findTestFile locates a test file in the testdata directory.
func findTestFile(t *testing.T, name string) string {
	t.Helper()

	paths := []string{
		filepath.Join("testdata", name),
		filepath.Join("..", "..", "testdata", name),
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	t.Fatalf("Test file not found: %s", name)
	return ""
}
