package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/autowire"
	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// Config Server would try to reach its default endpoint during a dry run.
var offline = []string{
	"--exclude", string(capability.ConfigServerBase),
	"--exclude", string(capability.ConfigServerCore),
}

func decisionsByRule(t *testing.T, out string) (inspection, map[string]decisionView) {
	t.Helper()
	var result inspection
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	byRule := make(map[string]decisionView)
	for _, d := range result.Decisions {
		byRule[d.Rule] = d
	}
	return result, byRule
}

func TestInspectJSON(t *testing.T) {
	args := append([]string{"inspect", "-o", "json", "--name", "orders"}, offline...)
	out, err := execute(t, args...)
	require.NoError(t, err)

	result, byRule := decisionsByRule(t, out)
	assert.Equal(t, "orders", result.Name)
	assert.Equal(t, "activated", byRule["random-value"].Outcome)
	assert.Equal(t, "activated", byRule["dynamic-logging"].Outcome)
	assert.NotEqual(t, "activated", byRule["config-server"].Outcome)
	assert.Contains(t, result.Excluded, string(capability.ConfigServerBase))

	var tokens []string
	for _, p := range result.Present {
		tokens = append(tokens, p.Token)
	}
	assert.Contains(t, tokens, string(capability.RandomValueBase))
	assert.NotContains(t, tokens, string(capability.ConfigServerBase))
	assert.NotEmpty(t, result.Mutations)
}

func TestInspectHonorsExclusions(t *testing.T) {
	args := append([]string{"inspect", "-o", "json", "--exclude", string(capability.RandomValueBase)}, offline...)
	out, err := execute(t, args...)
	require.NoError(t, err)

	_, byRule := decisionsByRule(t, out)
	assert.Equal(t, "absent", byRule["random-value"].Outcome)
}

func TestInspectWarnsAboutShortExclusions(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"inspect", "-o", "json", "--exclude", "tracing"}, offline...))
	require.NoError(t, cmd.Execute())

	assert.Contains(t, stderr.String(), `"tracing" matches no known capability token`)
	assert.NotContains(t, stderr.String(), string(capability.ConfigServerBase))

	// The report itself stays valid JSON.
	_, byRule := decisionsByRule(t, stdout.String())
	assert.Contains(t, byRule, "random-value")
}

func TestUnknownExclusions(t *testing.T) {
	unknown := unknownExclusions([]string{
		"tracing",
		string(capability.TracingBase),
		"github.com/go-redis/redis/v8",
	})
	assert.Equal(t, []string{"tracing"}, unknown)
}

func TestInspectText(t *testing.T) {
	out, err := execute(t, append([]string{"inspect"}, offline...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "RULE")
	assert.Contains(t, out, "random-value")
	assert.Contains(t, out, "KIND")
}

func TestInspectRejectsUnknownOutput(t *testing.T) {
	_, err := execute(t, "inspect", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output")
}

func TestInvalidFrameworkConfig(t *testing.T) {
	_, err := execute(t, "run", "--log-level", "loud")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, autowire.Version)
}

func TestResolve(t *testing.T) {
	out, err := execute(t, "resolve", string(capability.RandomValueBase))
	require.NoError(t, err)
	assert.Contains(t, out, string(capability.RandomValueBase))

	out, err = execute(t, "resolve", "github.com/example/not-linked")
	require.Error(t, err)
	assert.Contains(t, out, "github.com/example/not-linked")
}
