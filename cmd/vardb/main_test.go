package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliFixture = `
nodes:
  - key: alice
    labels: [User]
    props: {userId: alice}
  - key: bob
    labels: [User]
    props: {userId: bob}
  - key: run
    labels: [RunInfo]
    props: {analysisId: run-1, panel: cardiac}
  - key: panel
    labels: [VirtualPanel]
    props: {virtualPanelName: cardiac}
  - key: symbol
    labels: [Symbol]
    props: {symbolId: MYH7}
  - key: feature
    labels: [Feature]
    props: {featureId: ENST0001}
  - key: variant
    labels: [Variant]
    props: {variantId: "14:23900000G>A", chromosome: "14", exacEas: 0.002}
  - key: annotation
    labels: [Annotation]
relationships:
  - {from: panel, to: symbol, type: CONTAINS_SYMBOL}
  - {from: symbol, to: feature, type: HAS_FEATURE}
  - {from: variant, to: annotation, type: HAS_ANNOTATION}
  - {from: annotation, to: feature, type: IN_FEATURE}
  - {from: run, to: variant, type: HAS_HET_VARIANT}
`

type cli struct {
	t   *testing.T
	dir string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("VARDB_GRAPH_BACKEND", "")
	t.Setenv("VARDB_LOG_MODE", "")
	t.Setenv("VARDB_ALLOW_SELF_AUTHORISATION", "")
	return &cli{t: t, dir: t.TempDir()}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), append([]string{"--dir", c.dir}, args...), &stdout, &stderr)
	return stdout.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, "vardb %s", strings.Join(args, " "))
	return out
}

func (c *cli) mustRunJSON(v any, args ...string) {
	c.t.Helper()
	out := c.mustRun(append(args, "-o", "json")...)
	require.NoError(c.t, json.Unmarshal([]byte(out), v), out)
}

func (c *cli) seed() {
	c.t.Helper()
	c.mustRun("init")
	path := filepath.Join(c.dir, "seed.yaml")
	require.NoError(c.t, os.WriteFile(path, []byte(cliFixture), 0644))
	c.mustRun("import", path)
}

func TestCLI_ClassificationWorkflow(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("init")
	assert.Contains(t, out, "vardb initialized successfully!")
	assert.Contains(t, out, "Graph backend: sqlite")

	path := filepath.Join(c.dir, "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cliFixture), 0644))
	out = c.mustRun("import", path)
	assert.Contains(t, out, "Imported: 8 nodes, 5 relationships")

	var proposed struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	c.mustRunJSON(&proposed, "action", "propose", "pathogenicity", "14:23900000G>A", "-u", "alice", "-c", "5", "-e", "PS1")
	assert.Equal(t, "PendingApproval", proposed.Status)

	_, err := c.run("action", "authorise", proposed.ID, "-u", "alice")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(describeError(err), "conflict:"), describeError(err))

	out = c.mustRun("action", "authorise", proposed.ID, "-u", "bob")
	assert.Equal(t, "Authorised "+proposed.ID+": Active\n", out)

	out = c.mustRun("classification", "14:23900000G>A")
	assert.Equal(t, "14:23900000G>A: Pathogenic (5)\n", out)

	out = c.mustRun("action", "history", "pathogenicity", "14:23900000G>A")
	assert.Contains(t, out, "ADDED_BY:alice ADD_AUTHORISED_BY:bob")

	out = c.mustRun("stratify", "--run", "run-1", "--panel", "cardiac")
	assert.Contains(t, out, "Run run-1, panel cardiac, 1 runs")
	assert.Contains(t, out, "14:23900000G>A")
	assert.Contains(t, out, "Pathogenic")

	out = c.mustRun("workflows", "run", "classification.current", "-p", "variant=14:23900000G>A")
	assert.Contains(t, out, `"classification": 5`)
}

func TestCLI_EventWorkflow(t *testing.T) {
	c := newCLI(t)
	c.seed()

	var appended struct {
		ID string `json:"id"`
	}
	c.mustRunJSON(&appended, "event", "append", "Variant", "14:23900000G>A", "-u", "alice", "--props", `{"comment":"low depth"}`)

	var report struct {
		Actions []any `json:"actions"`
		Events  []struct {
			ID string `json:"id"`
		} `json:"events"`
	}
	c.mustRunJSON(&report, "pending")
	require.Len(t, report.Events, 1)
	assert.Equal(t, appended.ID, report.Events[0].ID)
	assert.Empty(t, report.Actions)

	_, err := c.run("event", "append", "Variant", "14:23900000G>A", "-u", "bob")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(describeError(err), "conflict:"))

	out := c.mustRun("event", "reject", appended.ID, "-u", "bob")
	assert.Equal(t, "Event "+appended.ID+": Rejected\n", out)

	out = c.mustRun("event", "subject", appended.ID)
	assert.Contains(t, out, "Variant 14:23900000G>A")

	out = c.mustRun("event", "chain", "Variant", "14:23900000G>A")
	assert.Contains(t, out, "Rejected")
	assert.Contains(t, out, "REJECTED_BY:bob")

	out = c.mustRun("pending")
	assert.Equal(t, "Nothing awaiting authorisation.\n", out)
}

func TestCLI_Users(t *testing.T) {
	c := newCLI(t)
	c.seed()

	out := c.mustRun("users", "add", "carol", "--name", "Carol Jones")
	assert.Contains(t, out, "Registered user carol")

	_, err := c.run("users", "add", "carol")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(describeError(err), "conflict:"))
}

func TestCLI_Errors(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("pending")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vardb init")

	c.seed()

	_, err = c.run("classification", "9:1A>T")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(describeError(err), "not found:"))

	_, err = c.run("pending", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --output")

	_, err = c.run("import", filepath.Join(c.dir, "seed.yaml"), "--on-conflict", "overwrite")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --on-conflict")

	_, err = c.run("init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already initialized")

	_, err = c.run("workflows", "run", "pending.list", "-p", "noequals")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected key=value")
}

func TestCLI_WorkflowsList(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("workflows", "list")
	assert.Contains(t, out, "actions.propose")
	assert.Contains(t, out, "kind subject user [classification] [evidence] [props]")
	assert.Contains(t, out, "variants.stratify")

	var list []struct {
		Name string `json:"name"`
	}
	c.mustRunJSON(&list, "workflows", "list")
	assert.Len(t, list, 14)
}

func TestCLI_InitUnknownBackend(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("init", "--backend", "postgres")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(describeError(err), "invalid input:"), describeError(err))

	_, statErr := os.Stat(filepath.Join(c.dir, ".vardb", "config.yaml"))
	assert.True(t, os.IsNotExist(statErr))
}
