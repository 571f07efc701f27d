package main

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/services"
)

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("authorising: %w", entities.ErrStateConflict), "conflict: authorising: state conflict"},
		{entities.ErrNotFound, "not found: not found"},
		{entities.ErrStoreTransient, "please retry: store transient failure"},
		{entities.ErrInternalInconsistency, "data inconsistency, contact an administrator: internal inconsistency"},
		{entities.ErrInvalidInput, "invalid input: invalid input"},
		{errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, describeError(tt.err))
		})
	}
}

func TestParseParams(t *testing.T) {
	p, err := parseParams([]string{"variant=1:100A>G", " user =alice", "props={\"a\":\"b=c\"}"})
	require.NoError(t, err)
	assert.Equal(t, "1:100A>G", p["variant"])
	assert.Equal(t, "alice", p["user"])
	assert.Equal(t, `{"a":"b=c"}`, p["props"])

	_, err = parseParams([]string{"=x"})
	assert.Error(t, err)
}

func TestMetricsPath(t *testing.T) {
	assert.Equal(t, "", metricsPath("/base", ""))
	assert.Equal(t, "/var/lib/node_exporter/vardb.prom", metricsPath("/base", "/var/lib/node_exporter/vardb.prom"))
	assert.Equal(t, "/base/.vardb/metrics.prom", metricsPath("/base", ".vardb/metrics.prom"))
}

func TestFormatStratification(t *testing.T) {
	var buf bytes.Buffer
	err := formatStratification(&buf, &entities.Stratification{
		RunID:     "run-1",
		Panel:     "cardiac",
		TotalRuns: 4,
		Variants: []entities.VariantRecord{{
			VariantID:         "1:100A>G",
			Symbols:           []string{"MYH7", "TNNT2"},
			Inheritance:       "HOM",
			Classification:    entities.LikelyPathogenic,
			Filter:            entities.BucketLikelyPathogenic,
			Occurrence:        2,
			InternalFrequency: 0.5,
		}},
		Counts: []entities.BucketCount{{Bucket: entities.BucketLikelyPathogenic, Count: 1}},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Run run-1, panel cardiac, 4 runs")
	assert.Contains(t, out, "MYH7,TNNT2")
	assert.Contains(t, out, "Likely Pathogenic")
	assert.Contains(t, out, "0.50")
}

func TestFormatStratification_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatStratification(&buf, &entities.Stratification{RunID: "run-1", Panel: "cardiac"}))
	assert.Contains(t, buf.String(), "No panel variants in this run.")
}

func TestFormatActions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatActions(&buf, nil))
	assert.Equal(t, "No actions found.\n", buf.String())

	buf.Reset()
	require.NoError(t, formatActions(&buf, []entities.ActionRecord{{
		ID:     "a1",
		Kind:   "panel-membership",
		Status: entities.ActionPendingApproval,
		Audit:  []entities.AuditStamp{{Type: entities.RelAddedBy, UserID: "alice", Date: 1709283600000}},
	}}))
	assert.Contains(t, buf.String(), "2024-03-01T09:00:00Z")
	assert.Contains(t, buf.String(), "ADDED_BY:alice")
}

func TestFormatPending(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatPending(&buf, &services.PendingReport{
		Events: []entities.EventRecord{{
			ID:        "e1",
			Label:     entities.LabelVariantEvent,
			SubjectID: "v1",
			Status:    entities.EventPendingAuth,
			Audit:     []entities.AuditStamp{{Type: entities.RelAddedBy, UserID: "bob"}},
		}},
	}))
	assert.Contains(t, buf.String(), "VariantEvent")
	assert.Contains(t, buf.String(), "bob")
}

func TestValidateOutput(t *testing.T) {
	assert.NoError(t, validateOutput("table"))
	assert.NoError(t, validateOutput("json"))
	assert.Error(t, validateOutput("yaml"))
}
