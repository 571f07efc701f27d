package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/ports"
	"github.com/ersonp/variantdb-core/internal/infrastructure/parsers"
)

func seedFixture() *parsers.Fixture {
	return &parsers.Fixture{
		Nodes: []parsers.RawNode{
			{Key: "alice", Labels: []string{entities.LabelUser}, Props: map[string]any{entities.PropUserID: "alice"}, LineNum: 1},
			{Key: "run", Labels: []string{entities.LabelRunInfo}, Props: map[string]any{entities.PropAnalysisID: "run-1"}, LineNum: 2},
			{Key: "v1", Labels: []string{entities.LabelVariant}, Props: map[string]any{entities.PropVariantID: "1:100A>G"}, LineNum: 3},
		},
		Relationships: []parsers.RawRelationship{
			{From: "run", To: "v1", Type: entities.RelHasHetVariant, LineNum: 1},
		},
	}
}

func TestImportService_Import(t *testing.T) {
	g := newTestGraph(t)
	service := NewImportService(g.db)

	result, err := service.Import(context.Background(), seedFixture(), ImportOptions{OnConflict: ConflictSkip})
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 3, result.Nodes)
	assert.Equal(t, 1, result.Relationships)
	assert.Equal(t, 0, result.Skipped)
	assert.Len(t, result.IDs, 3)

	err = g.db.View(context.Background(), func(tx ports.GraphTx) error {
		rels, err := tx.Relationships(context.Background(), result.IDs["run"], entities.Outgoing, entities.RelHasHetVariant)
		require.NoError(t, err)
		require.Len(t, rels, 1)
		assert.Equal(t, result.IDs["v1"], rels[0].EndID)
		return nil
	})
	require.NoError(t, err)
}

func TestImportService_Import_DryRun(t *testing.T) {
	g := newTestGraph(t)
	service := NewImportService(g.db)

	result, err := service.Import(context.Background(), seedFixture(), ImportOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Nodes)
	assert.Equal(t, 1, result.Relationships)
	assert.Equal(t, 0, g.db.NodeCount())
	assert.Equal(t, 0, g.db.UpdateCallCount)
}

func TestImportService_Import_Conflicts(t *testing.T) {
	g := newTestGraph(t)
	existing := g.user("alice")
	service := NewImportService(g.db)

	result, err := service.Import(context.Background(), seedFixture(), ImportOptions{OnConflict: ConflictSkip})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Nodes)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, existing, result.IDs["alice"])

	before := g.db.NodeCount()
	_, err = service.Import(context.Background(), seedFixture(), ImportOptions{OnConflict: ConflictFail})
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrStateConflict)
	assert.Equal(t, before, g.db.NodeCount())
}

func TestImportService_Import_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		fixture   *parsers.Fixture
		wantField string
		wantLine  int
	}{
		{
			name:      "missing key",
			fixture:   &parsers.Fixture{Nodes: []parsers.RawNode{{Labels: []string{"Variant"}, LineNum: 1}}},
			wantField: "key",
		},
		{
			name: "duplicate key",
			fixture: &parsers.Fixture{Nodes: []parsers.RawNode{
				{Key: "a", Labels: []string{"Variant"}, LineNum: 1},
				{Key: "a", Labels: []string{"Variant"}, LineNum: 2},
			}},
			wantField: "key",
			wantLine:  2,
		},
		{
			name:      "no labels",
			fixture:   &parsers.Fixture{Nodes: []parsers.RawNode{{Key: "a", LineNum: 1}}},
			wantField: "labels",
		},
		{
			name:      "unsafe label",
			fixture:   &parsers.Fixture{Nodes: []parsers.RawNode{{Key: "a", Labels: []string{"Variant`) DETACH DELETE n"}, LineNum: 1}}},
			wantField: "labels",
		},
		{
			name:      "event node",
			fixture:   &parsers.Fixture{Nodes: []parsers.RawNode{{Key: "a", Labels: []string{entities.LabelVariantEvent}, LineNum: 1}}},
			wantField: "labels",
		},
		{
			name:      "action node",
			fixture:   &parsers.Fixture{Nodes: []parsers.RawNode{{Key: "a", Labels: []string{entities.LabelPathogenicity}, LineNum: 1}}},
			wantField: "labels",
		},
		{
			name: "audit edge",
			fixture: &parsers.Fixture{
				Nodes:         []parsers.RawNode{{Key: "a", Labels: []string{"Variant"}, LineNum: 1}},
				Relationships: []parsers.RawRelationship{{From: "a", To: "a", Type: entities.RelAddedBy, LineNum: 1}},
			},
			wantField: "type",
		},
		{
			name: "chain edge",
			fixture: &parsers.Fixture{
				Nodes:         []parsers.RawNode{{Key: "a", Labels: []string{"Variant"}, LineNum: 1}},
				Relationships: []parsers.RawRelationship{{From: "a", To: "a", Type: entities.RelHasUserEvent, LineNum: 1}},
			},
			wantField: "type",
		},
		{
			name: "unknown endpoint",
			fixture: &parsers.Fixture{
				Nodes:         []parsers.RawNode{{Key: "a", Labels: []string{"Variant"}, LineNum: 1}},
				Relationships: []parsers.RawRelationship{{From: "a", To: "b", Type: entities.RelHasAnnotation, LineNum: 1}},
			},
			wantField: "to",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGraph(t)
			service := NewImportService(g.db)

			result, err := service.Import(context.Background(), tt.fixture, ImportOptions{})
			require.NoError(t, err)
			require.NotEmpty(t, result.Errors)
			assert.Equal(t, tt.wantField, result.Errors[0].Field)
			wantLine := tt.wantLine
			if wantLine == 0 {
				wantLine = 1
			}
			assert.Equal(t, wantLine, result.Errors[0].Line)
			assert.Equal(t, 0, g.db.NodeCount())
		})
	}
}

func TestImportError_Error(t *testing.T) {
	assert.Equal(t, "nodes[3]: bad", ImportError{Line: 3, Section: "nodes", Message: "bad"}.Error())
	assert.Equal(t, "bad", ImportError{Message: "bad"}.Error())
}
