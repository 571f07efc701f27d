package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
)

func TestClassificationService_Current(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()
	alice, bob := g.user("alice"), g.user("bob")
	variant := g.variant("1:100A>G", nil)
	audit := NewAuditService(g.db, DualControl{})
	classifications := NewClassificationService(g.db)

	current := func() entities.Classification {
		t.Helper()
		c, err := classifications.Current(ctx, variant)
		require.NoError(t, err)
		return c
	}

	assert.Equal(t, entities.ClassificationNone, current())

	pending, err := audit.RecordProposal(ctx, Proposal{SubjectID: variant, Kind: entities.KindPathogenicity, UserID: alice, Classification: entities.LikelyPathogenic})
	require.NoError(t, err)
	assert.Equal(t, entities.ClassificationNone, current(), "unauthorised proposal has no effect")

	require.NoError(t, audit.RecordAuthorisation(ctx, pending.ID, entities.RelAddAuthorisedBy, bob))
	assert.Equal(t, entities.LikelyPathogenic, current())

	require.NoError(t, audit.RecordRetraction(ctx, pending.ID, alice, "reclassified"))
	assert.Equal(t, entities.LikelyPathogenic, current(), "pending retraction keeps the value")

	require.NoError(t, audit.RecordAuthorisation(ctx, pending.ID, entities.RelRemoveAuthorisedBy, bob))
	assert.Equal(t, entities.ClassificationNone, current())
}

func TestClassificationService_LatestAuthorisedWins(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()
	alice, bob := g.user("alice"), g.user("bob")
	variant := g.variant("1:100A>G", nil)
	audit := NewAuditService(g.db, DualControl{})

	g.classify(audit, variant, alice, bob, entities.UnknownSignificance)
	g.classify(audit, variant, bob, alice, entities.Benign)

	c, err := NewClassificationService(g.db).Current(ctx, variant)
	require.NoError(t, err)
	assert.Equal(t, entities.Benign, c)
}

func TestClassificationService_PendingRetractionStopsWalk(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()
	alice, bob := g.user("alice"), g.user("bob")
	variant := g.variant("1:100A>G", nil)
	audit := NewAuditService(g.db, DualControl{})

	first := g.classify(audit, variant, alice, bob, entities.Pathogenic)
	require.NoError(t, audit.RecordRetraction(ctx, first, bob, ""))
	g.classify(audit, variant, alice, bob, entities.Benign)

	c, err := NewClassificationService(g.db).Current(ctx, variant)
	require.NoError(t, err)
	assert.Equal(t, entities.Pathogenic, c)
}

func TestClassificationService_OrdersByProposalDate(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()
	alice, bob := g.user("alice"), g.user("bob")
	variant := g.variant("1:100A>G", nil)

	// Stored newest first; the walk must still apply them oldest first.
	newer := g.node([]string{entities.LabelPathogenicity}, nil)
	older := g.node([]string{entities.LabelPathogenicity}, nil)
	g.rel(variant, newer, entities.RelHasPathogenicity, nil)
	g.rel(variant, older, entities.RelHasPathogenicity, nil)
	g.rel(newer, alice, entities.RelAddedBy, map[string]any{entities.PropDate: int64(200), entities.PropClassification: int64(2)})
	g.rel(newer, bob, entities.RelAddAuthorisedBy, map[string]any{entities.PropDate: int64(201)})
	g.rel(older, alice, entities.RelAddedBy, map[string]any{entities.PropDate: int64(100), entities.PropClassification: int64(5)})
	g.rel(older, bob, entities.RelAddAuthorisedBy, map[string]any{entities.PropDate: int64(101)})

	c, err := NewClassificationService(g.db).Current(ctx, variant)
	require.NoError(t, err)
	assert.Equal(t, entities.LikelyBenign, c)
}

func TestClassificationService_Errors(t *testing.T) {
	t.Run("not a variant", func(t *testing.T) {
		g := newTestGraph(t)
		alice := g.user("alice")
		_, err := NewClassificationService(g.db).Current(context.Background(), alice)
		assert.ErrorIs(t, err, entities.ErrInvalidInput)
	})

	t.Run("missing variant", func(t *testing.T) {
		g := newTestGraph(t)
		_, err := NewClassificationService(g.db).Current(context.Background(), "missing")
		assert.ErrorIs(t, err, entities.ErrNotFound)
	})

	t.Run("authorised action without classification", func(t *testing.T) {
		g := newTestGraph(t)
		alice, bob := g.user("alice"), g.user("bob")
		variant := g.variant("1:100A>G", nil)
		action := g.node([]string{entities.LabelPathogenicity}, nil)
		g.rel(variant, action, entities.RelHasPathogenicity, nil)
		g.rel(action, alice, entities.RelAddedBy, map[string]any{entities.PropDate: int64(1)})
		g.rel(action, bob, entities.RelAddAuthorisedBy, map[string]any{entities.PropDate: int64(2)})

		_, err := NewClassificationService(g.db).Current(context.Background(), variant)
		assert.ErrorIs(t, err, entities.ErrInternalInconsistency)
	})

	t.Run("classification out of range", func(t *testing.T) {
		g := newTestGraph(t)
		alice, bob := g.user("alice"), g.user("bob")
		variant := g.variant("1:100A>G", nil)
		action := g.node([]string{entities.LabelPathogenicity}, nil)
		g.rel(variant, action, entities.RelHasPathogenicity, nil)
		g.rel(action, alice, entities.RelAddedBy, map[string]any{entities.PropDate: int64(1), entities.PropClassification: int64(9)})
		g.rel(action, bob, entities.RelAddAuthorisedBy, map[string]any{entities.PropDate: int64(2)})

		_, err := NewClassificationService(g.db).Current(context.Background(), variant)
		assert.ErrorIs(t, err, entities.ErrInternalInconsistency)
	})
}
