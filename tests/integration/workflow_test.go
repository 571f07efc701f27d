package integration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/ports"
	"github.com/ersonp/variantdb-core/internal/domain/services"
)

func TestWorkflow_ClassificationLifecycle(t *testing.T) {
	t.Cleanup(func() { cleanupGraph(t) })
	ctx := context.Background()

	alice := createNode(t, []string{entities.LabelUser}, map[string]any{entities.PropUserID: "alice"})
	bob := createNode(t, []string{entities.LabelUser}, map[string]any{entities.PropUserID: "bob"})
	variant := createNode(t, []string{entities.LabelVariant}, map[string]any{entities.PropVariantID: "7:140453136A>T"})

	audit := services.NewAuditService(testRepo, services.DualControl{})
	actions := services.NewActionService(testRepo)
	classification := services.NewClassificationService(testRepo)

	action, err := audit.RecordProposal(ctx, services.Proposal{
		SubjectID:      variant.ID,
		Kind:           entities.KindPathogenicity,
		UserID:         alice.ID,
		Classification: entities.Pathogenic,
	})
	require.NoError(t, err)

	err = audit.RecordAuthorisation(ctx, action.ID, entities.RelAddAuthorisedBy, alice.ID)
	assert.ErrorIs(t, err, entities.ErrStateConflict)

	require.NoError(t, audit.RecordAuthorisation(ctx, action.ID, entities.RelAddAuthorisedBy, bob.ID))

	c, err := classification.Current(ctx, variant.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.Pathogenic, c)

	require.NoError(t, audit.RecordRetraction(ctx, action.ID, bob.ID, "reviewed"))
	err = audit.RecordRetraction(ctx, action.ID, bob.ID, "again")
	assert.ErrorIs(t, err, entities.ErrStateConflict)

	require.NoError(t, audit.RecordAuthorisation(ctx, action.ID, entities.RelRemoveAuthorisedBy, alice.ID))

	status, err := actions.Status(ctx, action.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ActionRetired, status)

	c, err = classification.Current(ctx, variant.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ClassificationNone, c)
}

func TestWorkflow_ConcurrentAppends(t *testing.T) {
	t.Cleanup(func() { cleanupGraph(t) })
	ctx := context.Background()

	alice := createNode(t, []string{entities.LabelUser}, map[string]any{entities.PropUserID: "alice"})
	variant := createNode(t, []string{entities.LabelVariant}, map[string]any{entities.PropVariantID: "1:100A>G"})
	events := services.NewEventService(testRepo, services.DualControl{})

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := events.Append(ctx, variant.ID, entities.LabelVariantEvent, alice.ID, nil)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	for _, err := range failures {
		assert.True(t, errors.Is(err, entities.ErrStateConflict) || errors.Is(err, entities.ErrStoreTransient), err.Error())
	}

	chain, err := events.Chain(ctx, variant.ID)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, entities.EventPendingAuth, chain[0].Status)
}

func TestWorkflow_Stratify(t *testing.T) {
	t.Cleanup(func() { cleanupGraph(t) })
	ctx := context.Background()

	run := createNode(t, []string{entities.LabelRunInfo}, map[string]any{entities.PropAnalysisID: "run-1", entities.PropPanel: "cardiac"})
	createNode(t, []string{entities.LabelRunInfo}, map[string]any{entities.PropAnalysisID: "run-2", entities.PropPanel: "cardiac"})
	panel := createNode(t, []string{entities.LabelVirtualPanel}, map[string]any{entities.PropVirtualPanelName: "cardiac"})
	symbol := createNode(t, []string{entities.LabelSymbol}, map[string]any{entities.PropSymbolID: "MYH7"})
	feature := createNode(t, []string{entities.LabelFeature}, map[string]any{entities.PropFeatureID: "ENST0001"})
	variant := createNode(t, []string{entities.LabelVariant}, map[string]any{entities.PropVariantID: "14:1G>A", entities.PropChromosome: "14"})
	annotation := createNode(t, []string{entities.LabelAnnotation}, nil)

	link := func(from, to entities.Node, relType string) {
		t.Helper()
		err := testRepo.Update(ctx, func(tx ports.GraphTx) error {
			_, err := tx.CreateRelationship(ctx, from.ID, to.ID, relType, nil)
			return err
		})
		require.NoError(t, err)
	}
	link(panel, symbol, entities.RelContainsSymbol)
	link(symbol, feature, entities.RelHasFeature)
	link(variant, annotation, entities.RelHasAnnotation)
	link(annotation, feature, entities.RelInFeature)
	link(run, variant, entities.RelHasHomVariant)

	result, err := services.NewStratificationService(testRepo, services.DefaultStratifyOptions()).Stratify(ctx, "run-1", "cardiac")
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalRuns)
	require.Len(t, result.Variants, 1)
	assert.Equal(t, "14:1G>A", result.Variants[0].VariantID)
	assert.Equal(t, entities.InheritanceHomozygous, result.Variants[0].Inheritance)
	assert.Equal(t, 2, result.Variants[0].Occurrence)
	assert.Equal(t, 0.5, result.Variants[0].InternalFrequency)
}
