package handlers

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/mocks"
	"github.com/ersonp/variantdb-core/internal/domain/services"
	"github.com/ersonp/variantdb-core/internal/infrastructure/parsers"
)

// recordingObserver keeps every event it sees.
type recordingObserver struct {
	mu      sync.Mutex
	events  []UseCaseEvent
	retries []string
}

func (o *recordingObserver) ObserveUseCase(_ context.Context, event UseCaseEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) ObserveRetry(_ context.Context, name string, _ int, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries = append(o.retries, name)
}

func (o *recordingObserver) last() UseCaseEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.events[len(o.events)-1]
}

type testApp struct {
	db             *mocks.GraphDB
	obs            *recordingObserver
	actions        *ActionHandler
	events         *EventHandler
	classification *ClassificationHandler
	stratify       *StratifyHandler
	pending        *PendingHandler
	users          *UserHandler
	imports        *ImportHandler
	workflows      *Workflows
	ids            map[string]string
}

func newTestApp(t *testing.T, dual services.DualControl) *testApp {
	t.Helper()
	db := mocks.NewGraphDB()
	obs := &recordingObserver{}
	runner := NewRunner(RetryPolicy{MaxAttempts: 3}, obs)
	lookup := services.NewLookupService(db)

	app := &testApp{
		db:             db,
		obs:            obs,
		actions:        NewActionHandler(runner, lookup, services.NewAuditService(db, dual), services.NewActionService(db)),
		events:         NewEventHandler(runner, lookup, services.NewEventService(db, dual)),
		classification: NewClassificationHandler(runner, lookup, services.NewClassificationService(db)),
		stratify:       NewStratifyHandler(runner, services.NewStratificationService(db, services.DefaultStratifyOptions())),
		pending:        NewPendingHandler(runner, services.NewPendingService(db)),
		users:          NewUserHandler(runner, lookup),
		imports:        NewImportHandler(runner, services.NewImportService(db)),
	}
	app.workflows = NewWorkflows(WorkflowHandlers{
		Actions:        app.actions,
		Events:         app.events,
		Classification: app.classification,
		Stratify:       app.stratify,
		Pending:        app.pending,
	})

	result, err := services.NewImportService(db).Import(context.Background(), seedFixture(), services.ImportOptions{OnConflict: services.ConflictFail})
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	app.ids = result.IDs
	return app
}

// seedFixture is one run analysed with the cardiac panel and one variant in MYH7.
func seedFixture() *parsers.Fixture {
	return &parsers.Fixture{
		Nodes: []parsers.RawNode{
			{Key: "alice", Labels: []string{entities.LabelUser}, Props: map[string]any{entities.PropUserID: "alice"}},
			{Key: "bob", Labels: []string{entities.LabelUser}, Props: map[string]any{entities.PropUserID: "bob"}},
			{Key: "run", Labels: []string{entities.LabelRunInfo}, Props: map[string]any{entities.PropAnalysisID: "run-1", entities.PropPanel: "cardiac"}},
			{Key: "panel", Labels: []string{entities.LabelVirtualPanel}, Props: map[string]any{entities.PropVirtualPanelName: "cardiac"}},
			{Key: "symbol", Labels: []string{entities.LabelSymbol}, Props: map[string]any{entities.PropSymbolID: "MYH7"}},
			{Key: "feature", Labels: []string{entities.LabelFeature}, Props: map[string]any{entities.PropFeatureID: "ENST0001"}},
			{Key: "variant", Labels: []string{entities.LabelVariant}, Props: map[string]any{entities.PropVariantID: "14:23900000G>A", entities.PropChromosome: "14"}},
			{Key: "annotation", Labels: []string{entities.LabelAnnotation}},
		},
		Relationships: []parsers.RawRelationship{
			{From: "panel", To: "symbol", Type: entities.RelContainsSymbol},
			{From: "symbol", To: "feature", Type: entities.RelHasFeature},
			{From: "variant", To: "annotation", Type: entities.RelHasAnnotation},
			{From: "annotation", To: "feature", Type: entities.RelInFeature},
			{From: "run", To: "variant", Type: entities.RelHasHetVariant},
		},
	}
}

const seededVariant = "14:23900000G>A"
