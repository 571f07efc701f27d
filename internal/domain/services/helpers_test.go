package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/mocks"
	"github.com/ersonp/variantdb-core/internal/domain/ports"
)

// testGraph wraps the in-memory store with fixture helpers.
type testGraph struct {
	t  *testing.T
	db *mocks.GraphDB
}

func newTestGraph(t *testing.T) *testGraph {
	t.Helper()
	useFakeClock(t)
	return &testGraph{t: t, db: mocks.NewGraphDB()}
}

// useFakeClock makes timeNow advance one second per call so audit dates are strictly ordered.
func useFakeClock(t *testing.T) {
	t.Helper()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	calls := 0
	timeNow = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}
	t.Cleanup(func() { timeNow = time.Now })
}

func (g *testGraph) node(labels []string, props map[string]any) string {
	g.t.Helper()
	var id string
	err := g.db.Update(context.Background(), func(tx ports.GraphTx) error {
		n, err := tx.CreateNode(context.Background(), labels, props)
		id = n.ID
		return err
	})
	require.NoError(g.t, err)
	return id
}

func (g *testGraph) rel(from, to, relType string, props map[string]any) {
	g.t.Helper()
	err := g.db.Update(context.Background(), func(tx ports.GraphTx) error {
		_, err := tx.CreateRelationship(context.Background(), from, to, relType, props)
		return err
	})
	require.NoError(g.t, err)
}

func (g *testGraph) user(userID string) string {
	return g.node([]string{entities.LabelUser}, map[string]any{entities.PropUserID: userID})
}

func (g *testGraph) variant(variantID string, props map[string]any) string {
	all := map[string]any{entities.PropVariantID: variantID}
	for k, v := range props {
		all[k] = v
	}
	return g.node([]string{entities.LabelVariant}, all)
}

// classify proposes c on the variant and authorises it with a second user.
func (g *testGraph) classify(audit *AuditService, variantID, proposer, authoriser string, c entities.Classification) string {
	g.t.Helper()
	ctx := context.Background()
	action, err := audit.RecordProposal(ctx, Proposal{
		SubjectID:      variantID,
		Kind:           entities.KindPathogenicity,
		UserID:         proposer,
		Classification: c,
	})
	require.NoError(g.t, err)
	require.NoError(g.t, audit.RecordAuthorisation(ctx, action.ID, entities.RelAddAuthorisedBy, authoriser))
	return action.ID
}
