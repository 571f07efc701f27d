package entities

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNode_Props(t *testing.T) {
	n := Node{
		Labels: []string{LabelVariant},
		Props: map[string]any{
			PropVariantID:  "1:100A>G",
			PropChromosome: json.Number("7"),
			"exacEas":      0.02,
			PropGERP:       int64(3),
		},
	}

	assert.True(t, n.HasLabel(LabelVariant))
	assert.False(t, n.HasLabel(LabelUser))
	assert.Equal(t, "1:100A>G", n.String(PropVariantID))
	assert.Equal(t, "", n.String("missing"))

	c, ok := n.Int(PropChromosome)
	assert.True(t, ok)
	assert.Equal(t, int64(7), c)

	f, ok := n.Float("exacEas")
	assert.True(t, ok)
	assert.Equal(t, 0.02, f)

	g, ok := n.Float(PropGERP)
	assert.True(t, ok)
	assert.Equal(t, 3.0, g)

	_, ok = n.Float(PropVariantID)
	assert.False(t, ok)

	var empty Node
	_, ok = empty.Int(PropDate)
	assert.False(t, ok)
}

func TestRelationship_Helpers(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	r := Relationship{StartID: "a", EndID: "b", Type: RelAddedBy, Props: map[string]any{PropDate: EpochMillis(when)}}

	assert.Equal(t, "b", r.Other("a"))
	assert.Equal(t, "a", r.Other("b"))
	assert.Equal(t, when.UnixMilli(), r.Date())
	assert.Equal(t, int64(0), Relationship{}.Date())
}

func TestInheritance(t *testing.T) {
	assert.Equal(t, "HET", InheritanceLabel(RelHasHetVariant))
	assert.Equal(t, "HOM", InheritanceLabel(RelHasHomVariant))
	assert.Equal(t, 1, AlleleCount(RelHasHetVariant))
	assert.Equal(t, 2, AlleleCount(RelHasHomVariant))
}

func TestEventLabelFor(t *testing.T) {
	tests := []struct {
		subject string
		want    string
		ok      bool
	}{
		{LabelVariant, LabelVariantEvent, true},
		{LabelFeature, LabelFeatureEvent, true},
		{LabelSymbol, LabelSymbolEvent, true},
		{LabelVirtualPanel, LabelPanelEvent, true},
		{LabelRunInfo, "RunInfoEvent", false},
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			got, ok := EventLabelFor(tt.subject)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
