package services

import (
	"context"
	"fmt"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/ports"
)

// PendingReport lists everything waiting on a second user.
type PendingReport struct {
	Actions []entities.ActionRecord `json:"actions"`
	Events  []entities.EventRecord  `json:"events"`
}

// PendingService collects actions and events awaiting authorisation.
type PendingService struct {
	graph ports.GraphDB
}

// NewPendingService creates a new PendingService.
func NewPendingService(graph ports.GraphDB) *PendingService {
	return &PendingService{graph: graph}
}

// List returns pending actions (PendingApproval, PendingRetire) and pending events.
func (s *PendingService) List(ctx context.Context) (*PendingReport, error) {
	report := &PendingReport{
		Actions: []entities.ActionRecord{},
		Events:  []entities.EventRecord{},
	}
	err := s.graph.View(ctx, func(tx ports.GraphTx) error {
		for _, kind := range entities.ActionKinds {
			if err := s.collectActions(ctx, tx, kind, report); err != nil {
				return err
			}
		}
		for _, label := range entities.EventLabels {
			if err := s.collectEvents(ctx, tx, label, report); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing pending work: %w", err)
	}
	return report, nil
}

func (s *PendingService) collectActions(ctx context.Context, tx ports.GraphTx, kind entities.ActionKind, report *PendingReport) error {
	actions, err := tx.NodesByLabel(ctx, kind.ActionLabel)
	if err != nil {
		return fmt.Errorf("listing %s nodes: %w", kind.ActionLabel, err)
	}
	for _, a := range actions {
		st, err := loadActionState(ctx, tx, a)
		if err != nil {
			return err
		}
		if st.status != entities.ActionPendingApproval && st.status != entities.ActionPendingRetire {
			continue
		}
		links, err := tx.Relationships(ctx, a.ID, entities.Incoming, kind.ActionRelType)
		if err != nil {
			return fmt.Errorf("reading subject of %s: %w", a.ID, err)
		}
		if len(links) != 1 {
			return fmt.Errorf("%w: action %s has %d subjects", entities.ErrInternalInconsistency, a.ID, len(links))
		}
		rec, err := actionRecord(ctx, tx, links[0].StartID, kind, st)
		if err != nil {
			return err
		}
		report.Actions = append(report.Actions, rec)
	}
	return nil
}

func (s *PendingService) collectEvents(ctx context.Context, tx ports.GraphTx, label string, report *PendingReport) error {
	events, err := tx.NodesByLabel(ctx, label)
	if err != nil {
		return fmt.Errorf("listing %s nodes: %w", label, err)
	}
	for _, e := range events {
		status, err := eventStatus(ctx, tx, e.ID)
		if err != nil {
			return err
		}
		if status != entities.EventPendingAuth {
			continue
		}
		subject, err := subjectOf(ctx, tx, e.ID)
		if err != nil {
			return err
		}
		rec, err := eventRecord(ctx, tx, subject.ID, 0, chainLink{node: e, status: status})
		if err != nil {
			return err
		}
		report.Events = append(report.Events, rec)
	}
	return nil
}
