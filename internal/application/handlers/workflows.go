package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
)

// Params are the string arguments a workflow is invoked with.
type Params map[string]string

// Workflow is one named entry point.
type Workflow struct {
	Name        string
	Description string
	Required    []string
	Optional    []string
	run         func(ctx context.Context, p Params) (any, error)
}

// Workflows is the static registry of named entry points.
type Workflows struct {
	byName map[string]Workflow
}

// WorkflowHandlers groups the handlers the registry dispatches to.
type WorkflowHandlers struct {
	Actions        *ActionHandler
	Events         *EventHandler
	Classification *ClassificationHandler
	Stratify       *StratifyHandler
	Pending        *PendingHandler
}

// NewWorkflows builds the registry.
func NewWorkflows(h WorkflowHandlers) *Workflows {
	list := []Workflow{
		{
			Name:        "actions.propose",
			Description: "Propose a pathogenicity or panel-membership action",
			Required:    []string{"kind", "subject", "user"},
			Optional:    []string{"classification", "evidence", "props"},
			run: func(ctx context.Context, p Params) (any, error) {
				req := ProposeRequest{Kind: p["kind"], Subject: p["subject"], User: p["user"], Evidence: p["evidence"]}
				if v := p["classification"]; v != "" {
					c, err := strconv.ParseInt(v, 10, 64)
					if err != nil {
						return nil, fmt.Errorf("%w: classification %q is not a number", entities.ErrInvalidInput, v)
					}
					req.Classification = c
				}
				props, err := p.props()
				if err != nil {
					return nil, err
				}
				req.Props = props
				return h.Actions.HandlePropose(ctx, req)
			},
		},
		{
			Name:        "actions.retract",
			Description: "Propose removal of an active action",
			Required:    []string{"action", "user"},
			Optional:    []string{"evidence"},
			run: func(ctx context.Context, p Params) (any, error) {
				return h.Actions.HandleRetract(ctx, p["action"], p["user"], p["evidence"])
			},
		},
		{
			Name:        "actions.authorise",
			Description: "Authorise a pending proposal or retraction",
			Required:    []string{"action", "user"},
			Optional:    []string{"stage"},
			run: func(ctx context.Context, p Params) (any, error) {
				return h.Actions.HandleAuthorise(ctx, p["action"], p["stage"], p["user"])
			},
		},
		{
			Name:        "actions.status",
			Description: "Derive an action's status from its audit edges",
			Required:    []string{"action"},
			run: func(ctx context.Context, p Params) (any, error) {
				return h.Actions.HandleStatus(ctx, p["action"])
			},
		},
		{
			Name:        "actions.history",
			Description: "List a subject's actions with their audit trails",
			Required:    []string{"kind", "subject"},
			run: func(ctx context.Context, p Params) (any, error) {
				return h.Actions.HandleHistory(ctx, p["kind"], p["subject"])
			},
		},
		{
			Name:        "events.append",
			Description: "Append a pending event to a subject's chain",
			Required:    []string{"subject_type", "subject", "user"},
			Optional:    []string{"props"},
			run: func(ctx context.Context, p Params) (any, error) {
				props, err := p.props()
				if err != nil {
					return nil, err
				}
				return h.Events.HandleAppend(ctx, AppendRequest{
					SubjectType: p["subject_type"],
					Subject:     p["subject"],
					User:        p["user"],
					Props:       props,
				})
			},
		},
		{
			Name:        "events.authorise",
			Description: "Authorise a pending event",
			Required:    []string{"event", "user"},
			run: func(ctx context.Context, p Params) (any, error) {
				return h.Events.HandleAuthorise(ctx, p["event"], p["user"])
			},
		},
		{
			Name:        "events.reject",
			Description: "Reject a pending event",
			Required:    []string{"event", "user"},
			run: func(ctx context.Context, p Params) (any, error) {
				return h.Events.HandleReject(ctx, p["event"], p["user"])
			},
		},
		{
			Name:        "events.status",
			Description: "Derive an event's status",
			Required:    []string{"event"},
			run: func(ctx context.Context, p Params) (any, error) {
				return h.Events.HandleStatus(ctx, p["event"])
			},
		},
		{
			Name:        "events.subject",
			Description: "Find the subject an event belongs to",
			Required:    []string{"event"},
			run: func(ctx context.Context, p Params) (any, error) {
				return h.Events.HandleSubject(ctx, p["event"])
			},
		},
		{
			Name:        "events.chain",
			Description: "List a subject's events in chain order",
			Required:    []string{"subject_type", "subject"},
			run: func(ctx context.Context, p Params) (any, error) {
				return h.Events.HandleChain(ctx, p["subject_type"], p["subject"])
			},
		},
		{
			Name:        "classification.current",
			Description: "Resolve a variant's current classification",
			Required:    []string{"variant"},
			run: func(ctx context.Context, p Params) (any, error) {
				return h.Classification.Handle(ctx, p["variant"])
			},
		},
		{
			Name:        "variants.stratify",
			Description: "Bucket a run's panel variants for review",
			Required:    []string{"run", "panel"},
			run: func(ctx context.Context, p Params) (any, error) {
				return h.Stratify.Handle(ctx, p["run"], p["panel"])
			},
		},
		{
			Name:        "pending.list",
			Description: "List actions and events awaiting a second user",
			run: func(ctx context.Context, _ Params) (any, error) {
				return h.Pending.Handle(ctx)
			},
		},
	}

	w := &Workflows{byName: make(map[string]Workflow, len(list))}
	for _, wf := range list {
		w.byName[wf.Name] = wf
	}
	return w
}

// List returns every workflow sorted by name.
func (w *Workflows) List() []Workflow {
	out := make([]Workflow, 0, len(w.byName))
	for _, wf := range w.byName {
		out = append(out, wf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Run invokes the named workflow after checking its parameters.
func (w *Workflows) Run(ctx context.Context, name string, params Params) (any, error) {
	wf, ok := w.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown workflow %q", entities.ErrInvalidInput, name)
	}
	if params == nil {
		params = Params{}
	}

	var missing []string
	for _, key := range wf.Required {
		if strings.TrimSpace(params[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s requires %s", entities.ErrInvalidInput, name, strings.Join(missing, ", "))
	}

	allowed := make(map[string]bool, len(wf.Required)+len(wf.Optional))
	for _, key := range append(append([]string{}, wf.Required...), wf.Optional...) {
		allowed[key] = true
	}
	for key := range params {
		if !allowed[key] {
			return nil, fmt.Errorf("%w: %s does not take %q", entities.ErrInvalidInput, name, key)
		}
	}

	return wf.run(ctx, params)
}

// props decodes the optional "props" parameter.
func (p Params) props() (map[string]any, error) {
	return ParseProps(p["props"])
}

// ParseProps decodes a flat JSON object of node properties. Integral numbers
// become int64 and other numbers float64, matching what the stores return.
// Values must be strings, numbers or booleans; every backend can store those.
func ParseProps(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var props map[string]any
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&props); err != nil {
		return nil, fmt.Errorf("%w: props must be a JSON object: %v", entities.ErrInvalidInput, err)
	}
	for k, v := range props {
		switch val := v.(type) {
		case string, bool:
		case json.Number:
			if i, err := val.Int64(); err == nil {
				props[k] = i
			} else if f, err := val.Float64(); err == nil {
				props[k] = f
			} else {
				return nil, fmt.Errorf("%w: props.%s: %v", entities.ErrInvalidInput, k, err)
			}
		default:
			return nil, fmt.Errorf("%w: props.%s must be a string, number or boolean", entities.ErrInvalidInput, k)
		}
	}
	return props, nil
}
