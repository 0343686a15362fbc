package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/propstead/propstead/internal/app"
	"github.com/propstead/propstead/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

// EntityResponse is the API representation of a lifecycle entity.
type EntityResponse struct {
	ID             string            `json:"id" doc:"Unique identifier"`
	Domain         string            `json:"domain" doc:"Entity domain"`
	Name           string            `json:"name" doc:"Display name"`
	State          string            `json:"state" doc:"Current lifecycle state"`
	PreviousState  string            `json:"previous_state,omitempty" doc:"State before the last transition"`
	StateChangedAt string            `json:"state_changed_at" doc:"Last transition timestamp (ISO 8601)"`
	SLADeadline    string            `json:"sla_deadline,omitempty" doc:"Deadline for the next transition (ISO 8601)"`
	SLAOverdue     bool              `json:"sla_overdue" doc:"Whether the SLA deadline has been breached"`
	Attributes     map[string]string `json:"attributes" doc:"Free-form attributes consulted by guards"`
	CreatedAt      string            `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt      string            `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toEntityResponse(e domain.Entity) EntityResponse {
	resp := EntityResponse{
		ID:             e.ID,
		Domain:         string(e.Domain),
		Name:           e.Name,
		State:          string(e.State),
		PreviousState:  string(e.PreviousState),
		StateChangedAt: e.StateChangedAt.Format(timeFormat),
		SLAOverdue:     e.SLAOverdue,
		Attributes:     e.Attrs,
		CreatedAt:      e.CreatedAt.Format(timeFormat),
		UpdatedAt:      e.UpdatedAt.Format(timeFormat),
	}
	if !e.SLADeadline.IsZero() {
		resp.SLADeadline = e.SLADeadline.Format(timeFormat)
	}
	return resp
}

// EventResponse is the API representation of an audit log entry.
type EventResponse struct {
	ID        string         `json:"id" doc:"Event identifier"`
	Type      string         `json:"type" doc:"Event type, e.g. tenancy.referencing"`
	Payload   map[string]any `json:"payload,omitempty" doc:"Event payload"`
	CreatedAt string         `json:"created_at" doc:"Event timestamp (ISO 8601)"`
}

// TaskResponse is the API representation of a follow-up task.
type TaskResponse struct {
	ID        string `json:"id" doc:"Task identifier"`
	Title     string `json:"title" doc:"Task title"`
	Status    string `json:"status" doc:"open, done, or cancelled"`
	DueAt     string `json:"due_at" doc:"Due timestamp (ISO 8601)"`
	CreatedAt string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
}

// --- Create Entity ---

type CreateEntityInput struct {
	Domain string `path:"domain" enum:"property,tenancy,vendor,applicant,valuation" doc:"Entity domain"`
	Body   struct {
		Name       string            `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
		Attributes map[string]string `json:"attributes,omitempty" doc:"Initial attributes"`
	}
}

type CreateEntityOutput struct {
	Body EntityResponse
}

// --- Get Entity ---

type GetEntityInput struct {
	Domain string `path:"domain" enum:"property,tenancy,vendor,applicant,valuation" doc:"Entity domain"`
	ID     string `path:"id" doc:"Entity ID"`
}

type GetEntityOutput struct {
	Body EntityResponse
}

// --- List Entities ---

type ListEntitiesInput struct {
	Domain  string `path:"domain" enum:"property,tenancy,vendor,applicant,valuation" doc:"Entity domain"`
	State   string `query:"state" required:"false" doc:"Filter by state"`
	Overdue *bool  `query:"overdue" required:"false" doc:"Filter by SLA overdue flag"`
	Limit   int    `query:"limit" required:"false" default:"50" doc:"Max results"`
	Offset  int    `query:"offset" required:"false" default:"0" doc:"Pagination offset"`
}

type ListEntitiesOutput struct {
	Body []EntityResponse
}

// --- Update Attributes ---

type UpdateAttrsInput struct {
	Domain string `path:"domain" enum:"property,tenancy,vendor,applicant,valuation" doc:"Entity domain"`
	ID     string `path:"id" doc:"Entity ID"`
	Body   struct {
		Attributes map[string]string `json:"attributes" doc:"Attributes to set (merged into existing ones)"`
	}
}

type UpdateAttrsOutput struct {
	Body EntityResponse
}

// --- Transition ---

type TransitionInput struct {
	Domain string `path:"domain" enum:"property,tenancy,vendor,applicant,valuation" doc:"Entity domain"`
	ID     string `path:"id" doc:"Entity ID"`
	Body   struct {
		State string `json:"state" minLength:"1" doc:"Requested target state"`
		Actor string `json:"actor,omitempty" doc:"Who requested the transition"`
	}
}

type TransitionOutput struct {
	Body EntityResponse
}

// --- Valid Transitions ---

type ValidTransitionsInput struct {
	Domain string `path:"domain" enum:"property,tenancy,vendor,applicant,valuation" doc:"Entity domain"`
	From   string `query:"from" doc:"Current state to list targets for"`
}

type ValidTransitionsOutput struct {
	Body []string
}

// --- Entity Events ---

type ListEventsInput struct {
	Domain string `path:"domain" enum:"property,tenancy,vendor,applicant,valuation" doc:"Entity domain"`
	ID     string `path:"id" doc:"Entity ID"`
}

type ListEventsOutput struct {
	Body []EventResponse
}

// --- Entity Tasks ---

type ListTasksInput struct {
	Domain string `path:"domain" enum:"property,tenancy,vendor,applicant,valuation" doc:"Entity domain"`
	ID     string `path:"id" doc:"Entity ID"`
}

type ListTasksOutput struct {
	Body []TaskResponse
}

// --- Sweep ---

type SweepOutput struct {
	Body struct {
		Flagged int `json:"flagged" doc:"Number of entities newly flagged as overdue"`
	}
}

// Register adds all lifecycle API routes to the Huma API.
func Register(api huma.API, svc *app.LifecycleService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-entity",
		Method:      http.MethodPost,
		Path:        "/api/v1/{domain}/entities",
		Summary:     "Create a new entity in its initial state",
		Tags:        []string{"Entities"},
	}, func(ctx context.Context, input *CreateEntityInput) (*CreateEntityOutput, error) {
		d, err := domain.ParseDomain(input.Domain)
		if err != nil {
			return nil, toHumaError(err)
		}
		e, err := svc.Create(ctx, d, input.Body.Name, input.Body.Attributes)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateEntityOutput{Body: toEntityResponse(e)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-entity",
		Method:      http.MethodGet,
		Path:        "/api/v1/{domain}/entities/{id}",
		Summary:     "Get an entity by ID",
		Tags:        []string{"Entities"},
	}, func(ctx context.Context, input *GetEntityInput) (*GetEntityOutput, error) {
		d, err := domain.ParseDomain(input.Domain)
		if err != nil {
			return nil, toHumaError(err)
		}
		e, err := svc.GetByID(ctx, d, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetEntityOutput{Body: toEntityResponse(e)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-entities",
		Method:      http.MethodGet,
		Path:        "/api/v1/{domain}/entities",
		Summary:     "List entities",
		Tags:        []string{"Entities"},
	}, func(ctx context.Context, input *ListEntitiesInput) (*ListEntitiesOutput, error) {
		d, err := domain.ParseDomain(input.Domain)
		if err != nil {
			return nil, toHumaError(err)
		}

		filter := domain.ListFilter{
			Domain: &d,
			Limit:  input.Limit,
			Offset: input.Offset,
		}
		if input.State != "" {
			s := domain.State(input.State)
			filter.State = &s
		}
		filter.Overdue = input.Overdue

		entities, err := svc.List(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]EntityResponse, len(entities))
		for i, e := range entities {
			resp[i] = toEntityResponse(e)
		}
		return &ListEntitiesOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-entity-attributes",
		Method:      http.MethodPut,
		Path:        "/api/v1/{domain}/entities/{id}/attributes",
		Summary:     "Merge attributes into an entity",
		Tags:        []string{"Entities"},
	}, func(ctx context.Context, input *UpdateAttrsInput) (*UpdateAttrsOutput, error) {
		d, err := domain.ParseDomain(input.Domain)
		if err != nil {
			return nil, toHumaError(err)
		}
		e, err := svc.UpdateAttrs(ctx, d, input.ID, input.Body.Attributes)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &UpdateAttrsOutput{Body: toEntityResponse(e)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-entity",
		Method:      http.MethodPost,
		Path:        "/api/v1/{domain}/entities/{id}/transitions",
		Summary:     "Request a state transition",
		Tags:        []string{"Transitions"},
	}, func(ctx context.Context, input *TransitionInput) (*TransitionOutput, error) {
		d, err := domain.ParseDomain(input.Domain)
		if err != nil {
			return nil, toHumaError(err)
		}
		e, err := svc.Transition(ctx, d, input.ID, domain.State(input.Body.State), input.Body.Actor)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &TransitionOutput{Body: toEntityResponse(e)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-valid-transitions",
		Method:      http.MethodGet,
		Path:        "/api/v1/{domain}/transitions",
		Summary:     "List valid target states from a given state",
		Tags:        []string{"Transitions"},
	}, func(ctx context.Context, input *ValidTransitionsInput) (*ValidTransitionsOutput, error) {
		d, err := domain.ParseDomain(input.Domain)
		if err != nil {
			return nil, toHumaError(err)
		}

		targets := svc.ValidTransitions(d, domain.State(input.From))
		resp := make([]string, len(targets))
		for i, s := range targets {
			resp[i] = string(s)
		}
		return &ValidTransitionsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-entity-events",
		Method:      http.MethodGet,
		Path:        "/api/v1/{domain}/entities/{id}/events",
		Summary:     "List the audit trail for an entity",
		Tags:        []string{"Events"},
	}, func(ctx context.Context, input *ListEventsInput) (*ListEventsOutput, error) {
		d, err := domain.ParseDomain(input.Domain)
		if err != nil {
			return nil, toHumaError(err)
		}
		records, err := svc.EventsFor(ctx, d, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]EventResponse, len(records))
		for i, rec := range records {
			resp[i] = EventResponse{
				ID:        rec.ID,
				Type:      rec.Type,
				Payload:   rec.Payload,
				CreatedAt: rec.CreatedAt.Format(timeFormat),
			}
		}
		return &ListEventsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-entity-tasks",
		Method:      http.MethodGet,
		Path:        "/api/v1/{domain}/entities/{id}/tasks",
		Summary:     "List follow-up tasks for an entity",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *ListTasksInput) (*ListTasksOutput, error) {
		d, err := domain.ParseDomain(input.Domain)
		if err != nil {
			return nil, toHumaError(err)
		}
		tasks, err := svc.TasksFor(ctx, d, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]TaskResponse, len(tasks))
		for i, task := range tasks {
			resp[i] = TaskResponse{
				ID:        task.ID,
				Title:     task.Title,
				Status:    task.Status,
				DueAt:     task.DueAt.Format(timeFormat),
				CreatedAt: task.CreatedAt.Format(timeFormat),
			}
		}
		return &ListTasksOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sweep-overdue",
		Method:      http.MethodPost,
		Path:        "/api/v1/sweep",
		Summary:     "Flag entities whose SLA deadline has passed",
		Tags:        []string{"Sweep"},
	}, func(ctx context.Context, _ *struct{}) (*SweepOutput, error) {
		count, err := svc.SweepOverdue(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &SweepOutput{}
		out.Body.Flagged = count
		return out, nil
	})
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrEntityNotFound) {
		return huma.Error404NotFound("entity not found")
	}

	if errors.Is(err, domain.ErrUnknownDomain) {
		return huma.Error422UnprocessableEntity(err.Error())
	}

	var conflict *domain.StateConflictError
	if errors.As(err, &conflict) {
		return huma.Error409Conflict(conflict.Error())
	}

	var invalid *domain.InvalidTransitionError
	if errors.As(err, &invalid) {
		return huma.Error422UnprocessableEntity(invalid.Error())
	}

	var guard *domain.GuardViolationError
	if errors.As(err, &guard) {
		return huma.Error422UnprocessableEntity(guard.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
