package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/talladmin/internal/app"
	"github.com/neomorfeo/talladmin/internal/domain"
)

const timeLayout = "2006-01-02T15:04:05Z"

// ContactBody is the API representation of a tenant's primary contact.
type ContactBody struct {
	Name  string `json:"name" minLength:"1" maxLength:"255" doc:"Contact name"`
	Email string `json:"email" format:"email" doc:"Contact email"`
	Phone string `json:"phone,omitempty" required:"false" doc:"Contact phone, stored in E.164"`
}

// TenantResponse is the API representation of a tenant.
type TenantResponse struct {
	ID        string      `json:"id" doc:"Unique identifier"`
	Name      string      `json:"name" doc:"Display name"`
	Domain    string      `json:"domain" doc:"Primary domain"`
	Status    string      `json:"status" doc:"Lifecycle state"`
	Plan      string      `json:"plan" doc:"Subscription plan"`
	Seats     int         `json:"seats" doc:"Licensed seats"`
	Users     int         `json:"users" doc:"Provisioned users"`
	Contact   ContactBody `json:"contact" doc:"Primary contact"`
	CreatedAt string      `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt string      `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toTenantResponse(t domain.Tenant) TenantResponse {
	return TenantResponse{
		ID:     t.ID,
		Name:   t.Name,
		Domain: t.Domain,
		Status: string(t.Status),
		Plan:   t.Plan,
		Seats:  t.Seats,
		Users:  t.Users,
		Contact: ContactBody{
			Name:  t.PrimaryContact.Name,
			Email: t.PrimaryContact.Email,
			Phone: t.PrimaryContact.Phone,
		},
		CreatedAt: t.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt: t.UpdatedAt.UTC().Format(timeLayout),
	}
}

// StatusChangeResponse is one entry of a tenant's lifecycle history.
type StatusChangeResponse struct {
	Event  string `json:"event"`
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
	Actor  string `json:"actor,omitempty"`
	At     string `json:"at"`
}

// --- Create Tenant ---

type CreateTenantInput struct {
	Body struct {
		Name    string      `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
		Domain  string      `json:"domain" minLength:"1" maxLength:"253" doc:"Primary domain, unique across tenants"`
		Plan    string      `json:"plan,omitempty" default:"free" doc:"Subscription plan"`
		Seats   int         `json:"seats" minimum:"1" doc:"Licensed seats"`
		Contact ContactBody `json:"contact" doc:"Primary contact"`
	}
}

type TenantOutput struct {
	Body TenantResponse
}

// --- Get Tenant ---

type TenantPathInput struct {
	ID string `path:"id" doc:"Tenant ID"`
}

// --- List Tenants ---

type ListTenantsInput struct {
	Status string `query:"status" required:"false" enum:"active,suspended,deleted" doc:"Filter by status; deleted tenants are hidden otherwise"`
	Limit  int    `query:"limit" required:"false" default:"50" minimum:"1" maximum:"200" doc:"Max results"`
	Offset int    `query:"offset" required:"false" default:"0" minimum:"0" doc:"Pagination offset"`
}

type ListTenantsOutput struct {
	Body []TenantResponse
}

type HistoryOutput struct {
	Body []StatusChangeResponse
}

// --- Lifecycle actions ---

type ActionInput struct {
	ID   string `path:"id" doc:"Tenant ID"`
	Body struct {
		Reason        string `json:"reason" required:"false" doc:"Why the action is taken"`
		NotifyContact bool   `json:"notify_contact,omitempty" doc:"Email the primary contact"`
		PauseJobs     bool   `json:"pause_jobs,omitempty" doc:"Pause background jobs (suspend only)"`
		ResumeJobs    bool   `json:"resume_jobs,omitempty" doc:"Resume background jobs (reactivate only)"`
		ArchiveData   bool   `json:"archive_data,omitempty" doc:"Archive data before purge (delete only)"`
		ConfirmText   string `json:"confirm_text,omitempty" doc:"Tenant name, typed exactly (delete only)"`
		Confirmed     bool   `json:"confirmed" required:"false" doc:"Operator acknowledgement"`
		Actor         string `json:"actor,omitempty" doc:"Operator identity when no session is presented"`
	}
}

func (in *ActionInput) request(ctx context.Context) domain.ActionRequest {
	actor := in.Body.Actor
	if subject, ok := sessionSubject(ctx); ok {
		actor = subject
	}
	return domain.ActionRequest{
		Reason:        in.Body.Reason,
		NotifyContact: in.Body.NotifyContact,
		PauseJobs:     in.Body.PauseJobs,
		ResumeJobs:    in.Body.ResumeJobs,
		ArchiveData:   in.Body.ArchiveData,
		ConfirmText:   in.Body.ConfirmText,
		Confirmed:     in.Body.Confirmed,
		Actor:         actor,
	}
}

type lifecycleAction func(ctx context.Context, id string, req domain.ActionRequest) (domain.Tenant, error)

// RegisterTenants adds all tenant API routes to the Huma API. When sessions
// is non-nil every route requires a bearer session token.
func RegisterTenants(api huma.API, svc *app.TenantService, sessions SessionVerifier) {
	var mw huma.Middlewares
	if sessions != nil {
		mw = huma.Middlewares{requireSession(api, sessions)}
	}

	huma.Register(api, huma.Operation{
		OperationID:   "create-tenant",
		Method:        http.MethodPost,
		Path:          "/api/v1/tenants",
		Summary:       "Onboard a new tenant",
		Tags:          []string{"Tenants"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   mw,
	}, func(ctx context.Context, input *CreateTenantInput) (*TenantOutput, error) {
		tenant, err := svc.Create(ctx, domain.NewTenantInput{
			Name:   input.Body.Name,
			Domain: input.Body.Domain,
			Plan:   input.Body.Plan,
			Seats:  input.Body.Seats,
			Contact: domain.Contact{
				Name:  input.Body.Contact.Name,
				Email: input.Body.Contact.Email,
				Phone: input.Body.Contact.Phone,
			},
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &TenantOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tenant",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/{id}",
		Summary:     "Get a tenant by ID",
		Tags:        []string{"Tenants"},
		Middlewares: mw,
	}, func(ctx context.Context, input *TenantPathInput) (*TenantOutput, error) {
		tenant, err := svc.GetByID(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &TenantOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tenants",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants",
		Summary:     "List tenants",
		Tags:        []string{"Tenants"},
		Middlewares: mw,
	}, func(ctx context.Context, input *ListTenantsInput) (*ListTenantsOutput, error) {
		filter := domain.ListFilter{
			Limit:  input.Limit,
			Offset: input.Offset,
		}
		if input.Status != "" {
			s := domain.Status(input.Status)
			filter.Status = &s
		}

		tenants, err := svc.List(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]TenantResponse, len(tenants))
		for i, t := range tenants {
			resp[i] = toTenantResponse(t)
		}
		return &ListTenantsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "tenant-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/{id}/history",
		Summary:     "List a tenant's status changes, oldest first",
		Tags:        []string{"Tenants"},
		Middlewares: mw,
	}, func(ctx context.Context, input *TenantPathInput) (*HistoryOutput, error) {
		changes, err := svc.History(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]StatusChangeResponse, len(changes))
		for i, c := range changes {
			resp[i] = StatusChangeResponse{
				Event:  string(c.Event),
				From:   string(c.From),
				To:     string(c.To),
				Reason: c.Reason,
				Actor:  c.Actor,
				At:     c.At.UTC().Format(time.RFC3339Nano),
			}
		}
		return &HistoryOutput{Body: resp}, nil
	})

	actions := []struct {
		name    string
		summary string
		run     lifecycleAction
	}{
		{"suspend", "Suspend an active tenant", svc.Suspend},
		{"reactivate", "Reactivate a suspended tenant", svc.Reactivate},
		{"delete", "Delete a tenant", svc.Delete},
	}
	for _, a := range actions {
		huma.Register(api, huma.Operation{
			OperationID: a.name + "-tenant",
			Method:      http.MethodPost,
			Path:        "/api/v1/tenants/{id}/" + a.name,
			Summary:     a.summary,
			Tags:        []string{"Tenants"},
			Middlewares: mw,
		}, func(ctx context.Context, input *ActionInput) (*TenantOutput, error) {
			tenant, err := a.run(ctx, input.ID, input.request(ctx))
			if err != nil {
				return nil, toHumaError(err)
			}
			return &TenantOutput{Body: toTenantResponse(tenant)}, nil
		})
	}
}
