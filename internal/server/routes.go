package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"staffline/internal/domain"
	"staffline/internal/engine"
	"staffline/internal/repo"
)

type idPath struct {
	ID int64 `path:"id" minimum:"1"`
}

type listOutput[T any] struct {
	Body []T
}

func list[T any](items []T) *listOutput[T] {
	return &listOutput[T]{Body: nonNilSlice(items)}
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerDirectory(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-employees",
		Method:      http.MethodGet,
		Path:        "/employees",
		Summary:     "Employee directory",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*listOutput[domain.Employee], error) {
		items, err := e.Employees(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return list(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-performance-scores",
		Method:      http.MethodGet,
		Path:        "/performance-scores",
		Summary:     "Performance scores keyed by employee id",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*listOutput[domain.PerformanceScore], error) {
		items, err := e.PerformanceScores(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return list(items), nil
	})

	for _, kind := range []string{repo.RefShift, repo.RefDepartment, repo.RefDesignation} {
		kind := kind
		huma.Register(api, huma.Operation{
			OperationID: "list-" + kind + "s",
			Method:      http.MethodGet,
			Path:        "/" + kind + "s",
			Summary:     "List " + kind + "s",
			Errors:      []int{http.StatusUnauthorized},
		}, func(ctx context.Context, _ *struct{}) (*listOutput[domain.Ref], error) {
			items, err := e.Refs(ctx, kind)
			if err != nil {
				return nil, handleError(err)
			}
			return list(items), nil
		})
	}
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*listOutput[domain.Project], error) {
		items, err := e.Projects(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return list(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{id}",
		Summary:     "Get project",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct {
		Body domain.Project
	}, error) {
		p, err := e.Project(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "suggested-employees",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/suggested-employees",
		Summary:     "Ranked employee ids for a project, best first",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*listOutput[int64], error) {
		ids, err := e.SuggestedEmployees(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return list(ids), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "projects-metadata",
		Method:      http.MethodGet,
		Path:        "/projects-metadata",
		Summary:     "Role, status and priority vocabularies",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.ProjectsMetadata
	}, error) {
		md, err := e.ProjectsMetadata(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		md.Roles = nonNilSlice(md.Roles)
		md.Statuses = nonNilSlice(md.Statuses)
		md.Priorities = nonNilSlice(md.Priorities)
		return &struct {
			Body domain.ProjectsMetadata
		}{Body: md}, nil
	})
}

func registerAllocations(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "project-allocations",
		Method:      http.MethodGet,
		Path:        "/project-allocations/{id}",
		Summary:     "Allocations of a project",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*listOutput[domain.Allocation], error) {
		items, err := e.ProjectAllocations(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return list(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-allocation",
		Method:        http.MethodPost,
		Path:          "/project-allocations",
		Summary:       "Allocate an employee to a project",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		Body domain.AllocationCreate
	}) (*struct {
		Body domain.Allocation
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		in := input.Body
		in.Role = strings.TrimSpace(in.Role)
		a, err := e.CreateAllocation(ctx, actor, in)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Allocation
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-allocation",
		Method:        http.MethodDelete,
		Path:          "/project-allocations/{id}",
		Summary:       "Remove an allocation",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteAllocation(ctx, actor, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerEmployeeSelf(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "allocation-statuses",
		Method:      http.MethodGet,
		Path:        "/employee/allocation-statuses",
		Summary:     "Valid allocation statuses",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*listOutput[string], error) {
		items, err := e.AllocationStatuses(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return list(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "my-project-allocations",
		Method:      http.MethodGet,
		Path:        "/employee/my-project-allocations",
		Summary:     "Allocations of the authenticated employee",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*listOutput[domain.Allocation], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.MyAllocations(ctx, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return list(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-allocation-status",
		Method:      http.MethodPut,
		Path:        "/employee/allocations/{id}/status",
		Summary:     "Change the status of an own allocation",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ID   int64 `path:"id" minimum:"1"`
		Body struct {
			Status string `json:"status"`
		}
	}) (*struct {
		Body domain.Allocation
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.ChangeStatus(ctx, actor, input.ID, input.Body.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Allocation
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "allocation-status-history",
		Method:      http.MethodGet,
		Path:        "/employee/allocations/{id}/status-history",
		Summary:     "Status transitions of an own allocation",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*listOutput[domain.StatusHistoryEntry], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.StatusHistory(ctx, actor, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return list(items), nil
	})
}

type DevLoginRequest struct {
	EmployeeID int64    `json:"employee_id" minimum:"1"`
	Roles      []string `json:"roles,omitempty"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

func registerDevAuth(api huma.API, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a JWT for local testing",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest
	}) (*struct {
		Body DevLoginResponse
	}, error) {
		token, err := SignToken(authCfg.JWTSecret, input.Body.EmployeeID, input.Body.Roles, authCfg.TokenTTL)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		return &struct {
			Body DevLoginResponse
		}{Body: DevLoginResponse{Token: token}}, nil
	})
}
