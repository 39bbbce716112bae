package stafflinesdk

import (
	"context"
	"fmt"
	"net/http"

	"staffline/internal/domain"
)

// Employees returns the employee directory.
func (c *Client) Employees(ctx context.Context) ([]domain.Employee, error) {
	var resp []domain.Employee
	err := c.do(ctx, http.MethodGet, "employees", nil, &resp)
	return resp, err
}

// PerformanceScores returns externally computed scores keyed by employee id.
func (c *Client) PerformanceScores(ctx context.Context) ([]domain.PerformanceScore, error) {
	var resp []domain.PerformanceScore
	err := c.do(ctx, http.MethodGet, "performance-scores", nil, &resp)
	return resp, err
}

// SuggestedEmployees returns ranked employee ids for a project, best first.
func (c *Client) SuggestedEmployees(ctx context.Context, projectID int64) ([]int64, error) {
	var resp []int64
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("projects/%d/suggested-employees", projectID), nil, &resp)
	return resp, err
}

func (c *Client) Projects(ctx context.Context) ([]domain.Project, error) {
	var resp []domain.Project
	err := c.do(ctx, http.MethodGet, "projects", nil, &resp)
	return resp, err
}

func (c *Client) Project(ctx context.Context, id int64) (domain.Project, error) {
	var resp domain.Project
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("projects/%d", id), nil, &resp)
	return resp, err
}

// ProjectsMetadata returns the role, status and priority vocabularies.
func (c *Client) ProjectsMetadata(ctx context.Context) (domain.ProjectsMetadata, error) {
	var resp domain.ProjectsMetadata
	err := c.do(ctx, http.MethodGet, "projects-metadata", nil, &resp)
	return resp, err
}

// ProjectAllocations lists persisted allocations of a project with nested employees.
func (c *Client) ProjectAllocations(ctx context.Context, projectID int64) ([]domain.Allocation, error) {
	var resp []domain.Allocation
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("project-allocations/%d", projectID), nil, &resp)
	return resp, err
}

func (c *Client) CreateAllocation(ctx context.Context, in domain.AllocationCreate) (domain.Allocation, error) {
	var resp domain.Allocation
	err := c.do(ctx, http.MethodPost, "project-allocations", in, &resp)
	return resp, err
}

func (c *Client) DeleteAllocation(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("project-allocations/%d", id), nil, nil)
}

func (c *Client) Shifts(ctx context.Context) ([]domain.Ref, error) {
	return c.refs(ctx, "shifts")
}

func (c *Client) Departments(ctx context.Context) ([]domain.Ref, error) {
	return c.refs(ctx, "departments")
}

func (c *Client) Designations(ctx context.Context) ([]domain.Ref, error) {
	return c.refs(ctx, "designations")
}

func (c *Client) refs(ctx context.Context, kind string) ([]domain.Ref, error) {
	var resp []domain.Ref
	err := c.do(ctx, http.MethodGet, kind, nil, &resp)
	return resp, err
}

// UpdateAllocationStatus sets the status of one of the caller's allocations.
func (c *Client) UpdateAllocationStatus(ctx context.Context, id int64, status string) (domain.Allocation, error) {
	var resp domain.Allocation
	body := map[string]any{"status": status}
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("employee/allocations/%d/status", id), body, &resp)
	return resp, err
}

func (c *Client) StatusHistory(ctx context.Context, id int64) ([]domain.StatusHistoryEntry, error) {
	var resp []domain.StatusHistoryEntry
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("employee/allocations/%d/status-history", id), nil, &resp)
	return resp, err
}

// AllocationStatuses returns the valid allocation status strings.
func (c *Client) AllocationStatuses(ctx context.Context) ([]string, error) {
	var resp []string
	err := c.do(ctx, http.MethodGet, "employee/allocation-statuses", nil, &resp)
	return resp, err
}

// MyAllocations lists allocations of the authenticated employee.
func (c *Client) MyAllocations(ctx context.Context) ([]domain.Allocation, error) {
	var resp []domain.Allocation
	err := c.do(ctx, http.MethodGet, "employee/my-project-allocations", nil, &resp)
	return resp, err
}

// DevLogin mints a sandbox token. Only available when the sandbox enables dev auth.
func (c *Client) DevLogin(ctx context.Context, employeeID int64, roles []string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]any{"employee_id": employeeID}
	if len(roles) > 0 {
		body["roles"] = roles
	}
	err := c.do(ctx, http.MethodPost, "auth/dev/login", body, &resp)
	return resp.Token, err
}
