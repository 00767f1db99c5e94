package apiclient

import (
	"context"
	"fmt"
)

// Domain record shapes as the API returns them.

type Branch struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	BranchCode string `json:"branch_code"`
	ManagerID  string `json:"manager_id"`
	CreatedAt  string `json:"created_at"`
}

type Employee struct {
	ID        string  `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Position  string  `json:"position"`
	Salary    float64 `json:"salary"`
	BranchID  string  `json:"branch_id"`
	CreatedAt string  `json:"created_at"`
}

type InventoryItem struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
	ReorderPoint int     `json:"reorder_point"`
	BranchID     string  `json:"branch_id"`
	LowStock     bool    `json:"low_stock"`
	CreatedAt    string  `json:"created_at"`
}

type Sale struct {
	ID          string  `json:"id"`
	ItemID      string  `json:"item_id"`
	Quantity    int     `json:"quantity"`
	TotalAmount float64 `json:"total_amount"`
	EmployeeID  string  `json:"employee_id"`
	BranchID    string  `json:"branch_id"`
	CreatedAt   string  `json:"created_at"`
}

type DashboardSummary struct {
	BranchID       *string `json:"branch_id"`
	TotalSales     float64 `json:"total_sales"`
	EmployeeCount  int64   `json:"employee_count"`
	InventoryCount int64   `json:"inventory_count"`
	LowStockCount  int64   `json:"low_stock_count"`
	BranchCount    int64   `json:"branch_count"`
}

// ListQuery narrows list calls; zero value lists everything the caller's
// scope allows.
type ListQuery struct {
	BranchID string
	Search   string
	LowStock bool
}

func (q ListQuery) params() map[string]string {
	params := map[string]string{}
	if q.BranchID != "" {
		params["branch_id"] = q.BranchID
	}
	if q.Search != "" {
		params["search"] = q.Search
	}
	if q.LowStock {
		params["low_stock"] = "true"
	}
	return params
}

func getList[T any](c *Client, ctx context.Context, path string, params map[string]string) ([]T, error) {
	var out []T
	resp, err := c.request(ctx).
		SetQueryParams(params).
		SetResult(&out).
		SetError(&errorBody{}).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	if !resp.IsSuccess() {
		return nil, mapError(resp)
	}
	return out, nil
}

func (c *Client) ListBranches(ctx context.Context) ([]Branch, error) {
	return getList[Branch](c, ctx, "/api/branches", nil)
}

func (c *Client) ListEmployees(ctx context.Context, q ListQuery) ([]Employee, error) {
	return getList[Employee](c, ctx, "/api/employees", q.params())
}

func (c *Client) ListInventory(ctx context.Context, q ListQuery) ([]InventoryItem, error) {
	return getList[InventoryItem](c, ctx, "/api/inventory", q.params())
}

func (c *Client) ListSales(ctx context.Context, q ListQuery) ([]Sale, error) {
	return getList[Sale](c, ctx, "/api/sales", q.params())
}

func (c *Client) GetDashboardSummary(ctx context.Context, branchID string) (*DashboardSummary, error) {
	params := map[string]string{}
	if branchID != "" {
		params["branch_id"] = branchID
	}

	var out DashboardSummary
	resp, err := c.request(ctx).
		SetQueryParams(params).
		SetResult(&out).
		SetError(&errorBody{}).
		Get("/api/dashboard/summary")
	if err != nil {
		return nil, fmt.Errorf("dashboard summary: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, mapError(resp)
	}
	return &out, nil
}
