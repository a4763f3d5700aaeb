// AngelaMos | 2026
// api.go

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/relaychat/admin-api/internal/admin"
	"github.com/relaychat/admin-api/internal/auth"
	"github.com/relaychat/admin-api/internal/user"
)

// APIClient talks to the admin REST surface. It carries the bearer token of
// the signed-in administrator; the server decides the authority scope from
// the token's role claim, never from anything the client sends.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *APIClient) SetToken(token string) {
	c.token = token
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

func (c *APIClient) Login(
	ctx context.Context,
	email, password string,
) (*auth.AuthResponse, error) {
	var resp auth.AuthResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/login", auth.LoginRequest{
		Email:    email,
		Password: password,
	}, &resp)
	if err != nil {
		return nil, err
	}

	c.token = resp.Tokens.AccessToken
	return &resp, nil
}

// ListQuery mirrors the directory's list parameters. Zero values are
// omitted from the request and take the server's defaults.
type ListQuery struct {
	Page         int
	Limit        int
	Search       string
	Role         string
	Status       string
	Organization string
	SortBy       string
	SortOrder    string
}

// Encode renders the query deterministically so it can double as cache-key
// arguments.
func (q ListQuery) Encode() string {
	values := url.Values{}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	if q.Role != "" {
		values.Set("role", q.Role)
	}
	if q.Status != "" {
		values.Set("status", q.Status)
	}
	if q.Organization != "" {
		values.Set("organization", q.Organization)
	}
	if q.SortBy != "" {
		values.Set("sortBy", q.SortBy)
	}
	if q.SortOrder != "" {
		values.Set("sortOrder", q.SortOrder)
	}
	return values.Encode()
}

// parseQueryArgs is Encode's inverse, used to rebuild a ListQuery from
// cache-key arguments.
func parseQueryArgs(args string) (ListQuery, error) {
	values, err := url.ParseQuery(args)
	if err != nil {
		return ListQuery{}, fmt.Errorf("parse query args: %w", err)
	}

	query := ListQuery{
		Search:       values.Get("search"),
		Role:         values.Get("role"),
		Status:       values.Get("status"),
		Organization: values.Get("organization"),
		SortBy:       values.Get("sortBy"),
		SortOrder:    values.Get("sortOrder"),
	}
	if page := values.Get("page"); page != "" {
		query.Page, _ = strconv.Atoi(page)
	}
	if limit := values.Get("limit"); limit != "" {
		query.Limit, _ = strconv.Atoi(limit)
	}
	return query, nil
}

func (c *APIClient) ListUsers(
	ctx context.Context,
	query ListQuery,
) (*user.ListUsersResponse, error) {
	path := "/v1/admin/users"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp user.ListUsersResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) GetUser(
	ctx context.Context,
	id string,
) (*user.UserResponse, error) {
	var resp user.UserResponse
	err := c.do(ctx, http.MethodGet, "/v1/admin/users/"+id, nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) CreateUser(
	ctx context.Context,
	req user.CreateUserRequest,
) (*user.UserResponse, error) {
	var resp user.UserResponse
	err := c.do(ctx, http.MethodPost, "/v1/admin/users", req, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) UpdateUser(
	ctx context.Context,
	id string,
	req user.UpdateUserRequest,
) (*user.UserResponse, error) {
	var resp user.UserResponse
	err := c.do(ctx, http.MethodPut, "/v1/admin/users/"+id, req, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/admin/users/"+id, nil, nil)
}

func (c *APIClient) ResetPassword(
	ctx context.Context,
	id, password string,
) error {
	return c.do(
		ctx,
		http.MethodPut,
		"/v1/admin/users/"+id+"/password",
		user.ResetPasswordRequest{Password: password},
		nil,
	)
}

func (c *APIClient) ChangeRole(
	ctx context.Context,
	id, role string,
) (*user.UserResponse, error) {
	var resp user.UserResponse
	err := c.do(
		ctx,
		http.MethodPut,
		"/v1/admin/users/"+id+"/role",
		user.ChangeRoleRequest{Role: role},
		&resp,
	)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) SetBanStatus(
	ctx context.Context,
	id string,
	banned bool,
) (*user.UserResponse, error) {
	var resp user.UserResponse
	err := c.do(
		ctx,
		http.MethodPut,
		"/v1/admin/users/"+id+"/status",
		user.SetBanStatusRequest{Banned: &banned},
		&resp,
	)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) AddToOrganization(
	ctx context.Context,
	req user.AddToOrganizationRequest,
) (*user.UserResponse, error) {
	var resp user.UserResponse
	err := c.do(
		ctx,
		http.MethodPost,
		"/v1/admin/users/organization/add",
		req,
		&resp,
	)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) RemoveFromOrganization(
	ctx context.Context,
	targetID string,
) (*user.UserResponse, error) {
	var resp user.UserResponse
	err := c.do(
		ctx,
		http.MethodPost,
		"/v1/admin/users/organization/remove",
		user.RemoveFromOrganizationRequest{UserID: targetID},
		&resp,
	)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) DirectoryStats(
	ctx context.Context,
) (*admin.DirectoryStats, error) {
	var resp admin.DirectoryStats
	err := c.do(ctx, http.MethodGet, "/v1/admin/stats/directory", nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) do(
	ctx context.Context,
	method, path string,
	body, out any,
) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(
		ctx, method, c.baseURL+path, reader,
	)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // drained response body

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}

	if !envelope.Success {
		if envelope.Error != nil {
			return envelope.Error
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil && envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode payload: %w", method, path, err)
		}
	}

	return nil
}
