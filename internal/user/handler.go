// AngelaMos | 2026
// handler.go

package user

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/relaychat/admin-api/internal/core"
	"github.com/relaychat/admin-api/internal/middleware"
)

// MembershipCoordinator is the organization write surface the directory
// endpoints dispatch into. Implemented by the organization service.
type MembershipCoordinator interface {
	Assign(
		ctx context.Context,
		targetID, orgID string,
	) (*UserResponse, error)
	Remove(
		ctx context.Context,
		actor Actor,
		targetID string,
	) (*UserResponse, error)
	AddByEmail(
		ctx context.Context,
		actor Actor,
		email string,
	) (*UserResponse, error)
}

type Handler struct {
	service    *Service
	membership MembershipCoordinator
	validator  *validator.Validate
}

func NewHandler(
	service *Service,
	membership MembershipCoordinator,
) *Handler {
	return &Handler{
		service:    service,
		membership: membership,
		validator:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/users", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(middleware.RequireAnyAdmin)

		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)

		r.Post("/organization/add", h.AddToOrganization)
		r.Post("/organization/remove", h.RemoveFromOrganization)

		r.Route("/{userID}", func(r chi.Router) {
			r.Get("/", h.GetUser)
			r.Put("/", h.UpdateUser)
			r.Delete("/", h.DeleteUser)
			r.Put("/password", h.ResetPassword)
			r.Put("/role", h.ChangeRole)
			r.Put("/status", h.SetBanStatus)
		})
	})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		core.Unauthorized(w, "")
		return
	}

	q := r.URL.Query()
	params := ListUsersParams{
		Page:         parseIntQuery(q.Get("page"), 1),
		PageSize:     parseIntQuery(q.Get("limit"), defaultPageSize),
		Search:       q.Get("search"),
		Role:         q.Get("role"),
		Status:       q.Get("status"),
		Organization: q.Get("organization"),
		SortBy:       q.Get("sortBy"),
		SortOrder:    q.Get("sortOrder"),
	}

	resp, err := h.service.ListUsers(r.Context(), actor, params)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		core.Unauthorized(w, "")
		return
	}

	resp, err := h.service.GetUser(r.Context(), actor, chi.URLParam(r, "userID"))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		core.Unauthorized(w, "")
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.CreateUser(r.Context(), actor, req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, resp)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		core.Unauthorized(w, "")
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.UpdateUser(
		r.Context(), actor, chi.URLParam(r, "userID"), req,
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		core.Unauthorized(w, "")
		return
	}

	err := h.service.DeleteUser(r.Context(), actor, chi.URLParam(r, "userID"))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, nil)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		core.Unauthorized(w, "")
		return
	}

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	err := h.service.ResetPassword(
		r.Context(), actor, chi.URLParam(r, "userID"), req.Password,
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, nil)
}

func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		core.Unauthorized(w, "")
		return
	}

	var req ChangeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.ChangeRole(
		r.Context(), actor, chi.URLParam(r, "userID"), req.Role,
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) SetBanStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		core.Unauthorized(w, "")
		return
	}

	var req SetBanStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.SetBanStatus(
		r.Context(), actor, chi.URLParam(r, "userID"), *req.Banned,
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

// AddToOrganization dispatches on the caller's scope: global admins assign a
// named user to a named organization; org admins add by email into their own
// organization and cannot name one.
func (h *Handler) AddToOrganization(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		core.Unauthorized(w, "")
		return
	}

	var req AddToOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	var (
		resp *UserResponse
		err  error
	)
	if actor.IsGlobalAdmin() {
		if req.UserID == "" || req.OrganizationID == "" {
			core.BadRequest(w, "userId and organizationId are required")
			return
		}
		resp, err = h.membership.Assign(
			r.Context(), req.UserID, req.OrganizationID,
		)
	} else {
		if req.Email == "" {
			core.BadRequest(w, "email is required")
			return
		}
		resp, err = h.membership.AddByEmail(r.Context(), actor, req.Email)
	}
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) RemoveFromOrganization(
	w http.ResponseWriter,
	r *http.Request,
) {
	actor, ok := actorFrom(r)
	if !ok {
		core.Unauthorized(w, "")
		return
	}

	var req RemoveFromOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.membership.Remove(r.Context(), actor, req.UserID)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func actorFrom(r *http.Request) (Actor, bool) {
	ctx := r.Context()
	id := middleware.GetUserID(ctx)
	if id == "" {
		return Actor{}, false
	}
	return Actor{
		ID:    id,
		Role:  middleware.GetUserRole(ctx),
		OrgID: middleware.GetUserOrgID(ctx),
	}, true
}

func parseIntQuery(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
