package handler

import (
	"net/http"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/service"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	dashboardService *service.DashboardService
	budgetService    *service.BudgetService
	teamService      *service.TeamService
	logger           *zap.Logger
}

func NewDashboardHandler(
	dashboardService *service.DashboardService,
	budgetService *service.BudgetService,
	teamService *service.TeamService,
	logger *zap.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		budgetService:    budgetService,
		teamService:      teamService,
		logger:           logger,
	}
}

// @Summary Get maintenance budget
// @Description Spend of the current calendar month against the landlord's monthly budget.
// @Description
// @Description - `totalSpent`: sum of actual cost of requests completed this month
// @Description - `utilization`: totalSpent / monthlyBudget as a percentage, 0 when no budget is set
// @Description - `spentByStaff`: per assignee totals, largest first
// @Description
// @Description Landlords see their own budget. Staff and managers see the landlord they work for.
// @Description API key callers must pass `landlordId`.
// @Tags Dashboard
// @Produce json
// @Param landlordId query string false "Landlord ID"
// @Success 200 {object} domain.BudgetInfoDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /budget [get]
func (h *DashboardHandler) GetBudget(w http.ResponseWriter, r *http.Request) {
	info, err := h.budgetService.GetForCurrentUser(r.Context(), r.URL.Query().Get("landlordId"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to compute budget")
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// @Summary List team members
// @Tags Dashboard
// @Produce json
// @Param landlordId query string false "Landlord ID"
// @Success 200 {array} domain.TeamMemberDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /team [get]
func (h *DashboardHandler) ListTeam(w http.ResponseWriter, r *http.Request) {
	members, err := h.teamService.List(r.Context(), r.URL.Query().Get("landlordId"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list team")
		return
	}
	respondJSON(w, http.StatusOK, members)
}

// @Summary Add a team member
// @Description Landlord only
// @Tags Dashboard
// @Accept json
// @Produce json
// @Param request body domain.AddTeamMemberRequest true "Team member"
// @Success 201 {object} domain.TeamMemberDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /team [post]
func (h *DashboardHandler) AddTeamMember(w http.ResponseWriter, r *http.Request) {
	var req domain.AddTeamMemberRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	member, err := h.teamService.Add(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to add team member")
		return
	}
	respondJSON(w, http.StatusCreated, member)
}

// @Summary Get dashboard state
// @Tags Dashboard
// @Produce json
// @Success 200 {object} domain.DashboardStateDTO
// @Security BearerAuth
// @Router /dashboard/state [get]
func (h *DashboardHandler) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := h.dashboardService.GetState(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load dashboard state")
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// @Summary Update dashboard state
// @Tags Dashboard
// @Accept json
// @Produce json
// @Param request body domain.UpdateDashboardStateRequest true "View and selections"
// @Success 200 {object} domain.DashboardStateDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /dashboard/state [put]
func (h *DashboardHandler) UpdateState(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateDashboardStateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	state, err := h.dashboardService.UpdateState(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to save dashboard state")
		return
	}
	respondJSON(w, http.StatusOK, state)
}
