package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/auth"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// BudgetService derives the monthly maintenance spend summary of a landlord
type BudgetService struct {
	maintenanceRepo *repository.MaintenanceRepository
	teamRepo        *repository.TeamMemberRepository
	settingsRepo    *repository.LandlordSettingsRepository
	defaultCap      decimal.Decimal
	now             func() time.Time
	logger          *zap.Logger
}

// NewBudgetService creates a BudgetService. defaultCap is used for landlords
// without their own monthly budget.
func NewBudgetService(
	maintenanceRepo *repository.MaintenanceRepository,
	teamRepo *repository.TeamMemberRepository,
	settingsRepo *repository.LandlordSettingsRepository,
	defaultCap float64,
	logger *zap.Logger,
) *BudgetService {
	return &BudgetService{
		maintenanceRepo: maintenanceRepo,
		teamRepo:        teamRepo,
		settingsRepo:    settingsRepo,
		defaultCap:      decimal.NewFromFloat(defaultCap),
		now:             time.Now,
		logger:          logger,
	}
}

// WithClock replaces the time source; used by tests
func (s *BudgetService) WithClock(now func() time.Time) *BudgetService {
	s.now = now
	return s
}

// GetForCurrentUser computes the budget of the caller's landlord. The system
// identity must name the landlord explicitly.
func (s *BudgetService) GetForCurrentUser(ctx context.Context, landlordID string) (*domain.BudgetInfoDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUserContextRequired
	}

	landlordID, err := resolveLandlord(userCtx, landlordID)
	if err != nil {
		return nil, err
	}
	return s.Compute(ctx, landlordID)
}

// resolveLandlord returns the landlord a caller acts for. Landlords and staff
// are pinned to their own scope; the system identity must name one.
func resolveLandlord(userCtx *auth.UserContext, requested string) (string, error) {
	if userCtx.IsSystem() {
		if requested == "" {
			return "", fmt.Errorf("%w: landlordId is required", ErrInvalidInput)
		}
		return requested, nil
	}
	scope := userCtx.ScopeLandlordID()
	if scope == "" || (requested != "" && requested != scope) {
		return "", ErrPermissionDenied
	}
	return scope, nil
}

// Compute sums the landlord's requests completed in the current UTC calendar month
func (s *BudgetService) Compute(ctx context.Context, landlordID string) (*domain.BudgetInfoDTO, error) {
	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	completed, err := s.maintenanceRepo.ListCompletedBetween(ctx, landlordID, monthStart, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed requests: %w", err)
	}

	monthlyCap, err := s.monthlyCap(ctx, landlordID)
	if err != nil {
		return nil, err
	}

	type staffTotal struct {
		name   string
		amount decimal.Decimal
		jobs   int
	}
	byStaff := make(map[string]*staffTotal)
	total := decimal.Zero

	for _, req := range completed {
		total = total.Add(req.ActualCost)

		staffID := req.CompletedBy
		name := req.CompletedByName
		if staffID == "" {
			staffID, name = req.AssignedTo, req.AssignedToName
		}
		if staffID == "" {
			continue
		}
		entry, ok := byStaff[staffID]
		if !ok {
			entry = &staffTotal{name: name}
			byStaff[staffID] = entry
		}
		entry.amount = entry.amount.Add(req.ActualCost)
		entry.jobs++
	}

	staffIDs := make([]string, 0, len(byStaff))
	for id := range byStaff {
		staffIDs = append(staffIDs, id)
	}
	names, err := s.teamRepo.NamesByUserID(ctx, landlordID, staffIDs)
	if err != nil {
		s.logger.Warn("failed to load team names for budget", zap.String("landlordID", landlordID), zap.Error(err))
		names = map[string]string{}
	}

	spent := make([]domain.StaffSpendDTO, 0, len(byStaff))
	for id, entry := range byStaff {
		name := names[id]
		if name == "" {
			name = entry.name
		}
		if name == "" {
			name = id
		}
		spent = append(spent, domain.StaffSpendDTO{
			StaffID:   id,
			StaffName: name,
			Amount:    entry.amount.Round(2).InexactFloat64(),
			Jobs:      entry.jobs,
		})
	}
	sort.Slice(spent, func(i, j int) bool {
		if spent[i].Amount != spent[j].Amount {
			return spent[i].Amount > spent[j].Amount
		}
		return spent[i].StaffID < spent[j].StaffID
	})

	utilization := decimal.Zero
	if monthlyCap.IsPositive() {
		utilization = total.Div(monthlyCap).Mul(hundred).Round(2)
	}

	return &domain.BudgetInfoDTO{
		Month:          monthStart.Format("2006-01"),
		MonthlyBudget:  monthlyCap.Round(2).InexactFloat64(),
		TotalSpent:     total.Round(2).InexactFloat64(),
		Remaining:      monthlyCap.Sub(total).Round(2).InexactFloat64(),
		Utilization:    utilization.InexactFloat64(),
		CompletedJobs:  len(completed),
		SpentByStaff:   spent,
		TotalFormatted: domain.FormatKSH(total),
	}, nil
}

func (s *BudgetService) monthlyCap(ctx context.Context, landlordID string) (decimal.Decimal, error) {
	settings, err := s.settingsRepo.Get(ctx, landlordID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load landlord settings: %w", err)
	}
	if settings != nil && settings.MonthlyBudget.IsPositive() {
		return settings.MonthlyBudget, nil
	}
	return s.defaultCap, nil
}
