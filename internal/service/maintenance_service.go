package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/auth"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/logger"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/mapper"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/realtime"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/repository"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/search"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Variance labels of a completion summary
const (
	VarianceUnderBudget = "under budget"
	VarianceOverBudget  = "over budget"
	VarianceOnBudget    = "on budget"
)

const searchLimit = 50

// MaintenanceListParams holds list query options
type MaintenanceListParams struct {
	Page     int
	PageSize int
	Status   string
	// Assigned is "me", "unassigned" or empty
	Assigned  string
	Priority  string
	Property  string
	SortBy    string
	SortOrder string
}

// QuoteDocument is an optional vendor document uploaded with a quote
type QuoteDocument struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// MaintenanceService runs the maintenance request lifecycle
type MaintenanceService struct {
	db              *gorm.DB
	maintenanceRepo *repository.MaintenanceRepository
	quoteRepo       *repository.QuoteRepository
	eventRepo       *repository.MaintenanceEventRepository
	notifications   *NotificationService
	budget          *BudgetService
	publisher       realtime.Publisher
	indexer         search.Indexer
	storage         storage.Storage
	logger          *zap.Logger
	now             func() time.Time
}

// NewMaintenanceService creates a new MaintenanceService instance
func NewMaintenanceService(
	db *gorm.DB,
	maintenanceRepo *repository.MaintenanceRepository,
	quoteRepo *repository.QuoteRepository,
	eventRepo *repository.MaintenanceEventRepository,
	notifications *NotificationService,
	budget *BudgetService,
	publisher realtime.Publisher,
	indexer search.Indexer,
	store storage.Storage,
	logger *zap.Logger,
) *MaintenanceService {
	if indexer == nil {
		indexer = search.Noop{}
	}
	// Timestamps match the database's microsecond precision so the legacy
	// key derived from createdAt is stable across reloads.
	return &MaintenanceService{
		db:              db,
		maintenanceRepo: maintenanceRepo,
		quoteRepo:       quoteRepo,
		eventRepo:       eventRepo,
		notifications:   notifications,
		budget:          budget,
		publisher:       publisher,
		indexer:         indexer,
		storage:         store,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// canView reports whether the user may read the request
func canView(user *auth.UserContext, req *domain.MaintenanceRequest) bool {
	switch {
	case user.IsSystem():
		return true
	case user.Role == domain.RoleTenant:
		return req.TenantID == user.UserID
	case user.Role == domain.RoleLandlord:
		return req.LandlordID == user.UserID
	case user.IsStaff():
		if user.LandlordID == "" {
			return req.AssignedTo == user.UserID
		}
		return req.LandlordID == user.LandlordID
	}
	return false
}

// canWork reports whether the user may change the request as landlord or staff
func canWork(user *auth.UserContext, req *domain.MaintenanceRequest) bool {
	if user.IsSystem() {
		return true
	}
	if user.Role != domain.RoleLandlord && !user.IsStaff() {
		return false
	}
	return user.CanAccessLandlord(req.LandlordID)
}

// load fetches a request and checks the caller may see it. Requests outside
// the caller's scope are reported as not found.
func (s *MaintenanceService) load(ctx context.Context, id string) (*domain.MaintenanceRequest, *auth.UserContext, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, nil, ErrUserContextRequired
	}

	req, err := s.maintenanceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to get maintenance request: %w", err)
	}
	if !canView(userCtx, req) {
		return nil, nil, ErrNotFound
	}
	return req, userCtx, nil
}

// loadForWork is load plus the landlord/staff write check
func (s *MaintenanceService) loadForWork(ctx context.Context, id string) (*domain.MaintenanceRequest, *auth.UserContext, error) {
	req, userCtx, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !canWork(userCtx, req) {
		return nil, nil, ErrPermissionDenied
	}
	return req, userCtx, nil
}

// recordEvent appends the request's current state to the replication outbox
func (s *MaintenanceService) recordEvent(ctx context.Context, tx *gorm.DB, req *domain.MaintenanceRequest) error {
	payload, err := json.Marshal(req.ToLegacy())
	if err != nil {
		return fmt.Errorf("failed to marshal mirror payload: %w", err)
	}
	event := &domain.MaintenanceEvent{
		RequestID: req.ID,
		Version:   req.Version,
		Payload:   payload,
	}
	if err := s.eventRepo.WithTx(tx).Create(ctx, event); err != nil {
		return fmt.Errorf("failed to record maintenance event: %w", err)
	}
	return nil
}

// commit writes req with version+1 and its outbox event in one transaction.
// extra runs first inside the same transaction.
func (s *MaintenanceService) commit(ctx context.Context, req *domain.MaintenanceRequest, extra func(tx *gorm.DB) error) error {
	expected := req.Version
	req.Version = expected + 1
	req.UpdatedAt = s.now()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if extra != nil {
			if err := extra(tx); err != nil {
				return err
			}
		}
		if err := s.maintenanceRepo.WithTx(tx).UpdateVersioned(ctx, req, expected); err != nil {
			return err
		}
		return s.recordEvent(ctx, tx, req)
	})
	if err != nil {
		req.Version = expected
		if errors.Is(err, repository.ErrVersionConflict) {
			return fmt.Errorf("%w: maintenance request was modified, reload and retry", ErrConflict)
		}
		return err
	}
	return nil
}

// afterChange runs the post-commit side effects. None of them can fail the
// operation.
func (s *MaintenanceService) afterChange(ctx context.Context, req *domain.MaintenanceRequest, notification *domain.Notification) {
	log := logger.WithMaintenanceRequest(s.logger, req.ID, req.Version)

	if notification != nil && notification.UserID != "" && notification.UserID != notification.SenderID {
		s.notifications.DispatchBestEffort(ctx, notification)
	}

	realtime.PublishToUsers(ctx, s.publisher, log, realtime.EventMaintenanceUpdated,
		mapper.ToMaintenanceRequestDTO(req), req.LandlordID, req.TenantID, req.AssignedTo)

	if err := s.indexer.IndexMaintenance(ctx, search.RecordFromRequest(req)); err != nil && !errors.Is(err, search.ErrUnavailable) {
		log.Warn("failed to index maintenance request", zap.Error(err))
	}
}

func maintenanceNotification(
	notificationType domain.NotificationType,
	recipientID string,
	actor *auth.UserContext,
	req *domain.MaintenanceRequest,
	title, message string,
) *domain.Notification {
	requestID := req.ID
	return &domain.Notification{
		UserID:               recipientID,
		Type:                 string(notificationType),
		Title:                title,
		Message:              truncate(message, 500),
		SenderID:             actor.UserID,
		SenderName:           actor.Name,
		MaintenanceRequestID: &requestID,
	}
}

func displayName(user *auth.UserContext) string {
	if user.Name != "" {
		return user.Name
	}
	return user.UserID
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func location(req *domain.MaintenanceRequest) string {
	if req.Unit == "" {
		return req.Property
	}
	return req.Property + " " + req.Unit
}

// Create files a new maintenance request
func (s *MaintenanceService) Create(ctx context.Context, in *domain.CreateMaintenanceRequest) (*domain.MaintenanceRequestDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUserContextRequired
	}

	priority := domain.MaintenancePriority(strings.ToLower(in.Priority))
	if !priority.IsValid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, in.Priority)
	}

	req := &domain.MaintenanceRequest{
		PropertyID:  in.PropertyID,
		Property:    strings.TrimSpace(in.Property),
		Unit:        strings.TrimSpace(in.Unit),
		Issue:       strings.TrimSpace(in.Issue),
		Description: strings.TrimSpace(in.Description),
		Priority:    priority,
		Status:      domain.StatusPending,
		Version:     1,
	}
	if req.Issue == "" || req.Property == "" {
		return nil, fmt.Errorf("%w: issue and property are required", ErrInvalidInput)
	}

	switch {
	case userCtx.Role == domain.RoleTenant:
		req.LandlordID = in.LandlordID
		req.TenantID = userCtx.UserID
		req.Tenant = displayName(userCtx)
	case userCtx.Role == domain.RoleLandlord:
		req.LandlordID = userCtx.UserID
		req.TenantID = in.TenantID
		req.Tenant = in.Tenant
	case userCtx.IsStaff():
		req.LandlordID = userCtx.LandlordID
		req.TenantID = in.TenantID
		req.Tenant = in.Tenant
	case userCtx.IsSystem():
		req.LandlordID = in.LandlordID
		req.TenantID = in.TenantID
		req.Tenant = in.Tenant
	default:
		return nil, ErrPermissionDenied
	}
	if req.LandlordID == "" {
		return nil, fmt.Errorf("%w: landlordId is required", ErrInvalidInput)
	}

	now := s.now()
	req.CreatedAt = now
	req.UpdatedAt = now

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.maintenanceRepo.WithTx(tx).Create(ctx, req); err != nil {
			return fmt.Errorf("failed to create maintenance request: %w", err)
		}
		return s.recordEvent(ctx, tx, req)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("maintenance request created",
		zap.String("requestID", req.ID),
		zap.String("landlordID", req.LandlordID),
		zap.String("priority", string(req.Priority)),
	)

	tenant := req.Tenant
	if tenant == "" {
		tenant = "A tenant"
	}
	s.afterChange(ctx, req, maintenanceNotification(
		domain.NotificationTypeNewMaintenanceRequest, req.LandlordID, userCtx, req,
		"New maintenance request",
		fmt.Sprintf("%s reported %q at %s (%s priority)", tenant, req.Issue, location(req), req.Priority),
	))

	dto := mapper.ToMaintenanceRequestDTO(req)
	return &dto, nil
}

// GetByID returns a request visible to the caller
func (s *MaintenanceService) GetByID(ctx context.Context, id string) (*domain.MaintenanceRequestDTO, error) {
	req, _, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToMaintenanceRequestDTO(req)
	return &dto, nil
}

// List returns the caller's requests with pagination
func (s *MaintenanceService) List(ctx context.Context, params MaintenanceListParams) (*domain.PaginatedResponse, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUserContextRequired
	}

	filter := repository.MaintenanceFilter{PropertyID: params.Property}
	if params.Status != "" {
		status, err := domain.ParseMaintenanceStatus(params.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		filter.Status = &status
	}
	if params.Priority != "" {
		priority := domain.MaintenancePriority(strings.ToLower(params.Priority))
		if !priority.IsValid() {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, params.Priority)
		}
		filter.Priority = &priority
	}
	switch params.Assigned {
	case "":
	case "me":
		me := userCtx.UserID
		filter.AssignedTo = &me
	case "unassigned":
		empty := ""
		filter.AssignedTo = &empty
	default:
		return nil, fmt.Errorf("%w: assigned must be 'me' or 'unassigned'", ErrInvalidInput)
	}

	page, pageSize := repository.NormalizePage(params.Page, params.PageSize)
	sortCfg := repository.DefaultSortConfig()
	if params.SortBy != "" {
		sortCfg.Field = params.SortBy
	}
	sortCfg.Order = repository.ParseSortOrder(params.SortOrder)

	requests, total, err := s.maintenanceRepo.List(ctx, filter, page, pageSize, sortCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance requests: %w", err)
	}

	dtos := make([]domain.MaintenanceRequestDTO, len(requests))
	for i := range requests {
		dtos[i] = mapper.ToMaintenanceRequestDTO(&requests[i])
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &domain.PaginatedResponse{
		Data:       dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Search finds requests by text through the search index, falling back to
// the database when the index is unavailable
func (s *MaintenanceService) Search(ctx context.Context, text string) ([]domain.MaintenanceRequestDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUserContextRequired
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrInvalidInput)
	}

	q := search.Query{Text: text, Limit: searchLimit}
	switch {
	case userCtx.IsSystem():
	case userCtx.Role == domain.RoleTenant:
		q.TenantID = userCtx.UserID
	case userCtx.ScopeLandlordID() != "":
		q.LandlordID = userCtx.ScopeLandlordID()
	default:
		q.AssignedTo = userCtx.UserID
	}

	var requests []domain.MaintenanceRequest
	ids, err := s.indexer.SearchMaintenance(ctx, q)
	if err == nil {
		requests, err = s.maintenanceRepo.GetByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load search results: %w", err)
		}
	} else {
		if !errors.Is(err, search.ErrUnavailable) {
			s.logger.Warn("search index query failed, using database", zap.Error(err))
		}
		requests, err = s.maintenanceRepo.SearchText(ctx, text, searchLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to search maintenance requests: %w", err)
		}
	}

	dtos := make([]domain.MaintenanceRequestDTO, len(requests))
	for i := range requests {
		dtos[i] = mapper.ToMaintenanceRequestDTO(&requests[i])
	}
	return dtos, nil
}

// SelfAssign lets a staff member claim an unassigned request. Concurrent
// claims are settled by a conditional update; the loser gets ErrAlreadyAssigned.
func (s *MaintenanceService) SelfAssign(ctx context.Context, id string) (*domain.MaintenanceRequestDTO, error) {
	req, userCtx, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !userCtx.IsStaff() || !userCtx.CanAccessLandlord(req.LandlordID) {
		return nil, ErrPermissionDenied
	}
	if req.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: request is already completed", ErrInvalidTransition)
	}
	if req.IsAssigned() {
		return nil, ErrAlreadyAssigned
	}

	var claimed *domain.MaintenanceRequest
	err = s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.maintenanceRepo.WithTx(tx)
		ok, err := repo.ClaimUnassigned(ctx, id, userCtx.UserID, displayName(userCtx), s.now())
		if err != nil {
			return fmt.Errorf("failed to assign maintenance request: %w", err)
		}
		if !ok {
			return ErrAlreadyAssigned
		}
		claimed, err = repo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to reload maintenance request: %w", err)
		}
		return s.recordEvent(ctx, tx, claimed)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("maintenance request assigned",
		zap.String("requestID", id),
		zap.String("staffID", userCtx.UserID),
	)

	s.afterChange(ctx, claimed, maintenanceNotification(
		domain.NotificationTypeMaintenanceAssigned, claimed.LandlordID, userCtx, claimed,
		"Maintenance request assigned",
		fmt.Sprintf("%s is handling %q at %s", displayName(userCtx), claimed.Issue, location(claimed)),
	))

	dto := mapper.ToMaintenanceRequestDTO(claimed)
	return &dto, nil
}

// UpdateStatus applies a plain status transition
func (s *MaintenanceService) UpdateStatus(ctx context.Context, id string, in *domain.UpdateStatusRequest) (*domain.MaintenanceRequestDTO, error) {
	next, err := domain.ParseMaintenanceStatus(in.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	req, userCtx, err := s.loadForWork(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, req.Status, next)
	}

	now := s.now()
	req.Status = next
	switch next {
	case domain.StatusInProgress:
		req.StartedAt = &now
	case domain.StatusCompleted:
		req.CompletedAt = &now
		req.CompletedBy = userCtx.UserID
		req.CompletedByName = displayName(userCtx)
	}

	if err := s.commit(ctx, req, nil); err != nil {
		return nil, err
	}

	s.logger.Info("maintenance status updated",
		zap.String("requestID", id),
		zap.String("status", string(next)),
	)

	s.afterChange(ctx, req, maintenanceNotification(
		domain.NotificationTypeMaintenanceStatus, req.LandlordID, userCtx, req,
		"Maintenance status updated",
		fmt.Sprintf("%q at %s is now %s", req.Issue, location(req), req.Status),
	))

	dto := mapper.ToMaintenanceRequestDTO(req)
	return &dto, nil
}

func validateLineItems(items []domain.CostLineItemInput) error {
	for _, item := range items {
		if strings.TrimSpace(item.Item) == "" {
			return fmt.Errorf("%w: every line needs an item description", ErrInvalidInput)
		}
		if item.Quantity.IsNegative() || item.UnitCost.IsNegative() {
			return fmt.Errorf("%w: quantities and unit costs cannot be negative", ErrInvalidInput)
		}
		if !domain.WithinAmountLimit(item.UnitCost) || !domain.WithinAmountLimit(domain.LineTotal(item.Quantity, item.UnitCost)) {
			return fmt.Errorf("%w: line %q exceeds the maximum amount of %s", ErrInvalidInput, item.Item, domain.FormatKSH(domain.MaxAmount))
		}
	}
	return nil
}

func checkAmountLimit(field string, amount decimal.Decimal) error {
	if !domain.WithinAmountLimit(amount) {
		return fmt.Errorf("%w: %s exceeds the maximum amount of %s", ErrInvalidInput, field, domain.FormatKSH(domain.MaxAmount))
	}
	return nil
}

// SubmitEstimate records a cost estimate. Line totals are recomputed here
// and a zero total is rejected before anything is written.
func (s *MaintenanceService) SubmitEstimate(ctx context.Context, id string, in *domain.SubmitEstimateRequest) (*domain.MaintenanceRequestDTO, error) {
	if err := validateLineItems(in.CostBreakdown); err != nil {
		return nil, err
	}
	items, total := domain.SumLineItems(in.CostBreakdown)
	if len(items) == 0 || !total.IsPositive() {
		return nil, ErrZeroEstimate
	}
	if err := checkAmountLimit("estimate total", total); err != nil {
		return nil, err
	}

	req, userCtx, err := s.loadForWork(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.StatusPending && req.Status != domain.StatusInProgress {
		return nil, fmt.Errorf("%w: cannot estimate a %s request", ErrInvalidTransition, req.Status)
	}

	now := s.now()
	req.CostBreakdown = items
	req.EstimatedCost = total
	req.EstimatedDuration = strings.TrimSpace(in.EstimatedDuration)
	req.Status = domain.StatusEstimated
	req.RequiresApproval = true
	req.EstimatedAt = &now

	if err := s.commit(ctx, req, nil); err != nil {
		return nil, err
	}

	s.logger.Info("maintenance estimate submitted",
		zap.String("requestID", id),
		zap.String("estimatedCost", total.StringFixed(2)),
	)

	s.afterChange(ctx, req, maintenanceNotification(
		domain.NotificationTypeEstimateSubmitted, req.LandlordID, userCtx, req,
		"Cost estimate submitted",
		fmt.Sprintf("%s estimated %s for %q", displayName(userCtx), domain.FormatKSH(total), req.Issue),
	))

	dto := mapper.ToMaintenanceRequestDTO(req)
	return &dto, nil
}

// SubmitQuote attaches a vendor quote, optionally with an uploaded document
func (s *MaintenanceService) SubmitQuote(ctx context.Context, id string, in *domain.SubmitQuoteRequest, doc *QuoteDocument) (*domain.QuoteDTO, error) {
	vendorName := strings.TrimSpace(in.VendorName)
	vendorContact := strings.TrimSpace(in.VendorContact)
	if vendorName == "" || vendorContact == "" {
		return nil, fmt.Errorf("%w: vendor name and contact are required", ErrInvalidInput)
	}

	items := make([]domain.QuoteItem, 0, len(in.ItemizedCosts))
	itemTotal := decimal.Zero
	for _, item := range in.ItemizedCosts {
		if item.Cost.IsNegative() {
			return nil, fmt.Errorf("%w: itemized costs cannot be negative", ErrInvalidInput)
		}
		cost := item.Cost.Round(2)
		items = append(items, domain.QuoteItem{Item: item.Item, Cost: cost})
		itemTotal = itemTotal.Add(cost)
	}
	amount := in.Amount.Round(2)
	if amount.IsZero() {
		amount = itemTotal
	}
	// amounts are stored to the cent, so check after rounding
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: quote amount must be at least %s", ErrInvalidInput, domain.FormatKSH(decimal.New(1, -2)))
	}
	if err := checkAmountLimit("quote amount", amount); err != nil {
		return nil, err
	}

	req, userCtx, err := s.loadForWork(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: request is already completed", ErrInvalidTransition)
	}

	quote := &domain.Quote{
		MaintenanceRequestID: req.ID,
		VendorName:           vendorName,
		VendorContact:        vendorContact,
		VendorEmail:          strings.TrimSpace(in.VendorEmail),
		Amount:               amount,
		ItemizedCosts:        items,
		QuoteNumber:          strings.TrimSpace(in.QuoteNumber),
		ValidUntil:           in.ValidUntil,
		SubmittedBy:          userCtx.UserID,
		SubmittedByName:      displayName(userCtx),
		Status:               domain.QuoteStatusPending,
	}

	if doc != nil && s.storage != nil {
		key, size, err := s.storage.Upload(ctx, req.ID, doc.Filename, doc.ContentType, doc.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to store quote document: %w", err)
		}
		quote.DocumentPath = key
		s.logger.Debug("quote document stored", zap.String("key", key), zap.Int64("size", size))
	}

	req.QuotesSubmitted++
	req.Status = domain.StatusQuotesSubmitted
	req.RequiresApproval = true

	err = s.commit(ctx, req, func(tx *gorm.DB) error {
		if err := s.quoteRepo.WithTx(tx).Create(ctx, quote); err != nil {
			return fmt.Errorf("failed to create quote: %w", err)
		}
		return nil
	})
	if err != nil {
		if quote.DocumentPath != "" {
			if delErr := s.storage.Delete(ctx, quote.DocumentPath); delErr != nil {
				s.logger.Warn("failed to remove orphaned quote document", zap.String("key", quote.DocumentPath), zap.Error(delErr))
			}
		}
		return nil, err
	}

	s.logger.Info("vendor quote submitted",
		zap.String("requestID", id),
		zap.String("quoteID", quote.ID),
		zap.Int("quotesSubmitted", req.QuotesSubmitted),
	)

	s.afterChange(ctx, req, maintenanceNotification(
		domain.NotificationTypeQuoteSubmitted, req.LandlordID, userCtx, req,
		"Vendor quote submitted",
		fmt.Sprintf("%s quoted %s for %q", vendorName, domain.FormatKSH(quote.Amount), req.Issue),
	))

	dto := mapper.ToQuoteDTO(quote)
	return &dto, nil
}

// ListQuotes returns the quotes of a request
func (s *MaintenanceService) ListQuotes(ctx context.Context, id string) ([]domain.QuoteDTO, error) {
	req, _, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	quotes, err := s.quoteRepo.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}

	dtos := make([]domain.QuoteDTO, len(quotes))
	for i := range quotes {
		dtos[i] = mapper.ToQuoteDTO(&quotes[i])
	}
	return dtos, nil
}

// OpenQuoteDocument streams the document attached to a quote. The caller
// must close the reader.
func (s *MaintenanceService) OpenQuoteDocument(ctx context.Context, requestID, quoteID string) (io.ReadCloser, *domain.Quote, error) {
	req, _, err := s.load(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}

	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to get quote: %w", err)
	}
	if quote.MaintenanceRequestID != req.ID || quote.DocumentPath == "" || s.storage == nil {
		return nil, nil, ErrNotFound
	}

	body, err := s.storage.Download(ctx, quote.DocumentPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to open quote document: %w", err)
	}
	return body, quote, nil
}

// Approve accepts the pending estimate or quotes. Landlords only.
func (s *MaintenanceService) Approve(ctx context.Context, id string) (*domain.MaintenanceRequestDTO, error) {
	req, userCtx, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !userCtx.IsSystem() && (userCtx.Role != domain.RoleLandlord || req.LandlordID != userCtx.UserID) {
		return nil, ErrPermissionDenied
	}
	if req.Status != domain.StatusEstimated && req.Status != domain.StatusQuotesSubmitted {
		return nil, fmt.Errorf("%w: nothing to approve on a %s request", ErrInvalidTransition, req.Status)
	}

	now := s.now()
	req.Status = domain.StatusApproved
	req.RequiresApproval = false
	req.ApprovedBy = userCtx.UserID
	req.ApprovedAt = &now

	if err := s.commit(ctx, req, nil); err != nil {
		return nil, err
	}

	s.logger.Info("maintenance estimate approved", zap.String("requestID", id))

	var notification *domain.Notification
	if req.AssignedTo != "" {
		notification = maintenanceNotification(
			domain.NotificationTypeEstimateApproved, req.AssignedTo, userCtx, req,
			"Estimate approved",
			fmt.Sprintf("%s approved the work on %q", displayName(userCtx), req.Issue),
		)
	}
	s.afterChange(ctx, req, notification)

	dto := mapper.ToMaintenanceRequestDTO(req)
	return &dto, nil
}

// VarianceOf compares the estimate with the actual cost
func VarianceOf(estimated, actual decimal.Decimal) (variance decimal.Decimal, label string) {
	variance = estimated.Sub(actual).Round(2)
	switch variance.Sign() {
	case 1:
		return variance, VarianceUnderBudget
	case -1:
		return variance, VarianceOverBudget
	default:
		return variance, VarianceOnBudget
	}
}

// CompleteWork closes the request with its actual cost and reconciles it
// against the estimate and the landlord's monthly budget
func (s *MaintenanceService) CompleteWork(ctx context.Context, id string, in *domain.CompleteWorkRequest) (*domain.CompletionSummaryDTO, error) {
	if err := validateLineItems(in.ActualCostBreakdown); err != nil {
		return nil, err
	}

	var items []domain.CostLineItem
	actual := decimal.Zero
	if len(in.ActualCostBreakdown) > 0 {
		items, actual = domain.SumLineItems(in.ActualCostBreakdown)
	} else if in.ActualCost != nil {
		actual = in.ActualCost.Round(2)
	}
	if !actual.IsPositive() {
		return nil, ErrActualCostRequired
	}
	if err := checkAmountLimit("actual cost", actual); err != nil {
		return nil, err
	}

	req, userCtx, err := s.loadForWork(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.StatusInProgress && req.Status != domain.StatusApproved {
		return nil, fmt.Errorf("%w: cannot complete a %s request", ErrInvalidTransition, req.Status)
	}

	now := s.now()
	req.ActualCost = actual
	req.ActualCostBreakdown = items
	req.ActualDuration = strings.TrimSpace(in.ActualDuration)
	req.CompletionNotes = strings.TrimSpace(in.CompletionNotes)
	req.CompletedBy = userCtx.UserID
	req.CompletedByName = displayName(userCtx)
	req.CompletedAt = &now
	req.Status = domain.StatusCompleted
	req.RequiresApproval = false

	if err := s.commit(ctx, req, nil); err != nil {
		return nil, err
	}

	variance, label := VarianceOf(req.EstimatedCost, actual)

	s.logger.Info("maintenance work completed",
		zap.String("requestID", id),
		zap.String("actualCost", actual.StringFixed(2)),
		zap.String("variance", label),
	)

	s.afterChange(ctx, req, maintenanceNotification(
		domain.NotificationTypeWorkCompleted, req.LandlordID, userCtx, req,
		"Work completed",
		fmt.Sprintf("%s completed %q for %s (%s)", displayName(userCtx), req.Issue, domain.FormatKSH(actual), label),
	))

	summary := &domain.CompletionSummaryDTO{
		Request:           mapper.ToMaintenanceRequestDTO(req),
		EstimatedCost:     req.EstimatedCost.InexactFloat64(),
		ActualCost:        actual.InexactFloat64(),
		Variance:          variance.InexactFloat64(),
		VarianceLabel:     label,
		VarianceAmount:    variance.Abs().InexactFloat64(),
		VarianceFormatted: domain.FormatKSH(variance.Abs()),
	}

	budget, err := s.budget.Compute(ctx, req.LandlordID)
	if err != nil {
		s.logger.Warn("failed to compute budget after completion", zap.String("requestID", id), zap.Error(err))
	} else {
		summary.Budget = budget
	}
	return summary, nil
}
