package order

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"gorm.io/gorm"
)

// TxRunner runs a function inside a database transaction. *gorm.DB
// satisfies it directly.
type TxRunner interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// Service drives the service-order lifecycle. Completion is gated on the
// mandatory checklist; ForceComplete is the supervised escape hatch that
// skips what is left and records who decided that.
type Service struct {
	db      TxRunner
	repo    Repository
	loggerf func(format string, args ...interface{})
}

func NewService(db TxRunner, repo Repository, loggerf func(format string, args ...interface{})) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{db: db, repo: repo, loggerf: loggerf}
}

// CreateOrder opens an order and copies the active checklist template of
// its type onto it, in one transaction.
func (s *Service) CreateOrder(ctx context.Context, req *CreateOrderRequest, actor string) (*ServiceOrder, error) {
	t := Type(strings.ToLower(strings.TrimSpace(req.Type)))
	if !t.Valid() {
		return nil, ErrValidation
	}
	if req.ClientID <= 0 || strings.TrimSpace(req.Title) == "" {
		return nil, ErrValidation
	}

	priority := Priority(req.Priority)
	if priority == "" {
		priority = PriorityNormal
	}
	if !priority.Valid() {
		return nil, ErrValidation
	}

	o := &ServiceOrder{
		ClientID:    req.ClientID,
		Type:        t,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      StatusOpen,
		Priority:    priority,
		AssignedTo:  req.AssignedTo,
		OpenedAt:    time.Now().UTC(),
		CreatedBy:   actor,
		UpdatedBy:   actor,
	}
	if req.ContractID > 0 {
		o.ContractID = sql.NullInt64{Int64: req.ContractID, Valid: true}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, o); err != nil {
			return err
		}

		templates, err := repo.ListTemplates(ctx, t)
		if err != nil {
			return err
		}
		rows := make([]*ChecklistProgress, 0, len(templates))
		for _, item := range templates {
			rows = append(rows, &ChecklistProgress{
				OrderID:       o.ID,
				ItemID:        sql.NullInt64{Int64: item.ID, Valid: true},
				Label:         item.Label,
				Mandatory:     item.Mandatory,
				DisplayOrder:  item.DisplayOrder,
				AutoGenerated: true,
			})
		}
		return repo.CreateProgress(ctx, rows)
	})
	if err != nil {
		return nil, err
	}

	s.loggerf("level=info msg=service order opened order_id=%d type=%s client_id=%d", o.ID, o.Type, o.ClientID)
	return o, nil
}

// AdvanceStatus moves the order along the status graph. Moving to
// completed requires every mandatory checklist line to be settled.
func (s *Service) AdvanceStatus(ctx context.Context, id int64, to Status, actor string) (*ServiceOrder, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, to) {
		return nil, &TransitionError{OrderID: id, From: o.Status, To: to}
	}

	if to == StatusCompleted {
		if err := s.checkMandatorySettled(ctx, id); err != nil {
			return nil, err
		}
	}

	ok, err := s.repo.Transition(ctx, id, o.Status, to, s.transitionStamps(o, to, actor))
	if err != nil {
		return nil, err
	}
	if !ok {
		// another writer moved the order first
		return nil, &TransitionError{OrderID: id, From: o.Status, To: to}
	}
	return s.repo.GetByID(ctx, id)
}

// ForceComplete settles every open mandatory line as skipped and closes
// the order, recording the actor on both. Only started orders can be
// forced.
func (s *Service) ForceComplete(ctx context.Context, id int64, actor string) (*ServiceOrder, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusInProgress && o.Status != StatusAwaitingPart {
		return nil, &TransitionError{OrderID: id, From: o.Status, To: StatusCompleted}
	}

	now := time.Now().UTC()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		skipped, err := repo.SkipPendingMandatory(ctx, id, actor, now)
		if err != nil {
			return err
		}
		if skipped > 0 {
			s.loggerf("level=warn msg=mandatory checklist skipped on forced completion order_id=%d skipped=%d actor=%s", id, skipped, actor)
		}
		ok, err := repo.Transition(ctx, id, o.Status, StatusCompleted, s.transitionStamps(o, StatusCompleted, actor))
		if err != nil {
			return err
		}
		if !ok {
			return &TransitionError{OrderID: id, From: o.Status, To: StatusCompleted}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// transitionStamps builds the timeline columns for the target status.
// started_at is only stamped once so the awaiting_part round trip keeps
// the original start.
func (s *Service) transitionStamps(o *ServiceOrder, to Status, actor string) map[string]any {
	now := time.Now().UTC()
	updates := map[string]any{"updated_by": actor}

	switch to {
	case StatusInProgress:
		if !o.StartedAt.Valid {
			updates["started_at"] = now
		}
		updates["awaiting_since"] = nil
	case StatusAwaitingPart:
		updates["awaiting_since"] = now
	case StatusCompleted:
		updates["completed_at"] = now
		updates["completed_by"] = actor
	}
	return updates
}

func (s *Service) checkMandatorySettled(ctx context.Context, orderID int64) error {
	rows, err := s.repo.ListProgress(ctx, orderID)
	if err != nil {
		return err
	}
	var pending []string
	for _, p := range rows {
		if p.Mandatory && !p.Settled() {
			pending = append(pending, p.Label)
		}
	}
	if len(pending) > 0 {
		return &ChecklistIncompleteError{OrderID: orderID, Pending: pending}
	}
	return nil
}

// UpdateChecklistEntry settles or reopens one line. The checklist is
// frozen once the order completes.
func (s *Service) UpdateChecklistEntry(ctx context.Context, orderID, entryID int64, req *UpdateChecklistEntryRequest, actor string) (*ChecklistProgress, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusCompleted {
		return nil, ErrOrderClosed
	}

	p, err := s.repo.GetProgress(ctx, orderID, entryID)
	if err != nil {
		return nil, err
	}

	if req.Completed != nil {
		p.Completed = *req.Completed
	}
	if req.Skipped != nil {
		p.Skipped = *req.Skipped
	}
	if req.Notes != nil {
		p.Notes = *req.Notes
	}
	if p.Settled() {
		p.CompletedBy = actor
		p.CompletedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	} else {
		p.CompletedBy = ""
		p.CompletedAt = sql.NullTime{}
	}
	if err := s.repo.UpdateProgress(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// AddChecklistEntry appends a hand-written line to an open order.
func (s *Service) AddChecklistEntry(ctx context.Context, orderID int64, req *AddChecklistEntryRequest, actor string) (*ChecklistProgress, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusCompleted {
		return nil, ErrOrderClosed
	}
	if strings.TrimSpace(req.Label) == "" {
		return nil, ErrValidation
	}

	rows, err := s.repo.ListProgress(ctx, orderID)
	if err != nil {
		return nil, err
	}
	maxOrder := 0
	for _, r := range rows {
		if r.DisplayOrder > maxOrder {
			maxOrder = r.DisplayOrder
		}
	}

	p := &ChecklistProgress{
		OrderID:       orderID,
		Label:         strings.TrimSpace(req.Label),
		Mandatory:     req.Mandatory,
		DisplayOrder:  maxOrder + 1,
		AutoGenerated: false,
	}
	if err := s.repo.CreateProgress(ctx, []*ChecklistProgress{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns the order with its checklist and completion figure.
func (s *Service) Get(ctx context.Context, id int64) (*OrderResponse, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListProgress(ctx, id)
	if err != nil {
		return nil, err
	}
	return &OrderResponse{
		Order:             o,
		Checklist:         rows,
		CompletionPercent: completionPercent(rows),
	}, nil
}

func (s *Service) List(ctx context.Context, clientID int64, status Status, limit, offset int) ([]*ServiceOrder, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.List(ctx, clientID, status, limit, offset)
}

// CreateTemplate registers a reusable checklist line for an order type.
func (s *Service) CreateTemplate(ctx context.Context, req *CreateTemplateRequest) (*ChecklistItem, error) {
	t := Type(strings.ToLower(strings.TrimSpace(req.OrderType)))
	if !t.Valid() || strings.TrimSpace(req.Label) == "" {
		return nil, ErrValidation
	}
	item := &ChecklistItem{
		OrderType:    t,
		Label:        strings.TrimSpace(req.Label),
		Description:  req.Description,
		Mandatory:    req.Mandatory,
		Active:       true,
		DisplayOrder: req.DisplayOrder,
	}
	if err := s.repo.CreateTemplate(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeactivateTemplate retires a template line. Orders that already copied
// it keep their snapshot.
func (s *Service) DeactivateTemplate(ctx context.Context, id int64) error {
	return s.repo.SetTemplateActive(ctx, id, false)
}

func completionPercent(rows []*ChecklistProgress) int {
	if len(rows) == 0 {
		return 100
	}
	settled := 0
	for _, p := range rows {
		if p.Settled() {
			settled++
		}
	}
	return settled * 100 / len(rows)
}
