package contract

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Service owns the contract signature state machine and the renewal
// chain integrity rules.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new contract in the awaiting state.
func (s *Service) Create(ctx context.Context, req *CreateContractRequest, actor string) (*Contract, error) {
	if req.PaymentDay < 1 || req.PaymentDay > 31 {
		return nil, ErrValidation
	}
	if !req.PaymentFrequency.Valid() {
		return nil, ErrValidation
	}

	value, err := decimal.NewFromString(req.Value)
	if err != nil || value.IsNegative() {
		return nil, ErrValidation
	}
	discount := decimal.Zero
	if req.TotalDiscount != "" {
		discount, err = decimal.NewFromString(req.TotalDiscount)
		if err != nil || discount.IsNegative() {
			return nil, ErrValidation
		}
	}
	lateFee := decimal.Zero
	if req.LateFeePercent != "" {
		lateFee, err = decimal.NewFromString(req.LateFeePercent)
		if err != nil || lateFee.IsNegative() {
			return nil, ErrValidation
		}
	}

	c := &Contract{
		ClientID:         req.ClientID,
		Title:            req.Title,
		Description:      req.Description,
		Type:             req.Type,
		SignatureStatus:  SignatureAwaiting,
		RenewalStatus:    req.RenewalStatus,
		Value:            value,
		Currency:         req.Currency,
		PaymentDay:       req.PaymentDay,
		PaymentFrequency: req.PaymentFrequency,
		TotalDiscount:    discount,
		LateFeePercent:   lateFee,
		CreatedBy:        actor,
		UpdatedBy:        actor,
	}
	if c.RenewalStatus == "" {
		c.RenewalStatus = RenewalManual
	}
	if req.VigenciaStart != nil {
		c.VigenciaStart = sql.NullTime{Time: *req.VigenciaStart, Valid: true}
	}
	if req.VigenciaEnd != nil {
		c.VigenciaEnd = sql.NullTime{Time: *req.VigenciaEnd, Valid: true}
	}
	if req.RenewalNoticeAt != nil {
		c.RenewalNoticeAt = sql.NullTime{Time: *req.RenewalNoticeAt, Valid: true}
	}
	if req.FirstPaymentDate != nil {
		c.FirstPaymentDate = sql.NullTime{Time: *req.FirstPaymentDate, Valid: true}
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Contract, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, clientID int64, limit, offset int) ([]*Contract, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.List(ctx, clientID, limit, offset)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Sign moves an awaiting contract to signed, stamping the signature
// evidence. Signing an already signed or released contract fails with
// ErrInvalidTransition.
func (s *Service) Sign(ctx context.Context, id int64, signatureHash, digitalSignature, actor string) (*Contract, error) {
	if signatureHash == "" {
		return nil, ErrSignatureRequired
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	updates := map[string]any{
		"signature_hash": signatureHash,
		"signed_at":      time.Now().UTC(),
		"updated_by":     actor,
	}
	if digitalSignature != "" {
		updates["digital_signature"] = digitalSignature
	}

	ok, err := s.repo.TransitionSignature(ctx, id, SignatureAwaiting, SignatureSigned, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}
	return s.repo.GetByID(ctx, id)
}

// Release moves a signed contract to released and seeds the payment
// schedule from the first payment date. Release is what activates invoice
// generation for the contract.
func (s *Service) Release(ctx context.Context, id int64, actor string) (*Contract, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{"updated_by": actor}
	if c.FirstPaymentDate.Valid {
		updates["next_payment_date"] = c.FirstPaymentDate.Time
	}

	ok, err := s.repo.TransitionSignature(ctx, id, SignatureSigned, SignatureReleased, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}
	return s.repo.GetByID(ctx, id)
}

// ResetToAwaiting is the administrative override for re-signature flows.
// Allowed from any state; clears all signature evidence.
func (s *Service) ResetToAwaiting(ctx context.Context, id int64, actor string) (*Contract, error) {
	if err := s.repo.ResetSignature(ctx, id, actor); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Cancel stops renewal and, through IsBillable, any further invoice
// generation for the contract.
func (s *Service) Cancel(ctx context.Context, id int64, actor string) (*Contract, error) {
	ok, err := s.repo.Cancel(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !ok {
		// already cancelled or missing
		return s.repo.GetByID(ctx, id)
	}
	return s.repo.GetByID(ctx, id)
}

// LinkSuccessor sets the renewal chain link from predecessor to successor.
// Administrative tools may call this directly, so the chain is walked and
// checked before writing: a link that would make the chain reachable back
// to the predecessor fails with ErrCycleDetected instead of corrupting it.
func (s *Service) LinkSuccessor(ctx context.Context, predecessorID, successorID int64) error {
	pred, err := s.repo.GetByID(ctx, predecessorID)
	if err != nil {
		return err
	}
	if pred.NextContractID.Valid {
		return ErrAlreadyLinked
	}
	if _, err := s.repo.GetByID(ctx, successorID); err != nil {
		return err
	}

	if err := s.checkNoCycle(ctx, predecessorID, successorID); err != nil {
		return err
	}

	ok, err := s.repo.LinkSuccessor(ctx, predecessorID, successorID, "")
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyLinked
	}
	return nil
}

// Chain walks the successor links starting at id. The walk is capped at
// the total number of contracts; exceeding the cap means the chain is
// corrupted and ErrCycleDetected is returned.
func (s *Service) Chain(ctx context.Context, id int64) ([]*Contract, error) {
	maxHops, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}

	var chain []*Contract
	currentID := id
	for hops := int64(0); ; hops++ {
		if hops > maxHops {
			return nil, ErrCycleDetected
		}
		c, err := s.repo.GetByID(ctx, currentID)
		if err != nil {
			return nil, err
		}
		chain = append(chain, c)
		if !c.NextContractID.Valid {
			return chain, nil
		}
		currentID = c.NextContractID.Int64
	}
}

// checkNoCycle verifies that walking forward from candidate never reaches
// predecessor.
func (s *Service) checkNoCycle(ctx context.Context, predecessorID, candidateID int64) error {
	maxHops, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}

	currentID := candidateID
	for hops := int64(0); hops <= maxHops; hops++ {
		if currentID == predecessorID {
			return ErrCycleDetected
		}
		c, err := s.repo.GetByID(ctx, currentID)
		if err != nil {
			return err
		}
		if !c.NextContractID.Valid {
			return nil
		}
		currentID = c.NextContractID.Int64
	}
	return ErrCycleDetected
}
