package renewal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"

	"ispcrm/internal/domain/contract"
	"ispcrm/internal/domain/notification"
	"ispcrm/internal/domain/schedule"
)

// ContractStore is the slice of the contract repository the renewal
// manager consumes.
type ContractStore interface {
	ListRenewalCandidates(ctx context.Context) ([]*contract.Contract, error)
	Create(ctx context.Context, c *contract.Contract) error
	LinkSuccessor(ctx context.Context, predecessorID, successorID int64, requireStatus contract.RenewalStatus) (bool, error)
	WithTx(tx *gorm.DB) contract.Repository
}

// Notifier is the notification surface the renewal manager consumes.
type Notifier interface {
	Notify(ctx context.Context, n *notification.Notification)
	AlreadyNotified(ctx context.Context, kind notification.Kind, contractID int64) bool
}

// TxRunner runs a function inside a database transaction. *gorm.DB
// satisfies it directly.
type TxRunner interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// ManagerConfig is the renewal policy.
type ManagerConfig struct {
	// LeadDays is how far before the validity end renewal evaluation
	// starts, for contracts without an explicit notice date.
	LeadDays int
}

// Manager walks contracts approaching the end of their validity window.
// Auto-renewal contracts get a successor created and linked atomically;
// manual ones get a notice so an operator decides. Linking is a
// compare-and-swap on an empty next_contract_id, so concurrent runs
// produce exactly one successor per contract.
type Manager struct {
	db        TxRunner
	contracts ContractStore
	notifier  Notifier
	cfg       ManagerConfig
	loggerf   func(format string, args ...interface{})
}

func NewManager(db TxRunner, contracts ContractStore, notifier Notifier, cfg ManagerConfig, loggerf func(format string, args ...interface{})) *Manager {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Manager{db: db, contracts: contracts, notifier: notifier, cfg: cfg, loggerf: loggerf}
}

// Evaluate processes every contract whose renewal window has opened.
// Failures on one contract are logged and do not stop the run. Returns
// the number of contracts acted on (renewed or noticed).
func (m *Manager) Evaluate(ctx context.Context, now time.Time) (int, error) {
	candidates, err := m.contracts.ListRenewalCandidates(ctx)
	if err != nil {
		return 0, err
	}

	acted := 0
	for _, c := range candidates {
		noticeAt, ok := c.RenewalNoticeDate(m.cfg.LeadDays)
		if !ok || now.Before(noticeAt) {
			continue
		}

		switch c.RenewalStatus {
		case contract.RenewalAuto:
			successor, err := m.renewAuto(ctx, c)
			if err != nil {
				m.loggerf("level=error msg=auto renewal failed contract_id=%d err=%v", c.ID, err)
				continue
			}
			if successor == nil {
				// another run already renewed it
				continue
			}
			m.notifier.Notify(ctx, notification.ContractRenewed(c.ClientID, c.ID, successor.ID, c.Title))
			acted++

		case contract.RenewalManual:
			if m.notifier.AlreadyNotified(ctx, notification.KindRenewalDue, c.ID) {
				continue
			}
			m.notifier.Notify(ctx, notification.RenewalDue(c.ClientID, c.ID, c.Title, c.VigenciaEnd.Time))
			acted++
		}
	}
	return acted, nil
}

// renewAuto creates the successor and links it in one transaction. A nil
// successor with a nil error means the predecessor was concurrently
// renewed or no longer eligible.
func (m *Manager) renewAuto(ctx context.Context, c *contract.Contract) (*contract.Contract, error) {
	successor := m.buildSuccessor(c)

	err := m.db.Transaction(func(tx *gorm.DB) error {
		repo := m.contracts.WithTx(tx)
		if err := repo.Create(ctx, successor); err != nil {
			return err
		}
		linked, err := repo.LinkSuccessor(ctx, c.ID, successor.ID, contract.RenewalAuto)
		if err != nil {
			return err
		}
		if !linked {
			return errAlreadyRenewed
		}
		return nil
	})
	if err == errAlreadyRenewed {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return successor, nil
}

var errAlreadyRenewed = fmt.Errorf("predecessor already linked to a successor")

// buildSuccessor copies the commercial and payment configuration onto a
// fresh contract starting the day after the predecessor's window closes.
// The successor begins unsigned; billing only starts once it is released.
func (m *Manager) buildSuccessor(c *contract.Contract) *contract.Contract {
	start := c.VigenciaEnd.Time.AddDate(0, 0, 1)

	var end sql.NullTime
	if c.VigenciaStart.Valid {
		days := int(c.VigenciaEnd.Time.Sub(c.VigenciaStart.Time).Hours() / 24)
		end = sql.NullTime{Time: start.AddDate(0, 0, days), Valid: true}
	}

	firstPayment := firstPaymentOnOrAfter(start, c.PaymentDay)

	return &contract.Contract{
		ClientID:    c.ClientID,
		Title:       c.Title,
		Description: c.Description,
		Type:        c.Type,

		SignatureStatus: contract.SignatureAwaiting,
		RenewalStatus:   c.RenewalStatus,

		VigenciaStart: sql.NullTime{Time: start, Valid: true},
		VigenciaEnd:   end,

		Value:          c.Value,
		Currency:       c.Currency,
		TotalDiscount:  c.TotalDiscount,
		LateFeePercent: c.LateFeePercent,

		PaymentDay:       c.PaymentDay,
		PaymentFrequency: c.PaymentFrequency,
		FirstPaymentDate: sql.NullTime{Time: firstPayment, Valid: true},

		CreatedBy: "renewal-job",
		UpdatedBy: "renewal-job",
	}
}

// firstPaymentOnOrAfter finds the first occurrence of payDay on or after
// start, clamped to month length.
func firstPaymentOnOrAfter(start time.Time, payDay int) time.Time {
	if payDay < 1 {
		payDay = 1
	}
	y, mo, d := start.UTC().Date()
	day := schedule.ClampDay(y, mo, payDay)
	if day >= d {
		return time.Date(y, mo, day, 0, 0, 0, 0, time.UTC)
	}
	return schedule.NextDueDate(time.Date(y, mo, day, 0, 0, 0, 0, time.UTC), schedule.Monthly, payDay)
}
