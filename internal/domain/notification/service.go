package notification

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Dispatcher delivers a notification to the outside world. The address
// scheme is up to the implementation; the engine only records intent.
type Dispatcher interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// LogDispatcher writes outgoing notifications to the log. It is the
// default until a mail or messaging integration is configured.
type LogDispatcher struct {
	Loggerf func(format string, args ...interface{})
}

func (d LogDispatcher) Send(_ context.Context, recipient, subject, _ string) error {
	d.Loggerf("level=info msg=notification dispatched recipient=%s subject=%q", recipient, subject)
	return nil
}

const dispatchTimeout = 10 * time.Second

// Service persists notifications and hands them to the dispatcher.
// Delivery is asynchronous and failures never propagate to the caller;
// a failed send is recorded on the row and logged.
type Service struct {
	repo       Repository
	dispatcher Dispatcher
	loggerf    func(format string, args ...interface{})
}

func NewService(repo Repository, dispatcher Dispatcher, loggerf func(format string, args ...interface{})) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	if dispatcher == nil {
		dispatcher = LogDispatcher{Loggerf: loggerf}
	}
	return &Service{repo: repo, dispatcher: dispatcher, loggerf: loggerf}
}

// Notify records the notification and dispatches it in the background.
func (s *Service) Notify(ctx context.Context, n *Notification) {
	n.Status = StatusPending
	if err := s.repo.Create(ctx, n); err != nil {
		s.loggerf("level=error msg=notification persist failed kind=%s client_id=%d err=%v", n.Kind, n.ClientID, err)
		return
	}

	go s.dispatch(n)
}

func (s *Service) dispatch(n *Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	if err := s.dispatcher.Send(ctx, n.Recipient, n.Subject, n.Body); err != nil {
		s.loggerf("level=error msg=notification dispatch failed id=%d kind=%s err=%v", n.ID, n.Kind, err)
		if err := s.repo.MarkFailed(ctx, n.ID, err.Error()); err != nil {
			s.loggerf("level=error msg=notification status update failed id=%d err=%v", n.ID, err)
		}
		return
	}
	if err := s.repo.MarkSent(ctx, n.ID, time.Now().UTC()); err != nil {
		s.loggerf("level=error msg=notification status update failed id=%d err=%v", n.ID, err)
	}
}

// AlreadyNotified reports whether the contract already has a notification
// of the given kind on record.
func (s *Service) AlreadyNotified(ctx context.Context, kind Kind, contractID int64) bool {
	exists, err := s.repo.ExistsFor(ctx, kind, contractID)
	if err != nil {
		s.loggerf("level=error msg=notification lookup failed kind=%s contract_id=%d err=%v", kind, contractID, err)
		return false
	}
	return exists
}

func (s *Service) List(ctx context.Context, clientID int64, unreadOnly bool, limit, offset int) ([]*Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.List(ctx, clientID, unreadOnly, limit, offset)
}

// MarkRead stamps the first read time; re-reading keeps the original.
func (s *Service) MarkRead(ctx context.Context, id int64) error {
	return s.repo.MarkRead(ctx, id, time.Now().UTC())
}

// RenewalDue builds the notice sent when a contract enters its renewal
// window and requires a manual decision.
func RenewalDue(clientID, contractID int64, title string, endsAt time.Time) *Notification {
	return &Notification{
		Kind:       KindRenewalDue,
		ClientID:   clientID,
		ContractID: sql.NullInt64{Int64: contractID, Valid: true},
		Recipient:  clientAddress(clientID),
		Subject:    fmt.Sprintf("Contrato %q vence em %s", title, endsAt.Format("02/01/2006")),
		Body: fmt.Sprintf("O contrato %q encerra sua vigência em %s e está configurado para renovação manual. Avalie a renovação.",
			title, endsAt.Format("02/01/2006")),
	}
}

// ContractRenewed builds the notice sent after automatic renewal created
// a successor contract.
func ContractRenewed(clientID, contractID, successorID int64, title string) *Notification {
	return &Notification{
		Kind:       KindContractRenewed,
		ClientID:   clientID,
		ContractID: sql.NullInt64{Int64: contractID, Valid: true},
		Recipient:  clientAddress(clientID),
		Subject:    fmt.Sprintf("Contrato %q renovado automaticamente", title),
		Body:       fmt.Sprintf("Um novo contrato (#%d) foi gerado automaticamente e aguarda assinatura.", successorID),
	}
}

// InvoiceOverdue builds the notice for an invoice that crossed its due
// date.
func InvoiceOverdue(clientID, contractID int64, number string, outstanding decimal.Decimal) *Notification {
	return &Notification{
		Kind:       KindInvoiceOverdue,
		ClientID:   clientID,
		ContractID: sql.NullInt64{Int64: contractID, Valid: true},
		Recipient:  clientAddress(clientID),
		Subject:    fmt.Sprintf("Fatura %s em atraso", number),
		Body:       fmt.Sprintf("A fatura %s está em atraso. Valor em aberto: %s.", number, outstanding.StringFixed(2)),
	}
}

// clientAddress is the logical delivery address; the dispatcher resolves
// it to a real channel (e-mail, SMS, webhook).
func clientAddress(clientID int64) string {
	return fmt.Sprintf("client:%d", clientID)
}
