package invoice

import "time"

// ApplyPaymentRequest records a payment reported by an external
// processor or an operator. Amount is a decimal string; negative values
// are compensating ledger entries.
type ApplyPaymentRequest struct {
	Amount      string     `json:"amount" validate:"required"`
	PaidAt      *time.Time `json:"paid_at"`
	Method      string     `json:"method"`
	ExternalRef string     `json:"external_ref"`
	Notes       string     `json:"notes"`
}

// BalanceResponse is the read-side view of an invoice's money state.
type BalanceResponse struct {
	InvoiceID   int64  `json:"invoice_id"`
	Number      string `json:"number"`
	Status      Status `json:"status"`
	TotalAmount string `json:"total_amount"`
	AmountPaid  string `json:"amount_paid"`
	LateFee     string `json:"late_fee"`
	Outstanding string `json:"outstanding"`
}
