package contract

import (
	"time"

	"ispcrm/internal/domain/schedule"
)

// CreateContractRequest creates a contract in the awaiting state.
// Monetary fields are decimal strings to avoid float rounding in transit.
type CreateContractRequest struct {
	ClientID    int64  `json:"client_id" validate:"required,gt=0"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Type        Type   `json:"contract_type" validate:"required,oneof=service subscription maintenance support other"`

	VigenciaStart   *time.Time    `json:"vigencia_start"`
	VigenciaEnd     *time.Time    `json:"vigencia_end"`
	RenewalStatus   RenewalStatus `json:"renewal_status" validate:"omitempty,oneof=manual_renewal auto_renewal"`
	RenewalNoticeAt *time.Time    `json:"renewal_notice_at"`

	Value    string `json:"value" validate:"required"`
	Currency string `json:"currency" validate:"required,len=3"`

	FirstPaymentDate *time.Time         `json:"first_payment_date"`
	PaymentDay       int                `json:"payment_day" validate:"required,min=1,max=31"`
	PaymentFrequency schedule.Frequency `json:"payment_frequency" validate:"required"`
	TotalDiscount    string             `json:"total_discount"`
	LateFeePercent   string             `json:"late_fee_percent"`
}

// SignRequest carries the signature evidence produced by the external
// signing collaborator.
type SignRequest struct {
	SignatureHash    string `json:"signature_hash" validate:"required"`
	DigitalSignature string `json:"digital_signature"`
}

// LinkSuccessorRequest is the administrative chain mutation.
type LinkSuccessorRequest struct {
	SuccessorID int64 `json:"successor_id" validate:"required,gt=0"`
}

// ChainResponse is the result of walking the renewal chain.
type ChainResponse struct {
	Contracts []*Contract `json:"contracts"`
	Length    int         `json:"length"`
}
