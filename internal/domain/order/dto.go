package order

// CreateOrderRequest opens a new service order. The checklist template
// for the order type is copied automatically.
type CreateOrderRequest struct {
	ClientID    int64  `json:"client_id" validate:"required,gt=0"`
	ContractID  int64  `json:"contract_id" validate:"omitempty,gt=0"`
	Type        string `json:"order_type" validate:"required"`
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	AssignedTo  string `json:"assigned_to" validate:"max=128"`
}

// AdvanceStatusRequest moves an order along the status graph.
type AdvanceStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateChecklistEntryRequest settles or reopens one checklist line.
type UpdateChecklistEntryRequest struct {
	Completed *bool   `json:"completed"`
	Skipped   *bool   `json:"skipped"`
	Notes     *string `json:"notes"`
}

// AddChecklistEntryRequest appends a hand-written line to an order's
// checklist.
type AddChecklistEntryRequest struct {
	Label     string `json:"label" validate:"required,max=255"`
	Mandatory bool   `json:"mandatory"`
}

// CreateTemplateRequest registers a reusable checklist template line.
type CreateTemplateRequest struct {
	OrderType    string `json:"order_type" validate:"required"`
	Label        string `json:"label" validate:"required,max=255"`
	Description  string `json:"description" validate:"max=2000"`
	Mandatory    bool   `json:"mandatory"`
	DisplayOrder int    `json:"display_order"`
}

// OrderResponse is an order with its checklist and progress figure.
type OrderResponse struct {
	Order             *ServiceOrder        `json:"order"`
	Checklist         []*ChecklistProgress `json:"checklist"`
	CompletionPercent int                  `json:"completion_percent"`
}
