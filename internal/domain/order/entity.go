package order

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

// Status of a service order. Orders move forward through
// open -> in_progress -> completed; awaiting_part is a side track that
// always returns to in_progress.
type Status string

const (
	StatusOpen         Status = "open"
	StatusInProgress   Status = "in_progress"
	StatusAwaitingPart Status = "awaiting_part"
	StatusCompleted    Status = "completed"
)

// Type of field work the order tracks. Checklist templates are keyed by
// type.
type Type string

const (
	TypeInstallation Type = "installation"
	TypeRepair       Type = "repair"
	TypeUpgrade      Type = "upgrade"
	TypeMaintenance  Type = "maintenance"
	TypeDisconnect   Type = "disconnect"
)

func (t Type) Valid() bool {
	switch t {
	case TypeInstallation, TypeRepair, TypeUpgrade, TypeMaintenance, TypeDisconnect:
		return true
	}
	return false
}

// Priority orders the work queue; it carries no lifecycle semantics.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ServiceOrder is one unit of field work for a client, optionally tied
// to a contract. Each status change stamps its own timestamp so the
// timeline survives later transitions.
type ServiceOrder struct {
	ID         int64         `gorm:"column:id;primaryKey" json:"id"`
	ClientID   int64         `gorm:"column:client_id;not null;index" json:"client_id"`
	ContractID sql.NullInt64 `gorm:"column:contract_id;index" json:"contract_id,omitempty"`

	Type        Type   `gorm:"column:order_type;size:32;not null" json:"order_type"`
	Title       string `gorm:"column:title;size:255;not null" json:"title"`
	Description string `gorm:"column:description" json:"description"`

	Status     Status   `gorm:"column:status;size:32;not null;default:'open';index" json:"status"`
	Priority   Priority `gorm:"column:priority;size:16;not null;default:'normal'" json:"priority"`
	AssignedTo string   `gorm:"column:assigned_to;size:128" json:"assigned_to"`

	OpenedAt      time.Time    `gorm:"column:opened_at;not null" json:"opened_at"`
	StartedAt     sql.NullTime `gorm:"column:started_at" json:"started_at,omitempty"`
	AwaitingSince sql.NullTime `gorm:"column:awaiting_since" json:"awaiting_since,omitempty"`
	CompletedAt   sql.NullTime `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CompletedBy   string       `gorm:"column:completed_by;size:128" json:"completed_by,omitempty"`

	CreatedBy string `gorm:"column:created_by;size:128" json:"created_by"`
	UpdatedBy string `gorm:"column:updated_by;size:128" json:"updated_by"`

	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (ServiceOrder) TableName() string { return "service_orders" }

// transitions is the allowed status graph. Completion additionally
// requires the mandatory checklist to be settled.
var transitions = map[Status][]Status{
	StatusOpen:         {StatusInProgress},
	StatusInProgress:   {StatusAwaitingPart, StatusCompleted},
	StatusAwaitingPart: {StatusInProgress},
	StatusCompleted:    {},
}

// CanTransition reports whether from -> to is an allowed edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ChecklistItem is a reusable template row. Active items are copied onto
// every new order of the matching type.
type ChecklistItem struct {
	ID          int64  `gorm:"column:id;primaryKey" json:"id"`
	OrderType   Type   `gorm:"column:order_type;size:32;not null;index" json:"order_type"`
	Label       string `gorm:"column:label;size:255;not null" json:"label"`
	Description string `gorm:"column:description" json:"description,omitempty"`

	Mandatory    bool `gorm:"column:mandatory;not null;default:false" json:"mandatory"`
	Active       bool `gorm:"column:active;not null;default:true" json:"active"`
	DisplayOrder int  `gorm:"column:display_order;not null;default:0" json:"display_order"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (ChecklistItem) TableName() string { return "checklist_items" }

// ChecklistProgress is one checklist line on a concrete order. Label and
// Mandatory are snapshots from the template, so later template edits
// never change what an open order requires.
type ChecklistProgress struct {
	ID      int64         `gorm:"column:id;primaryKey" json:"id"`
	OrderID int64         `gorm:"column:order_id;not null;uniqueIndex:idx_order_item" json:"order_id"`
	ItemID  sql.NullInt64 `gorm:"column:item_id;uniqueIndex:idx_order_item" json:"item_id,omitempty"`

	Label        string `gorm:"column:label;size:255;not null" json:"label"`
	Mandatory    bool   `gorm:"column:mandatory;not null;default:false" json:"mandatory"`
	DisplayOrder int    `gorm:"column:display_order;not null;default:0" json:"display_order"`

	Completed bool   `gorm:"column:completed;not null;default:false" json:"completed"`
	Skipped   bool   `gorm:"column:skipped;not null;default:false" json:"skipped"`
	Notes     string `gorm:"column:notes" json:"notes,omitempty"`

	CompletedBy string       `gorm:"column:completed_by;size:128" json:"completed_by,omitempty"`
	CompletedAt sql.NullTime `gorm:"column:completed_at" json:"completed_at,omitempty"`

	// AutoGenerated marks rows copied from the template, as opposed to
	// lines a technician added by hand.
	AutoGenerated bool `gorm:"column:auto_generated;not null;default:true" json:"auto_generated"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (ChecklistProgress) TableName() string { return "checklist_progress" }

// Settled reports whether the line no longer blocks completion.
func (p *ChecklistProgress) Settled() bool {
	return p.Completed || p.Skipped
}
