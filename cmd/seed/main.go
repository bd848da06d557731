package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ispcrm/internal/config"
	"ispcrm/internal/database"
	"ispcrm/internal/domain/contract"
	"ispcrm/internal/domain/order"
	"ispcrm/internal/domain/schedule"
)

// seed loads the default checklist templates and, in development, a demo
// contract.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	ctx := context.Background()
	seedTemplates(ctx, order.NewRepository(db))

	if cfg.Env == "development" {
		seedDemoContract(ctx, db)
	}
	log.Println("seed finished")
}

func seedTemplates(ctx context.Context, repo order.Repository) {
	templates := []*order.ChecklistItem{
		{OrderType: order.TypeInstallation, Label: "Passar cabo até o cliente", Mandatory: true, Active: true, DisplayOrder: 1},
		{OrderType: order.TypeInstallation, Label: "Fusionar fibra na CTO", Mandatory: true, Active: true, DisplayOrder: 2},
		{OrderType: order.TypeInstallation, Label: "Testar sinal óptico", Mandatory: true, Active: true, DisplayOrder: 3},
		{OrderType: order.TypeInstallation, Label: "Configurar roteador", Mandatory: true, Active: true, DisplayOrder: 4},
		{OrderType: order.TypeInstallation, Label: "Etiquetar equipamento", Mandatory: false, Active: true, DisplayOrder: 5},
		{OrderType: order.TypeRepair, Label: "Medir atenuação no ponto", Mandatory: true, Active: true, DisplayOrder: 1},
		{OrderType: order.TypeRepair, Label: "Verificar conectores", Mandatory: true, Active: true, DisplayOrder: 2},
		{OrderType: order.TypeDisconnect, Label: "Recolher equipamento", Mandatory: true, Active: true, DisplayOrder: 1},
		{OrderType: order.TypeDisconnect, Label: "Liberar porta na CTO", Mandatory: false, Active: true, DisplayOrder: 2},
	}

	for _, item := range templates {
		existing, err := repo.ListTemplates(ctx, item.OrderType)
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		if containsLabel(existing, item.Label) {
			continue
		}
		if err := repo.CreateTemplate(ctx, item); err != nil {
			log.Fatalf("seed: %v", err)
		}
		log.Printf("template created: [%s] %s", item.OrderType, item.Label)
	}
}

func containsLabel(items []*order.ChecklistItem, label string) bool {
	for _, item := range items {
		if item.Label == label {
			return true
		}
	}
	return false
}

func seedDemoContract(ctx context.Context, db *gorm.DB) {
	repo := contract.NewRepository(db)

	demo, _, err := repo.List(ctx, 1, 1, 0)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if len(demo) > 0 {
		return
	}

	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	c := &contract.Contract{
		ClientID:         1,
		Title:            "Fibra 500Mb residencial",
		Type:             contract.TypeSubscription,
		SignatureStatus:  contract.SignatureAwaiting,
		RenewalStatus:    contract.RenewalAuto,
		VigenciaStart:    sql.NullTime{Time: start, Valid: true},
		VigenciaEnd:      sql.NullTime{Time: start.AddDate(1, 0, -1), Valid: true},
		Value:            decimal.RequireFromString("199.90"),
		Currency:         "BRL",
		TotalDiscount:    decimal.RequireFromString("20.00"),
		LateFeePercent:   decimal.RequireFromString("2.00"),
		PaymentDay:       10,
		PaymentFrequency: schedule.Monthly,
		FirstPaymentDate: sql.NullTime{Time: time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC), Valid: true},
		CreatedBy:        "seed",
		UpdatedBy:        "seed",
	}
	if err := repo.Create(ctx, c); err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Printf("demo contract created: id=%d", c.ID)
}
