package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/costdesk/costdesk/internal/app"
	"github.com/costdesk/costdesk/internal/ccn"
	"github.com/costdesk/costdesk/internal/estimation"
	"github.com/costdesk/costdesk/internal/procurement"
)

// Demo data for a local database. Run against the configured STORAGE_DRIVER:
//
//	STORAGE_DRIVER=sqlite go run ./scripts/seed
func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	container, err := app.Build(ctx, cfg, app.NewLoggerTo(cfg, os.Stderr))
	if err != nil {
		log.Fatalf("build: %v", err)
	}
	defer container.Close()

	project := getenv("SEED_PROJECT", "PRJ-DEMO")

	fmt.Println("→ Seeding estimations...")
	estimations, err := seedEstimations(ctx, container.Estimations, project)
	if err != nil {
		log.Fatalf("seed estimations: %v", err)
	}

	fmt.Println("→ Seeding purchase orders...")
	if err := seedPurchaseOrders(ctx, container.PurchaseOrders, estimations); err != nil {
		log.Fatalf("seed purchase orders: %v", err)
	}

	fmt.Println("→ Seeding cost change notes...")
	if err := seedCCNs(ctx, container.CCNs, project); err != nil {
		log.Fatalf("seed ccns: %v", err)
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func seedEstimations(ctx context.Context, store *estimation.Store, project string) ([]estimation.Estimation, error) {
	drafts := []estimation.Draft{
		{
			ProjectID: project, CostHead: "OM01 - Material Cost", Category: "Civil", Vendor: "Acme Supplies",
			EstimatedBy: "planner", Status: estimation.StatusApproved,
			Items: []estimation.Item{
				{ProductCode: "CEM-50", Description: "Cement 50kg", Quantity: 400, Unit: "bag", UnitCost: 9.5},
				{ProductCode: "RB-12", Description: "Rebar 12mm", Quantity: 12, Unit: "t", UnitCost: 780},
			},
		},
		{
			ProjectID: project, CostHead: "OM02 - Manpower Cost", EstimatedBy: "planner", Status: estimation.StatusSubmitted,
			Items: []estimation.Item{{Description: "Site crew", Quantity: 120, Unit: "day", UnitCost: 95}},
		},
		{
			ProjectID: project, CostHead: "OM04 - Equipment Cost", EstimatedBy: "planner",
			Items: []estimation.Item{{Description: "Crane hire", Quantity: 10, Unit: "day", UnitCost: 650}},
		},
	}
	out := make([]estimation.Estimation, 0, len(drafts))
	for _, d := range drafts {
		e, err := store.Add(ctx, d)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func seedPurchaseOrders(ctx context.Context, store *procurement.Store, estimations []estimation.Estimation) error {
	if len(estimations) == 0 {
		return nil
	}
	po, err := store.Create(ctx, procurement.Draft{
		ProjectID:    estimations[0].ProjectID,
		Vendor:       estimations[0].Vendor,
		DeliveryDate: time.Now().AddDate(0, 0, 14).Format(time.DateOnly),
		Terms:        "Net 30",
		Items:        procurement.ItemsFromEstimation(estimations[0]),
	})
	if err != nil {
		return err
	}
	if _, err := store.Submit(ctx, po.ID); err != nil {
		return err
	}
	_, err = store.Approve(ctx, po.ID, "procurement.lead")
	return err
}

func seedCCNs(ctx context.Context, store *ccn.Store, project string) error {
	note, err := store.Add(ctx, ccn.Draft{
		ProjectID: project, ChangeType: ccn.ChangeIncrease, Category: ccn.CategoryMaterial,
		InitiatedBy: "site.engineer", Reason: "Rebar price increase", Urgency: ccn.UrgencyHigh,
		Items: []ccn.Item{{
			ReferenceType: ccn.ReferenceEstimation, ItemDescription: "Rebar 12mm",
			OriginalCost: 9360, RevisedCost: 10140, CostHead: "OM01 - Material Cost",
		}},
	})
	if err != nil {
		return err
	}
	if _, err := store.Submit(ctx, note.ID, "site.engineer"); err != nil {
		return err
	}
	if _, err := store.Approve(ctx, note.ID, "project.manager"); err != nil {
		return err
	}
	_, err = store.Add(ctx, ccn.Draft{
		ProjectID: project, ChangeType: ccn.ChangeDecrease, Category: ccn.CategoryEquipment,
		InitiatedBy: "site.engineer", Reason: "Shorter crane hire", Status: ccn.StatusSubmitted,
		Items: []ccn.Item{{
			ReferenceType: ccn.ReferenceEstimation, ItemDescription: "Crane hire",
			OriginalCost: 6500, RevisedCost: 5200, CostHead: "OM04 - Equipment Cost",
		}},
	})
	return err
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
