package application_test

import (
	"context"
	"testing"

	"github.com/example/bizdesk/internal/application"
	"github.com/example/bizdesk/internal/testfixtures"
)

func TestStore_PurchasedServiceSessions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newBoundStore(t, testfixtures.StoreDeps{})

	service := store.AddService(ctx, application.Service{Name: "Coaching pack", Price: 400, Active: true})
	purchase := store.AddPurchasedService(ctx, application.PurchasedService{
		ClientID:      "c-1",
		ServiceID:     service.ID,
		PurchaseDate:  testfixtures.ReferenceDate,
		SessionsTotal: 2,
	})
	if purchase.Price != 400 || purchase.Status != application.PurchaseActive {
		t.Fatalf("expected catalog price and active status, got %+v", purchase)
	}

	first, ok := store.UseSession(ctx, purchase.ID)
	if !ok || first.SessionsUsed != 1 || first.Status != application.PurchaseActive {
		t.Fatalf("unexpected first session %+v ok=%v", first, ok)
	}
	second, ok := store.UseSession(ctx, purchase.ID)
	if !ok || second.Status != application.PurchaseCompleted {
		t.Fatalf("expected package to complete, got %+v", second)
	}
	if _, ok := store.UseSession(ctx, purchase.ID); ok {
		t.Fatalf("expected completed package to reject further sessions")
	}
}

func TestStore_ClientTimeline(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newBoundStore(t, testfixtures.StoreDeps{})

	client := store.AddClient(ctx, testfixtures.NewClient())
	store.AddActivity(ctx, application.Activity{Title: "Intro call", ClientID: client.ID, Date: "2024-01-03", Type: application.ActivityCall})
	store.AddActivity(ctx, application.Activity{Title: "Follow-up", ClientID: client.ID, Date: "2024-01-09"})
	store.AddActivity(ctx, application.Activity{Title: "Other", ClientID: "someone-else", Date: "2024-01-05"})

	timeline := store.ClientTimeline(client.ID)
	if len(timeline) != 2 || timeline[0].Title != "Follow-up" || timeline[1].Title != "Intro call" {
		t.Fatalf("unexpected timeline %+v", timeline)
	}
	if timeline[0].Type != application.ActivityNote {
		t.Fatalf("expected default activity type note, got %q", timeline[0].Type)
	}
}

func TestStore_TransactionsAndSummary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newBoundStore(t, testfixtures.StoreDeps{})

	income := store.AddTransaction(ctx, application.Transaction{Amount: 250, Date: "2024-01-05", Category: "sessions"})
	store.AddTransaction(ctx, application.Transaction{Type: application.TransactionExpense, Amount: 50, Date: "2024-01-06"})
	if income.Type != application.TransactionIncome {
		t.Fatalf("expected default income type, got %q", income.Type)
	}

	summary := store.LedgerSummary("", "")
	if summary.Balance != 200 || summary.Count != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
