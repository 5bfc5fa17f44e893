package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/newhorizons/case-service/internal/database/dbtest"
	"github.com/newhorizons/case-service/internal/errs"
	"github.com/newhorizons/case-service/internal/model"
)

func seedTickets(t *testing.T, repo *TicketRepository, n int, clientID string) {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		tk := &model.Ticket{
			Title:       fmt.Sprintf("Case %02d", i),
			Description: "desc",
			Status:      model.TicketStatusOpen,
			Priority:    model.PriorityMedium,
			Type:        model.TicketTypeOther,
			ClientID:    clientID,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}
		if err := repo.Create(context.Background(), tk); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
}

func TestTicketRepository_FindAllPaginates(t *testing.T) {
	db := dbtest.Open(t)
	dbtest.User(t, db, "c1", model.RoleClient)
	repo := NewTicketRepository(db)
	seedTickets(t, repo, 25, "c1")

	items, total, err := repo.FindAll(context.Background(), TicketFilter{ClientID: "c1"}, 2, 10)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if total != 25 {
		t.Errorf("total = %d, want 25", total)
	}
	if len(items) != 10 {
		t.Fatalf("len(items) = %d, want 10", len(items))
	}
	// newest first: page 2 starts at the 11th newest, "Case 14".
	if items[0].Title != "Case 14" {
		t.Errorf("items[0].Title = %q, want Case 14", items[0].Title)
	}
	if items[0].Client == nil || items[0].Client.ID != "c1" {
		t.Error("client not preloaded")
	}
}

func TestTicketRepository_FilterAndSearch(t *testing.T) {
	db := dbtest.Open(t)
	dbtest.User(t, db, "c1", model.RoleClient)
	dbtest.User(t, db, "c2", model.RoleClient)
	dbtest.User(t, db, "a1", model.RoleAdvisor)
	repo := NewTicketRepository(db)
	ctx := context.Background()

	advisor := "a1"
	for _, tk := range []*model.Ticket{
		{Title: "Work permit", Description: "Needs HR letter", Status: model.TicketStatusOpen, Priority: model.PriorityHigh, Type: model.TicketTypeWorkVisa, ClientID: "c1", AdvisorID: &advisor},
		{Title: "Residency", Description: "family WORK contract", Status: model.TicketStatusClosed, Priority: model.PriorityLow, Type: model.TicketTypeResidency, ClientID: "c1"},
		{Title: "Student", Description: "school", Status: model.TicketStatusOpen, Priority: model.PriorityLow, Type: model.TicketTypeStudentVisa, ClientID: "c2", AdvisorID: &advisor},
	} {
		if err := repo.Create(ctx, tk); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		f    TicketFilter
		want int64
	}{
		{"all", TicketFilter{}, 3},
		{"client", TicketFilter{ClientID: "c1"}, 2},
		{"advisor", TicketFilter{AdvisorID: "a1"}, 2},
		{"status", TicketFilter{Status: model.TicketStatusOpen}, 2},
		{"search matches title or description", TicketFilter{Search: "work"}, 2},
		{"search is anded with scope", TicketFilter{Search: "work", AdvisorID: "a1"}, 1},
		{"priority", TicketFilter{Priority: model.PriorityLow, ClientID: "c2"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total, err := repo.FindAll(ctx, tt.f, 1, 10)
			if err != nil {
				t.Fatal(err)
			}
			if total != tt.want {
				t.Errorf("total = %d, want %d", total, tt.want)
			}
		})
	}

	counts, err := repo.CountByStatus(ctx, TicketFilter{ClientID: "c1"})
	if err != nil {
		t.Fatal(err)
	}
	if counts[model.TicketStatusOpen] != 1 || counts[model.TicketStatusClosed] != 1 {
		t.Errorf("CountByStatus = %v", counts)
	}
}

func TestTicketRepository_UpdateAndNotFound(t *testing.T) {
	db := dbtest.Open(t)
	dbtest.User(t, db, "c1", model.RoleClient)
	repo := NewTicketRepository(db)
	ctx := context.Background()
	seedTickets(t, repo, 1, "c1")

	got, err := repo.Update(ctx, 1, map[string]interface{}{"status": model.TicketStatusResolved})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Status != model.TicketStatusResolved {
		t.Errorf("status = %s", got.Status)
	}

	if _, err := repo.Update(ctx, 99, map[string]interface{}{"status": model.TicketStatusClosed}); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Update(99) err = %v, want not found", err)
	}
	if _, err := repo.FindByID(ctx, 99); !errors.Is(err, errs.ErrTicketNotFound) {
		t.Errorf("FindByID(99) err = %v", err)
	}
}

func TestUserRepository_EmailUnique(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, &model.User{ID: "u1", Email: " Ana@Example.com ", Name: "Ana", Role: model.RoleClient, Password: "h"}); err != nil {
		t.Fatal(err)
	}
	err := repo.Create(ctx, &model.User{ID: "u2", Email: "ana@example.com", Name: "Ana 2", Role: model.RoleClient, Password: "h"})
	if !errors.Is(err, errs.ErrConflict) {
		t.Errorf("duplicate email err = %v, want conflict", err)
	}
	u, err := repo.FindByEmail(ctx, "ANA@example.com")
	if err != nil || u.ID != "u1" {
		t.Errorf("FindByEmail = %+v, %v", u, err)
	}
}

func TestTicketRepository_SearchIsLiteral(t *testing.T) {
	db := dbtest.Open(t)
	dbtest.User(t, db, "c1", model.RoleClient)
	repo := NewTicketRepository(db)
	ctx := context.Background()
	for _, title := range []string{"Deposit 50% paid", "Deposit 500 paid", "form_a submitted", "formXa submitted", `path C:\docs`} {
		tk := &model.Ticket{Title: title, Description: "d", Status: model.TicketStatusOpen, Priority: model.PriorityLow, Type: model.TicketTypeOther, ClientID: "c1"}
		if err := repo.Create(ctx, tk); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		search string
		want   int64
	}{
		{"50%", 1},
		{"form_a", 1},
		{"%", 1},
		{"_", 1},
		{`c:\docs`, 1},
		{"deposit", 2},
	}
	for _, tt := range tests {
		_, total, err := repo.FindAll(ctx, TicketFilter{Search: tt.search}, 1, 10)
		if err != nil {
			t.Fatal(err)
		}
		if total != tt.want {
			t.Errorf("search %q: total = %d, want %d", tt.search, total, tt.want)
		}
	}
}

func TestTicketRepository_FindByIDLoadsPaymentsAndAppointments(t *testing.T) {
	db := dbtest.Open(t)
	dbtest.User(t, db, "c1", model.RoleClient)
	repo := NewTicketRepository(db)
	ctx := context.Background()
	seedTickets(t, repo, 1, "c1")

	later := time.Date(2030, 5, 2, 10, 0, 0, 0, time.UTC)
	sooner := later.Add(-24 * time.Hour)
	for _, a := range []*model.Appointment{
		{Date: later, Type: model.AppointmentTypeMedical, Status: model.AppointmentStatusScheduled, TicketID: 1},
		{Date: sooner, Type: model.AppointmentTypePsychological, Status: model.AppointmentStatusScheduled, TicketID: 1},
	} {
		if err := db.Create(a).Error; err != nil {
			t.Fatal(err)
		}
	}
	p := &model.Payment{AmountMinor: 35000, Currency: "USD", Status: model.PaymentStatusCompleted, ProviderOrderID: "O-1", UserID: "c1", TicketID: 1}
	if err := db.Create(p).Error; err != nil {
		t.Fatal(err)
	}

	got, err := repo.FindByID(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Payments) != 1 || got.Payments[0].AmountMinor != 35000 {
		t.Errorf("payments = %+v", got.Payments)
	}
	if len(got.Appointments) != 2 || !got.Appointments[0].Date.Equal(sooner) {
		t.Errorf("appointments = %+v", got.Appointments)
	}
}
