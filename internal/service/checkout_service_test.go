package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/newhorizons/case-service/internal/database/dbtest"
	"github.com/newhorizons/case-service/internal/errs"
	"github.com/newhorizons/case-service/internal/model"
	"github.com/newhorizons/case-service/internal/paygateway"
	"github.com/newhorizons/case-service/internal/workflow"
	"golang.org/x/crypto/bcrypt"
)

func newCheckoutService(f *fixture, gw *fakeGateway) *CheckoutService {
	return NewCheckoutService(f.db, gw, workflow.Default(), f.notifier, f.events, f.audit, f.log)
}

func countRows(t *testing.T, f *fixture, m interface{}) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(m).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func TestCheckoutInit(t *testing.T) {
	f := newFixture(t)
	gw := newFakeGateway()
	svc := newCheckoutService(f, gw)
	ctx := context.Background()

	order, err := svc.Init(ctx, InitCheckoutInput{ProgramID: "INVESTOR", Adults: 2, Children: 1})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if order.ID != "ORDER-NEW" || order.TotalAmount != 9 {
		t.Errorf("order = %+v", order)
	}
	req := gw.created[0]
	if req.Amount != 900 || req.Currency != "USD" {
		t.Errorf("order amount = %d %s", req.Amount, req.Currency)
	}
	if req.Description != "Business / Investor - 2 Adults, 1 Children" {
		t.Errorf("description = %q", req.Description)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal([]byte(req.CustomID), &meta); err != nil || meta["programId"] != "INVESTOR" || meta["adults"] != float64(2) {
		t.Errorf("custom id = %s", req.CustomID)
	}

	amount := 12.5
	order, err = svc.Init(ctx, InitCheckoutInput{ProgramID: "TALENT", Amount: &amount, Adults: 1})
	if err != nil || order.TotalAmount != 12.5 || gw.created[1].Amount != 1250 {
		t.Errorf("supplied amount: %+v %v", order, err)
	}

	bad := []InitCheckoutInput{
		{ProgramID: "GOLD", Adults: 1},
		{ProgramID: "TALENT"},
		{ProgramID: "TALENT", Adults: 1, Amount: new(float64)},
		{ProgramID: "TALENT", Adults: -1, Children: 3},
	}
	for i, in := range bad {
		if _, err := svc.Init(ctx, in); !errors.Is(err, errs.ErrValidation) {
			t.Errorf("case %d: err = %v, want validation", i, err)
		}
	}

	gw.err = errors.New("provider down")
	if _, err := svc.Init(ctx, InitCheckoutInput{ProgramID: "TALENT", Adults: 1}); !errors.Is(err, errs.ErrExternalService) {
		t.Errorf("provider failure err = %v", err)
	}
}

func TestCheckoutCapture_ProvisionsOnceAndReplays(t *testing.T) {
	f := newFixture(t)
	gw := newFakeGateway()
	gw.captures["ORDER-1"] = &paygateway.Capture{
		OrderID:  "ORDER-1",
		Status:   paygateway.StatusCompleted,
		Amount:   600,
		Currency: "USD",
		CustomID: `{"programId":"TALENT","adults":2,"children":1}`,
	}
	svc := newCheckoutService(f, gw)
	ctx := context.Background()
	details := ClientDetails{
		Email: "Nueva@Example.com", FullName: "Nueva Cliente", ProgramLabel: "Passeport Talent",
		Adults: 2, Children: 1, Address: "Calle 1", City: "Bogotá", Country: "CO",
	}

	res, err := svc.Capture(ctx, "ORDER-1", details)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if res.Status != "SUCCESS" || !res.IsNewUser || res.TempPassword == nil || res.UserEmail != "nueva@example.com" {
		t.Fatalf("result = %+v", res)
	}
	if !strings.HasSuffix(*res.TempPassword, "A1!") {
		t.Errorf("temp password = %q", *res.TempPassword)
	}

	if n := countRows(t, f, &model.User{}); n != 1 {
		t.Errorf("users = %d", n)
	}
	if n := countRows(t, f, &model.Ticket{}); n != 1 {
		t.Errorf("tickets = %d", n)
	}
	if n := countRows(t, f, &model.Payment{}); n != 1 {
		t.Errorf("payments = %d", n)
	}

	var tk model.Ticket
	f.db.First(&tk, res.TicketID)
	if tk.Status != model.TicketStatusOpen || tk.Type != model.TicketTypeWorkVisa {
		t.Errorf("ticket = %+v", tk)
	}
	if tk.Title != "Process: Passeport Talent" {
		t.Errorf("title = %q", tk.Title)
	}
	wantDesc := "Immigration process for Passeport Talent. Family: 2 Adults, 1 Children. Address: Calle 1, Bogotá, CO."
	if tk.Description != wantDesc {
		t.Errorf("description = %q", tk.Description)
	}
	var p model.Payment
	f.db.First(&p)
	if p.AmountMinor != 600 || p.StageID != nil || p.Status != model.PaymentStatusCompleted || p.TicketID != tk.ID {
		t.Errorf("payment = %+v", p)
	}
	var u model.User
	f.db.First(&u)
	if u.Role != model.RoleClient {
		t.Errorf("role = %s", u.Role)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(*res.TempPassword)) != nil {
		t.Error("stored hash does not match temp password")
	}
	if kinds := f.notifier.kinds(); len(kinds) != 1 || kinds[0] != "credentials" {
		t.Errorf("notifications = %v", kinds)
	}
	if n := f.auditCount(t, AuditCheckoutCapture); n != 1 {
		t.Errorf("audit = %d", n)
	}

	again, err := svc.Capture(ctx, "ORDER-1", details)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if again.TicketID != res.TicketID || again.IsNewUser || again.TempPassword != nil {
		t.Errorf("replay result = %+v", again)
	}
	if gw.captureCalls() != 1 {
		t.Errorf("provider captured %d times", gw.captureCalls())
	}
	for _, m := range []interface{}{&model.User{}, &model.Ticket{}, &model.Payment{}} {
		if n := countRows(t, f, m); n != 1 {
			t.Errorf("%T rows after replay = %d", m, n)
		}
	}
	if kinds := f.notifier.kinds(); len(kinds) != 1 {
		t.Errorf("replay sent mail: %v", kinds)
	}
}

func TestCheckoutCapture_ExistingUserAndLabelFallback(t *testing.T) {
	f := newFixture(t)
	existing := dbtest.User(t, f.db, "known", model.RoleClient)
	gw := newFakeGateway()
	gw.captures["ORDER-2"] = &paygateway.Capture{Status: paygateway.StatusCompleted, Amount: 300, Currency: "USD"}
	gw.captures["ORDER-3"] = &paygateway.Capture{Status: paygateway.StatusCompleted, Amount: 100, Currency: "USD"}
	svc := newCheckoutService(f, gw)
	ctx := context.Background()

	res, err := svc.Capture(ctx, "ORDER-2", ClientDetails{Email: existing.Email, FullName: "Known", ProgramLabel: "Business / Investor", Adults: 1})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsNewUser || res.TempPassword != nil {
		t.Errorf("result = %+v", res)
	}
	var tk model.Ticket
	f.db.First(&tk, res.TicketID)
	if tk.Type != model.TicketTypeResidency || tk.ClientID != existing.ID {
		t.Errorf("ticket = %+v", tk)
	}

	res, err = svc.Capture(ctx, "ORDER-3", ClientDetails{Email: existing.Email, FullName: "Known", ProgramLabel: "Something else"})
	if err != nil {
		t.Fatal(err)
	}
	tk = model.Ticket{}
	f.db.First(&tk, res.TicketID)
	if tk.Type != model.TicketTypeOther {
		t.Errorf("unknown label type = %s", tk.Type)
	}
	if kinds := f.notifier.kinds(); len(kinds) != 0 {
		t.Errorf("existing user got mail: %v", kinds)
	}
}

func TestCheckoutCapture_FailuresPersistNothing(t *testing.T) {
	f := newFixture(t)
	gw := newFakeGateway()
	gw.captures["PENDING"] = &paygateway.Capture{Status: "PENDING", Amount: 100}
	svc := newCheckoutService(f, gw)
	ctx := context.Background()
	details := ClientDetails{Email: "a@example.com", FullName: "A"}

	for _, id := range []string{"PENDING", "UNKNOWN"} {
		_, err := svc.Capture(ctx, id, details)
		if !errors.Is(err, errs.ErrExternalService) {
			t.Errorf("%s: err = %v", id, err)
		}
	}
	if _, err := svc.Capture(ctx, "X", ClientDetails{FullName: "no mail"}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("missing email err = %v", err)
	}
	for _, m := range []interface{}{&model.User{}, &model.Ticket{}, &model.Payment{}} {
		if n := countRows(t, f, m); n != 0 {
			t.Errorf("%T rows = %d", m, n)
		}
	}
}

func TestPaymentCaptureOrder(t *testing.T) {
	f := newFixture(t)
	owner := dbtest.User(t, f.db, "owner", model.RoleClient)
	other := dbtest.User(t, f.db, "other", model.RoleClient)
	tk := f.ticket(t, owner.ID, nil, model.TicketStatusOpen)
	gw := newFakeGateway()
	gw.captures["P-1"] = &paygateway.Capture{Status: paygateway.StatusCompleted, Amount: 35000, Currency: "USD",
		CustomID: fmt.Sprintf(`{"ticketId":%d}`, tk.ID)}
	svc := NewPaymentService(f.db, gw, workflow.Default(), f.events, f.log)
	ctx := context.Background()

	if _, err := svc.CreateOrder(ctx, ActorOf(other), tk.ID, 10); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("foreign create err = %v", err)
	}
	for _, bad := range []float64{0, 0.001, 1e12} {
		if _, err := svc.CreateOrder(ctx, ActorOf(owner), tk.ID, bad); !errors.Is(err, errs.ErrValidation) {
			t.Errorf("amount %v err = %v", bad, err)
		}
	}
	order, err := svc.CreateOrder(ctx, ActorOf(owner), tk.ID, 350)
	if err != nil || order.ID == "" {
		t.Fatalf("create order: %v", err)
	}
	var meta ticketOrderMeta
	if err := json.Unmarshal([]byte(gw.created[0].CustomID), &meta); err != nil || meta.TicketID != tk.ID || meta.StageID != "" {
		t.Errorf("custom id = %s", gw.created[0].CustomID)
	}
	if gw.created[0].Amount != 35000 || gw.created[0].Currency != "USD" {
		t.Errorf("order request = %+v", gw.created[0])
	}

	if _, err := svc.CaptureOrder(ctx, ActorOf(owner), "NOPE", tk.ID); !errors.Is(err, errs.ErrPaymentCapture) {
		t.Errorf("failed capture err = %v", err)
	}
	p, err := svc.CaptureOrder(ctx, ActorOf(owner), "P-1", tk.ID)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if p.Status != model.PaymentStatusCompleted || p.AmountMinor != 35000 || p.UserID != owner.ID || p.StageID != nil {
		t.Errorf("payment = %+v", p)
	}
	again, err := svc.CaptureOrder(ctx, ActorOf(owner), "P-1", tk.ID)
	if err != nil || again.ID != p.ID {
		t.Errorf("replay = %+v, %v", again, err)
	}
	if n := countRows(t, f, &model.Payment{}); n != 1 {
		t.Errorf("payments = %d", n)
	}
	if names := f.events.names(); len(names) != 1 || names[0] != "payment.completed" {
		t.Errorf("events = %v", names)
	}
}

func TestPaymentCaptureOrder_RejectsOrderOfAnotherTicket(t *testing.T) {
	f := newFixture(t)
	owner := dbtest.User(t, f.db, "owner", model.RoleClient)
	mine := f.ticket(t, owner.ID, nil, model.TicketStatusOpen)
	theirs := f.ticket(t, owner.ID, nil, model.TicketStatusOpen)
	gw := newFakeGateway()
	gw.captures["FOREIGN"] = &paygateway.Capture{Status: paygateway.StatusCompleted, Amount: 100, Currency: "USD",
		CustomID: fmt.Sprintf(`{"ticketId":%d}`, theirs.ID)}
	gw.captures["CHECKOUT"] = &paygateway.Capture{Status: paygateway.StatusCompleted, Amount: 100, Currency: "USD",
		CustomID: `{"programId":"TALENT","adults":1,"children":0}`}
	gw.captures["BARE"] = &paygateway.Capture{Status: paygateway.StatusCompleted, Amount: 100, Currency: "USD"}
	svc := NewPaymentService(f.db, gw, workflow.Default(), f.events, f.log)

	for _, id := range []string{"FOREIGN", "CHECKOUT", "BARE"} {
		if _, err := svc.CaptureOrder(context.Background(), ActorOf(owner), id, mine.ID); !errors.Is(err, errs.ErrValidation) {
			t.Errorf("%s: err = %v, want validation", id, err)
		}
	}
	if n := countRows(t, f, &model.Payment{}); n != 0 {
		t.Errorf("payments = %d", n)
	}
	if names := f.events.names(); len(names) != 0 {
		t.Errorf("events = %v", names)
	}
}

func TestPaymentOrder_TiedToGateStage(t *testing.T) {
	f := newFixture(t)
	admin := dbtest.User(t, f.db, "admin", model.RoleAdmin)
	client := dbtest.User(t, f.db, "client", model.RoleClient)
	tickets := newTicketService(f)
	ctx := context.Background()
	tk, err := tickets.Create(ctx, ActorOf(admin), CreateTicketInput{Title: "t", Description: "d", Type: model.TicketTypeWorkVisa, ClientID: client.ID})
	if err != nil {
		t.Fatal(err)
	}
	md := workflow.Default().Seed(model.TicketTypeWorkVisa)
	md.Stages[0].Status = workflow.StageCompleted
	md.Stages[1].Status = workflow.StageCurrent
	raw, _ := json.Marshal(md)
	if _, err := tickets.Update(ctx, ActorOf(admin), tk.ID, UpdateTicketInput{Metadata: raw}); err != nil {
		t.Fatal(err)
	}

	gw := newFakeGateway()
	svc := NewPaymentService(f.db, gw, workflow.Default(), f.events, f.log)
	if _, err := svc.CreateOrder(ctx, ActorOf(client), tk.ID, 350); err != nil {
		t.Fatal(err)
	}
	gw.captures["ORDER-NEW"] = &paygateway.Capture{Status: paygateway.StatusCompleted, Amount: 35000, Currency: "USD",
		CustomID: gw.created[0].CustomID}
	p, err := svc.CaptureOrder(ctx, ActorOf(client), "ORDER-NEW", tk.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.StageID == nil || *p.StageID != "HR_INTERVIEW" {
		t.Errorf("payment stage = %v", p.StageID)
	}
	detail, err := tickets.Get(ctx, ActorOf(client), tk.ID)
	if err != nil {
		t.Fatal(err)
	}
	if detail.StageGate == nil || !detail.StageGate.Satisfied {
		t.Errorf("gate = %+v", detail.StageGate)
	}
}

func TestPayments_UnconfiguredGateway(t *testing.T) {
	f := newFixture(t)
	owner := dbtest.User(t, f.db, "owner", model.RoleClient)
	tk := f.ticket(t, owner.ID, nil, model.TicketStatusOpen)
	ctx := context.Background()

	payments := NewPaymentService(f.db, paygateway.Unconfigured{}, workflow.Default(), f.events, f.log)
	if _, err := payments.CreateOrder(ctx, ActorOf(owner), tk.ID, 10); !errors.Is(err, errs.ErrExternalService) {
		t.Errorf("create order err = %v", err)
	}
	if _, err := payments.CaptureOrder(ctx, ActorOf(owner), "X", tk.ID); !errors.Is(err, errs.ErrExternalService) {
		t.Errorf("capture order err = %v", err)
	}
	checkout := NewCheckoutService(f.db, paygateway.Unconfigured{}, workflow.Default(), f.notifier, f.events, f.audit, f.log)
	if _, err := checkout.Init(ctx, InitCheckoutInput{ProgramID: "TALENT", Adults: 1}); !errors.Is(err, errs.ErrExternalService) {
		t.Errorf("checkout init err = %v", err)
	}
}
