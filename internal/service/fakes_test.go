package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/newhorizons/case-service/internal/database/dbtest"
	"github.com/newhorizons/case-service/internal/model"
	"github.com/newhorizons/case-service/internal/paygateway"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type sentMail struct {
	kind string
	to   string
	arg  string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *fakeNotifier) record(kind, to, arg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{kind: kind, to: to, arg: arg})
}

func (n *fakeNotifier) Welcome(u model.User) { n.record("welcome", u.Email, "") }

func (n *fakeNotifier) TicketStatusChanged(t model.Ticket, client model.User) {
	n.record("status", client.Email, string(t.Status))
}

func (n *fakeNotifier) AppointmentConfirmed(a model.Appointment, client model.User) {
	n.record("appointment", client.Email, string(a.Type))
}

func (n *fakeNotifier) CheckoutCredentials(u model.User, program, tempPassword string) {
	n.record("credentials", u.Email, tempPassword)
}

func (n *fakeNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.sent))
	for i, m := range n.sent {
		out[i] = m.kind
	}
	return out
}

type publishedEvent struct {
	name    string
	key     uint64
	payload map[string]interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	failed map[uint64]bool
	syncs  int
}

func (p *fakePublisher) Publish(event string, key uint64, payload map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{name: event, key: key, payload: payload})
}

func (p *fakePublisher) PublishSync(_ context.Context, event string, key uint64, payload map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.syncs++
	if p.failed[key] {
		return errors.New("write failed")
	}
	p.events = append(p.events, publishedEvent{name: event, key: key, payload: payload})
	return nil
}

// failKey makes PublishSync fail for key.
func (p *fakePublisher) failKey(key uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed == nil {
		p.failed = make(map[uint64]bool)
	}
	p.failed[key] = true
}

func (p *fakePublisher) syncCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.syncs
}

func (p *fakePublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.name
	}
	return out
}

type fakeGateway struct {
	mu       sync.Mutex
	created  []paygateway.OrderRequest
	captures map[string]*paygateway.Capture
	captured int
	err      error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{captures: make(map[string]*paygateway.Capture)}
}

func (g *fakeGateway) CreateOrder(_ context.Context, req paygateway.OrderRequest) (*paygateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.created = append(g.created, req)
	return &paygateway.Order{ID: "ORDER-NEW", Status: "CREATED"}, nil
}

func (g *fakeGateway) CaptureOrder(_ context.Context, orderID string) (*paygateway.Capture, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.captured++
	if g.err != nil {
		return nil, g.err
	}
	c, ok := g.captures[orderID]
	if !ok {
		return nil, errors.New("order not found")
	}
	return c, nil
}

func (g *fakeGateway) captureCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.captured
}

type fixture struct {
	db       *gorm.DB
	notifier *fakeNotifier
	events   *fakePublisher
	audit    *AuditService
	log      *zap.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	log := zap.NewNop()
	return &fixture{
		db:       db,
		notifier: &fakeNotifier{},
		events:   &fakePublisher{},
		audit:    NewAuditService(db, log),
		log:      log,
	}
}

func (f *fixture) ticket(t *testing.T, clientID string, advisorID *string, status model.TicketStatus) *model.Ticket {
	t.Helper()
	tk := &model.Ticket{
		Title:       "Case for " + clientID,
		Description: "details",
		Status:      status,
		Priority:    model.PriorityMedium,
		Type:        model.TicketTypeOther,
		ClientID:    clientID,
		AdvisorID:   advisorID,
	}
	if err := f.db.Create(tk).Error; err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return tk
}

func (f *fixture) auditCount(t *testing.T, action string) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&model.AuditLog{}).Where("action = ?", action).Count(&n).Error; err != nil {
		t.Fatalf("count audit: %v", err)
	}
	return n
}

func strPtr(s string) *string { return &s }
