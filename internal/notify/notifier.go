// Package notify renders and sends the portal's transactional e-mail.
// Sends are asynchronous and best-effort: failures are logged, never returned.
package notify

import (
	"context"
	"fmt"
	"html/template"
	"sync"
	"time"

	"github.com/newhorizons/case-service/internal/model"
	"go.uber.org/zap"
)

const sendTimeout = 10 * time.Second

type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer only logs what would have been sent.
type LogMailer struct {
	Log *zap.Logger
}

func (m LogMailer) Send(_ context.Context, msg Message) error {
	m.Log.Info("mail not sent, no provider configured",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

// NewMailer picks Brevo when it is configured and LogMailer otherwise.
func NewMailer(apiKey, senderEmail, senderName string, sandbox bool, log *zap.Logger) Mailer {
	m, err := NewBrevoMailer(apiKey, senderEmail, senderName, sandbox)
	if err != nil {
		log.Warn("brevo mailer disabled, mail is only logged", zap.Error(err))
		return LogMailer{Log: log}
	}
	return m
}

type Notifier struct {
	mailer    Mailer
	clientURL string
	log       *zap.Logger
	wg        sync.WaitGroup
}

func NewNotifier(mailer Mailer, clientURL string, log *zap.Logger) *Notifier {
	return &Notifier{mailer: mailer, clientURL: clientURL, log: log}
}

// Wait blocks until in-flight sends finish.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) Welcome(u model.User) {
	n.dispatch("welcome", u, "Bienvenido a New Horizons", welcomeTmpl, struct{ Name string }{u.Name})
}

func (n *Notifier) TicketStatusChanged(t model.Ticket, client model.User) {
	data := struct {
		Name, Title, Status, Link string
	}{client.Name, t.Title, string(t.Status), fmt.Sprintf("%s/tickets/%d", n.clientURL, t.ID)}
	n.dispatch("ticket_status", client, fmt.Sprintf("Actualización de Estado - Ticket #%d", t.ID), statusTmpl, data)
}

func (n *Notifier) AppointmentConfirmed(a model.Appointment, client model.User) {
	link := ""
	if a.Link != nil {
		link = *a.Link
	}
	data := struct {
		Name, Type, Date, Link string
	}{client.Name, string(a.Type), a.Date.UTC().Format("02/01/2006 15:04 MST"), link}
	n.dispatch("appointment", client, "Confirmación de Cita - New Horizons", appointmentTmpl, data)
}

func (n *Notifier) CheckoutCredentials(u model.User, program, tempPassword string) {
	data := struct {
		Name, Program, Email, Password, Link string
	}{u.Name, program, u.Email, tempPassword, n.clientURL + "/login"}
	n.dispatch("checkout_credentials", u, "Tu acceso al Portal de New Horizons", credentialsTmpl, data)
}

func (n *Notifier) dispatch(kind string, to model.User, subject string, tmpl *template.Template, data interface{}) {
	if to.Email == "" {
		return
	}
	html, err := render(tmpl, data)
	if err != nil {
		n.log.Warn("mail render failed", zap.String("kind", kind), zap.Error(err))
		return
	}
	msg := Message{To: to.Email, ToName: to.Name, Subject: subject, HTML: html}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := n.mailer.Send(ctx, msg); err != nil {
			n.log.Warn("mail send failed", zap.String("kind", kind), zap.String("to", msg.To), zap.Error(err))
		}
	}()
}
