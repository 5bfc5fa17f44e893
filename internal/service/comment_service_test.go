package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/newhorizons/case-service/internal/database/dbtest"
	"github.com/newhorizons/case-service/internal/errs"
	"github.com/newhorizons/case-service/internal/model"
	"github.com/newhorizons/case-service/internal/storage"
)

func TestComments(t *testing.T) {
	f := newFixture(t)
	owner := dbtest.User(t, f.db, "owner", model.RoleClient)
	other := dbtest.User(t, f.db, "other", model.RoleClient)
	advisor := dbtest.User(t, f.db, "adv", model.RoleAdvisor)
	tk := f.ticket(t, owner.ID, nil, model.TicketStatusOpen)
	svc := NewCommentService(f.db)
	ctx := context.Background()

	if _, err := svc.Create(ctx, ActorOf(owner), tk.ID, "   "); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("blank comment err = %v", err)
	}
	if _, err := svc.Create(ctx, ActorOf(other), tk.ID, "hola"); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("foreign comment err = %v", err)
	}
	first, err := svc.Create(ctx, ActorOf(owner), tk.ID, "primero")
	if err != nil {
		t.Fatal(err)
	}
	if first.User == nil || first.User.ID != owner.ID {
		t.Error("author not loaded")
	}
	if _, err := svc.Create(ctx, ActorOf(advisor), tk.ID, "segundo"); err != nil {
		t.Fatal(err)
	}

	list, err := svc.List(ctx, ActorOf(owner), tk.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Content != "primero" || list[1].Content != "segundo" {
		t.Errorf("comments = %+v", list)
	}
	if _, err := svc.List(ctx, ActorOf(other), tk.ID); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("foreign list err = %v", err)
	}
}

func TestAttachments(t *testing.T) {
	f := newFixture(t)
	owner := dbtest.User(t, f.db, "owner", model.RoleClient)
	other := dbtest.User(t, f.db, "other", model.RoleClient)
	open := f.ticket(t, owner.ID, nil, model.TicketStatusOpen)
	closed := f.ticket(t, owner.ID, nil, model.TicketStatusClosed)
	disk, err := storage.NewDisk(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatal(err)
	}
	svc := NewAttachmentService(f.db, disk, f.audit, f.log)
	ctx := context.Background()

	upload := func(name string) Upload {
		return Upload{Filename: name, MIMEType: "application/pdf", Body: strings.NewReader("%PDF-1.4")}
	}

	if _, err := svc.Upload(ctx, ActorOf(owner), closed.ID, upload("a.pdf")); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("closed ticket err = %v", err)
	}
	if _, err := svc.Upload(ctx, ActorOf(other), open.ID, upload("a.pdf")); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("foreign ticket err = %v", err)
	}

	a, err := svc.Upload(ctx, ActorOf(owner), open.ID, upload("passport.PDF"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if a.Filename != "passport.PDF" || !strings.HasPrefix(a.URL, "/uploads/") || !strings.HasSuffix(a.URL, ".pdf") {
		t.Errorf("attachment = %+v", a)
	}
	if a.Size == nil || *a.Size != int64(len("%PDF-1.4")) {
		t.Errorf("size = %v", a.Size)
	}
	if a.Uploader == nil || a.Uploader.ID != owner.ID {
		t.Error("uploader not loaded")
	}
	if _, err := svc.Upload(ctx, ActorOf(owner), open.ID, upload("cv.pdf")); err != nil {
		t.Fatal(err)
	}

	list, err := svc.List(ctx, ActorOf(owner), open.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Filename != "cv.pdf" {
		t.Errorf("attachments not newest first: %+v", list)
	}
	if n := f.auditCount(t, AuditUploadFile); n != 2 {
		t.Errorf("audit = %d", n)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	c1 := dbtest.User(t, f.db, "c1", model.RoleClient)
	c2 := dbtest.User(t, f.db, "c2", model.RoleClient)
	admin := dbtest.User(t, f.db, "admin", model.RoleAdmin)
	f.ticket(t, c1.ID, nil, model.TicketStatusOpen)
	f.ticket(t, c1.ID, nil, model.TicketStatusResolved)
	f.ticket(t, c2.ID, nil, model.TicketStatusInProgress)
	for i := 0; i < 5; i++ {
		f.ticket(t, c2.ID, nil, model.TicketStatusClosed)
	}
	svc := NewStatsService(f.db)
	ctx := context.Background()

	st, err := svc.Tickets(ctx, ActorOf(c1))
	if err != nil {
		t.Fatal(err)
	}
	if *st != (TicketStats{Open: 1, Resolved: 1, Total: 2}) {
		t.Errorf("client stats = %+v", st)
	}
	st, _ = svc.Tickets(ctx, ActorOf(admin))
	if *st != (TicketStats{Open: 1, InProgress: 1, Resolved: 1, Closed: 5, Total: 8}) {
		t.Errorf("admin stats = %+v", st)
	}

	activity, err := svc.Activity(ctx, ActorOf(admin))
	if err != nil || len(activity) != 5 {
		t.Errorf("activity = %d, %v", len(activity), err)
	}
	activity, _ = svc.Activity(ctx, ActorOf(c1))
	if len(activity) != 2 {
		t.Errorf("client activity = %d", len(activity))
	}
}
