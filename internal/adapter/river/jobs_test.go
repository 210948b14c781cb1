package river_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/riverqueue/river/rivertype"

	riveradapter "github.com/neomorfeo/talladmin/internal/adapter/river"
	"github.com/neomorfeo/talladmin/internal/domain"
)

func TestDispatcher_Notify_SendsMail(t *testing.T) {
	mailer := &recordingMailer{}
	client, events := startClient(t, mailer)
	d := riveradapter.NewDispatcher(client)

	err := d.Notify(context.Background(), domain.Notification{
		TenantID:     "t-1",
		ContactName:  "Ada",
		ContactEmail: "ada@acme.io",
		Event:        domain.EventSuspend,
		Payload:      map[string]string{"reason": "billing overdue"},
	})
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	waitForKinds(t, events, "tenant.notify")

	sent := mailer.messages()
	if len(sent) != 1 {
		t.Fatalf("got %d messages, want 1", len(sent))
	}
	if sent[0].To != "ada@acme.io" {
		t.Errorf("To = %q, want %q", sent[0].To, "ada@acme.io")
	}
	if !strings.Contains(sent[0].Body, "reason: billing overdue") {
		t.Errorf("Body = %q, want reason line", sent[0].Body)
	}
}

func TestDispatcher_PauseResume(t *testing.T) {
	client, events := startClient(t, &recordingMailer{})
	d := riveradapter.NewDispatcher(client)
	ctx := context.Background()

	if err := d.Pause(ctx, "t-1"); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	got := waitForKinds(t, events, "tenant.jobs")
	if !strings.Contains(string(got["tenant.jobs"].Job.EncodedArgs), `"action":"pause"`) {
		t.Errorf("args = %s, want pause", got["tenant.jobs"].Job.EncodedArgs)
	}

	if err := d.Resume(ctx, "t-1"); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	got = waitForKinds(t, events, "tenant.jobs")
	if !strings.Contains(string(got["tenant.jobs"].Job.EncodedArgs), `"action":"resume"`) {
		t.Errorf("args = %s, want resume", got["tenant.jobs"].Job.EncodedArgs)
	}
}

func TestDispatcher_Archive_SchedulesPurge(t *testing.T) {
	client, events := startClient(t, &recordingMailer{})
	d := riveradapter.NewDispatcher(client)
	tenant := domain.NewTenant("t-1", "Acme", "acme.io", "pro", 5, domain.Contact{})

	// A retention window already in the past lets the purge run immediately.
	if err := d.Archive(context.Background(), tenant, time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	waitForKinds(t, events, "tenant.archive", "tenant.purge")
}

func TestDispatcher_SendCode(t *testing.T) {
	mailer := &recordingMailer{}
	client, events := startClient(t, mailer)
	d := riveradapter.NewDispatcher(client)

	if err := d.SendCode(context.Background(), "ops@talladmin.io", "123456", time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("SendCode failed: %v", err)
	}

	waitForKinds(t, events, "auth.code_mail")

	sent := mailer.messages()
	if len(sent) != 1 {
		t.Fatalf("got %d messages, want 1", len(sent))
	}
	if sent[0].To != "ops@talladmin.io" || !strings.Contains(sent[0].Body, "123456") {
		t.Errorf("message = %+v", sent[0])
	}
}

func TestCodeMailJanitor_DeletesDeliveredCodes(t *testing.T) {
	client, events := startClient(t, &recordingMailer{})
	janitor := riveradapter.NewCodeMailJanitor(client)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- janitor.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("janitor: %v", err)
		}
	})

	d := riveradapter.NewDispatcher(client)
	if err := d.SendCode(ctx, "ops@talladmin.io", "654321", time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("SendCode failed: %v", err)
	}
	if err := d.Pause(ctx, "t-1"); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	got := waitForKinds(t, events, "auth.code_mail", "tenant.jobs")

	codeJob := got["auth.code_mail"].Job.ID
	deadline := time.Now().Add(5 * time.Second)
	for {
		_, err := client.JobGet(ctx, codeJob)
		if errors.Is(err, rivertype.ErrNotFound) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("code mail job %d still stored (err %v)", codeJob, err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	// Other kinds keep River's normal retention.
	if _, err := client.JobGet(ctx, got["tenant.jobs"].Job.ID); err != nil {
		t.Errorf("tenant.jobs job should be kept: %v", err)
	}
}
