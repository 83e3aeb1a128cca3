package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/enjoys-in/pinglet-sub002/pkg/config"
	"github.com/enjoys-in/pinglet-sub002/pkg/mailer"
	"github.com/enjoys-in/pinglet-sub002/pkg/types"
)

type memMarker struct {
	seen map[string]bool
}

func (m *memMarker) MarkProcessed(key string) (bool, error) {
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

type memLedger struct {
	counts map[string]int64
	armed  map[string]bool
}

func newMemLedger() *memLedger {
	return &memLedger{counts: make(map[string]int64), armed: make(map[string]bool)}
}

func (l *memLedger) Bump(_ context.Context, projectID uuid.UUID, day string) (int64, error) {
	k := projectID.String() + day
	l.counts[k]++
	return l.counts[k], nil
}

func (l *memLedger) Count(_ context.Context, projectID uuid.UUID, day string) (int64, error) {
	return l.counts[projectID.String()+day], nil
}

func (l *memLedger) Arm(_ context.Context, projectID uuid.UUID, day string) (bool, error) {
	k := projectID.String() + day
	if l.armed[k] {
		return false, nil
	}
	l.armed[k] = true
	return true, nil
}

func (l *memLedger) Disarm(_ context.Context, projectID uuid.UUID, day string) {
	delete(l.armed, projectID.String()+day)
}

type memMailer struct {
	sent     []mailer.Email
	failNext bool
}

func (m *memMailer) Send(e mailer.Email) error {
	if m.failNext {
		m.failNext = false
		return errors.New("smtp down")
	}
	m.sent = append(m.sent, e)
	return nil
}

func failedEvent(projectID uuid.UUID) types.LifecycleEvent {
	return types.LifecycleEvent{
		Kind:           types.EventFailed,
		Timestamp:      time.Now().UTC(),
		ProjectID:      projectID,
		NotificationID: uuid.New(),
	}
}

func TestAlertMailsOnceAtThreshold(t *testing.T) {
	marker := &memMarker{seen: make(map[string]bool)}
	ledger := newMemLedger()
	mail := &memMailer{}
	h := alertHandler(marker, ledger, mail, &config.AlertsConfig{From: "a@b.c", Threshold: 3}, "owner@example.com", zap.NewNop())

	projectID := uuid.New()
	for i := 0; i < 5; i++ {
		if err := h(context.Background(), failedEvent(projectID)); err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
	}

	if len(mail.sent) != 1 {
		t.Fatalf("sent %d digests, want exactly 1", len(mail.sent))
	}
	if mail.sent[0].To[0] != "owner@example.com" {
		t.Errorf("digest went to %v", mail.sent[0].To)
	}
}

func TestAlertRedeliveryDoesNotDoubleCount(t *testing.T) {
	marker := &memMarker{seen: make(map[string]bool)}
	ledger := newMemLedger()
	mail := &memMailer{}
	h := alertHandler(marker, ledger, mail, &config.AlertsConfig{From: "a@b.c", Threshold: 3}, "owner@example.com", zap.NewNop())

	projectID := uuid.New()
	ev := failedEvent(projectID)
	// the broker redelivers the same event three times
	for i := 0; i < 3; i++ {
		if err := h(context.Background(), ev); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}

	if count := ledger.counts[projectID.String()+time.Now().UTC().Format("20060102")]; count != 1 {
		t.Errorf("counter = %d after redeliveries of one event, want 1", count)
	}
	if len(mail.sent) != 0 {
		t.Errorf("sent %d digests below threshold, want 0", len(mail.sent))
	}
}

func TestAlertSurvivesSendFailure(t *testing.T) {
	marker := &memMarker{seen: make(map[string]bool)}
	ledger := newMemLedger()
	mail := &memMailer{}
	h := alertHandler(marker, ledger, mail, &config.AlertsConfig{From: "a@b.c", Threshold: 2}, "owner@example.com", zap.NewNop())

	projectID := uuid.New()
	if err := h(context.Background(), failedEvent(projectID)); err != nil {
		t.Fatal(err)
	}

	// the threshold-crossing event hits a down mail server
	crossing := failedEvent(projectID)
	mail.failNext = true
	if err := h(context.Background(), crossing); err == nil {
		t.Fatal("expected the handler to surface the send failure for retry")
	}

	// the dispatcher retries the same event: already counted, still mailed
	if err := h(context.Background(), crossing); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(mail.sent) != 1 {
		t.Fatalf("sent %d digests after retry, want 1", len(mail.sent))
	}
	if count := ledger.counts[projectID.String()+time.Now().UTC().Format("20060102")]; count != 2 {
		t.Errorf("counter = %d, want 2 (retry must not re-count)", count)
	}
}
