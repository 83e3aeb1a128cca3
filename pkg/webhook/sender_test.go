package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/enjoys-in/pinglet-sub002/pkg/auth"
	"github.com/enjoys-in/pinglet-sub002/pkg/models"
	"github.com/enjoys-in/pinglet-sub002/pkg/types"
)

func TestDeliverSignsBody(t *testing.T) {
	secret := "whsec_8812aabbccdd"
	var gotBody []byte
	var gotSig, gotKind string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get("X-Pinglet-Signature")
		gotKind = r.Header.Get("X-Pinglet-Event")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	hook := &models.Webhook{URL: srv.URL, Secret: secret}
	ev := types.LifecycleEvent{
		Kind:           types.EventClicked,
		Timestamp:      time.Now().UTC(),
		ProjectID:      uuid.New(),
		NotificationID: uuid.New(),
	}

	resp, err := NewSender(time.Second).Deliver(context.Background(), hook, ev)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if resp.Status != "delivered" {
		t.Errorf("status = %q, want delivered", resp.Status)
	}
	if gotKind != string(types.EventClicked) {
		t.Errorf("event header = %q, want clicked", gotKind)
	}
	// receivers recompute the HMAC over the exact body bytes
	if want := auth.Sign([]byte(secret), string(gotBody)); gotSig != want {
		t.Errorf("signature = %q, want %q", gotSig, want)
	}
	var decoded types.LifecycleEvent
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("body did not decode: %v", err)
	}
	if decoded.NotificationID != ev.NotificationID {
		t.Errorf("delivered notification id = %s, want %s", decoded.NotificationID, ev.NotificationID)
	}
}

func TestDeliverErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	hook := &models.Webhook{URL: srv.URL, Secret: "s"}
	_, err := NewSender(time.Second).Deliver(context.Background(), hook, types.LifecycleEvent{Kind: types.EventSent})
	if err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}

func TestDeliverUnreachableEndpoint(t *testing.T) {
	hook := &models.Webhook{URL: "http://127.0.0.1:1", Secret: "s"}
	_, err := NewSender(200 * time.Millisecond).Deliver(context.Background(), hook, types.LifecycleEvent{Kind: types.EventSent})
	if err == nil {
		t.Fatal("expected an error for an unreachable endpoint")
	}
}

func TestWants(t *testing.T) {
	cases := []struct {
		name   string
		events datatypes.JSON
		kind   types.EventKind
		want   bool
	}{
		{"no filter means all", nil, types.EventClicked, true},
		{"empty filter means all", datatypes.JSON(`[]`), types.EventClosed, true},
		{"subscribed kind", datatypes.JSON(`["clicked","closed"]`), types.EventClicked, true},
		{"unsubscribed kind", datatypes.JSON(`["clicked"]`), types.EventDropped, false},
		{"corrupt filter fails open", datatypes.JSON(`{bad`), types.EventSent, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hook := &models.Webhook{Events: tc.events}
			if got := Wants(hook, tc.kind); got != tc.want {
				t.Errorf("Wants(%s, %s) = %v, want %v", tc.events, tc.kind, got, tc.want)
			}
		})
	}
}
