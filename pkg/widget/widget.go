// Package widget is the client half of the delivery pipeline: it receives a
// wire envelope from the push surface, decrypts it with the key derived from
// its own bundle digest, renders the template, and hands the result to the
// presentation stack. Any failure along the way produces no toast and never
// takes the widget down.
package widget

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/enjoys-in/pinglet-sub002/pkg/dispatch"
	"github.com/enjoys-in/pinglet-sub002/pkg/envelope"
	"github.com/enjoys-in/pinglet-sub002/pkg/keymat"
	"github.com/enjoys-in/pinglet-sub002/pkg/rendering"
	"github.com/enjoys-in/pinglet-sub002/pkg/stack"
	"github.com/enjoys-in/pinglet-sub002/pkg/types"
)

var ErrKeyRefMismatch = errors.New("widget: envelope key reference does not match bundle digest")

type Widget struct {
	projectID uuid.UUID
	digest    string
	key       []byte
	engine    *stack.Engine
	emitter   *dispatch.Emitter
	log       *zap.Logger
}

// New derives the decryption key from the widget bundle's integrity digest
// once, up front. A digest that cannot produce a key is a deployment error,
// not a per-notification one.
func New(projectID uuid.UUID, bundleDigest string, cfg stack.Config, r stack.Renderer, emitter *dispatch.Emitter, log *zap.Logger, opts ...stack.Option) (*Widget, error) {
	key, err := keymat.DeriveKey(bundleDigest)
	if err != nil {
		return nil, fmt.Errorf("widget: %w", err)
	}
	w := &Widget{
		projectID: projectID,
		digest:    bundleDigest,
		key:       key,
		emitter:   emitter,
		log:       log,
	}
	w.engine = stack.New(cfg, r, w.forward, opts...)
	return w, nil
}

// Engine exposes the presentation stack for user-event wiring (dismiss,
// click, hover pause/resume handlers).
func (w *Widget) Engine() *stack.Engine { return w.engine }

// OnPush handles one pushed envelope, wire-JSON encoded. Undecryptable or
// malformed envelopes are discarded fail-closed with a "failed" lifecycle
// event; a displayed notification reports "sent".
func (w *Widget) OnPush(wireJSON []byte) error {
	var wire envelope.Wire
	if err := json.Unmarshal(wireJSON, &wire); err != nil {
		w.log.Warn("discarding unparseable push", zap.Error(err))
		w.reportFailed(uuid.Nil, "malformed_wire")
		return fmt.Errorf("%w: %v", envelope.ErrMalformed, err)
	}

	if wire.K != w.digest {
		// A different keyRef means a bundle/key version mismatch. Decryption
		// would fail anyway; reject before touching the ciphertext.
		w.log.Warn("discarding push with foreign key reference", zap.String("key_ref", wire.K))
		w.reportFailed(uuid.Nil, "key_ref_mismatch")
		return ErrKeyRefMismatch
	}

	env, err := envelope.UnmarshalWire(wire)
	if err != nil {
		w.log.Warn("discarding malformed envelope", zap.Error(err))
		w.reportFailed(uuid.Nil, "malformed_envelope")
		return err
	}

	plaintext, err := envelope.Open(env, w.key)
	if err != nil {
		// Tampered, corrupted, or wrong-key envelope. Never rendered,
		// never retried with the same material.
		w.log.Warn("envelope failed authentication, discarding", zap.Error(err))
		w.reportFailed(uuid.Nil, "undecryptable")
		return err
	}

	var p types.PushPayload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		w.log.Warn("discarding undecodable payload", zap.Error(err))
		w.reportFailed(uuid.Nil, "bad_payload")
		return fmt.Errorf("widget: decode payload: %w", err)
	}

	content := rendering.Render(p.TemplateTitle, p.TemplateDescription, p.TemplateMedia, p.Body)
	entry := w.engine.Insert(p.ID, p.ProjectID, p.Tag, content)
	if entry != nil && entry.State() != stack.StateDropped {
		w.emitter.Emit(types.LifecycleEvent{
			Kind:           types.EventSent,
			ProjectID:      p.ProjectID,
			NotificationID: p.ID,
		})
	}
	return nil
}

// reportFailed feeds the failed topic that drives the alert mailer. The
// notification ID is only known when the payload decrypted; the project is
// always the widget's own.
func (w *Widget) reportFailed(notificationID uuid.UUID, reason string) {
	w.emitter.Emit(types.LifecycleEvent{
		Kind:           types.EventFailed,
		ProjectID:      w.projectID,
		NotificationID: notificationID,
		Metadata:       map[string]string{"reason": reason},
	})
}

// forward relays engine transitions (clicked/closed/dropped) into the
// best-effort analytics channel.
func (w *Widget) forward(kind types.EventKind, e *stack.Entry) {
	w.emitter.Emit(types.LifecycleEvent{
		Kind:           kind,
		ProjectID:      e.ProjectID,
		NotificationID: e.ID,
		Metadata:       map[string]string{"tag": e.Tag},
	})
}

// Close shuts the presentation stack down and flushes pending analytics.
func (w *Widget) Close() {
	w.engine.Close()
}
