package mail

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type fakeAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAck) Ack(bool) error {
	f.acked = true
	return nil
}

func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

type recordingSender struct {
	sent []Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func body(t *testing.T, msg Message) []byte {
	t.Helper()
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestProcessDeliversAndAcks(t *testing.T) {
	ack := &fakeAck{}
	sender := &recordingSender{}

	process(context.Background(), ack, body(t, Message{To: "a@example.com", Subject: "hi"}), false, sender, zap.NewNop())

	if !ack.acked || ack.nacked {
		t.Fatalf("expected ack, got %+v", ack)
	}
	if len(sender.sent) != 1 || sender.sent[0].To != "a@example.com" {
		t.Fatalf("unexpected deliveries %+v", sender.sent)
	}
}

func TestProcessRequeuesFirstFailureOnly(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}

	first := &fakeAck{}
	process(context.Background(), first, body(t, Message{To: "a@example.com"}), false, sender, zap.NewNop())
	if !first.nacked || !first.requeue {
		t.Fatalf("first failure should be requeued, got %+v", first)
	}

	second := &fakeAck{}
	process(context.Background(), second, body(t, Message{To: "a@example.com"}), true, sender, zap.NewNop())
	if !second.nacked || second.requeue {
		t.Fatalf("redelivered failure should be dropped, got %+v", second)
	}
}

func TestProcessDropsMalformedBody(t *testing.T) {
	ack := &fakeAck{}
	process(context.Background(), ack, []byte("{not json"), false, &recordingSender{}, zap.NewNop())

	if !ack.nacked || ack.requeue {
		t.Fatalf("malformed message should be dropped, got %+v", ack)
	}
}
