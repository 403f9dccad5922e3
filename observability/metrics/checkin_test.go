package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"belongchain/core/events"
	"belongchain/core/types"
	"belongchain/native/checkin"
)

type testEvent struct {
	evt *types.Event
}

func (e testEvent) EventType() string   { return e.evt.Type }
func (e testEvent) Event() *types.Event { return e.evt }

func TestEmitterCountsAndForwards(t *testing.T) {
	m := NewCheckIn()
	m.Register(prometheus.NewRegistry())
	rec := &events.Recorder{}
	emitter := NewEmitter(m, rec)

	emitter.Emit(testEvent{evt: &types.Event{Type: checkin.EventTypeVenuePaidDeposit}})
	emitter.Emit(testEvent{evt: &types.Event{Type: checkin.EventTypeCustomerPaid}})
	emitter.Emit(testEvent{evt: &types.Event{Type: checkin.EventTypeCustomerPaid}})
	emitter.Emit(testEvent{evt: &types.Event{
		Type:       checkin.EventTypeBurnedTokens,
		Attributes: map[string]string{"long": "42"},
	}})

	if got := testutil.ToFloat64(m.VenueDeposits); got != 1 {
		t.Fatalf("venue deposits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CustomerPayments); got != 2 {
		t.Fatalf("customer payments = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.LongBurned); got != 42 {
		t.Fatalf("long burned = %v, want 42", got)
	}
	if len(rec.Events()) != 4 {
		t.Fatalf("forwarded %d events, want 4", len(rec.Events()))
	}
}

func TestEmitterWithoutDownstream(t *testing.T) {
	m := NewCheckIn()
	m.Register(prometheus.NewRegistry())
	emitter := NewEmitter(m, nil)
	emitter.Emit(testEvent{evt: &types.Event{Type: checkin.EventTypeReferralRegistered}})
	if got := testutil.ToFloat64(m.ReferralRegistrations); got != 1 {
		t.Fatalf("referrals = %v, want 1", got)
	}
}
