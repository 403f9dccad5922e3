package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"belongchain/core/events"
	"belongchain/core/types"
	"belongchain/native/checkin"
	"belongchain/native/dexswap"
	"belongchain/native/escrow"
)

// CheckIn tracks the engine's business activity counters.
type CheckIn struct {
	VenueDeposits         prometheus.Counter
	CustomerPayments      prometheus.Counter
	PromoterDistributions prometheus.Counter
	PromoterCancellations prometheus.Counter
	SwapsExecuted         prometheus.Counter
	BuybackBurns          prometheus.Counter
	LongBurned            prometheus.Counter
	EscrowBalanceUpdates  prometheus.Counter
	ReferralRegistrations prometheus.Counter
	ParameterReplacements prometheus.Counter

	registerOnce sync.Once
}

// NewCheckIn constructs the counter set.
func NewCheckIn() *CheckIn {
	return &CheckIn{
		VenueDeposits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "belong_checkin_venue_deposits_total",
			Help: "Venue deposits accepted by the engine.",
		}),
		CustomerPayments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "belong_checkin_customer_payments_total",
			Help: "Customer payments routed to venues.",
		}),
		PromoterDistributions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "belong_checkin_promoter_distributions_total",
			Help: "Promoter credit distributions settled.",
		}),
		PromoterCancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "belong_checkin_promoter_cancellations_total",
			Help: "Emergency promoter payment cancellations.",
		}),
		SwapsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "belong_checkin_swaps_total",
			Help: "Slippage-bounded swaps executed.",
		}),
		BuybackBurns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "belong_checkin_buyback_burns_total",
			Help: "Revenue buyback-and-burn operations.",
		}),
		LongBurned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "belong_checkin_long_burned_total",
			Help: "Total LONG retired through burns, in native units.",
		}),
		EscrowBalanceUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "belong_escrow_balance_updates_total",
			Help: "Escrow venue balance mutations.",
		}),
		ReferralRegistrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "belong_checkin_referral_registrations_total",
			Help: "Referral codes registered.",
		}),
		ParameterReplacements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "belong_checkin_parameter_replacements_total",
			Help: "Global parameter set replacements.",
		}),
	}
}

// Register installs the counters on the registry exactly once.
func (c *CheckIn) Register(reg prometheus.Registerer) {
	c.registerOnce.Do(func() {
		reg.MustRegister(
			c.VenueDeposits,
			c.CustomerPayments,
			c.PromoterDistributions,
			c.PromoterCancellations,
			c.SwapsExecuted,
			c.BuybackBurns,
			c.LongBurned,
			c.EscrowBalanceUpdates,
			c.ReferralRegistrations,
			c.ParameterReplacements,
		)
	})
}

// Emitter bridges the engine event stream onto the counters and forwards each
// event to the wrapped emitter.
type Emitter struct {
	metrics *CheckIn
	next    events.Emitter
}

// NewEmitter wraps next so every emitted event also updates the counters.
// Passing a nil next drops events after counting.
func NewEmitter(metrics *CheckIn, next events.Emitter) *Emitter {
	if next == nil {
		next = events.NoopEmitter{}
	}
	return &Emitter{metrics: metrics, next: next}
}

// Emit implements events.Emitter.
func (e *Emitter) Emit(evt events.Event) {
	if e == nil || evt == nil {
		return
	}
	if e.metrics != nil {
		e.count(evt)
	}
	e.next.Emit(evt)
}

func (e *Emitter) count(evt events.Event) {
	switch evt.EventType() {
	case checkin.EventTypeVenuePaidDeposit:
		e.metrics.VenueDeposits.Inc()
	case checkin.EventTypeCustomerPaid:
		e.metrics.CustomerPayments.Inc()
	case checkin.EventTypePromoterDistributed:
		e.metrics.PromoterDistributions.Inc()
	case checkin.EventTypePromoterPaymentCancelled:
		e.metrics.PromoterCancellations.Inc()
	case dexswap.EventTypeSwapped:
		e.metrics.SwapsExecuted.Inc()
	case checkin.EventTypeRevenueBuybackBurn:
		e.metrics.BuybackBurns.Inc()
	case checkin.EventTypeBurnedTokens:
		e.metrics.LongBurned.Add(eventAmount(evt, "long"))
	case escrow.EventTypeVenueDepositsUpdated:
		e.metrics.EscrowBalanceUpdates.Inc()
	case checkin.EventTypeReferralRegistered:
		e.metrics.ReferralRegistrations.Inc()
	case checkin.EventTypeParametersSet:
		e.metrics.ParameterReplacements.Inc()
	}
}

// eventAmount extracts a numeric attribute when the event carries one. Values
// beyond float precision saturate rather than fail; counters are indicative.
func eventAmount(evt events.Event, key string) float64 {
	carrier, ok := evt.(interface{ Event() *types.Event })
	if !ok || carrier.Event() == nil {
		return 0
	}
	raw, ok := carrier.Event().Attributes[key]
	if !ok {
		return 0
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return value
}
