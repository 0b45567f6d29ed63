package order

import (
	"fmt"
	"time"
)

// State is the execution state of an order.
type State int

const (
	Initial State = iota
	Accepted
	PartiallyFilled
	Completed
	Cancelled
	Expired
	Rejected
)

var stateNames = [...]string{
	Initial:         "INITIAL",
	Accepted:        "ACCEPTED",
	PartiallyFilled: "PARTIALLY_FILLED",
	Completed:       "COMPLETED",
	Cancelled:       "CANCELLED",
	Expired:         "EXPIRED",
	Rejected:        "REJECTED",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// IsOpen reports whether the order can still fill.
func (s State) IsOpen() bool {
	return s == Initial || s == Accepted || s == PartiallyFilled
}

// IsClosed reports whether the state is terminal.
func (s State) IsClosed() bool { return !s.IsOpen() }

// CanTransition reports whether moving from s to next is a legal step of
// the order lifecycle.
func (s State) CanTransition(next State) bool {
	switch s {
	case Initial:
		return next == Accepted
	case Accepted:
		switch next {
		case PartiallyFilled, Completed, Cancelled, Expired, Rejected:
			return true
		}
	case PartiallyFilled:
		switch next {
		case PartiallyFilled, Completed, Cancelled, Expired:
			return true
		}
	}
	return false
}

// TIFKind selects a time-in-force policy.
type TIFKind string

const (
	TIFGoodTillCancelled TIFKind = "GTC"
	TIFDay               TIFKind = "DAY"
	TIFImmediateOrCancel TIFKind = "IOC"
	TIFFillOrKill        TIFKind = "FOK"
	TIFGoodTillDate      TIFKind = "GTD"
)

// TimeInForce decides how long an order stays active.
type TimeInForce struct {
	Kind  TIFKind
	Until time.Time
}

func GTC() TimeInForce { return TimeInForce{Kind: TIFGoodTillCancelled} }
func Day() TimeInForce { return TimeInForce{Kind: TIFDay} }
func IOC() TimeInForce { return TimeInForce{Kind: TIFImmediateOrCancel} }
func FOK() TimeInForce { return TimeInForce{Kind: TIFFillOrKill} }
func GTD(until time.Time) TimeInForce { return TimeInForce{Kind: TIFGoodTillDate, Until: until} }

func (t TimeInForce) String() string {
	if t.Kind == TIFGoodTillDate {
		return fmt.Sprintf("GTD(%s)", t.Until.Format(time.RFC3339))
	}
	if t.Kind == "" {
		return string(TIFGoodTillCancelled)
	}
	return string(t.Kind)
}

// Expired reports whether an order accepted at openedAt is no longer active
// at now. IOC and FOK are handled by the executor after the first
// evaluation since they depend on the fill outcome, not on time.
func (t TimeInForce) Expired(openedAt, now time.Time) bool {
	switch t.Kind {
	case TIFDay:
		oy, om, od := openedAt.UTC().Date()
		ny, nm, nd := now.UTC().Date()
		return oy != ny || om != nm || od != nd
	case TIFGoodTillDate:
		return now.After(t.Until)
	}
	return false
}

// Immediate reports whether the order must fill on its first evaluation.
func (t TimeInForce) Immediate() bool {
	return t.Kind == TIFImmediateOrCancel || t.Kind == TIFFillOrKill
}

// AllOrNone reports whether partial fills are forbidden.
func (t TimeInForce) AllOrNone() bool { return t.Kind == TIFFillOrKill }
