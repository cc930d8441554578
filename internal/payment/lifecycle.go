// Package payment implements the payment lifecycle: the pure transition
// function, a per-payment phase tracker and the three signing actors
// (payment service, payer and shop) that drive a payment through the relay.
package payment

import (
	"fmt"

	"github.com/0gfoundation/0g-points-relay/internal/errs"
)

// Phase is the client-side view of a payment's lifecycle position.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseOpened
	PhaseUserApproved
	PhaseUserDenied
	PhaseClosedConfirmed
	PhaseClosedCancelled
	PhaseCancelOpened
	PhaseShopApproved
	PhaseShopDenied
	PhaseCancelClosedConfirmed
	PhaseCancelClosedCancelled
)

var phaseNames = map[Phase]string{
	PhaseNone:                  "none",
	PhaseOpened:                "opened",
	PhaseUserApproved:          "user_approved",
	PhaseUserDenied:            "user_denied",
	PhaseClosedConfirmed:       "closed_confirmed",
	PhaseClosedCancelled:       "closed_cancelled",
	PhaseCancelOpened:          "cancel_opened",
	PhaseShopApproved:          "shop_approved",
	PhaseShopDenied:            "shop_denied",
	PhaseCancelClosedConfirmed: "cancel_closed_confirmed",
	PhaseCancelClosedCancelled: "cancel_closed_cancelled",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Terminal reports whether no further action is legal.
func (p Phase) Terminal() bool {
	return p == PhaseClosedCancelled || p == PhaseCancelClosedConfirmed || p == PhaseCancelClosedCancelled
}

// rank orders phases along the lifecycle graph. Siblings share a rank.
func (p Phase) rank() int {
	switch p {
	case PhaseNone:
		return 0
	case PhaseOpened:
		return 1
	case PhaseUserApproved, PhaseUserDenied:
		return 2
	case PhaseClosedConfirmed, PhaseClosedCancelled:
		return 3
	case PhaseCancelOpened:
		return 4
	case PhaseShopApproved, PhaseShopDenied:
		return 5
	default:
		return 6
	}
}

// Action is a signed step of the lifecycle.
type Action int

const (
	ActionOpenNew Action = iota
	ActionApproveNew
	ActionCloseNew
	ActionOpenCancel
	ActionApproveCancel
	ActionCloseCancel
)

func (a Action) String() string {
	switch a {
	case ActionOpenNew:
		return "openNewPayment"
	case ActionApproveNew:
		return "approveNewPayment"
	case ActionCloseNew:
		return "closeNewPayment"
	case ActionOpenCancel:
		return "openCancelPayment"
	case ActionApproveCancel:
		return "approveCancelPayment"
	case ActionCloseCancel:
		return "closeCancelPayment"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Next is the transition function. flag is the approval or confirm flag
// for actions that carry one and is ignored otherwise.
func Next(p Phase, a Action, flag bool) (Phase, error) {
	if p.Terminal() {
		return p, errs.Protocol(a.String(), "payment is in terminal phase %s", p)
	}
	switch {
	case p == PhaseNone && a == ActionOpenNew:
		return PhaseOpened, nil
	case p == PhaseOpened && a == ActionApproveNew:
		if flag {
			return PhaseUserApproved, nil
		}
		return PhaseUserDenied, nil
	case p == PhaseUserApproved && a == ActionCloseNew:
		if flag {
			return PhaseClosedConfirmed, nil
		}
		return PhaseClosedCancelled, nil
	case p == PhaseUserDenied && a == ActionCloseNew && !flag:
		return PhaseClosedCancelled, nil
	case p == PhaseClosedConfirmed && a == ActionOpenCancel:
		return PhaseCancelOpened, nil
	case p == PhaseCancelOpened && a == ActionApproveCancel:
		if flag {
			return PhaseShopApproved, nil
		}
		return PhaseShopDenied, nil
	case p == PhaseShopApproved && a == ActionCloseCancel:
		if flag {
			return PhaseCancelClosedConfirmed, nil
		}
		return PhaseCancelClosedCancelled, nil
	case p == PhaseShopDenied && a == ActionCloseCancel && !flag:
		return PhaseCancelClosedCancelled, nil
	}
	return p, errs.Protocol(a.String(), "not allowed in phase %s (flag=%t)", p, flag)
}

// Relay payment status codes.
const (
	StatusNull                     = 0
	StatusOpenedNew                = 11
	StatusFailedTxNew              = 12
	StatusRevertedTxNew            = 13
	StatusApprovedNewFailedTx      = 14
	StatusApprovedNewRevertedTx    = 15
	StatusDeniedNew                = 16
	StatusApprovedNew              = 17
	StatusClosedNew                = 18
	StatusFailedNew                = 19
	StatusOpenedCancel             = 51
	StatusFailedTxCancel           = 52
	StatusRevertedTxCancel         = 53
	StatusApprovedCancelFailedTx   = 54
	StatusApprovedCancelRevertedTx = 55
	StatusDeniedCancel             = 56
	StatusApprovedCancel           = 57
	StatusClosedCancel             = 58
	StatusFailedCancel             = 59
)

// PhaseOf maps a relay paymentStatus onto a Phase. ok is false for codes
// this client does not know.
func PhaseOf(status int) (p Phase, ok bool) {
	switch status {
	case StatusNull:
		return PhaseNone, true
	case StatusOpenedNew, StatusFailedTxNew, StatusRevertedTxNew:
		return PhaseOpened, true
	case StatusApprovedNewFailedTx, StatusApprovedNewRevertedTx, StatusApprovedNew:
		return PhaseUserApproved, true
	case StatusDeniedNew:
		return PhaseUserDenied, true
	case StatusClosedNew:
		return PhaseClosedConfirmed, true
	case StatusFailedNew:
		return PhaseClosedCancelled, true
	case StatusOpenedCancel, StatusFailedTxCancel, StatusRevertedTxCancel:
		return PhaseCancelOpened, true
	case StatusApprovedCancelFailedTx, StatusApprovedCancelRevertedTx, StatusApprovedCancel:
		return PhaseShopApproved, true
	case StatusDeniedCancel:
		return PhaseShopDenied, true
	case StatusClosedCancel:
		return PhaseCancelClosedConfirmed, true
	case StatusFailedCancel:
		return PhaseCancelClosedCancelled, true
	}
	return PhaseNone, false
}
