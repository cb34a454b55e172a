package disclosure

import (
	"blockship/internal/session"
	id "blockship/pkg/domain"
)

// ClaimGuard names one precondition of the claim pipeline.
type ClaimGuard string

const (
	GuardShipmentFound        ClaimGuard = "shipment_found"
	GuardAccountAuthenticated ClaimGuard = "account_authenticated"
	GuardWalletConnected      ClaimGuard = "wallet_connected"
)

// ClaimDecision is the result of evaluating the claim guards against a
// session. Allowed means every guard holds; Missing lists the unmet guards
// in a stable order.
type ClaimDecision struct {
	Allowed bool
	Missing []ClaimGuard
}

// EvaluateClaim checks the three claim guards: a located shipment, an
// authenticated account, and a connected wallet. Pure state inspection, no
// side effects.
func EvaluateClaim(sess *session.Session) ClaimDecision {
	var missing []ClaimGuard

	if sess.Disclosure.State != id.StateFound || sess.Disclosure.Record == nil {
		missing = append(missing, GuardShipmentFound)
	}
	if !sess.AccountAuthenticated {
		missing = append(missing, GuardAccountAuthenticated)
	}
	if !sess.WalletConnected {
		missing = append(missing, GuardWalletConnected)
	}

	return ClaimDecision{
		Allowed: len(missing) == 0,
		Missing: missing,
	}
}
