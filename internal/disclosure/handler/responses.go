package handler

import (
	"time"

	"blockship/internal/disclosure"
	"blockship/internal/shipment"
)

type sessionResponse struct {
	SessionID string    `json:"sessionId"`
	Device    string    `json:"device,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`

	AccountAuthenticated bool   `json:"accountAuthenticated"`
	Subject              string `json:"subject,omitempty"`

	Wallet     walletResponse     `json:"wallet"`
	Disclosure disclosureResponse `json:"disclosure"`
}

type walletResponse struct {
	ProviderConfigured bool   `json:"providerConfigured"`
	Connected          bool   `json:"connected"`
	Connecting         bool   `json:"connecting"`
	Address            string `json:"address,omitempty"`
	Truncated          string `json:"truncated,omitempty"`
}

type disclosureResponse struct {
	State         string           `json:"state"`
	LastQuery     string           `json:"lastQuery,omitempty"`
	Record        *shipment.Record `json:"record,omitempty"`
	ClaimAllowed  bool             `json:"claimAllowed"`
	MissingGuards []string         `json:"missingGuards,omitempty"`
}

type openSessionResponse struct {
	Token   string          `json:"token"`
	Session sessionResponse `json:"session"`
}

type searchResponse struct {
	State      string           `json:"state"`
	Record     *shipment.Record `json:"record,omitempty"`
	Superseded bool             `json:"superseded,omitempty"`
	Message    string           `json:"message,omitempty"`
}

type linkResponse struct {
	URL string `json:"url"`
}

func newSessionResponse(view *disclosure.SessionView) sessionResponse {
	guards := make([]string, len(view.Disclosure.MissingGuards))
	for i, g := range view.Disclosure.MissingGuards {
		guards[i] = string(g)
	}
	return sessionResponse{
		SessionID:            view.SessionID,
		Device:               view.Device,
		CreatedAt:            view.CreatedAt,
		ExpiresAt:            view.ExpiresAt,
		AccountAuthenticated: view.AccountAuthenticated,
		Subject:              view.Subject,
		Wallet:               newWalletResponse(&view.Wallet),
		Disclosure: disclosureResponse{
			State:         view.Disclosure.State.String(),
			LastQuery:     view.Disclosure.LastQuery,
			Record:        view.Disclosure.Record,
			ClaimAllowed:  view.Disclosure.ClaimAllowed,
			MissingGuards: guards,
		},
	}
}

func newWalletResponse(view *disclosure.WalletView) walletResponse {
	return walletResponse{
		ProviderConfigured: view.ProviderConfigured,
		Connected:          view.Connected,
		Connecting:         view.Connecting,
		Address:            view.Address,
		Truncated:          view.Truncated,
	}
}
