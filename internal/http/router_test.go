package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"blockship/internal/disclosure"
	dischandler "blockship/internal/disclosure/handler"
	"blockship/internal/disclosure/ports"
	"blockship/internal/explorer"
	"blockship/internal/identity"
	"blockship/internal/identity/devidp"
	jwttoken "blockship/internal/jwt_token"
	"blockship/internal/notification"
	notifhandler "blockship/internal/notification/handler"
	"blockship/internal/session/device"
	"blockship/internal/session/store"
	"blockship/internal/shipment"
	"blockship/internal/wallet"
	id "blockship/pkg/domain"
)

// AGENTS.MD JUSTIFICATION: the router test wires a real in-memory stack
// (store, identity provider, resolver against an httptest shipment store)
// and exercises the API exactly as a client would: open, authenticate,
// search, disclose. It is the closest thing to an end-to-end test that runs
// without containers.

type RouterSuite struct {
	suite.Suite
	shipments *httptest.Server
	gateway   *httptest.Server
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.shipments = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/shipments/SHIP-001" {
			_, _ = w.Write([]byte(`{
				"shipmentId": "SHIP-001",
				"source": "Rotterdam",
				"destination": "Oslo",
				"contents": "machine parts",
				"documentUrl": "https://ipfs.test/Qm123",
				"nftTokenId": "42",
				"status": "in_transit"
			}`))
			return
		}
		// The store signals absence with an empty success body.
		w.WriteHeader(http.StatusOK)
	}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := store.NewInMemory()
	notifier := notification.NewCenter()

	idp, err := devidp.New(map[string]string{"alice@example.com": "correct horse"})
	s.Require().NoError(err)

	// A nil provider is the wallet-less environment: detection resolves to
	// absent and interactive connect fails with the missing category.
	walletGate := wallet.NewGate(nil, sessions, logger)
	resolver := shipment.NewResolver(s.shipments.URL, 2*time.Second, logger, nil)

	jwtSvc := jwttoken.NewJWTService("test-signing-key", "blockship", "blockship-api")

	svc := disclosure.NewService(disclosure.Deps{
		Sessions: sessions,
		Resolver: resolver,
		Wallet:   walletGate,
		NewIdentityGate: func(sessionID id.SessionID) ports.IdentityGate {
			return identity.NewGate(idp, sessions, logger, sessionID)
		},
		Notifier:   notifier,
		Explorer:   explorer.New("https://explorer.test", "0xC0ffee"),
		Tokens:     jwtSvc,
		Devices:    device.NewService(false),
		Logger:     logger,
		SessionTTL: time.Hour,
	})

	router := NewRouter(Deps{
		Logger:        logger,
		Disclosure:    dischandler.New(svc, logger),
		Notifications: notifhandler.New(notifier, logger),
		Validator:     jwttoken.NewValidatorAdapter(jwtSvc),
		Liveness:      sessions,
		HealthChecks: []HealthCheck{
			{Name: "always_ok", Check: func(context.Context) error { return nil }},
		},
		RequestTimeout: 10 * time.Second,
	})
	s.gateway = httptest.NewServer(router)
}

func (s *RouterSuite) TearDownTest() {
	s.gateway.Close()
	s.shipments.Close()
}

func (s *RouterSuite) openSession() string {
	resp, err := http.Post(s.gateway.URL+"/v1/sessions", "application/json", nil)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Require().NotEmpty(body.Token)
	return body.Token
}

func (s *RouterSuite) do(method, path, token string, payload any) *http.Response {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		s.Require().NoError(err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.gateway.URL+path, body)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *RouterSuite) TestOperationalEndpoints() {
	s.Run("healthz", func() {
		resp, err := http.Get(s.gateway.URL + "/healthz")
		s.Require().NoError(err)
		defer resp.Body.Close()
		s.Equal(http.StatusOK, resp.StatusCode)
	})

	s.Run("readyz", func() {
		resp, err := http.Get(s.gateway.URL + "/readyz")
		s.Require().NoError(err)
		defer resp.Body.Close()
		s.Equal(http.StatusOK, resp.StatusCode)
	})

	s.Run("metrics", func() {
		resp, err := http.Get(s.gateway.URL + "/metrics")
		s.Require().NoError(err)
		defer resp.Body.Close()
		s.Equal(http.StatusOK, resp.StatusCode)
	})
}

func (s *RouterSuite) TestAuthBoundary() {
	s.Run("authed routes reject a missing token", func() {
		resp := s.do(http.MethodGet, "/v1/session", "", nil)
		defer resp.Body.Close()
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	})

	s.Run("authed routes reject a garbage token", func() {
		resp := s.do(http.MethodGet, "/v1/session", "not-a-jwt", nil)
		defer resp.Body.Close()
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	})

	s.Run("a closed session's token stops working", func() {
		token := s.openSession()

		resp := s.do(http.MethodDelete, "/v1/session", token, nil)
		resp.Body.Close()
		s.Equal(http.StatusNoContent, resp.StatusCode)

		resp = s.do(http.MethodGet, "/v1/session", token, nil)
		defer resp.Body.Close()
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	})
}

func (s *RouterSuite) TestDisclosureFlow() {
	token := s.openSession()

	// Sign in.
	resp := s.do(http.MethodPost, "/v1/session/signin", token,
		map[string]string{"subject": "alice@example.com", "password": "correct horse"})
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var sessBody struct {
		AccountAuthenticated bool `json:"accountAuthenticated"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&sessBody))
	s.True(sessBody.AccountAuthenticated)

	// Search for a known shipment.
	resp = s.do(http.MethodPost, "/v1/shipments/search", token,
		map[string]string{"query": "SHIP-001"})
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var searchBody struct {
		State  string `json:"state"`
		Record *struct {
			ShipmentID string `json:"shipmentId"`
		} `json:"record"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&searchBody))
	s.Equal("found", searchBody.State)
	s.Require().NotNil(searchBody.Record)
	s.Equal("SHIP-001", searchBody.Record.ShipmentID)

	// Open the provenance document.
	resp = s.do(http.MethodPost, "/v1/disclosure/document", token, nil)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var linkBody struct {
		URL string `json:"url"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&linkBody))
	s.Equal("https://ipfs.test/Qm123", linkBody.URL)

	// Notifications accumulated along the way.
	resp = s.do(http.MethodGet, "/v1/notifications", token, nil)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var feed struct {
		Notifications []struct {
			Title string `json:"title"`
		} `json:"notifications"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&feed))
	s.NotEmpty(feed.Notifications)
	s.Equal("Shipment Found", feed.Notifications[0].Title)
}

func (s *RouterSuite) TestSearchUnknownShipment() {
	token := s.openSession()

	resp := s.do(http.MethodPost, "/v1/shipments/search", token,
		map[string]string{"query": "SHIP-404"})
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var body struct {
		State string `json:"state"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal("not_found_or_error", body.State)
}

func (s *RouterSuite) TestClaimWithGuardsUnmet() {
	token := s.openSession()

	resp := s.do(http.MethodPost, "/v1/disclosure/claim", token, nil)
	defer resp.Body.Close()
	s.Equal(http.StatusForbidden, resp.StatusCode)
}

func (s *RouterSuite) TestErrorEnvelope() {
	token := s.openSession()

	resp := s.do(http.MethodPost, "/v1/shipments/search", token,
		map[string]string{"query": "   "})
	defer resp.Body.Close()
	s.Require().Equal(http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal("invalid_input", body["error"])
}
