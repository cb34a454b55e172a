package disclosure

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"blockship/internal/disclosure/mocks"
	"blockship/internal/disclosure/ports"
	"blockship/internal/explorer"
	"blockship/internal/identity"
	"blockship/internal/notification"
	"blockship/internal/session"
	"blockship/internal/session/device"
	"blockship/internal/session/store"
	"blockship/internal/shipment"
	"blockship/internal/shipment/receipts"
	"blockship/internal/wallet"
	id "blockship/pkg/domain"
	dErrors "blockship/pkg/domain-errors"
	"blockship/pkg/platform/audit"
)

// AGENTS.MD JUSTIFICATION: the disclosure service is the orchestration core
// of the gateway. Unit tests with mocked gates and resolver verify the
// session lifecycle, the last-search-wins rule, the action guards, and the
// claim taxonomy without standing up providers.

type ServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	resolver   *mocks.MockResolver
	walletGate *mocks.MockWalletGate
	gate       *mocks.MockIdentityGate
	tokens     *mocks.MockTokenIssuer
	auditSink  *mocks.MockAuditSink
	events     []audit.Event
	sessions   *store.InMemoryStore
	notifier   *notification.Center
	receipts   *receipts.InMemoryStore
	svc        *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.resolver = mocks.NewMockResolver(s.ctrl)
	s.walletGate = mocks.NewMockWalletGate(s.ctrl)
	s.gate = mocks.NewMockIdentityGate(s.ctrl)
	s.tokens = mocks.NewMockTokenIssuer(s.ctrl)
	s.auditSink = mocks.NewMockAuditSink(s.ctrl)
	s.events = nil
	s.auditSink.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e audit.Event) error {
			s.events = append(s.events, e)
			return nil
		}).AnyTimes()
	s.walletGate.EXPECT().ProviderConfigured().Return(true).AnyTimes()

	s.sessions = store.NewInMemory()
	s.notifier = notification.NewCenter()
	s.receipts = receipts.NewInMemory()

	s.svc = NewService(Deps{
		Sessions: s.sessions,
		Resolver: s.resolver,
		Wallet:   s.walletGate,
		NewIdentityGate: func(id.SessionID) ports.IdentityGate {
			return s.gate
		},
		Notifier:   s.notifier,
		Audit:      s.auditSink,
		Receipts:   s.receipts,
		Explorer:   explorer.New("https://explorer.test", "0xC0ffee"),
		Tokens:     s.tokens,
		Devices:    device.NewService(false),
		Metrics:    nil,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		SessionTTL: time.Hour,
	})
}

// SetupSubTest isolates state for TestClaim's subtests, whose assertions are
// sensitive to events left by earlier subtests. Other test methods (TestView,
// TestCloseSession) deliberately share setup across their subtests, so the
// reset is scoped rather than blanket.
func (s *ServiceSuite) SetupSubTest() {
	if strings.Contains(s.T().Name(), "/TestClaim/") {
		s.SetupTest()
	}
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) open() *OpenedSession {
	s.gate.EXPECT().Start(gomock.Any()).Return(nil)
	s.walletGate.EXPECT().CheckExistingConnection(gomock.Any(), gomock.Any()).Return(nil, nil)
	s.tokens.EXPECT().GenerateSessionToken(gomock.Any(), gomock.Any(), time.Hour).Return("session-token", nil)

	opened, err := s.svc.OpenSession(context.Background())
	s.Require().NoError(err)
	return opened
}

func (s *ServiceSuite) mutate(sessionID id.SessionID, fn func(*session.Session)) {
	_, err := s.sessions.Update(context.Background(), sessionID, func(sess *session.Session) error {
		fn(sess)
		return nil
	})
	s.Require().NoError(err)
}

func (s *ServiceSuite) lastEvent() audit.Event {
	s.Require().NotEmpty(s.events)
	return s.events[len(s.events)-1]
}

func (s *ServiceSuite) hasEvent(action audit.AuditEvent) bool {
	for _, e := range s.events {
		if e.Action == string(action) {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Session lifecycle
// -----------------------------------------------------------------------------

func (s *ServiceSuite) TestOpenSession() {
	s.Run("opens in the initial state with a token", func() {
		opened := s.open()

		s.Equal("session-token", opened.Token)
		s.Equal(id.StateIdle, opened.Session.Disclosure.State)
		s.False(opened.Session.AccountAuthenticated)
		s.Nil(opened.Wallet)
		s.True(s.hasEvent(audit.EventSessionOpened))
	})

	s.Run("reports a wallet detected at open", func() {
		s.gate.EXPECT().Start(gomock.Any()).Return(nil)
		s.walletGate.EXPECT().CheckExistingConnection(gomock.Any(), gomock.Any()).
			Return(&wallet.Info{Address: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", Truncated: "0x5aAe...eAed"}, nil)
		s.tokens.EXPECT().GenerateSessionToken(gomock.Any(), gomock.Any(), gomock.Any()).Return("t", nil)

		opened, err := s.svc.OpenSession(context.Background())
		s.Require().NoError(err)
		s.Require().NotNil(opened.Wallet)
		s.Equal("0x5aAe...eAed", opened.Wallet.Truncated)
		s.True(s.hasEvent(audit.EventWalletDetected))
	})

	s.Run("probe failure tears the session back down", func() {
		s.gate.EXPECT().Start(gomock.Any()).Return(dErrors.New(dErrors.CodeUnavailable, "subscription failed"))
		s.walletGate.EXPECT().CheckExistingConnection(gomock.Any(), gomock.Any()).Return(nil, nil).MaxTimes(1)
		s.gate.EXPECT().Release()

		_, err := s.svc.OpenSession(context.Background())
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeUnavailable))
	})
}

func (s *ServiceSuite) TestCloseSession() {
	opened := s.open()
	s.gate.EXPECT().Release()

	s.Require().NoError(s.svc.CloseSession(context.Background(), opened.Session.ID))

	_, err := s.sessions.FindByID(context.Background(), opened.Session.ID)
	s.Require().Error(err)
	s.Empty(s.notifier.List(context.Background(), opened.Session.ID))

	s.Run("second close is not found", func() {
		err := s.svc.CloseSession(context.Background(), opened.Session.ID)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

// -----------------------------------------------------------------------------
// Sign-in
// -----------------------------------------------------------------------------

func (s *ServiceSuite) TestSignIn() {
	s.Run("success pushes a notification and audits", func() {
		opened := s.open()
		s.gate.EXPECT().SignIn(gomock.Any(), identity.SignInRequest{Subject: "alice@example.com", Password: "pw"}).Return(nil)

		err := s.svc.SignIn(context.Background(), opened.Session.ID, "alice@example.com", "pw")
		s.Require().NoError(err)
		s.True(s.hasEvent(audit.EventSignInSucceeded))

		feed := s.notifier.List(context.Background(), opened.Session.ID)
		s.Require().NotEmpty(feed)
		s.Equal("Signed In", feed[0].Title)
	})

	s.Run("failure propagates the coded error", func() {
		opened := s.open()
		s.gate.EXPECT().SignIn(gomock.Any(), gomock.Any()).
			Return(dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))

		err := s.svc.SignIn(context.Background(), opened.Session.ID, "alice@example.com", "bad")
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
		s.True(s.hasEvent(audit.EventSignInFailed))

		feed := s.notifier.List(context.Background(), opened.Session.ID)
		s.Require().NotEmpty(feed)
		s.Equal(notification.VariantDestructive, feed[0].Variant)
	})

	s.Run("unknown session is rejected", func() {
		err := s.svc.SignIn(context.Background(), id.NewSessionID(), "alice@example.com", "pw")
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

// -----------------------------------------------------------------------------
// Wallet connect
// -----------------------------------------------------------------------------

func (s *ServiceSuite) TestConnectWallet() {
	s.Run("success audits the binding with the address", func() {
		opened := s.open()
		info := &wallet.Info{Address: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", Truncated: "0x5aAe...eAed"}
		s.walletGate.EXPECT().Connect(gomock.Any(), opened.Session.ID).Return(info, nil)

		got, err := s.svc.ConnectWallet(context.Background(), opened.Session.ID)
		s.Require().NoError(err)
		s.Equal(info.Address, got.Address)

		s.Require().True(s.hasEvent(audit.EventWalletConnected))
		s.Equal(info.Address, s.lastEvent().WalletAddress)
	})

	s.Run("user rejection maps to unauthorized", func() {
		opened := s.open()
		s.walletGate.EXPECT().Connect(gomock.Any(), opened.Session.ID).
			Return(nil, wallet.NewProviderError(wallet.ErrorRejected, "", nil))

		_, err := s.svc.ConnectWallet(context.Background(), opened.Session.ID)
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
		s.True(s.hasEvent(audit.EventWalletConnectFailed))
	})

	s.Run("transport failure maps to unavailable with the default message", func() {
		opened := s.open()
		s.walletGate.EXPECT().Connect(gomock.Any(), opened.Session.ID).
			Return(nil, wallet.NewProviderError(wallet.ErrorTransport, "", nil))

		_, err := s.svc.ConnectWallet(context.Background(), opened.Session.ID)
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeUnavailable))

		feed := s.notifier.List(context.Background(), opened.Session.ID)
		s.Require().NotEmpty(feed)
		s.Equal(wallet.DefaultFailureMessage, feed[0].Description)
	})
}

// -----------------------------------------------------------------------------
// Search
// -----------------------------------------------------------------------------

func (s *ServiceSuite) record() *shipment.Record {
	return &shipment.Record{
		ShipmentID:  "SHIP-001",
		Source:      "Rotterdam",
		Destination: "Oslo",
		Contents:    "machine parts",
		DocumentURL: "https://ipfs.test/Qm123",
		NFTTokenID:  "42",
		Status:      "in_transit",
	}
}

func (s *ServiceSuite) TestSearch() {
	s.Run("found applies the record to the session", func() {
		opened := s.open()
		s.resolver.EXPECT().Resolve(gomock.Any(), id.ShipmentID("SHIP-001")).Return(s.record(), nil)

		result, err := s.svc.Search(context.Background(), opened.Session.ID, "  SHIP-001 ")
		s.Require().NoError(err)
		s.Equal(id.StateFound, result.State)
		s.Require().NotNil(result.Record)

		sess, err := s.sessions.FindByID(context.Background(), opened.Session.ID)
		s.Require().NoError(err)
		s.Equal(id.StateFound, sess.Disclosure.State)
		s.Equal("SHIP-001", sess.Disclosure.LastQuery)

		listed, err := s.receipts.ListRecent(context.Background(), 10)
		s.Require().NoError(err)
		s.Require().Len(listed, 1)
		s.Equal("found", listed[0].Outcome)
	})

	s.Run("absence lands in the error state with the query retained", func() {
		opened := s.open()
		s.resolver.EXPECT().Resolve(gomock.Any(), id.ShipmentID("SHIP-404")).
			Return(nil, shipment.NewLookupError(shipment.ErrorNotFound, "no record for this shipment id", nil))

		result, err := s.svc.Search(context.Background(), opened.Session.ID, "SHIP-404")
		s.Require().NoError(err)
		s.Equal(id.StateNotFoundOrError, result.State)
		s.Nil(result.Record)

		sess, err := s.sessions.FindByID(context.Background(), opened.Session.ID)
		s.Require().NoError(err)
		s.Equal(id.StateNotFoundOrError, sess.Disclosure.State)
		s.Equal("SHIP-404", sess.Disclosure.LastQuery)
		s.Nil(sess.Disclosure.Record)

		feed := s.notifier.List(context.Background(), opened.Session.ID)
		s.Require().NotEmpty(feed)
		s.Equal("Shipment Not Found", feed[0].Title)
	})

	s.Run("transport failure and absence land in the same state", func() {
		opened := s.open()
		s.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).
			Return(nil, shipment.NewLookupError(shipment.ErrorTransport, "store unreachable", nil))

		result, err := s.svc.Search(context.Background(), opened.Session.ID, "SHIP-001")
		s.Require().NoError(err)
		s.Equal(id.StateNotFoundOrError, result.State)
		s.True(s.hasEvent(audit.EventShipmentLookupFailed))
	})

	s.Run("blank input is rejected locally without a lookup", func() {
		opened := s.open()

		_, err := s.svc.Search(context.Background(), opened.Session.ID, "   ")
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))

		sess, findErr := s.sessions.FindByID(context.Background(), opened.Session.ID)
		s.Require().NoError(findErr)
		s.Equal(id.StateIdle, sess.Disclosure.State)

		feed := s.notifier.List(context.Background(), opened.Session.ID)
		s.Require().NotEmpty(feed)
		s.Equal(notification.VariantDestructive, feed[0].Variant)
		s.Equal("Invalid Shipment ID", feed[0].Title)
	})

	s.Run("mismatched record id is disclosed anyway", func() {
		// The store keys records by id; a record echoing a different id is a
		// producer fault, logged but not withheld.
		opened := s.open()
		mismatched := s.record()
		mismatched.ShipmentID = "SHIP-002"
		s.resolver.EXPECT().Resolve(gomock.Any(), id.ShipmentID("SHIP-001")).Return(mismatched, nil)

		result, err := s.svc.Search(context.Background(), opened.Session.ID, "SHIP-001")
		s.Require().NoError(err)
		s.Equal(id.StateFound, result.State)

		sess, err := s.sessions.FindByID(context.Background(), opened.Session.ID)
		s.Require().NoError(err)
		s.Require().NotNil(sess.Disclosure.Record)
		s.Equal("SHIP-002", sess.Disclosure.Record.ShipmentID)
	})

	s.Run("stale result is discarded when a newer search took over", func() {
		opened := s.open()

		// The in-flight lookup is overtaken: a newer search bumps the token
		// while this one waits on the store.
		s.resolver.EXPECT().Resolve(gomock.Any(), id.ShipmentID("SHIP-OLD")).DoAndReturn(
			func(context.Context, id.ShipmentID) (*shipment.Record, error) {
				s.mutate(opened.Session.ID, func(sess *session.Session) {
					sess.Disclosure.SearchToken++
				})
				return s.record(), nil
			})

		result, err := s.svc.Search(context.Background(), opened.Session.ID, "SHIP-OLD")
		s.Require().NoError(err)
		s.True(result.Superseded)
		s.True(s.hasEvent(audit.EventSearchSuperseded))

		// The session still shows the newer search in flight.
		sess, err := s.sessions.FindByID(context.Background(), opened.Session.ID)
		s.Require().NoError(err)
		s.Equal(id.StateSearching, sess.Disclosure.State)
	})
}

// -----------------------------------------------------------------------------
// Disclosure actions
// -----------------------------------------------------------------------------

func (s *ServiceSuite) located() *OpenedSession {
	opened := s.open()
	s.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(s.record(), nil)
	_, err := s.svc.Search(context.Background(), opened.Session.ID, "SHIP-001")
	s.Require().NoError(err)
	return opened
}

func (s *ServiceSuite) TestOpenDocument() {
	s.Run("returns the document URL in the found state", func() {
		opened := s.located()

		url, err := s.svc.OpenDocument(context.Background(), opened.Session.ID)
		s.Require().NoError(err)
		s.Equal("https://ipfs.test/Qm123", url)

		s.Require().True(s.hasEvent(audit.EventDocumentOpened))
		s.Equal(receipts.HashShipmentID("SHIP-001"), s.lastEvent().SubjectIDHash)
	})

	s.Run("outside the found state is a conflict", func() {
		opened := s.open()

		_, err := s.svc.OpenDocument(context.Background(), opened.Session.ID)
		s.True(dErrors.Is(err, dErrors.CodeConflict))

		feed := s.notifier.List(context.Background(), opened.Session.ID)
		s.Require().NotEmpty(feed)
		s.Equal(notification.VariantDestructive, feed[0].Variant)
		s.Equal("Document Unavailable", feed[0].Title)
	})

	s.Run("record without a document is not found", func() {
		opened := s.located()
		s.mutate(opened.Session.ID, func(sess *session.Session) {
			sess.Disclosure.Record.DocumentURL = ""
		})

		_, err := s.svc.OpenDocument(context.Background(), opened.Session.ID)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))

		feed := s.notifier.List(context.Background(), opened.Session.ID)
		s.Require().NotEmpty(feed)
		s.Equal(notification.VariantDestructive, feed[0].Variant)
		s.Equal("Document Unavailable", feed[0].Title)
	})
}

func (s *ServiceSuite) TestTokenLink() {
	s.Run("builds the explorer URL for a tokenized record", func() {
		opened := s.located()

		link, err := s.svc.TokenLink(context.Background(), opened.Session.ID)
		s.Require().NoError(err)
		s.Equal("https://explorer.test/token/0xC0ffee?a=42", link)
		s.True(s.hasEvent(audit.EventTokenLinkOpened))
	})

	s.Run("record without a token is not found", func() {
		opened := s.located()
		s.mutate(opened.Session.ID, func(sess *session.Session) {
			sess.Disclosure.Record.NFTTokenID = ""
		})

		_, err := s.svc.TokenLink(context.Background(), opened.Session.ID)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))

		feed := s.notifier.List(context.Background(), opened.Session.ID)
		s.Require().NotEmpty(feed)
		s.Equal(notification.VariantDestructive, feed[0].Variant)
		s.Equal("Token Unavailable", feed[0].Title)
	})
}

func (s *ServiceSuite) TestClaim() {
	s.Run("guards unmet is forbidden and names the missing guards", func() {
		opened := s.open()

		err := s.svc.Claim(context.Background(), opened.Session.ID)
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeForbidden))
		s.Contains(err.Error(), string(GuardShipmentFound))
		s.True(s.hasEvent(audit.EventClaimDenied))
	})

	s.Run("guards met is rejected as unavailable", func() {
		opened := s.located()
		s.mutate(opened.Session.ID, func(sess *session.Session) {
			sess.AccountAuthenticated = true
			sess.WalletConnected = true
		})

		err := s.svc.Claim(context.Background(), opened.Session.ID)
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeUnavailable))
		s.True(s.hasEvent(audit.EventClaimBlocked))
		s.False(s.hasEvent(audit.EventClaimDenied))

		feed := s.notifier.List(context.Background(), opened.Session.ID)
		s.Require().NotEmpty(feed)
		s.Equal(notification.VariantDestructive, feed[0].Variant)
		s.Equal("Claim Unavailable", feed[0].Title)
	})
}

// -----------------------------------------------------------------------------
// View
// -----------------------------------------------------------------------------

func (s *ServiceSuite) TestView() {
	opened := s.located()
	s.mutate(opened.Session.ID, func(sess *session.Session) {
		sess.AccountAuthenticated = true
		sess.WalletConnected = true
		sess.WalletAddress = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	})

	view, err := s.svc.View(context.Background(), opened.Session.ID)
	s.Require().NoError(err)
	s.Equal(id.StateFound, view.Disclosure.State)
	s.True(view.Disclosure.ClaimAllowed)
	s.True(view.Wallet.ProviderConfigured)
	s.Equal("0x5aAe...eAed", view.Wallet.Truncated)

	s.Run("expired session is unauthorized", func() {
		s.mutate(opened.Session.ID, func(sess *session.Session) {
			sess.ExpiresAt = time.Now().Add(-time.Minute)
		})

		_, err := s.svc.View(context.Background(), opened.Session.ID)
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})
}
