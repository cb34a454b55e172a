// Package disclosure is the session-scoped controller of the gateway: it
// opens and closes sessions, drives the search/disclosure state machine,
// and enforces the claim guards. All per-session state lives in the session
// store; the service itself only holds the live identity gates.
package disclosure

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"blockship/internal/disclosure/metrics"
	"blockship/internal/disclosure/ports"
	"blockship/internal/identity"
	"blockship/internal/notification"
	"blockship/internal/session"
	"blockship/internal/session/device"
	"blockship/internal/shipment"
	"blockship/internal/shipment/receipts"
	"blockship/internal/wallet"
	id "blockship/pkg/domain"
	dErrors "blockship/pkg/domain-errors"
	"blockship/pkg/platform/audit"
	"blockship/pkg/platform/sentinel"
	"blockship/pkg/requestcontext"
)

// Deps aggregates everything the service consumes. Receipts, Metrics and
// Audit may be nil; the service degrades to not recording.
type Deps struct {
	Sessions        ports.SessionStore
	Resolver        ports.Resolver
	Wallet          ports.WalletGate
	NewIdentityGate ports.IdentityGateFactory
	Notifier        ports.Notifier
	Audit           ports.AuditSink
	Receipts        receipts.Store
	Explorer        ports.ExplorerLinks
	Tokens          ports.TokenIssuer
	Devices         *device.Service
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
	SessionTTL      time.Duration
}

type Service struct {
	sessions   ports.SessionStore
	resolver   ports.Resolver
	wallet     ports.WalletGate
	newGate    ports.IdentityGateFactory
	notifier   ports.Notifier
	auditor    ports.AuditSink
	receipts   receipts.Store
	explorer   ports.ExplorerLinks
	tokens     ports.TokenIssuer
	devices    *device.Service
	metrics    *metrics.Metrics
	logger     *slog.Logger
	sessionTTL time.Duration

	mu    sync.Mutex
	gates map[id.SessionID]ports.IdentityGate
}

func NewService(d Deps) *Service {
	return &Service{
		sessions:   d.Sessions,
		resolver:   d.Resolver,
		wallet:     d.Wallet,
		newGate:    d.NewIdentityGate,
		notifier:   d.Notifier,
		auditor:    d.Audit,
		receipts:   d.Receipts,
		explorer:   d.Explorer,
		tokens:     d.Tokens,
		devices:    d.Devices,
		metrics:    d.Metrics,
		logger:     d.Logger,
		sessionTTL: d.SessionTTL,
		gates:      make(map[id.SessionID]ports.IdentityGate),
	}
}

// OpenedSession is the result of OpenSession: the stored session, its
// bearer token, and the wallet detected at open (nil when absent).
type OpenedSession struct {
	Session *session.Session
	Token   string
	Wallet  *wallet.Info
}

// OpenSession creates a session in the initial state, then runs the two
// open-time probes concurrently: the identity subscription and the silent
// wallet enumeration. Either probe failing aborts the open and tears the
// session back down.
func (s *Service) OpenSession(ctx context.Context) (*OpenedSession, error) {
	now := requestcontext.Now(ctx)
	sessionID := id.NewSessionID()

	sess := session.New(sessionID, now, s.sessionTTL)
	userAgent := requestcontext.UserAgent(ctx)
	sess.Device = device.ParseUserAgent(userAgent)
	sess.IPAddress = requestcontext.ClientIP(ctx)
	sess.Fingerprint = s.devices.ComputeFingerprint(userAgent)

	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "creating session")
	}

	gate := s.newGate(sessionID)

	var walletInfo *wallet.Info
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gate.Start(gctx)
	})
	g.Go(func() error {
		info, err := s.wallet.CheckExistingConnection(gctx, sessionID)
		walletInfo = info
		return err
	})
	if err := g.Wait(); err != nil {
		gate.Release()
		_ = s.sessions.Delete(ctx, sessionID)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "session open probes failed")
	}

	s.mu.Lock()
	s.gates[sessionID] = gate
	s.mu.Unlock()

	token, err := s.tokens.GenerateSessionToken(sessionID, id.DefaultVersion(), s.sessionTTL)
	if err != nil {
		s.teardown(ctx, sessionID)
		_ = s.sessions.Delete(ctx, sessionID)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "issuing session token")
	}

	// The wallet probe may have bound an address after Create; reload so the
	// caller sees the final open-time state.
	sess, err = s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		s.teardown(ctx, sessionID)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "reloading session")
	}

	if walletInfo != nil {
		s.notifier.Push(ctx, sessionID, notification.VariantSuccess,
			"Wallet Detected", walletInfo.Truncated)
		s.emitAudit(ctx, audit.EventWalletDetected, audit.Event{
			SessionID:     sessionID,
			WalletAddress: walletInfo.Address,
		})
	}

	s.metrics.IncSessionOpened()
	s.emitAudit(ctx, audit.EventSessionOpened, audit.Event{SessionID: sessionID})
	s.logger.InfoContext(ctx, "session opened",
		"session_id", sessionID.String(),
		"device", sess.Device,
		"wallet_detected", walletInfo != nil,
	)

	return &OpenedSession{Session: sess, Token: token, Wallet: walletInfo}, nil
}

// CloseSession releases the session's resources and deletes it.
func (s *Service) CloseSession(ctx context.Context, sessionID id.SessionID) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "session not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "deleting session")
	}

	s.teardown(ctx, sessionID)
	s.metrics.DecSessionsActive()
	s.emitAudit(ctx, audit.EventSessionClosed, audit.Event{SessionID: sessionID})
	s.logger.InfoContext(ctx, "session closed", "session_id", sessionID.String())
	return nil
}

// HandleExpiry releases per-session resources for a reaped session. Wired
// as the reaper's expiry callback.
func (s *Service) HandleExpiry(ctx context.Context, sess *session.Session) {
	s.teardown(ctx, sess.ID)
	s.metrics.DecSessionsActive()
	s.emitAudit(ctx, audit.EventSessionExpired, audit.Event{
		SessionID: sess.ID,
		Subject:   sess.Subject,
	})
}

func (s *Service) teardown(ctx context.Context, sessionID id.SessionID) {
	s.mu.Lock()
	gate := s.gates[sessionID]
	delete(s.gates, sessionID)
	s.mu.Unlock()

	if gate != nil {
		gate.Release()
	}
	s.notifier.DropSession(ctx, sessionID)
}

// View returns the current session state for projection to the client.
func (s *Service) View(ctx context.Context, sessionID id.SessionID) (*SessionView, error) {
	sess, err := s.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return newSessionView(sess, s.wallet.ProviderConfigured()), nil
}

// SignIn runs the interactive account sign-in for the session.
func (s *Service) SignIn(ctx context.Context, sessionID id.SessionID, subject, password string) error {
	gate, err := s.gateFor(sessionID)
	if err != nil {
		return err
	}

	signInErr := gate.SignIn(ctx, identity.SignInRequest{Subject: subject, Password: password})
	if signInErr != nil {
		s.metrics.IncSignIn("failed")
		s.notifier.Push(ctx, sessionID, notification.VariantDestructive,
			"Sign-In Failed", userMessage(signInErr, "sign-in was not completed"))
		s.emitAudit(ctx, audit.EventSignInFailed, audit.Event{
			SessionID: sessionID,
			Subject:   subject,
			Reason:    signInErr.Error(),
		})
		return signInErr
	}

	s.metrics.IncSignIn("succeeded")
	s.notifier.Push(ctx, sessionID, notification.VariantSuccess, "Signed In", subject)
	s.emitAudit(ctx, audit.EventSignInSucceeded, audit.Event{
		SessionID: sessionID,
		Subject:   subject,
	})
	return nil
}

// WalletStatus reports the session's wallet state.
func (s *Service) WalletStatus(ctx context.Context, sessionID id.SessionID) (*WalletView, error) {
	sess, err := s.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return newWalletView(sess, s.wallet.ProviderConfigured()), nil
}

// ConnectWallet runs the interactive wallet connect for the session.
func (s *Service) ConnectWallet(ctx context.Context, sessionID id.SessionID) (*wallet.Info, error) {
	info, err := s.wallet.Connect(ctx, sessionID)
	if err != nil {
		category := string(wallet.CategoryOf(err))
		s.metrics.IncWalletConnect(category)
		s.notifier.Push(ctx, sessionID, notification.VariantDestructive,
			"Wallet Connection Failed", wallet.UserMessage(err))
		s.emitAudit(ctx, audit.EventWalletConnectFailed, audit.Event{
			SessionID: sessionID,
			Reason:    category,
		})
		return nil, walletError(err)
	}

	s.metrics.IncWalletConnect("connected")
	s.notifier.Push(ctx, sessionID, notification.VariantSuccess,
		"Wallet Connected", info.Truncated)
	s.emitAudit(ctx, audit.EventWalletConnected, audit.Event{
		SessionID:     sessionID,
		WalletAddress: info.Address,
		Decision:      "connected",
	})
	return info, nil
}

// SearchResult is the settled outcome of one search as observed by the
// request that issued it. Superseded marks a result that arrived after a
// newer search took over; its outcome was discarded.
type SearchResult struct {
	State          id.DisclosureState
	Record         *shipment.Record
	Superseded     bool
	FailureMessage string
}

// Search resolves a shipment identifier and applies the outcome to the
// session's disclosure state. Last search wins: if another search was
// issued while this one was in flight, this result is discarded.
func (s *Service) Search(ctx context.Context, sessionID id.SessionID, rawQuery string) (*SearchResult, error) {
	shipmentID, err := id.ParseShipmentID(rawQuery)
	if err != nil {
		// Local rejection: no remote call, no state change.
		s.metrics.IncSearch("invalid_input")
		s.notifier.Push(ctx, sessionID, notification.VariantDestructive,
			"Invalid Shipment ID", userMessage(err, "enter a shipment id to search"))
		return nil, err
	}

	var token uint64
	_, err = s.sessions.Update(ctx, sessionID, func(sess *session.Session) error {
		sess.Disclosure.SearchToken++
		token = sess.Disclosure.SearchToken
		sess.Disclosure.State = id.StateSearching
		sess.Disclosure.LastQuery = shipmentID.String()
		sess.Disclosure.Record = nil
		return nil
	})
	if err != nil {
		return nil, s.mapStoreError(err)
	}

	s.emitAudit(ctx, audit.EventShipmentSearched, audit.Event{
		SessionID:  sessionID,
		ShipmentID: shipmentID.String(),
	})

	start := time.Now()
	record, lookupErr := s.resolver.Resolve(ctx, shipmentID)
	s.recordReceipt(ctx, shipmentID, lookupErr, time.Since(start))

	var superseded bool
	_, err = s.sessions.Update(ctx, sessionID, func(sess *session.Session) error {
		if sess.Disclosure.SearchToken != token {
			superseded = true
			return nil
		}
		if lookupErr != nil {
			sess.Disclosure.State = id.StateNotFoundOrError
			sess.Disclosure.Record = nil
		} else {
			sess.Disclosure.State = id.StateFound
			sess.Disclosure.Record = record
		}
		return nil
	})
	if err != nil {
		return nil, s.mapStoreError(err)
	}

	if superseded {
		s.metrics.IncSearch("superseded")
		s.emitAudit(ctx, audit.EventSearchSuperseded, audit.Event{
			SessionID:  sessionID,
			ShipmentID: shipmentID.String(),
		})
		current, err := s.findSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return &SearchResult{Superseded: true, State: current.Disclosure.State}, nil
	}

	if lookupErr != nil {
		category := string(shipment.CategoryOf(lookupErr))
		s.metrics.IncSearch(category)
		title, message := searchFailureNotice(lookupErr)
		s.notifier.Push(ctx, sessionID, notification.VariantDestructive, title, message)
		s.emitAudit(ctx, audit.EventShipmentLookupFailed, audit.Event{
			SessionID:  sessionID,
			ShipmentID: shipmentID.String(),
			Reason:     category,
		})
		return &SearchResult{State: id.StateNotFoundOrError, FailureMessage: message}, nil
	}

	if !record.MatchesQuery(shipmentID) {
		// The store keys records by id, so a mismatched echo means a
		// misbehaving producer. The record is disclosed anyway.
		s.logger.WarnContext(ctx, "store returned a record under a different shipment id",
			"requested", shipmentID.String(),
			"received", record.ShipmentID,
		)
	}

	s.metrics.IncSearch("found")
	s.notifier.Push(ctx, sessionID, notification.VariantSuccess,
		"Shipment Found", record.ShipmentID)
	s.emitAudit(ctx, audit.EventShipmentFound, audit.Event{
		SessionID:  sessionID,
		ShipmentID: record.ShipmentID,
	})
	return &SearchResult{State: id.StateFound, Record: record}, nil
}

// OpenDocument returns the disclosed record's document URL. Valid only in
// the found state for a record that carries a document.
func (s *Service) OpenDocument(ctx context.Context, sessionID id.SessionID) (string, error) {
	record, err := s.disclosedRecord(ctx, sessionID)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeConflict) {
			s.notifier.Push(ctx, sessionID, notification.VariantDestructive,
				"Document Unavailable", "no shipment is currently disclosed")
		}
		return "", err
	}
	if !record.HasDocument() {
		s.notifier.Push(ctx, sessionID, notification.VariantDestructive,
			"Document Unavailable", "this record has no custody document")
		return "", dErrors.New(dErrors.CodeNotFound, "record has no document")
	}

	s.emitAudit(ctx, audit.EventDocumentOpened, audit.Event{
		SessionID:     sessionID,
		ShipmentID:    record.ShipmentID,
		Decision:      "opened",
		SubjectIDHash: receipts.HashShipmentID(record.ShipmentID),
	})
	return record.DocumentURL, nil
}

// TokenLink returns the explorer URL for the disclosed record's NFT token.
func (s *Service) TokenLink(ctx context.Context, sessionID id.SessionID) (string, error) {
	record, err := s.disclosedRecord(ctx, sessionID)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeConflict) {
			s.notifier.Push(ctx, sessionID, notification.VariantDestructive,
				"Token Unavailable", "no shipment is currently disclosed")
		}
		return "", err
	}
	if !record.HasToken() {
		s.notifier.Push(ctx, sessionID, notification.VariantDestructive,
			"Token Unavailable", "this record has no custody token")
		return "", dErrors.New(dErrors.CodeNotFound, "record has no token")
	}

	link, err := s.explorer.TokenURL(record.NFTTokenID)
	if err != nil {
		return "", err
	}

	s.emitAudit(ctx, audit.EventTokenLinkOpened, audit.Event{
		SessionID:     sessionID,
		ShipmentID:    record.ShipmentID,
		Decision:      "opened",
		SubjectIDHash: receipts.HashShipmentID(record.ShipmentID),
	})
	return link, nil
}

// Claim evaluates the claim guards. The claim pipeline itself is not live:
// guards unmet is a forbidden rejection, guards met is an unavailable one.
func (s *Service) Claim(ctx context.Context, sessionID id.SessionID) error {
	sess, err := s.findSession(ctx, sessionID)
	if err != nil {
		return err
	}

	decision := EvaluateClaim(sess)
	if !decision.Allowed {
		missing := make([]string, len(decision.Missing))
		for i, g := range decision.Missing {
			missing[i] = string(g)
		}
		reason := strings.Join(missing, ",")

		s.metrics.IncClaimRejected("guards_unmet")
		s.notifier.Push(ctx, sessionID, notification.VariantDestructive,
			"Claim Unavailable", "sign in, connect a wallet, and locate a shipment first")
		s.emitAudit(ctx, audit.EventClaimDenied, audit.Event{
			SessionID: sessionID,
			Reason:    reason,
		})
		return dErrors.New(dErrors.CodeForbidden, "claim requirements not met: "+reason)
	}

	s.metrics.IncClaimRejected("pipeline_disabled")
	s.notifier.Push(ctx, sessionID, notification.VariantDestructive,
		"Claim Unavailable", "claiming is not yet available")
	s.emitAudit(ctx, audit.EventClaimBlocked, audit.Event{
		SessionID:  sessionID,
		ShipmentID: sess.Disclosure.Record.ShipmentID,
	})
	return dErrors.New(dErrors.CodeUnavailable, "claiming is not yet available")
}

func (s *Service) disclosedRecord(ctx context.Context, sessionID id.SessionID) (*shipment.Record, error) {
	sess, err := s.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Disclosure.State != id.StateFound || sess.Disclosure.Record == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "no shipment is currently disclosed")
	}
	return sess.Disclosure.Record, nil
}

func (s *Service) findSession(ctx context.Context, sessionID id.SessionID) (*session.Session, error) {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	return sess, nil
}

func (s *Service) mapStoreError(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "session not found")
	case errors.Is(err, sentinel.ErrExpired):
		return dErrors.New(dErrors.CodeUnauthorized, "session has expired")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "session store failure")
	}
}

func (s *Service) gateFor(sessionID id.SessionID) (ports.IdentityGate, error) {
	s.mu.Lock()
	gate := s.gates[sessionID]
	s.mu.Unlock()

	if gate == nil {
		// The session outlived this instance's gate registry (restart with a
		// shared store). Sign-in needs the live subscription, so reject.
		return nil, dErrors.New(dErrors.CodeNotFound, "session not found")
	}
	return gate, nil
}

func (s *Service) recordReceipt(ctx context.Context, shipmentID id.ShipmentID, lookupErr error, duration time.Duration) {
	if s.receipts == nil {
		return
	}
	outcome := "found"
	if lookupErr != nil {
		outcome = string(shipment.CategoryOf(lookupErr))
	}
	receipt := receipts.NewReceipt(shipmentID.String(), outcome, duration, time.Now())
	if err := s.receipts.Record(ctx, receipt); err != nil {
		s.logger.WarnContext(ctx, "resolution receipt not recorded", "error", err)
	}
}

func (s *Service) emitAudit(ctx context.Context, action audit.AuditEvent, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.Category = action.Category()
	event.Action = string(action)
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emission failed",
			"action", event.Action,
			"error", err,
		)
	}
}

func searchFailureNotice(lookupErr error) (title, message string) {
	if shipment.IsNotFound(lookupErr) {
		return "Shipment Not Found", "No shipment found with this ID"
	}
	return "Lookup Failed", "the shipment store could not be reached, try again"
}

// walletError maps a wallet provider failure onto the API error taxonomy.
func walletError(err error) error {
	message := wallet.UserMessage(err)
	switch wallet.CategoryOf(err) {
	case wallet.ErrorRejected, wallet.ErrorLocked:
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, message)
	case wallet.ErrorPending:
		return dErrors.Wrap(err, dErrors.CodeConflict, message)
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, message)
	}
}

// userMessage extracts a coded error's message, falling back when the error
// carries none.
func userMessage(err error, fallback string) string {
	var dErr *dErrors.Error
	if errors.As(err, &dErr) && dErr.Message != "" {
		return dErr.Message
	}
	return fallback
}
