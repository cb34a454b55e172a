package shipment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"blockship/internal/platform/tracing"
	"blockship/internal/shipment/metrics"
	id "blockship/pkg/domain"
)

// maxRecordBody bounds how much of a response the resolver will read.
// Records are small; anything past this is a misbehaving store.
const maxRecordBody = 1 << 20

// Resolver performs the single-attempt lookup against the remote shipment
// store: one unauthenticated GET per invocation, no retry, no backoff. The
// HTTP client's timeout bounds the call so a hung store cannot pin a
// session's loading state forever.
type Resolver struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewResolver constructs a resolver. metrics may be nil in tests.
func NewResolver(baseURL string, timeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		metrics: m,
	}
}

// Resolve fetches the record for shipmentID. The absence of a record is an
// ErrorNotFound LookupError, distinct from transport and decode failures.
// Callers must have parsed the identifier already; Resolve trusts it.
func (r *Resolver) Resolve(ctx context.Context, shipmentID id.ShipmentID) (*Record, error) {
	ctx, span := tracing.Tracer().Start(ctx, "shipment.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("shipment.lookup_url_path", "/shipments/"+url.PathEscape(shipmentID.String())))

	start := time.Now()
	record, err := r.fetch(ctx, shipmentID)
	r.metrics.ObserveLookupLatency(time.Since(start))

	if err != nil {
		category := string(CategoryOf(err))
		r.metrics.IncrementOutcome(category)
		span.SetStatus(codes.Error, category)

		logFn := r.logger.WarnContext
		if IsNotFound(err) {
			// Absence is a routine outcome, not a fault.
			logFn = r.logger.InfoContext
		}
		logFn(ctx, "shipment lookup failed",
			"category", category,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return nil, err
	}

	r.metrics.IncrementOutcome("found")
	r.logger.InfoContext(ctx, "shipment resolved",
		"shipment_id", record.ShipmentID,
		"has_token", record.HasToken(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return record, nil
}

func (r *Resolver) fetch(ctx context.Context, shipmentID id.ShipmentID) (*Record, error) {
	lookupURL := fmt.Sprintf("%s/shipments/%s", r.baseURL, url.PathEscape(shipmentID.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, NewLookupError(ErrorInternal, "building lookup request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return nil, NewLookupError(ErrorTimeout, "shipment store did not answer in time", err)
		}
		return nil, NewLookupError(ErrorTransport, "shipment store unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRecordBody))
	if err != nil {
		return nil, NewLookupError(ErrorTransport, "reading shipment store response", err)
	}

	// The store signals absence with an empty success body, never a 404.
	// Every non-success status, 404 included, is a transport fault carrying
	// the status text.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewLookupError(ErrorTransport, resp.Status, nil)
	}

	if IsAbsentBody(body) {
		return nil, NewLookupError(ErrorNotFound, "no record for this shipment id", nil)
	}

	return DecodeRecord(body)
}

func isClientTimeout(err error) bool {
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}
