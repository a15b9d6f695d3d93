// Package dispatch holds the notification engine: the synchronous
// policy/dedupe/fan-out evaluation every domain event goes through.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/heraldhq/herald/internal/domain/delivery"
	"github.com/heraldhq/herald/internal/domain/event"
	"github.com/heraldhq/herald/internal/domain/policy"
	"github.com/heraldhq/herald/internal/domain/recipient"
	"github.com/heraldhq/herald/internal/domain/transport"
	"github.com/heraldhq/herald/internal/obs"
	"github.com/heraldhq/herald/internal/render"
	"github.com/heraldhq/herald/internal/suppress"
)

var (
	mDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "herald_dispatches_total", Help: "Dispatches evaluated by the engine.",
	}, []string{"event_type"})
	mDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "herald_delivered_total", Help: "Immediate notifications delivered.",
	})
	mSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "herald_suppressed_total", Help: "Immediate notifications suppressed by the dedup window.",
	})
	mSendErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "herald_send_errors_total", Help: "Transport failures during immediate fan-out.",
	})
)

// Result is the per-dispatch outcome summary.
type Result struct {
	Delivered  int
	Suppressed int
}

// DigestSink accumulates a dispatch into the digest window for one
// recipient. Implemented by digest.Aggregator; pure bookkeeping, never
// fails.
type DigestSink interface {
	Accumulate(req event.DispatchRequest, rcpt recipient.Recipient, pol *policy.NotificationPolicy)
}

type Engine struct {
	log      *zap.Logger
	policies policy.Store
	supp     suppress.Store
	resolver recipient.Resolver
	out      transport.Client
	records  delivery.Recorder
	audit    delivery.Audit
	digests  DigestSink

	now func() time.Time
}

func NewEngine(
	log *zap.Logger,
	policies policy.Store,
	supp suppress.Store,
	resolver recipient.Resolver,
	out transport.Client,
	records delivery.Recorder,
	audit delivery.Audit,
	digests DigestSink,
) *Engine {
	return &Engine{
		log:      log.With(zap.String("component", "dispatch.engine")),
		policies: policies,
		supp:     supp,
		resolver: resolver,
		out:      out,
		records:  records,
		audit:    audit,
		digests:  digests,
		now:      time.Now,
	}
}

// WithClock overrides the time source; test hook.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Dispatch evaluates one domain event end to end. Failures during a single
// recipient's send do not stop the fan-out; the first one is re-raised only
// after all side effects (records, chat card, audit) are complete, so the
// retry queue reschedules the whole dispatch. Recipients already delivered
// may therefore see a duplicate on retry unless their dedup window covers
// the retry interval.
func (e *Engine) Dispatch(ctx context.Context, req event.DispatchRequest) (Result, error) {
	if !event.Notifiable(req) {
		return Result{}, nil
	}
	mDispatches.WithLabelValues(string(req.Type)).Inc()

	tr := otel.Tracer("dispatch.engine")
	ctx, span := tr.Start(ctx, "dispatch",
		trace.WithAttributes(
			attribute.String("tenant.id", req.TenantID),
			attribute.String("event.type", string(req.Type)),
			attribute.String("entity.id", req.After.ID),
		),
	)
	defer span.End()

	pol, err := e.policies.Get(ctx, req.TenantID)
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("load policy: %w", err)
	}
	if !pol.Enabled {
		return Result{}, nil
	}
	rule := pol.Rule(req.Type)
	if !rule.Immediate && !rule.Digest {
		return Result{}, nil
	}

	quiet := withinQuietHours(pol.QuietHours, e.now())

	rcpts, err := e.resolver.Resolve(ctx, req.TenantID, req.Type, req.After, req.ActorUserID)
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("resolve recipients: %w", err)
	}
	if len(rcpts) == 0 {
		e.writeAudit(ctx, req, Result{})
		return Result{}, nil
	}

	var res Result
	var firstErr error
	emailAllowed := rule.Immediate && rule.Channels.Email && pol.Channels.Email
	// Digests go out by email, so the digest path honors the same channel
	// policy as the immediate path.
	digestAllowed := rule.Digest && pol.Digest.Enabled && rule.Channels.Email && pol.Channels.Email

	for _, rc := range rcpts {
		if emailAllowed && (!quiet || event.Critical(req.Type)) {
			sent, serr := e.sendImmediate(ctx, req, rc)
			switch {
			case serr != nil:
				mSendErrors.Inc()
				if firstErr == nil {
					firstErr = serr
				}
			case sent:
				res.Delivered++
				mDelivered.Inc()
			default:
				res.Suppressed++
				mSuppressed.Inc()
			}
		}
		if digestAllowed {
			e.digests.Accumulate(req, rc, pol)
		}
	}

	// One chat card per dispatch for the allowlisted event types; chat is
	// optional and its failures are swallowed.
	if event.ChatNotifiable(req.Type) && pol.Channels.Chat && rule.Channels.Chat && (!quiet || event.Critical(req.Type)) {
		summary := render.ImmediateSubject(req)
		if cerr := e.out.SendChatCard(ctx, req.TenantID, req.After.Title, summary, req.After.ID, render.ChatFacts(req)); cerr != nil {
			obs.WithTrace(ctx, e.log).Debug("chat card send failed", zap.Error(cerr), zap.String("tenant_id", req.TenantID))
		}
	}

	e.writeAudit(ctx, req, res)

	span.SetAttributes(
		attribute.Int("dispatch.delivered", res.Delivered),
		attribute.Int("dispatch.suppressed", res.Suppressed),
	)
	if firstErr != nil {
		span.RecordError(firstErr)
		return res, fmt.Errorf("immediate send: %w", firstErr)
	}
	return res, nil
}

// writeAudit records the dispatch outcome summary. Written for every
// dispatch that passed the gate and policy checks, even when nobody was
// resolved to notify.
func (e *Engine) writeAudit(ctx context.Context, req event.DispatchRequest, res Result) {
	e.audit.Write(ctx, delivery.AuditEntry{
		TenantID:   req.TenantID,
		UserID:     req.ActorUserID,
		Action:     "notification.dispatch",
		EntityType: "ticket",
		EntityID:   req.After.ID,
		Metadata: map[string]any{
			"event_type": string(req.Type),
			"delivered":  res.Delivered,
			"suppressed": res.Suppressed,
		},
	})
}

// sendImmediate runs the dedup check and transport send for one recipient.
// Returns (true, nil) on delivery, (false, nil) on suppression.
func (e *Engine) sendImmediate(ctx context.Context, req event.DispatchRequest, rc recipient.Recipient) (bool, error) {
	key := event.SuppressionKey(req.TenantID, rc.UserID, req.Type, req.After)
	window := event.DedupWindow(req.Type)

	ok, err := e.supp.ShouldSend(ctx, req.TenantID, key, window)
	if err != nil {
		// Fail open: a broken suppression store must not drop alerts.
		obs.WithTrace(ctx, e.log).Warn("suppression check failed", zap.Error(err), zap.String("tenant_id", req.TenantID))
		ok = true
	}
	if !ok {
		rec := delivery.NewRecord(req.TenantID, rc.UserID, req.Type, req.After.ID, delivery.KindImmediate, delivery.StatusSuppressed)
		rec.Reason = delivery.ReasonDedupWindow
		e.records.Append(ctx, rec)
		return false, nil
	}

	subject := render.ImmediateSubject(req)
	body, err := render.ImmediateBody(req)
	if err == nil {
		err = e.out.SendEmail(ctx, req.TenantID, []string{rc.Email}, subject, body, req.After.ID)
	}
	if err != nil {
		rec := delivery.NewRecord(req.TenantID, rc.UserID, req.Type, req.After.ID, delivery.KindImmediate, delivery.StatusFailed)
		rec.LastError = err.Error()
		e.records.Append(ctx, rec)
		return false, err
	}

	if merr := e.supp.MarkSent(ctx, req.TenantID, key); merr != nil {
		e.log.Warn("mark sent failed", zap.Error(merr), zap.String("tenant_id", req.TenantID))
	}
	e.records.Append(ctx, delivery.NewRecord(req.TenantID, rc.UserID, req.Type, req.After.ID, delivery.KindImmediate, delivery.StatusSent))
	return true, nil
}
