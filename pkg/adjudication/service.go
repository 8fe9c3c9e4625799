// Package adjudication assigns a final confidence to candidate pairs using an
// external reasoning service, degrading to a fixed fallback confidence.
package adjudication

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Config controls how external calls are made
type Config struct {
	Timeout            time.Duration // Per-call deadline (default: 30s)
	Concurrency        int           // Calls in flight at once (default: 8)
	RequestsPerSecond  float64       // 0 disables rate limiting
	FallbackConfidence int           // Confidence used whenever the service cannot answer (default: 80)
}

// DefaultConfig returns default adjudication configuration
func DefaultConfig() Config {
	return Config{
		Timeout:            30 * time.Second,
		Concurrency:        8,
		FallbackConfidence: 80,
	}
}

const (
	reasonNoCredential = "no_credential"
	reasonTimeout      = "timeout"
	reasonStatus       = "bad_status"
	reasonTransport    = "transport_error"
	reasonParse        = "parse_error"
	reasonPrompt       = "prompt_error"
	reasonAnswered     = "answered"
	reasonCached       = "cached"
)

// Service adjudicates candidate pairs. It never returns an error for a single
// pair: every failure mode becomes a fallback decision.
type Service struct {
	logger  ectologger.Logger
	config  Config
	judge   Judge
	cache   DecisionCache
	limiter *rate.Limiter
	now     func() time.Time
}

// NewService creates an adjudication service. A nil judge means no credential
// is configured and every pair gets the fallback confidence without a network
// call. cache may be nil.
func NewService(logger ectologger.Logger, config Config, judge Judge, cache DecisionCache) *Service {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), max(1, int(config.RequestsPerSecond)))
	}

	return &Service{
		logger:  logger,
		config:  config,
		judge:   judge,
		cache:   cache,
		limiter: limiter,
		now:     time.Now,
	}
}

// Adjudicate returns a decision for pair.
func (s *Service) Adjudicate(ctx context.Context, pair models.CandidatePair) models.MatchDecision {
	ctx, span := tracing.StartSpan(ctx, "adjudication.Service.Adjudicate")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"crawl_id":        pair.Crawl.ID,
		"business_number": pair.Registry.BusinessNumber,
		"similarity":      pair.Similarity,
	})

	if s.judge == nil {
		return s.fallback(pair, reasonNoCredential, "no external service credential configured; fuzzy similarity already gated the candidate")
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, pair)
		switch {
		case err != nil:
			metrics.DecisionCacheTotal.WithLabelValues("error").Inc()
			log.WithError(err).Warn("Decision cache lookup failed")
		case cached != nil:
			metrics.DecisionCacheTotal.WithLabelValues("hit").Inc()
			metrics.AdjudicationsTotal.WithLabelValues(string(models.DecisionSourceExternal), reasonCached).Inc()
			return models.MatchDecision{
				Pair:       pair,
				Confidence: cached.Confidence,
				Rationale:  cached.Rationale,
				Source:     models.DecisionSourceExternal,
				DecidedAt:  cached.DecidedAt,
				Cached:     true,
			}
		default:
			metrics.DecisionCacheTotal.WithLabelValues("miss").Inc()
		}
	}

	prompt, err := BuildPrompt(pair)
	if err != nil {
		log.WithError(err).Warn("Failed to build adjudication prompt")
		return s.fallback(pair, reasonPrompt, fmt.Sprintf("failed to build prompt: %v", err))
	}

	reply, err := s.call(ctx, prompt)
	if err != nil {
		reason := reasonTransport
		var statusErr *StatusError
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			reason = reasonTimeout
		case errors.As(err, &statusErr):
			reason = reasonStatus
		}
		log.WithError(err).WithField("reason", reason).Warn("External adjudication failed, using fallback confidence")
		return s.fallback(pair, reason, fmt.Sprintf("external service call failed: %v", err))
	}

	verdict, err := ParseVerdict(reply)
	if err != nil {
		log.WithError(err).WithField("reply", truncate(reply, 500)).Warn("Failed to parse external adjudication reply, using fallback confidence")
		return s.fallback(pair, reasonParse, fmt.Sprintf("failed to parse external service reply: %s", truncate(reply, 100)))
	}

	rationale := verdict.Explanation()
	if rationale == "" {
		rationale = "no rationale provided"
	}

	decision := models.MatchDecision{
		Pair:       pair,
		Confidence: *verdict.Confidence,
		Rationale:  rationale,
		Source:     models.DecisionSourceExternal,
		DecidedAt:  s.now().UTC(),
	}
	metrics.AdjudicationsTotal.WithLabelValues(string(models.DecisionSourceExternal), reasonAnswered).Inc()

	if s.cache != nil {
		err := s.cache.Put(ctx, pair, CachedVerdict{
			Confidence: decision.Confidence,
			Rationale:  decision.Rationale,
			Provider:   s.judge.Name(),
			DecidedAt:  decision.DecidedAt,
		})
		if err != nil {
			log.WithError(err).Warn("Failed to cache adjudication decision")
		}
	}

	log.WithField("confidence", decision.Confidence).Debug("Adjudicated candidate pair")
	return decision
}

// call waits for the rate limiter and calls the judge under the per-call timeout
func (s *Service) call(ctx context.Context, prompt string) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	metrics.AdjudicationsInFlight.Inc()
	defer metrics.AdjudicationsInFlight.Dec()

	start := time.Now()
	reply, err := s.judge.Judge(callCtx, prompt)
	metrics.AdjudicationDuration.WithLabelValues(s.judge.Name()).Observe(time.Since(start).Seconds())

	if err != nil && callCtx.Err() != nil && ctx.Err() == nil {
		// the SDKs surface their own timeout errors; normalize to the deadline
		return "", fmt.Errorf("no reply within %s: %w", s.config.Timeout, context.DeadlineExceeded)
	}
	return reply, err
}

func (s *Service) fallback(pair models.CandidatePair, reason, rationale string) models.MatchDecision {
	metrics.AdjudicationsTotal.WithLabelValues(string(models.DecisionSourceFallback), reason).Inc()
	return models.MatchDecision{
		Pair:       pair,
		Confidence: s.config.FallbackConfidence,
		Rationale:  rationale,
		Source:     models.DecisionSourceFallback,
		DecidedAt:  s.now().UTC(),
	}
}

// AdjudicateAll adjudicates pairs under the configured concurrency bound.
// Decisions come back in pair order. If ctx is cancelled, scheduling stops,
// pairs not yet decided are omitted and ctx.Err() is returned with the
// decisions made so far.
func (s *Service) AdjudicateAll(ctx context.Context, pairs []models.CandidatePair) ([]models.MatchDecision, error) {
	ctx, span := tracing.StartSpan(ctx, "adjudication.Service.AdjudicateAll")
	defer span.End()

	results := make([]*models.MatchDecision, len(pairs))

	var eg errgroup.Group
	eg.SetLimit(s.config.Concurrency)

	for i := range pairs {
		if ctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			decision := s.Adjudicate(ctx, pairs[i])
			if ctx.Err() != nil {
				// decided against a cancelled context; not trustworthy
				return nil
			}
			results[i] = &decision
			return nil
		})
	}
	_ = eg.Wait()

	decisions := make([]models.MatchDecision, 0, len(pairs))
	external := 0
	for _, d := range results {
		if d == nil {
			continue
		}
		if d.Source == models.DecisionSourceExternal {
			external++
		}
		decisions = append(decisions, *d)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"pairs":     len(pairs),
		"decisions": len(decisions),
		"external":  external,
		"fallback":  len(decisions) - external,
	}).Info("Adjudicated candidate pairs")

	return decisions, ctx.Err()
}
