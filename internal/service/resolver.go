package service

import (
	"context"
	"strings"
	"time"

	"clinicdesk/internal/cache"
	"clinicdesk/internal/constants"
	apperrors "clinicdesk/internal/errors"
	"clinicdesk/internal/metrics"
	"clinicdesk/internal/models"
	"clinicdesk/internal/privacy"
	"clinicdesk/pkg/directory"

	"github.com/sirupsen/logrus"
)

// IdentityResolver recovers the phone number behind a masked provider
// address by consulting the external directory. Outcomes are cached with
// asymmetric TTLs: positive results are stable for a long time, while a
// failed resolution is retried much sooner because the contact may become
// resolvable at any moment.
//
// As a pipeline stage it runs first, so that the normalizer and everything
// after it see the resolved address instead of the masked one.
type IdentityResolver struct {
	directory   directory.Client
	cache       cache.ResolutionCache
	logger      *logrus.Logger
	positiveTTL time.Duration
	negativeTTL time.Duration
}

func NewIdentityResolver(dir directory.Client, c cache.ResolutionCache, logger *logrus.Logger, cfg models.ResolverConfig) *IdentityResolver {
	return &IdentityResolver{
		directory:   dir,
		cache:       c,
		logger:      logger,
		positiveTTL: time.Duration(cfg.PositiveTTLHours) * time.Hour,
		negativeTTL: time.Duration(cfg.NegativeTTLMinutes) * time.Minute,
	}
}

func (r *IdentityResolver) Name() string {
	return "identity_resolver"
}

func (r *IdentityResolver) Run(ctx context.Context, state *models.PipelineState) (*models.StageDelta, error) {
	address := state.SourceJID
	if !strings.HasSuffix(address, constants.MaskedAddressSuffix) {
		return nil, nil
	}

	start := time.Now()
	resolution, err := r.Resolve(ctx, address)
	latency := time.Since(start).Milliseconds()

	delta := &models.StageDelta{
		ResolverLatencyMs: models.Int64(latency),
	}

	if resolution == nil {
		// Unresolved is not fatal: later stages fall back to the
		// masked address's digits.
		reason := "unresolved"
		if err != nil {
			reason = err.Error()
		}
		delta.ResolverError = models.String(reason)
		return delta, nil
	}

	delta.ResolvedJID = models.String(resolution.JID)
	delta.ResolverStrategy = models.Strategy(models.StrategyDirectory)
	return delta, nil
}

// Resolve turns a masked address into a phone-based identity, or nil when
// the address is not resolvable. It never returns an error that should
// abort the caller; the error value only describes why resolution failed.
func (r *IdentityResolver) Resolve(ctx context.Context, address string) (*models.IdentityResolution, error) {
	if !strings.HasSuffix(address, constants.MaskedAddressSuffix) {
		return nil, nil
	}

	if entry, ok := r.cache.Get(address); ok {
		metrics.IncrementCounter("resolver_cache_hits_total", map[string]string{
			"negative": boolLabel(entry.Negative),
		}, "Resolution cache hits")
		if entry.Negative {
			return nil, nil
		}
		return &entry, nil
	}

	if !r.directory.HasCredentials() {
		return nil, apperrors.New(apperrors.ErrCodeResolution, "directory credentials not configured")
	}

	resolution, err := r.lookup(ctx, address)
	if err != nil || resolution == nil {
		r.cache.Set(address, models.IdentityResolution{Negative: true}, r.negativeTTL)
		metrics.IncrementCounter("resolver_misses_total", nil, "Failed directory resolutions")
		r.logger.WithFields(logrus.Fields{
			"address": privacy.MaskJID(address),
		}).WithError(err).Warn("Identity resolution failed")
		if err == nil {
			err = apperrors.New(apperrors.ErrCodeResolution, "no phone found in directory response")
		}
		return nil, err
	}

	r.cache.Set(address, *resolution, r.positiveTTL)
	metrics.IncrementCounter("resolver_resolutions_total", nil, "Successful directory resolutions")
	r.logger.WithFields(logrus.Fields{
		"address": privacy.MaskJID(address),
		"phone":   privacy.MaskPhoneNumber(resolution.Phone),
	}).Info("Masked address resolved")
	return resolution, nil
}

// lookup tries the direct contact endpoint first and falls back to the
// search endpoint. Each call is retried once on a server-side failure by
// the directory client.
func (r *IdentityResolver) lookup(ctx context.Context, address string) (*models.IdentityResolution, error) {
	bareID := strings.TrimSuffix(address, constants.MaskedAddressSuffix)

	contact, err := r.directory.GetContactByID(ctx, bareID)
	if err == nil && contact != nil {
		if phone := directory.ExtractPhone(contact.Raw); phone != "" {
			return resolutionFor(phone), nil
		}
	}

	contacts, findErr := r.directory.FindContacts(ctx, address)
	if findErr != nil {
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeResolution, "both directory endpoints failed")
		}
		return nil, apperrors.Wrap(findErr, apperrors.ErrCodeResolution, "directory search failed")
	}
	for _, c := range contacts {
		if phone := directory.ExtractPhone(c.Raw); phone != "" {
			return resolutionFor(phone), nil
		}
	}

	return nil, nil
}

func resolutionFor(phone string) *models.IdentityResolution {
	return &models.IdentityResolution{
		Phone: phone,
		JID:   phone + constants.PhoneAddressSuffix,
	}
}

func boolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
