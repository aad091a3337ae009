// internal/integrations/location/handler.go
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"lead-intake/internal/common/database"
	apperrors "lead-intake/internal/common/errors"
	"lead-intake/internal/common/llm"
	"lead-intake/internal/common/logger"
	"lead-intake/internal/common/metrics"
)

const Component = "property-location"

// Cache is the subset of *database.RedisClient used for lookups.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

var mapsURL = regexp.MustCompile(`https://(?:www\.)?(?:google\.[a-z.]+/maps|maps\.google\.[a-z.]+|maps\.app\.goo\.gl|goo\.gl/maps)[^\s)\]"'<>]*`)

type Handler struct {
	config    *Config
	generator llm.Generator
	cache     Cache
	logger    logger.Logger
}

// NewHandler builds a lookup. cache may be nil.
func NewHandler(config *Config, generator llm.Generator, cache Cache, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	return &Handler{
		config:    config,
		generator: generator,
		cache:     cache,
		logger:    log.WithFields(map[string]interface{}{"component": Component}),
	}
}

// Lookup never fails for a non-empty identifier: model errors degrade to a
// generic summary and a search link.
func (h *Handler) Lookup(ctx context.Context, identifier string) (LocationInfo, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return LocationInfo{}, apperrors.NewInvalidRequestError("property identifier is required")
	}

	key := h.cacheKey(identifier)
	if info, ok := h.fromCache(ctx, key); ok {
		metrics.LocationLookups.WithLabelValues("cached").Inc()
		return info, nil
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	reply, err := h.generator.Generate(ctx, llm.Request{Prompt: h.buildPrompt(identifier)})
	if err != nil || strings.TrimSpace(reply) == "" {
		if err == nil {
			err = llm.ErrEmptyResponse
		}
		h.logger.WithError(err).Warn("location lookup failed, using search link", map[string]interface{}{
			"identifier": identifier,
		})
		metrics.LocationLookups.WithLabelValues("fallback").Inc()
		return LocationInfo{
			Identifier: identifier,
			Summary:    unavailableSummary,
			MapURL:     SearchURL(identifier, h.config.Region),
			Fallback:   true,
		}, nil
	}

	info := LocationInfo{Identifier: identifier, Summary: strings.TrimSpace(reply)}
	if found := mapsURL.FindString(reply); found != "" {
		info.MapURL = strings.TrimRight(found, ".,;")
	} else {
		info.MapURL = SearchURL(identifier, h.config.Region)
		info.Fallback = true
	}

	h.toCache(ctx, key, info)
	metrics.LocationLookups.WithLabelValues("resolved").Inc()
	return info, nil
}

// SearchURL is a Google Maps search for the identifier within the region.
func SearchURL(identifier, region string) string {
	q := strings.TrimSpace(identifier + " " + shortRegion(region))
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(q)
}

// shortRegion drops the city so searches stay as narrow as the neighbourhood.
func shortRegion(region string) string {
	if i := strings.Index(region, ","); i >= 0 {
		return strings.TrimSpace(region[:i])
	}
	return strings.TrimSpace(region)
}

func (h *Handler) buildPrompt(identifier string) string {
	return fmt.Sprintf(`Locate the property or condominium identified by "%s" in %s.
1. Give a short summary (at most 3 lines) of the condominium or its surroundings: security, distance to the beach, shops.
2. Include a Google Maps link to the exact location if you know it.`, identifier, h.config.Region)
}

func (h *Handler) cacheKey(identifier string) string {
	return fmt.Sprintf("%s:%s", h.config.KeyPrefix, strings.ToLower(identifier))
}

func (h *Handler) fromCache(ctx context.Context, key string) (LocationInfo, bool) {
	if h.cache == nil {
		return LocationInfo{}, false
	}
	raw, err := h.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, database.ErrKeyNotFound) {
			h.logger.Warn("location cache read failed", map[string]interface{}{"error": err.Error()})
		}
		return LocationInfo{}, false
	}
	var info LocationInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return LocationInfo{}, false
	}
	info.Cached = true
	return info, true
}

func (h *Handler) toCache(ctx context.Context, key string, info LocationInfo) {
	if h.cache == nil {
		return
	}
	data, err := json.Marshal(info)
	if err != nil {
		return
	}
	if err := h.cache.Set(ctx, key, data, h.config.CacheTTL); err != nil {
		h.logger.Warn("location cache write failed", map[string]interface{}{"error": err.Error()})
	}
}
