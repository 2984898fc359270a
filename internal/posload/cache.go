package posload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinicware/clinic-pos/internal/prescriptions"
	"github.com/clinicware/clinic-pos/pkg/logging"
)

// Cache states for one prescription. Transitions only move forward:
// unloaded -> locallyLoaded -> confirmedPaid (terminal).
const (
	StateUnloaded       = "unloaded"
	StateLocallyLoaded  = "loaded"
	StateConfirmedPaid  = "paid"
	defaultLoadedTTL    = 15 * time.Minute
	defaultConfirmedTTL = 24 * time.Hour
)

// ErrBackwardTransition rejects any attempt to move a prescription's load
// state backward, including re-loading a confirmed-paid prescription.
var ErrBackwardTransition = errors.New("posload: backward state transition")

// LoadedCache tracks which prescriptions were just handed to the POS while
// backend payment confirmation is still in flight. It papers over the gap
// between a load and the authoritative paid flag arriving; any authoritative
// read showing the prescription paid evicts the local marker for good.
//
// Redis being unavailable fails open: reads report unloaded and writes are
// dropped with a logged warning, so a degraded cache can at worst re-offer a
// prescription, never hide one.
type LoadedCache struct {
	redis        *redis.Client
	logger       *logging.Logger
	loadedTTL    time.Duration
	confirmedTTL time.Duration
}

// NewLoadedCache creates the reconciliation cache.
func NewLoadedCache(redisClient *redis.Client, logger *logging.Logger) *LoadedCache {
	if logger == nil {
		logger = logging.Default()
	}
	return &LoadedCache{
		redis:        redisClient,
		logger:       logger,
		loadedTTL:    defaultLoadedTTL,
		confirmedTTL: defaultConfirmedTTL,
	}
}

// WithTTLs overrides the entry lifetimes, for tests.
func (c *LoadedCache) WithTTLs(loaded, confirmed time.Duration) *LoadedCache {
	if loaded > 0 {
		c.loadedTTL = loaded
	}
	if confirmed > 0 {
		c.confirmedTTL = confirmed
	}
	return c
}

func cacheKey(orgID, prescriptionID string) string {
	return fmt.Sprintf("posload:loaded:%s:%s", orgID, prescriptionID)
}

// State returns the current load state for a prescription.
func (c *LoadedCache) State(ctx context.Context, orgID, prescriptionID string) string {
	if c == nil || c.redis == nil {
		return StateUnloaded
	}
	val, err := c.redis.Get(ctx, cacheKey(orgID, prescriptionID)).Result()
	if err == redis.Nil {
		return StateUnloaded
	}
	if err != nil {
		c.logger.Warn("posload: cache read failed, treating as unloaded", "error", err, "prescription_id", prescriptionID)
		return StateUnloaded
	}
	switch val {
	case StateLocallyLoaded, StateConfirmedPaid:
		return val
	default:
		return StateUnloaded
	}
}

// MarkLoaded transitions a prescription to locallyLoaded. Marking an already
// loaded prescription is idempotent; marking a confirmed-paid one is a
// backward transition and is rejected.
func (c *LoadedCache) MarkLoaded(ctx context.Context, orgID, prescriptionID string) error {
	if c == nil || c.redis == nil {
		return nil
	}
	switch c.State(ctx, orgID, prescriptionID) {
	case StateConfirmedPaid:
		return ErrBackwardTransition
	case StateLocallyLoaded:
		return nil
	}
	if err := c.redis.Set(ctx, cacheKey(orgID, prescriptionID), StateLocallyLoaded, c.loadedTTL).Err(); err != nil {
		c.logger.Warn("posload: cache write failed, load marker dropped", "error", err, "prescription_id", prescriptionID)
	}
	return nil
}

// Confirm records the terminal confirmedPaid state, evicting any loaded
// marker. Confirming is valid from every state and idempotent.
func (c *LoadedCache) Confirm(ctx context.Context, orgID, prescriptionID string) {
	if c == nil || c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, cacheKey(orgID, prescriptionID), StateConfirmedPaid, c.confirmedTTL).Err(); err != nil {
		c.logger.Warn("posload: cache confirm failed", "error", err, "prescription_id", prescriptionID)
	}
}

// LoadedSet reports which of the given prescriptions are currently in the
// locallyLoaded state. Prescriptions whose authoritative record already shows
// paid are reconciled on the way: their loaded markers are promoted to the
// terminal state and they are not reported as loaded.
func (c *LoadedCache) LoadedSet(ctx context.Context, orgID string, prescs []prescriptions.Prescription) map[string]bool {
	loaded := make(map[string]bool, len(prescs))
	if c == nil || c.redis == nil {
		return loaded
	}
	for _, p := range prescs {
		if p.IsPaid {
			if c.State(ctx, orgID, p.ID) == StateLocallyLoaded {
				c.Confirm(ctx, orgID, p.ID)
			}
			continue
		}
		if c.State(ctx, orgID, p.ID) == StateLocallyLoaded {
			loaded[p.ID] = true
		}
	}
	return loaded
}
