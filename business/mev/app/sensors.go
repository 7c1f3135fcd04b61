package app

import (
	"context"
	"time"

	"github.com/fd1az/arb-engine/internal/cache"
	"github.com/fd1az/arb-engine/internal/logger"
)

// fallbackScore is used when a sensor cannot be read. A mid-scale
// value keeps the risk model conservative without stalling detection.
const fallbackScore = 0.5

// CongestionSensor reads mempool congestion on a 0..1 scale.
type CongestionSensor interface {
	CongestionScore(ctx context.Context) (float64, error)
}

// DensitySensor reads searcher activity on a 0..1 scale.
type DensitySensor interface {
	DensityScore(ctx context.Context) (float64, error)
}

// SensorReadings is a consistent view of both sensors.
type SensorReadings struct {
	Congestion float64
	Density    float64
	Composite  float64
}

// SensorHub caches sensor readings for one block time so every
// opportunity evaluated within a block shares the same risk inputs.
type SensorHub struct {
	congestion CongestionSensor
	density    DensitySensor
	scores     *cache.Cache[string, float64]
	ttl        time.Duration
	log        logger.LoggerInterface
}

// NewSensorHub creates a hub over the two sensors. A zero ttl
// defaults to 12 seconds.
func NewSensorHub(congestion CongestionSensor, density DensitySensor, ttl time.Duration, log logger.LoggerInterface) *SensorHub {
	if ttl <= 0 {
		ttl = 12 * time.Second
	}
	return &SensorHub{
		congestion: congestion,
		density:    density,
		scores:     cache.New[string, float64](ttl),
		ttl:        ttl,
		log:        log,
	}
}

// CongestionScore returns the cached congestion reading, refreshing
// it when stale. Sensor failures fall back to the mid-scale score.
func (h *SensorHub) CongestionScore(ctx context.Context) float64 {
	if score, ok := h.scores.Get(ctx, "congestion"); ok {
		return score
	}
	score, err := h.congestion.CongestionScore(ctx)
	if err != nil {
		h.log.Warn(ctx, "congestion sensor read failed", "error", err)
		return fallbackScore
	}
	h.scores.Set(ctx, "congestion", score, h.ttl)
	return score
}

// DensityScore returns the cached searcher density reading.
func (h *SensorHub) DensityScore(ctx context.Context) float64 {
	if score, ok := h.scores.Get(ctx, "density"); ok {
		return score
	}
	score, err := h.density.DensityScore(ctx)
	if err != nil {
		h.log.Warn(ctx, "density sensor read failed", "error", err)
		return fallbackScore
	}
	h.scores.Set(ctx, "density", score, h.ttl)
	return score
}

// CompositeRisk folds both readings into a single score. Searcher
// density drives it, congestion discounts it since crowded mempools
// make precise targeting harder.
func (h *SensorHub) CompositeRisk(ctx context.Context) float64 {
	density := h.DensityScore(ctx)
	congestion := h.CongestionScore(ctx)
	return density * (1 - congestion*0.5)
}

// Readings returns all current scores at once.
func (h *SensorHub) Readings(ctx context.Context) SensorReadings {
	congestion := h.CongestionScore(ctx)
	density := h.DensityScore(ctx)
	return SensorReadings{
		Congestion: congestion,
		Density:    density,
		Composite:  density * (1 - congestion*0.5),
	}
}

// Close releases the score cache.
func (h *SensorHub) Close() {
	h.scores.Close()
}
