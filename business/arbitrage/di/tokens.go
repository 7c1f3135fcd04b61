// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/arb-engine/business/arbitrage/app"
	"github.com/fd1az/arb-engine/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Detector = di.NewToken[*app.Detector]("arbitrage.Detector")
)

// Private dependency tokens - internal to arbitrage module
var (
	SpatialEngine    = di.NewToken[*app.SpatialEngine]("arbitrage:spatialEngine")
	TriangularEngine = di.NewToken[*app.TriangularEngine]("arbitrage:triangularEngine")
	Reporter         = di.NewToken[app.Reporter]("arbitrage:reporter")
)

// Helper functions for type-safe access
func GetDetector(c di.ServiceRegistry) *app.Detector {
	return di.GetToken(c, Detector)
}

func GetSpatialEngine(c di.ServiceRegistry) *app.SpatialEngine {
	return di.GetToken(c, SpatialEngine)
}

func GetTriangularEngine(c di.ServiceRegistry) *app.TriangularEngine {
	return di.GetToken(c, TriangularEngine)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}
