// Package di contains dependency injection tokens for the mev context.
package di

import (
	"github.com/fd1az/arb-engine/business/mev/app"
	"github.com/fd1az/arb-engine/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ProfitEvaluator = di.NewToken[*app.ProfitEvaluator]("mev.ProfitEvaluator")
	SensorHub       = di.NewToken[*app.SensorHub]("mev.SensorHub")
)

// Private dependency tokens - internal to mev module
var (
	ProfitCalculator   = di.NewToken[*app.ProfitCalculator]("mev:profitCalculator")
	AdvancedCalculator = di.NewToken[*app.AdvancedCalculator]("mev:advancedCalculator")
	CongestionSensor   = di.NewToken[app.CongestionSensor]("mev:congestionSensor")
	DensitySensor      = di.NewToken[app.DensitySensor]("mev:densitySensor")
)

// Helper functions for type-safe access
func GetProfitEvaluator(c di.ServiceRegistry) *app.ProfitEvaluator {
	return di.GetToken(c, ProfitEvaluator)
}

func GetSensorHub(c di.ServiceRegistry) *app.SensorHub {
	return di.GetToken(c, SensorHub)
}

func GetProfitCalculator(c di.ServiceRegistry) *app.ProfitCalculator {
	return di.GetToken(c, ProfitCalculator)
}

func GetAdvancedCalculator(c di.ServiceRegistry) *app.AdvancedCalculator {
	return di.GetToken(c, AdvancedCalculator)
}

func GetCongestionSensor(c di.ServiceRegistry) app.CongestionSensor {
	return di.GetToken(c, CongestionSensor)
}

func GetDensitySensor(c di.ServiceRegistry) app.DensitySensor {
	return di.GetToken(c, DensitySensor)
}
