// README: Pricing service loads the rate table and computes credit estimates.
package pricing

import (
	"context"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"charterhub/internal/types"
)

type ConfigReader interface {
	ListByPrefix(ctx context.Context, prefix string) (map[string]string, error)
}

type Service struct {
	store ConfigReader
	log   *zap.Logger
}

func NewService(store ConfigReader, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

// LoadRates reads the whole pricing_ key range in one query. Callers pricing a
// batch of candidates load once and reuse the result.
func (s *Service) LoadRates(ctx context.Context) (Rates, error) {
	rates := DefaultRates
	if s.store == nil {
		return rates, nil
	}
	values, err := s.store.ListByPrefix(ctx, KeyPrefix)
	if err != nil {
		return Rates{}, err
	}
	for key, raw := range values {
		var target *float64
		switch key {
		case KeyBaseRatePerKm:
			target = &rates.BaseRatePerKm
		case KeyMinimumCharge:
			target = &rates.MinimumCharge
		case KeyWorkerRate:
			target = &rates.WorkerRate
		default:
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			s.log.Warn("ignoring unparseable pricing value", zap.String("key", key), zap.String("value", raw))
			continue
		}
		*target = v
	}
	return rates, nil
}

// Estimate loads the rates and prices a single trip.
func (s *Service) Estimate(ctx context.Context, distanceKm float64, workers int) (types.Credits, error) {
	rates, err := s.LoadRates(ctx)
	if err != nil {
		return 0, err
	}
	return Cost(distanceKm, workers, rates), nil
}

// Cost = max(ceil(distance*base) + workers*workerRate, minimumCharge).
// The distance part is ceiled before the worker charge is added. Credits are
// whole units, so the final figure is ceiled too (a no-op for integral rates).
func Cost(distanceKm float64, workers int, r Rates) types.Credits {
	distanceCost := math.Ceil(distanceKm * r.BaseRatePerKm)
	workerCost := float64(workers) * r.WorkerRate
	total := math.Max(distanceCost+workerCost, r.MinimumCharge)
	return types.Credits(math.Ceil(total))
}
