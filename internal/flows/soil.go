package flows

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/agrisage/agrisage/backend/internal/normalize"
	"github.com/agrisage/agrisage/backend/internal/providers"
	"github.com/agrisage/agrisage/backend/pkg/models"
)

// Default soil lookup parameters.
const (
	DefaultSoilDepth = "0-20"
	DefaultSoilTopK  = 5
)

// SoilSummary fetches the soil type classification and the property lookup
// concurrently and flattens them. Both sub-calls must succeed; a failure of
// either (including token acquisition for the property lookup) fails the
// whole summary — no partial soil summary is ever returned.
func (s *Service) SoilSummary(ctx context.Context, lat, lon float64, depth string, topK int) (*models.SoilSummary, error) {
	if s.soil == nil {
		return nil, providers.ErrUnavailable
	}
	if depth == "" {
		depth = DefaultSoilDepth
	}
	if topK <= 0 {
		topK = DefaultSoilTopK
	}

	var (
		soilType *providers.SoilTypeRaw
		props    *providers.SoilPropertyRaw
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		soilType, err = s.soil.FetchType(gctx, lat, lon, topK)
		return err
	})
	g.Go(func() error {
		var err error
		props, err = s.soil.FetchProperties(gctx, lat, lon, depth)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("soil summary: %w", err)
	}

	return normalize.Soil(soilType, props), nil
}
