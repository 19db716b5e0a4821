package zone

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"delivery-console/internal/geo"
)

// DeliveryZone is a polygonal delivery area with a flat delivery price.
// Polygon is an ordered ring of at least 3 distinct vertices.
type DeliveryZone struct {
	ID      uuid.UUID        `json:"id"`
	Name    string           `json:"name"`
	Polygon []geo.Coordinate `json:"polygon"`
	Price   decimal.Decimal  `json:"price"`
}

// Resolution is the outcome of matching a point against the zone list.
// When no zone contains the point, Valid is false and BaseCost carries the
// default delivery price.
type Resolution struct {
	Valid    bool            `json:"valid"`
	Zone     *DeliveryZone   `json:"zone,omitempty"`
	BaseCost decimal.Decimal `json:"base_cost"`
}

// Resolver matches coordinates against delivery zones.
type Resolver struct {
	log *zap.Logger
}

// NewResolver creates a new Resolver.
func NewResolver(log *zap.Logger) *Resolver {
	return &Resolver{log: log}
}

// Resolve walks zones in the order given and returns the first zone whose
// polygon contains point. First match wins regardless of price or area; the
// stored zone order is the priority order. Zones with fewer than 3 vertices
// are logged and skipped. The zone list is never mutated or retained.
func (r *Resolver) Resolve(point geo.Coordinate, zones []DeliveryZone, defaultPrice decimal.Decimal) Resolution {
	for i := range zones {
		z := zones[i]
		if len(z.Polygon) < 3 {
			r.log.Warn("skipping degenerate delivery zone",
				zap.String("zone_id", z.ID.String()),
				zap.String("zone_name", z.Name),
				zap.Int("vertices", len(z.Polygon)))
			continue
		}
		if geo.PolygonContains(z.Polygon, point) {
			matched := z
			return Resolution{Valid: true, Zone: &matched, BaseCost: z.Price}
		}
	}
	return Resolution{Valid: false, BaseCost: defaultPrice}
}
