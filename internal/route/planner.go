// Package route finds the conversion path from a held asset to the
// reference asset.
package route

import (
	"fmt"

	"gainstaker/internal/symbols"
	"gainstaker/models"
)

// Planner plans paths through at most one bridge asset.
type Planner struct {
	resolver  *symbols.Resolver
	reference models.Asset
	bridge    models.Asset
}

// NewPlanner returns a Planner towards reference, bridging via bridge.
func NewPlanner(resolver *symbols.Resolver, reference, bridge models.Asset) *Planner {
	return &Planner{resolver: resolver, reference: reference, bridge: bridge}
}

func (p *Planner) Reference() models.Asset { return p.reference }
func (p *Planner) Bridge() models.Asset    { return p.bridge }

// PathToReference returns the hops that turn asset into the reference
// asset: none when asset is the reference, one over a direct listing, or two
// through the bridge. Each hop's side acquires the next asset on the path.
func (p *Planner) PathToReference(asset models.Asset) (models.RoutePath, error) {
	asset, err := p.resolver.ValidateAsset(string(asset))
	if err != nil {
		return models.RoutePath{}, err
	}
	path := models.RoutePath{Source: asset, Reference: p.reference}
	if asset == p.reference {
		return path, nil
	}

	if hop, ok := p.hop(p.reference, asset); ok {
		path.Hops = []models.Hop{hop}
		return path, nil
	}

	if asset != p.bridge {
		first, ok1 := p.hop(p.bridge, asset)
		second, ok2 := p.hop(p.reference, p.bridge)
		if ok1 && ok2 {
			path.Bridge = p.bridge
			path.Hops = []models.Hop{first, second}
			return path, nil
		}
	}

	return models.RoutePath{}, fmt.Errorf("%w: %s to %s via %s", models.ErrNoRouteFound, asset, p.reference, p.bridge)
}

// hop is the trade acquiring want while disposing of have.
func (p *Planner) hop(want, have models.Asset) (models.Hop, bool) {
	pair, side, err := p.resolver.ResolveValidPairing(want, have)
	if err != nil {
		return models.Hop{}, false
	}
	return models.Hop{Pair: pair, Side: side}, true
}
