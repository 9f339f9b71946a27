package main

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/OpenBayHQ/openbay-mvp/engine/findings"
	"github.com/OpenBayHQ/openbay-mvp/engine/inspect"
	"github.com/OpenBayHQ/openbay-mvp/engine/registry"
	"github.com/OpenBayHQ/openbay-mvp/engine/vhc"
	"github.com/OpenBayHQ/openbay-mvp/pkg/natsutil"
	"github.com/OpenBayHQ/openbay-mvp/pkg/resilience"
)

// natsPublisher adapts a NATS connection to the inspect.Publisher interface.
type natsPublisher struct {
	nc *nats.Conn
}

func (p natsPublisher) Publish(ctx context.Context, subject string, v any) error {
	return natsutil.Publish(ctx, p.nc, subject, v)
}

// guardedRegistry wraps the vehicle registry in a circuit breaker so a down
// Neo4j degrades response creation instead of hanging it.
type guardedRegistry struct {
	reg     *registry.Registry
	breaker *resilience.Breaker
}

func (g *guardedRegistry) Powertrain(ctx context.Context, vehicleID string) (vhc.Powertrain, error) {
	var pt vhc.Powertrain
	err := g.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		pt, err = g.reg.Powertrain(ctx, vehicleID)
		return err
	})
	return pt, err
}

// guardedFinder resolves a response to its template and runs the similarity
// search behind a circuit breaker.
type guardedFinder struct {
	finder  *findings.Finder
	svc     *inspect.Service
	breaker *resilience.Breaker
}

func (g *guardedFinder) Similar(ctx context.Context, responseID, itemID string, topK int) ([]findings.ItemSimilar, error) {
	r, err := g.svc.Response(ctx, responseID)
	if err != nil {
		return nil, err
	}
	tpl, err := g.svc.Template(ctx, r.TemplateID)
	if err != nil {
		return nil, err
	}
	var out []findings.ItemSimilar
	err = g.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.finder.SimilarForResponse(ctx, tpl, r, itemID, topK)
		return err
	})
	return out, err
}
