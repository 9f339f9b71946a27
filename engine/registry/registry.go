// Package registry keeps the vehicle graph: Vehicle nodes in Neo4j, looked up
// by id or VIN, with INSPECTED_BY links to completed health check responses.
package registry

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/OpenBayHQ/openbay-mvp/engine/vhc"
)

// CypherResult is the minimal interface needed from a neo4j result.
type CypherResult interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
}

// CypherRunner runs cypher inside a session or transaction.
type CypherRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error)
}

// CypherSession is the minimal interface needed from a neo4j session.
type CypherSession interface {
	CypherRunner
	Close(ctx context.Context) error
}

// SessionOpener opens sessions. The driver-backed opener is the production
// implementation; tests substitute their own.
type SessionOpener interface {
	OpenSession(ctx context.Context) CypherSession
}

type driverOpener struct {
	driver neo4j.DriverWithContext
}

type driverSession struct {
	sess neo4j.SessionWithContext
}

func (s driverSession) Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error) {
	return s.sess.Run(ctx, cypher, params)
}

func (s driverSession) Close(ctx context.Context) error { return s.sess.Close(ctx) }

func (o driverOpener) OpenSession(ctx context.Context) CypherSession {
	return driverSession{sess: o.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

// Registry provides vehicle lookups and inspection links over Neo4j.
type Registry struct {
	opener SessionOpener
}

// New creates a Registry backed by a neo4j driver.
func New(driver neo4j.DriverWithContext) *Registry {
	return &Registry{opener: driverOpener{driver: driver}}
}

// NewWithOpener creates a Registry with a custom session opener.
func NewWithOpener(opener SessionOpener) *Registry {
	return &Registry{opener: opener}
}

// SaveVehicle creates or updates a Vehicle node keyed by id.
func (r *Registry) SaveVehicle(ctx context.Context, v Vehicle) error {
	if !vhc.ValidPowertrains[v.Powertrain] {
		return vhc.NewError(vhc.ErrInvalidAnswer, v.ID, "unknown powertrain %q", v.Powertrain)
	}
	sess := r.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MERGE (v:Vehicle {id: $id}) SET v += $props`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"id":    v.ID,
		"props": vehicleToMap(v),
	})
	return err
}

// GetVehicle returns the vehicle node for id.
func (r *Registry) GetVehicle(ctx context.Context, id string) (Vehicle, error) {
	return r.findOne(ctx, `MATCH (v:Vehicle {id: $key}) RETURN v`, id)
}

// FindByVIN returns the vehicle with the given VIN.
func (r *Registry) FindByVIN(ctx context.Context, vin string) (Vehicle, error) {
	return r.findOne(ctx, `MATCH (v:Vehicle {vin: $key}) RETURN v`, vin)
}

func (r *Registry) findOne(ctx context.Context, cypher, key string) (Vehicle, error) {
	sess := r.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, cypher, map[string]any{"key": key})
	if err != nil {
		return Vehicle{}, err
	}
	if !result.Next(ctx) {
		return Vehicle{}, vhc.NewError(vhc.ErrNotFound, key, "vehicle does not exist")
	}
	val, _ := result.Record().Get("v")
	return vehicleFromNode(val), nil
}

// Powertrain returns the powertrain recorded for a vehicle. Inspections use
// it to filter template items down to the applicable set.
func (r *Registry) Powertrain(ctx context.Context, vehicleID string) (vhc.Powertrain, error) {
	v, err := r.GetVehicle(ctx, vehicleID)
	if err != nil {
		return "", err
	}
	if !vhc.ValidPowertrains[v.Powertrain] {
		return "", vhc.NewError(vhc.ErrInvalidAnswer, vehicleID, "vehicle has unknown powertrain %q", v.Powertrain)
	}
	return v.Powertrain, nil
}

// LinkInspection records a completed health check on the vehicle: an
// Inspection node carrying the headline result, linked by INSPECTED_BY.
func (r *Registry) LinkInspection(ctx context.Context, vehicleID string, rec InspectionRecord) error {
	sess := r.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	submittedAt := ""
	if rec.SubmittedAt != nil {
		submittedAt = rec.SubmittedAt.UTC().Format(time.RFC3339)
	}
	cypher := `MERGE (i:Inspection {response_id: $responseID})
	           SET i.template_id = $templateID, i.template_version = $templateVersion,
	               i.status = $status, i.total_score = $totalScore, i.submitted_at = $submittedAt
	           WITH i
	           MATCH (v:Vehicle {id: $vehicleID})
	           MERGE (v)-[:INSPECTED_BY]->(i)`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"vehicleID":       vehicleID,
		"responseID":      rec.ResponseID,
		"templateID":      rec.TemplateID,
		"templateVersion": rec.TemplateVersion,
		"status":          string(rec.Status),
		"totalScore":      rec.TotalScore,
		"submittedAt":     submittedAt,
	})
	return err
}

// InspectionHistory returns the recorded inspections for a vehicle, newest
// submission first.
func (r *Registry) InspectionHistory(ctx context.Context, vehicleID string) ([]InspectionRecord, error) {
	sess := r.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (:Vehicle {id: $vehicleID})-[:INSPECTED_BY]->(i:Inspection)
	           RETURN i ORDER BY i.submitted_at DESC`
	result, err := sess.Run(ctx, cypher, map[string]any{"vehicleID": vehicleID})
	if err != nil {
		return nil, err
	}

	var records []InspectionRecord
	for result.Next(ctx) {
		val, _ := result.Record().Get("i")
		rec := InspectionRecord{
			ResponseID:      strFromNode(val, "response_id"),
			TemplateID:      strFromNode(val, "template_id"),
			TemplateVersion: intFromNode(val, "template_version"),
			Status:          vhc.Status(strFromNode(val, "status")),
			TotalScore:      floatFromNode(val, "total_score"),
		}
		if raw := strFromNode(val, "submitted_at"); raw != "" {
			if ts, err := time.Parse(time.RFC3339, raw); err == nil {
				rec.SubmittedAt = &ts
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
