// Command worker consumes inspection lifecycle events from NATS: submitted
// responses are indexed into the findings store and linked onto their
// vehicle in the registry, voided ones are de-indexed.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/OpenBayHQ/openbay-mvp/engine/findings"
	"github.com/OpenBayHQ/openbay-mvp/engine/inspect"
	"github.com/OpenBayHQ/openbay-mvp/engine/registry"
	"github.com/OpenBayHQ/openbay-mvp/pkg/embed"
	"github.com/OpenBayHQ/openbay-mvp/pkg/metrics"
	"github.com/OpenBayHQ/openbay-mvp/pkg/natsutil"
)

var met = metrics.New()

var (
	mSubmittedSeen  = met.Counter("vhc_worker_submitted_events_total", "Submitted events consumed")
	mVoidedSeen     = met.Counter("vhc_worker_voided_events_total", "Voided events consumed")
	mFindingsIndexed = met.Counter("vhc_worker_findings_indexed_total", "Findings indexed into Qdrant")
	mVehiclesLinked = met.Counter("vhc_worker_vehicles_linked_total", "Inspection links written to Neo4j")
	mErrors         = func(stage string) *metrics.Counter {
		return met.Counter(metrics.Label("vhc_worker_errors_total", "stage", stage), "Worker errors by stage")
	}
	mIndexDur = met.Histogram("vhc_worker_index_duration_seconds", "Per-event index time", nil)
)

func main() {
	var (
		natsURL     = flag.String("nats", "nats://localhost:4222", "NATS server URL")
		queue       = flag.String("queue", inspect.WorkerQueue, "NATS queue group")
		qdrantAddr  = flag.String("qdrant", "localhost:6334", "Qdrant gRPC address")
		collection  = flag.String("collection", "vhc-findings", "Qdrant collection name")
		ollamaURL   = flag.String("ollama", "http://localhost:11434", "Ollama base URL")
		ollamaModel = flag.String("model", "nomic-embed-text", "Ollama embedding model")
		dims        = flag.Int("dims", 768, "embedding dimensions")
		neo4jURL    = flag.String("neo4j", "", "Neo4j bolt URL (empty disables vehicle linking)")
		neo4jUser   = flag.String("neo4j-user", "neo4j", "Neo4j username")
		neo4jPass   = flag.String("neo4j-pass", "password", "Neo4j password")
		metricsPort = flag.Int("metrics-port", 9092, "metrics HTTP port")
	)
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	met.CollectRuntime("vhc_worker", 15*time.Second)
	met.ServeAsync(*metricsPort)

	nc, err := natsutil.Connect(*natsURL, "vhc-worker")
	if err != nil {
		log.Error("nats connect failed", "err", err)
		os.Exit(1)
	}
	defer nc.Close()
	log.Info("connected to NATS", "url", *natsURL)

	store, err := findings.New(*qdrantAddr, *collection)
	if err != nil {
		log.Error("qdrant connect failed", "err", err)
		os.Exit(1)
	}
	defer store.Close()
	if err := store.EnsureCollection(ctx, *dims); err != nil {
		log.Error("qdrant ensure collection failed", "err", err)
		os.Exit(1)
	}
	finder := findings.NewFinder(store, embed.NewClient(*ollamaURL, *ollamaModel))
	log.Info("findings index ready", "collection", *collection, "dims", *dims)

	var vehicles *registry.Registry
	if *neo4jURL != "" {
		driver, err := neo4j.NewDriverWithContext(*neo4jURL, neo4j.BasicAuth(*neo4jUser, *neo4jPass, ""))
		if err != nil {
			log.Error("neo4j connect failed", "err", err)
			os.Exit(1)
		}
		defer driver.Close(ctx)
		vehicles = registry.New(driver)
		log.Info("connected to Neo4j", "url", *neo4jURL)
	}

	w := &worker{finder: finder, store: store, vehicles: vehicles, log: log}

	subSubmitted, err := natsutil.QueueSubscribe(nc, inspect.SubjectResponseSubmitted, *queue, w.onSubmitted)
	if err != nil {
		log.Error("subscribe submitted failed", "err", err)
		os.Exit(1)
	}
	defer subSubmitted.Unsubscribe()

	subVoided, err := natsutil.QueueSubscribe(nc, inspect.SubjectResponseVoided, *queue, w.onVoided)
	if err != nil {
		log.Error("subscribe voided failed", "err", err)
		os.Exit(1)
	}
	defer subVoided.Unsubscribe()

	log.Info("worker running", "queue", *queue)
	<-ctx.Done()
	log.Info("worker shutting down")
}

type worker struct {
	finder   *findings.Finder
	store    *findings.Store
	vehicles *registry.Registry
	log      *slog.Logger
}

func (w *worker) onSubmitted(ctx context.Context, ev inspect.ResponseEvent) {
	mSubmittedSeen.Inc()
	start := time.Now()
	defer mIndexDur.Since(start)

	if ev.Response == nil {
		mErrors("payload").Inc()
		w.log.Warn("submitted event without response snapshot", "response_id", ev.ResponseID)
		return
	}

	found := findings.FromBreakdown(*ev.Response, ev.Breakdown)
	n, err := w.finder.IndexFindings(ctx, found)
	if err != nil {
		mErrors("index").Inc()
		w.log.Error("index findings failed", "response_id", ev.ResponseID, "err", err)
	} else {
		mFindingsIndexed.Add(uint64(n))
		w.log.Info("findings indexed", "response_id", ev.ResponseID, "count", n)
	}

	if w.vehicles == nil || ev.VehicleID == "" {
		return
	}
	total, _ := ev.Scores.Total()
	rec := registry.InspectionRecord{
		ResponseID:      ev.ResponseID,
		TemplateID:      ev.TemplateID,
		TemplateVersion: ev.TemplateVersion,
		Status:          ev.Status,
		TotalScore:      total,
		SubmittedAt:     ev.Response.SubmittedAt,
	}
	if err := w.vehicles.LinkInspection(ctx, ev.VehicleID, rec); err != nil {
		mErrors("link").Inc()
		w.log.Error("link inspection failed", "vehicle", ev.VehicleID, "response_id", ev.ResponseID, "err", err)
		return
	}
	mVehiclesLinked.Inc()
}

func (w *worker) onVoided(ctx context.Context, ev inspect.ResponseEvent) {
	mVoidedSeen.Inc()
	if err := w.store.DeleteByResponse(ctx, ev.ResponseID); err != nil {
		mErrors("deindex").Inc()
		w.log.Error("de-index voided response failed", "response_id", ev.ResponseID, "err", err)
		return
	}
	w.log.Info("voided response de-indexed", "response_id", ev.ResponseID)
}
