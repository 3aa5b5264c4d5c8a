package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/squadopt/core/metrics"
	"github.com/kilianp07/squadopt/infra/logger"
)

// InfluxConfig holds the InfluxDB connection settings.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes optimization runs to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordSolve writes one squad_solve point per run.
func (s *InfluxSink) RecordSolve(ev coremetrics.SolveEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("squad_solve").
		AddTag("run_id", ev.RunID).
		AddTag("criterion", ev.Criterion).
		AddTag("formation", ev.Formation).
		AddTag("status", ev.Status).
		AddField("objective", round3(ev.Objective)).
		AddField("cost", round3(ev.Cost)).
		AddField("budget", round3(ev.Budget)).
		AddField("nodes", ev.Nodes).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSquad writes one squad_selection point per selected player.
func (s *InfluxSink) RecordSquad(ev coremetrics.SquadEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, pl := range ev.Players {
		p := write.NewPointWithMeasurement("squad_selection").
			AddTag("run_id", ev.RunID).
			AddTag("criterion", ev.Criterion).
			AddTag("player_id", pl.ID).
			AddTag("team", pl.Team).
			AddTag("position", pl.Position).
			AddTag("role", pl.Role).
			AddField("name", pl.Name).
			AddField("cost", round3(pl.Cost)).
			AddField("score", round3(pl.Score)).
			SetTime(ev.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Flush closes the underlying client. The blocking write API has nothing
// buffered, so the sink is unusable afterwards.
func (s *InfluxSink) Flush() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
