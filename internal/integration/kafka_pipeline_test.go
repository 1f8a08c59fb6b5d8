//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/venue-locator-service/internal/adapter/kafka"
	"github.com/couchcryptid/venue-locator-service/internal/config"
	"github.com/couchcryptid/venue-locator-service/internal/domain"
	"github.com/couchcryptid/venue-locator-service/internal/observability"
	"github.com/couchcryptid/venue-locator-service/internal/pipeline"
)

const (
	testSourceTopic = "test-activities"
	testSinkTopic   = "test-activities-enriched"
)

// stubLocator resolves every label to Axiata Arena and every point to the
// same venue.
type stubLocator struct{}

var arena = domain.Coordinate{
	ID:        "openstreetmap:venue:way/1",
	Layer:     domain.LayerVenue,
	Name:      "Axiata Arena",
	Label:     "Axiata Arena, Bukit Jalil, Kuala Lumpur, Malaysia",
	Latitude:  3.0545,
	Longitude: 101.6912,
	City:      "Kuala Lumpur",
	Country:   "Malaysia",
}

func (stubLocator) Search(context.Context, string, int) []domain.Coordinate {
	return []domain.Coordinate{arena}
}

func (stubLocator) ReverseLookup(context.Context, float64, float64) (domain.Coordinate, bool) {
	return arena, true
}

type enrichedMessage struct {
	Venue   domain.ActivityVenue
	Key     string
	Headers map[string]string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("venue-locator-test"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 2 * time.Second,
	}
}

func publish(ctx context.Context, t *testing.T, broker string, msgs ...kafkago.Message) {
	t.Helper()
	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, msgs...))
}

func activity(t *testing.T, v domain.ActivityVenue) kafkago.Message {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return kafkago.Message{Key: []byte(v.ID), Value: data}
}

func sinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

func readEnriched(ctx context.Context, t *testing.T, consumer *kafkago.Reader) enrichedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var v domain.ActivityVenue
	require.NoError(t, json.Unmarshal(msg.Value, &v), "unmarshal sink message")
	return enrichedMessage{Venue: v, Key: string(msg.Key), Headers: headers}
}

func runPipeline(ctx context.Context, t *testing.T, cfg *config.Config) func() {
	t.Helper()
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(reader, pipeline.NewTransformer(stubLocator{}, discardLogger()), writer,
		discardLogger(), observability.NewMetricsForTesting(), 50)

	pctx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pctx) }()

	return func() {
		cancel()
		require.NoError(t, <-errCh)
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	lat, lon := 3.0545, 101.6912
	publish(ctx, t, broker,
		activity(t, domain.ActivityVenue{ID: "act-fwd", ClubID: "club-1", Location: "Axiata Arena"}),
		activity(t, domain.ActivityVenue{ID: "act-rev", ClubID: "club-1", LocationLat: &lat, LocationLon: &lon}),
		activity(t, domain.ActivityVenue{ID: "act-orig", ClubID: "club-2", Location: "Court 3", LocationLat: &lat, LocationLon: &lon}),
	)

	stop := runPipeline(ctx, t, testConfig(broker, "test-pipeline"))
	consumer := sinkConsumer(t, broker)

	received := map[string]enrichedMessage{}
	for len(received) < 3 {
		m := readEnriched(ctx, t, consumer)
		received[m.Key] = m
	}
	stop()

	fwd := received["act-fwd"]
	assert.Equal(t, domain.GeoSourceForward, fwd.Venue.GeoSource)
	assert.Equal(t, domain.GeoSourceForward, fwd.Headers["geo_source"])
	require.NotNil(t, fwd.Venue.LocationLat)
	assert.InDelta(t, 3.0545, *fwd.Venue.LocationLat, 1e-9)
	assert.Equal(t, "Kuala Lumpur", fwd.Venue.City)

	rev := received["act-rev"]
	assert.Equal(t, domain.GeoSourceReverse, rev.Venue.GeoSource)
	assert.Equal(t, arena.Label, rev.Venue.Location)

	orig := received["act-orig"]
	assert.Equal(t, domain.GeoSourceOriginal, orig.Venue.GeoSource)
	assert.Equal(t, "Court 3", orig.Venue.Location)

	for _, m := range received {
		_, err := time.Parse(time.RFC3339, m.Headers["enriched_at"])
		assert.NoError(t, err, "enriched_at should be RFC3339")
	}
}

// A message that cannot be parsed is committed and skipped; later messages
// still flow.
func TestPipelineSkipsPoisonMessage(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	publish(ctx, t, broker,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		activity(t, domain.ActivityVenue{ID: "act-good", ClubID: "club-1", Location: "Axiata Arena"}),
	)

	stop := runPipeline(ctx, t, testConfig(broker, "test-poison"))
	consumer := sinkConsumer(t, broker)

	m := readEnriched(ctx, t, consumer)
	assert.Equal(t, "act-good", m.Key)

	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on sink topic")

	stop()
}
