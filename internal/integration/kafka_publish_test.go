//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/quake-felt-service/internal/adapter/filestore"
	"github.com/couchcryptid/quake-felt-service/internal/adapter/kafka"
	"github.com/couchcryptid/quake-felt-service/internal/domain"
	"github.com/couchcryptid/quake-felt-service/internal/estimator"
	"github.com/couchcryptid/quake-felt-service/internal/observability"
	"github.com/couchcryptid/quake-felt-service/internal/service"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testReportsTopic = "test-felt-reports"

// publishedMessage holds a deserialized message read from the reports topic.
type publishedMessage struct {
	Report  domain.FeltReport
	Key     string
	Headers map[string]string
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("quakefelt-test"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

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

// readPublished reads a single message from the consumer and deserializes it.
func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from reports topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var r domain.FeltReport
	require.NoError(t, json.Unmarshal(msg.Value, &r), "unmarshal report message")

	return publishedMessage{Report: r, Key: string(msg.Key), Headers: headers}
}

// TestSubmitPublishesReport drives the report service with a real file store
// and Kafka writer and reads the published report back from the topic.
func TestSubmitPublishesReport(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testReportsTopic)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	writer := kafka.NewWriter([]string{broker}, testReportsTopic, logger)
	defer writer.Close()

	reg, err := estimator.NewRegression(estimator.DefaultTrees, estimator.DefaultSeed)
	require.NoError(t, err)
	metrics := observability.NewMetricsForTesting()
	svc := service.New(
		filestore.New(filepath.Join(t.TempDir(), "reports.json")),
		estimator.NewSet(estimator.Formula{}, reg),
		writer,
		true,
		clockwork.NewRealClock(),
		logger,
		metrics,
	)

	first, err := svc.Submit(ctx, service.Submission{
		Location:   "Durres",
		Perception: domain.Perception{Shaking: 5, Duration: 4, Objects: 5, Reaction: 5, Damage: 5},
		Strategy:   estimator.StrategyFormula,
	})
	require.NoError(t, err)
	second, err := svc.Submit(ctx, service.Submission{
		Perception: domain.Perception{Shaking: 3, Duration: 3, Objects: 3, Reaction: 3, Damage: 3},
		Strategy:   estimator.StrategyRegression,
	})
	require.NoError(t, err)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testReportsTopic,
		Partition:   0,
		StartOffset: kafkago.FirstOffset,
		MaxWait:     500 * time.Millisecond,
	})
	defer consumer.Close()

	got := readPublished(ctx, t, consumer)
	assert.Equal(t, "1", got.Key)
	assert.Equal(t, first, got.Report)
	assert.Equal(t, "formula", got.Headers["strategy"])
	assert.Equal(t, first.SubmissionTime, got.Headers["submitted_at"])

	got = readPublished(ctx, t, consumer)
	assert.Equal(t, "2", got.Key)
	assert.Equal(t, second, got.Report)
	assert.Equal(t, "regression", got.Headers["strategy"])
}
