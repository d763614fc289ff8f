package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techintel-service/service/models"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeRedis struct {
	channel string
	payload interface{}
	err     error
}

func (r *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	r.channel = channel
	r.payload = message
	cmd := redis.NewIntCmd(ctx)
	if r.err != nil {
		cmd.SetErr(r.err)
	} else {
		cmd.SetVal(2)
	}
	return cmd
}

func reloadedEvent() *models.SSEEvent {
	return models.NewSSEEvent(models.EventTypeDatasetReloaded, map[string]interface{}{"new_version": "v2"})
}

func TestKafkaConnector_Publish(t *testing.T) {
	writer := &fakeWriter{}
	kc := &KafkaConnector{
		config: &models.KafkaConfig{Topic: "datasets", CustomHeaders: map[string]string{"service": "techintel"}},
		writer: writer,
	}
	assert.Equal(t, "kafka", kc.Name())

	event := reloadedEvent()
	require.NoError(t, kc.Publish(context.Background(), event))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, models.EventTypeDatasetReloaded, string(msg.Key))
	assert.Len(t, msg.Headers, 2)

	var decoded models.SSEEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, int64(1), kc.GetStatistics().MessagesSent)

	writer.err = errors.New("leader not available")
	assert.Error(t, kc.Publish(context.Background(), event))
	assert.Equal(t, "leader not available", kc.GetStatistics().LastError)

	require.NoError(t, kc.Close())
	assert.True(t, writer.closed)
}

func TestRedisConnector_Publish(t *testing.T) {
	fake := &fakeRedis{}
	rc := &RedisConnector{client: fake, channel: DefaultRedisChannel}

	require.NoError(t, rc.Publish(context.Background(), reloadedEvent()))
	assert.Equal(t, DefaultRedisChannel, fake.channel)
	assert.Contains(t, string(fake.payload.([]byte)), models.EventTypeDatasetReloaded)
	assert.Equal(t, int64(1), rc.GetStatistics().MessagesSent)

	fake.err = errors.New("connection refused")
	assert.Error(t, rc.Publish(context.Background(), reloadedEvent()))
}

func TestNewRedisConnector_DefaultChannel(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	rc := NewRedisConnector(client, "")
	assert.Equal(t, DefaultRedisChannel, rc.channel)
	assert.Equal(t, "redis", rc.Name())
}

func TestMQTTConnector_PublishRequiresConnection(t *testing.T) {
	mc := NewMQTTConnector(&models.MQTTConfig{Broker: "tcp://localhost:1883", ClientID: "test", Topic: "datasets"})
	assert.Equal(t, "mqtt", mc.Name())
	assert.False(t, mc.IsConnected())

	err := mc.Publish(context.Background(), reloadedEvent())
	assert.ErrorIs(t, err, ErrNotConnected)

	mc.Disconnect()
	assert.Zero(t, mc.GetStatistics().MessagesSent)
}
