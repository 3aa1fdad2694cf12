package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/portal-billing/internal/domain/errors"
	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
	"github.com/wekeepgrowing/portal-billing/pkg/messaging"
)

type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	args := m.Called(ctx, channel, message)
	return args.Error(0)
}

func (m *MockRedisClient) Subscribe(ctx context.Context, channels ...string) (<-chan messaging.Message, error) {
	args := m.Called(ctx, channels)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan messaging.Message), args.Error(1)
}

func (m *MockRedisClient) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockRedisClient) Close() error {
	return m.Called().Error(0)
}

func TestRedisNotificationPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	n := &model.Notification{UserID: "user-1", Type: model.NotificationTypeSystem, Title: "Pagamento Confirmado"}

	t.Run("publishes to user and global channels", func(t *testing.T) {
		client := new(MockRedisClient)
		client.On("Publish", ctx, "notifications:user-1", n).Return(nil).Once()
		client.On("Publish", ctx, "notifications", n).Return(nil).Once()

		err := NewRedisNotificationPublisher(client, "notifications").Publish(ctx, n)
		assert.NoError(t, err)
		client.AssertExpectations(t)
	})

	t.Run("stops on first failure", func(t *testing.T) {
		client := new(MockRedisClient)
		client.On("Publish", ctx, "notifications:user-1", n).Return(errors.New("connection refused")).Once()

		err := NewRedisNotificationPublisher(client, "notifications").Publish(ctx, n)
		assert.Error(t, err)
		client.AssertNotCalled(t, "Publish", ctx, "notifications", n)
	})

	t.Run("nil notification", func(t *testing.T) {
		err := NewRedisNotificationPublisher(new(MockRedisClient), "notifications").Publish(ctx, nil)
		assert.Error(t, err)
	})
}

func TestRedisNotificationSubscriber_Subscribe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.Run("decodes the user feed", func(t *testing.T) {
		sent := model.Notification{
			ID:      primitive.NewObjectID(),
			UserID:  "user-1",
			Type:    model.NotificationTypeSystem,
			Title:   "Pagamento Confirmado",
			Message: "O teu pagamento de €49.18 foi confirmado com sucesso.",
		}
		payload, err := json.Marshal(sent)
		require.NoError(t, err)

		messages := make(chan messaging.Message, 2)
		messages <- messaging.Message{Channel: "notifications:user-1", Payload: []byte("not json")}
		messages <- messaging.Message{Channel: "notifications:user-1", Payload: payload}
		close(messages)

		client := new(MockRedisClient)
		client.On("Subscribe", ctx, []string{"notifications:user-1"}).
			Return((<-chan messaging.Message)(messages), nil).Once()

		stream, err := NewRedisNotificationSubscriber(client, "notifications", zap.NewNop()).Subscribe(ctx, "user-1")
		require.NoError(t, err)

		got, ok := <-stream
		require.True(t, ok)
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, sent.Title, got.Title)

		_, ok = <-stream
		assert.False(t, ok)
		client.AssertExpectations(t)
	})

	t.Run("subscribe failure", func(t *testing.T) {
		client := new(MockRedisClient)
		client.On("Subscribe", ctx, []string{"notifications:user-1"}).
			Return(nil, errors.New("connection refused")).Once()

		_, err := NewRedisNotificationSubscriber(client, "notifications", zap.NewNop()).Subscribe(ctx, "user-1")
		assert.ErrorContains(t, err, "notifications:user-1")
	})

	t.Run("without redis", func(t *testing.T) {
		_, err := NewNoopSubscriber().Subscribe(ctx, "user-1")
		assert.ErrorIs(t, err, domainErrors.ErrStreamUnavailable)
	})
}
