package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"stampcard/internal/models"
	"stampcard/internal/repositories/interfaces"
	"stampcard/pkg/logger"
	"stampcard/pkg/metrics"
	"stampcard/pkg/push"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventBus fans events out across server instances. The Redis cache
// implements it.
type EventBus interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// RealtimeDelivery pushes an event to a user's open websocket connections.
type RealtimeDelivery interface {
	SendUserNotification(userID primitive.ObjectID, notificationType string, data map[string]interface{})
}

type NotificationService interface {
	Notifier

	// Start runs the delivery workers until ctx is done.
	Start(ctx context.Context)
	// StartRealtimeBridge forwards events published by any instance to
	// websocket clients connected to this one.
	StartRealtimeBridge(ctx context.Context) error
	Wait()
}

type NotificationConfig struct {
	QueueSize   int
	Workers     int
	Channel     string
	PushTimeout time.Duration
}

type notificationService struct {
	queue        chan models.Event
	bus          EventBus
	realtime     RealtimeDelivery
	pushProvider push.PushProvider
	customerRepo interfaces.CustomerRepository
	config       NotificationConfig
	metrics      *metrics.LoyaltyMetrics
	logger       *logger.Logger
	wg           sync.WaitGroup
}

// NewNotificationService wires the delivery channels. bus may be nil, in
// which case events go straight to the local websocket hub.
func NewNotificationService(
	bus EventBus,
	realtime RealtimeDelivery,
	pushProvider push.PushProvider,
	customerRepo interfaces.CustomerRepository,
	cfg NotificationConfig,
	log *logger.Logger,
) NotificationService {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = 10 * time.Second
	}
	if pushProvider == nil {
		pushProvider = push.NoopProvider{}
	}

	return &notificationService{
		queue:        make(chan models.Event, cfg.QueueSize),
		bus:          bus,
		realtime:     realtime,
		pushProvider: pushProvider,
		customerRepo: customerRepo,
		config:       cfg,
		metrics:      metrics.Loyalty(),
		logger:       log,
	}
}

func (s *notificationService) NotifyCustomer(customerID primitive.ObjectID, eventType models.EventType, data map[string]interface{}) {
	s.enqueue(newEvent(customerID, models.UserRoleCustomer, eventType, data))
}

func (s *notificationService) NotifyBusiness(businessID primitive.ObjectID, eventType models.EventType, data map[string]interface{}) {
	s.enqueue(newEvent(businessID, models.UserRoleBusiness, eventType, data))
}

// enqueue drops the event when the queue is full. Clients fall back to
// polling, so a lost notification only delays the UI.
func (s *notificationService) enqueue(event models.Event) {
	select {
	case s.queue <- event:
		s.metrics.SetNotificationsQueued(len(s.queue))
	default:
		s.metrics.ObserveNotification("queue", "dropped")
		s.logger.WithFields(logger.Fields{
			"event":   event.Type,
			"user_id": event.UserID.Hex(),
		}).Warn("Notification queue full, dropping event")
	}
}

func (s *notificationService) Start(ctx context.Context) {
	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case event := <-s.queue:
					s.metrics.SetNotificationsQueued(len(s.queue))
					s.deliver(ctx, event)
				}
			}
		}()
	}
}

func (s *notificationService) Wait() {
	s.wg.Wait()
}

func (s *notificationService) deliver(ctx context.Context, event models.Event) {
	s.deliverRealtime(ctx, event)
	if event.Role == models.UserRoleCustomer {
		s.deliverPush(ctx, event)
	}
}

func (s *notificationService) deliverRealtime(ctx context.Context, event models.Event) {
	if s.bus != nil {
		err := s.bus.Publish(ctx, s.config.Channel, event)
		if err == nil {
			s.metrics.ObserveNotification("pubsub", "sent")
			return
		}
		s.metrics.ObserveNotification("pubsub", "failed")
		s.logger.WithError(err).Warn("Failed to publish event, delivering locally")
	}
	s.sendLocal(event)
}

func (s *notificationService) sendLocal(event models.Event) {
	if s.realtime == nil {
		return
	}
	s.realtime.SendUserNotification(event.UserID, string(event.Type), eventPayload(event))
	s.metrics.ObserveNotification("websocket", "sent")
}

func (s *notificationService) deliverPush(ctx context.Context, event models.Event) {
	provider := s.pushProvider.Name()
	if provider == "none" {
		return
	}

	customer, err := s.customerRepo.GetByID(ctx, event.UserID)
	if err != nil {
		s.logger.WithError(err).WithCustomerID(event.UserID).Warn("Failed to load customer for push notification")
		return
	}

	token := customer.FCMToken
	if provider == "apns" {
		token = customer.APNSToken
	}
	if token == "" {
		return
	}

	data := make(map[string]string, len(event.Data)+1)
	data["type"] = string(event.Type)
	for k, v := range event.Data {
		data[k] = fmt.Sprint(v)
	}

	pushCtx, cancel := context.WithTimeout(ctx, s.config.PushTimeout)
	defer cancel()

	_, err = s.pushProvider.SendNotification(pushCtx, &push.NotificationRequest{
		Token:       token,
		Title:       event.Title,
		Body:        event.Message,
		Data:        data,
		Priority:    "high",
		CollapseKey: string(event.Type),
	})
	if err != nil {
		s.metrics.ObserveNotification(provider, "failed")
		s.logger.WithError(err).WithCustomerID(event.UserID).Warn("Failed to send push notification")
		return
	}
	s.metrics.ObserveNotification(provider, "sent")
}

func (s *notificationService) StartRealtimeBridge(ctx context.Context) error {
	if s.bus == nil {
		return nil
	}

	pubsub := s.bus.Subscribe(ctx, s.config.Channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", s.config.Channel, err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event models.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					s.logger.WithError(err).Warn("Discarding malformed event")
					continue
				}
				s.sendLocal(event)
			}
		}
	}()
	return nil
}

var eventText = map[models.EventType][2]string{
	models.EventTokenScanned:     {"Customer checked in", "A customer scanned your QR code"},
	models.EventTokenCompleted:   {"Rewards updated", "Your visit has been recorded"},
	models.EventTokenCancelled:   {"Check-in cancelled", "The business cancelled this QR code"},
	models.EventUserDisconnected: {"Card removed", "A business removed you from its loyalty program"},
}

func newEvent(userID primitive.ObjectID, role models.UserRole, eventType models.EventType, data map[string]interface{}) models.Event {
	text := eventText[eventType]
	return models.Event{
		Type:      eventType,
		UserID:    userID,
		Role:      role,
		Title:     text[0],
		Message:   text[1],
		Data:      data,
		Timestamp: time.Now(),
	}
}

func eventPayload(event models.Event) map[string]interface{} {
	payload := make(map[string]interface{}, len(event.Data)+2)
	for k, v := range event.Data {
		payload[k] = v
	}
	payload["title"] = event.Title
	payload["message"] = event.Message
	return payload
}
