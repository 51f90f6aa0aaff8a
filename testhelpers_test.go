//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/myfocus-app/service-billing/internal/adapter"
	"github.com/myfocus-app/service-billing/internal/application"
	billingEvents "github.com/myfocus-app/service-billing/internal/events"
	"github.com/myfocus-app/service-billing/internal/kafka"
	"github.com/myfocus-app/service-billing/internal/repository"
	"github.com/myfocus-app/service-billing/internal/saga"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// billingStack holds the wired-up billing service components.
type billingStack struct {
	PaymentService      *application.PaymentService
	SubscriptionService *application.SubscriptionService
	PromoService        *application.PromoService
	Consumer            *billingEvents.UserEventConsumer
	CleanupProducer     func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_billing",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_billing sslmode=disable", pgHost, pgPort.Port())

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, db.AutoMigrate(
		&repository.PromoModel{},
		&repository.PaymentModel{},
		&repository.SubscriptionModel{},
	))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers, billingEvents.TopicUserEvents, billingEvents.TopicBillingEvents)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupBillingStack wires up the full billing service stack against the mock gateway.
func setupBillingStack(t *testing.T, db *gorm.DB, brokers []string) *billingStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	promoRepo := repository.NewGormPromoRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	subRepo := repository.NewGormSubscriptionRepository(db)
	gateway := adapter.NewMockGateway(logger)
	producer := kafka.NewProducer(brokers, logger)

	sagaSvc := saga.NewPaymentSagaService(paymentRepo, promoRepo, gateway, producer, logger)
	promoSvc := application.NewPromoService(promoRepo, logger)
	paymentSvc := application.NewPaymentService(paymentRepo, subRepo, promoSvc, sagaSvc, producer, logger)
	subSvc := application.NewSubscriptionService(subRepo, logger)

	groupID := fmt.Sprintf("test-billing-%s", uuid.New().String()[:8])
	consumer := billingEvents.NewUserEventConsumer(brokers, groupID, subSvc, logger)

	return &billingStack{
		PaymentService:      paymentSvc,
		SubscriptionService: subSvc,
		PromoService:        promoSvc,
		Consumer:            consumer,
		CleanupProducer:     func() { _ = producer.Close() },
	}
}

// seedPendingPayment inserts a pending payment row for webhook tests.
func seedPendingPayment(t *testing.T, db *gorm.DB, userID uuid.UUID, planType, gatewayPaymentID string, amount int64) uuid.UUID {
	t.Helper()
	paymentID := uuid.New()
	now := time.Now().UTC()
	model := repository.PaymentModel{
		ID:               paymentID,
		UserID:           userID,
		GatewayPaymentID: gatewayPaymentID,
		Amount:           amount,
		Currency:         "RUB",
		Status:           "pending",
		PlanType:         planType,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, db.Create(&model).Error, "failed to seed payment")
	return paymentID
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForSubscription polls the subscriptions table until a row with the
// expected status exists for the user.
func waitForSubscription(t *testing.T, db *gorm.DB, userID uuid.UUID, expectedStatus string, timeout time.Duration) repository.SubscriptionModel {
	t.Helper()
	var result repository.SubscriptionModel
	require.Eventually(t, func() bool {
		var model repository.SubscriptionModel
		err := db.Where("user_id = ? AND status = ?", userID, expectedStatus).First(&model).Error
		if err != nil {
			return false
		}
		result = model
		return true
	}, timeout, 200*time.Millisecond, "no %s subscription appeared for user", expectedStatus)
	return result
}

// countSubscriptions counts the user's rows in the given statuses.
func countSubscriptions(t *testing.T, db *gorm.DB, userID uuid.UUID, statuses ...string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&repository.SubscriptionModel{}).
		Where("user_id = ? AND status IN ?", userID, statuses).
		Count(&count).Error)
	return count
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
