package main

import (
	"context"
	"os"

	disputehandler "meetproof/internal/disputes/handler"
	disputeservice "meetproof/internal/disputes/service"
	"meetproof/internal/settlements/processor"
	settlements "meetproof/internal/settlements/service"
	"meetproof/internal/verifications/handler"
	"meetproof/internal/verifications/repository"
	"meetproof/internal/verifications/service"
	"meetproof/internal/verifications/validator"
	"meetproof/pkg/app"
	"meetproof/pkg/config"
	"meetproof/pkg/events"
	"meetproof/pkg/kafka"
	kafka_config "meetproof/pkg/kafka/config"
	kafka_middleware "meetproof/pkg/kafka/middleware"
)

const ServiceName = "verifications"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Verifications service")

	publisher, producer := initPublisher(cfg)
	if producer != nil {
		defer producer.Close()
	}

	verificationService, disputeService := initServices(cfg, publisher)

	sweeper := disputeservice.NewSweepWorker(disputeService, cfg.DisputeSweepInterval, cfg.Log)
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go sweeper.Run(sweepCtx)

	serverApp := app.NewApplication()
	serverApp.SetApp(cfg,
		handler.NewVerificationHandler(verificationService, cfg.Log),
		disputehandler.NewDisputeHandler(disputeService, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher events.Publisher) (service.VerificationService, disputeservice.DisputeService) {
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	verificationRepo := repository.NewMongoVerificationRepository(cfg)
	lockRepo := repository.NewVerificationLockRepository(cfg)
	verificationValidator := validator.NewVerificationValidator(cfg.Log, cfg.OTPCodeLength)

	proc, err := processor.NewOmiseProcessor(cfg.OmisePublicKey, cfg.OmiseSecretKey)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize payment processor", "error", err)
	}

	cfg.Client.SetPayout(cfg.PayoutServiceURL)

	settlementService := settlements.NewSettlementService(
		bookingRepo,
		proc,
		cfg.Client.Payout,
		publisher,
		cfg,
	)

	verificationService := service.NewVerificationService(
		bookingRepo,
		verificationRepo,
		lockRepo,
		verificationValidator,
		settlementService,
		publisher,
		cfg,
	)

	disputeService := disputeservice.NewDisputeService(
		bookingRepo,
		lockRepo,
		settlementService,
		cfg.Client.Payout,
		publisher,
		cfg,
	)

	cfg.Log.Info("Verification services initialized", "database", cfg.MongoDatabaseName)
	return verificationService, disputeService
}

// initPublisher returns a Kafka-backed event publisher when brokers are
// configured, and a no-op publisher otherwise. Event delivery is always
// best-effort; a missing broker never blocks verification.
func initPublisher(cfg *config.Config) (events.Publisher, *kafka.Producer) {
	if os.Getenv(kafka_config.EnvKafkaBrokers) == "" {
		cfg.Log.Warn("KAFKA_BROKERS not set; booking events will not be published")
		return events.NoopPublisher{}, nil
	}

	kafkaCfg := kafka_config.Load()
	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.EventsTopic, kafkaCfg.DLQTopic)
	if err != nil {
		cfg.Log.Error("Failed to initialize Kafka producer; falling back to no-op publisher", "error", err)
		return events.NoopPublisher{}, nil
	}

	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware())
	}

	return events.NewKafkaPublisher(producer, ServiceName, cfg.Log), producer
}
