package main

import (
	"context"

	appointmenthandler "navalha/internal/appointments/handler"
	appointmentrepo "navalha/internal/appointments/repository"
	appointmentservice "navalha/internal/appointments/service"
	appointmentvalidator "navalha/internal/appointments/validator"
	"navalha/internal/availability"
	crossunithandler "navalha/internal/crossunit/handler"
	crossunitrepo "navalha/internal/crossunit/repository"
	crossunitservice "navalha/internal/crossunit/service"
	paymenthandler "navalha/internal/payments/handler"
	paymentrepo "navalha/internal/payments/repository"
	paymentservice "navalha/internal/payments/service"
	paymentvalidator "navalha/internal/payments/validator"
	queuehandler "navalha/internal/queue/handler"
	queuerepo "navalha/internal/queue/repository"
	queueservice "navalha/internal/queue/service"
	queuevalidator "navalha/internal/queue/validator"
	"navalha/internal/realtime"
	unithandler "navalha/internal/units/handler"
	unitrepo "navalha/internal/units/repository"
	unitservice "navalha/internal/units/service"
	unitvalidator "navalha/internal/units/validator"
	"navalha/pkg/app"
	"navalha/pkg/config"
	"navalha/pkg/contracts"
	"navalha/pkg/kafka"
	kafka_config "navalha/pkg/kafka/config"
	"navalha/pkg/model"
	"navalha/pkg/tenant"

	"github.com/julienschmidt/httprouter"
)

// routes fans RegisterRoutes out to every feature handler.
type routes []contracts.Handler

func (r routes) RegisterRoutes(router *httprouter.Router) {
	for _, h := range r {
		h.RegisterRoutes(router)
	}
}

// scheduleFunc adapts a closure to the orchestrator's Scheduler interface,
// so the orchestrator can be built before the appointment service that
// both feeds it and listens to it.
type scheduleFunc func(ctx context.Context, scope tenant.Scope, appt *model.Appointment) error

func (f scheduleFunc) Schedule(ctx context.Context, scope tenant.Scope, appt *model.Appointment) error {
	return f(ctx, scope, appt)
}

func main() {
	cfg := config.Load("scheduling")
	cfg.SetMongo()
	cfg.SetRedis()

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Failed to load Kafka configuration", "error", err)
	}

	syncProducer, err := kafka.NewProducer(kafkaCfg, cfg.RealtimeTopic, cfg.RealtimeDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create realtime producer", "error", err)
	}
	notificationProducer, err := kafka.NewProducer(kafkaCfg, cfg.NotificationsTopic, cfg.RealtimeDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create notifications producer", "error", err)
	}
	broadcaster := realtime.NewBroadcaster(syncProducer, notificationProducer, cfg.Log)

	guard := tenant.NewGuard(cfg.Log)

	unitsService := unitservice.NewUnitsService(
		unitrepo.NewMongoUnitRepository(cfg),
		unitrepo.NewMongoProfessionalRepository(cfg),
		unitrepo.NewMongoServiceRepository(cfg),
		unitrepo.NewMongoClientRepository(cfg),
		unitvalidator.NewUnitValidator(),
		guard,
		cfg,
	)

	appointmentRepo := appointmentrepo.NewMongoAppointmentRepository(cfg)
	lockRepo := appointmentrepo.NewReservationLockRepository(cfg)
	resolver := availability.NewResolver(appointmentRepo, unitsService, cfg)

	queueService := queueservice.NewQueueService(
		queuerepo.NewMongoQueueRepository(cfg),
		queuerepo.NewQueueStateRepository(cfg),
		lockRepo,
		unitsService,
		queuevalidator.NewQueueValidator(cfg.Log),
		broadcaster,
		cfg,
	)

	// The appointment service and the orchestrator reference each other:
	// the orchestrator schedules through the service, the service reports
	// completions back for commission recording. The closure breaks the
	// construction cycle.
	var appointmentService appointmentservice.AppointmentService
	orchestrator := crossunitservice.NewOrchestrator(
		scheduleFunc(func(ctx context.Context, scope tenant.Scope, appt *model.Appointment) error {
			return appointmentService.Schedule(ctx, scope, appt)
		}),
		unitsService,
		unitsService,
		crossunitrepo.NewCommissionRepository(cfg),
		broadcaster,
		cfg,
	)

	appointmentService = appointmentservice.NewAppointmentService(
		appointmentRepo,
		lockRepo,
		resolver,
		unitsService,
		appointmentvalidator.NewAppointmentValidator(cfg.Log),
		broadcaster,
		cfg,
		queueService,
		orchestrator,
	)

	paymentService := paymentservice.NewPaymentService(
		paymentrepo.NewPaymentEventRepository(cfg),
		unitsService,
		paymentvalidator.NewWebhookValidator(cfg.Log),
		cfg.Log,
	)

	sweeper := appointmentservice.NewLockSweeper(lockRepo, cfg)
	if err := sweeper.Start(); err != nil {
		cfg.Log.Fatal("Failed to start lock sweeper", "error", err)
	}

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	notificationConsumer, err := realtime.NewNotificationConsumer(
		kafkaCfg,
		cfg.NotificationsTopic,
		cfg.RealtimeDLQTopic,
		cfg.Log,
		func(_ context.Context, event realtime.Event) error {
			cfg.Log.Info("Notification delivered",
				"type", event.Type,
				"unit_id", event.UnitID,
			)
			return nil
		},
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create notification consumer", "error", err)
	}
	go func() {
		if err := notificationConsumer.Start(consumerCtx); err != nil && consumerCtx.Err() == nil {
			cfg.Log.Error("Notification consumer stopped", "error", err)
		}
	}()

	application := app.NewApplication()
	application.SetApp(cfg,
		routes{
			appointmenthandler.NewAppointmentHandler(appointmentService, cfg.Log),
			queuehandler.NewQueueHandler(queueService, cfg.Log),
			crossunithandler.NewCrossUnitHandler(orchestrator, cfg.Log),
			unithandler.NewUnitsHandler(unitsService, cfg.Log),
		},
		paymenthandler.NewWebhookHandler(paymentService, cfg.Log),
	)

	application.Run(
		func() { sweeper.Stop() },
		func() {
			stopConsumer()
			_ = notificationConsumer.Close()
		},
		func() {
			_ = syncProducer.Close()
			_ = notificationProducer.Close()
		},
		func() { cfg.Client.GracefulShutdown() },
	)
}
