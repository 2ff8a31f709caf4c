package bootstrap

import (
	"context"
	"log"
	"time"

	"leadpilot-be/internal/config"
	"leadpilot-be/internal/controller"
	"leadpilot-be/internal/pkg/logger"
	"leadpilot-be/internal/repository/unitofwork"
	"leadpilot-be/internal/service"
	"leadpilot-be/pkg/cache"
	"leadpilot-be/pkg/clock"
	"leadpilot-be/pkg/crm"
	"leadpilot-be/pkg/orchestration/buffer"
	"leadpilot-be/pkg/orchestration/followup"
	"leadpilot-be/pkg/orchestration/handoff"
	"leadpilot-be/pkg/orchestration/keylock"
	"leadpilot-be/pkg/orchestration/pacer"
	"leadpilot-be/pkg/reasoning"
	"leadpilot-be/pkg/transport"

	pktNats "leadpilot-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const inboundTopic = "conversation.inbound"

type Container struct {
	// Controllers
	WebhookController controller.IWebhookController
	OpsController     controller.IOpsController

	// Background Services (Exposed for main.go to run)
	OrchestratorService service.IOrchestratorService
	FollowUpRunner      service.IFollowUpRunnerService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	clk := clock.NewSystem()

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}

	// Redis-backed shared cache, with in-process fallback when unreachable
	var store cache.Store
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Using in-memory cache", err)
		store = cache.NewMemoryStore()
	} else {
		store = cache.NewRedisStore(rdb)
	}

	// 3. Collaborators
	messenger := transport.NewGatewayMessenger(cfg.Gateway.BaseURL, cfg.Gateway.Token)
	crmClient := crm.NewHTTPClient(
		cfg.CRM.BaseURL,
		cfg.CRM.Token,
		cfg.CRM.HumanAttentionStages,
		cfg.CRM.NotInterestedStages,
		cfg.CRM.MeetingLockedStages,
	)
	llmProvider := reasoning.NewOllamaProvider(cfg.Reasoning.BaseURL, cfg.Reasoning.Model)
	engine := reasoning.NewEngine(llmProvider, cfg.Reasoning.SystemPrompt)
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Reasoning.Provider, cfg.Reasoning.Model)

	// 4. Orchestration core
	locks := keylock.New()

	buf := buffer.New(buffer.Config{
		QuietPeriod:  cfg.Orchestration.QuietPeriod,
		MaxFragments: cfg.Orchestration.MaxFragments,
		SnapshotTTL:  cfg.Orchestration.BufferCacheTTL,
	}, clk, store, sysLogger)

	pace := pacer.New(pacer.Config{
		Min:            cfg.Orchestration.TypingMin,
		Max:            cfg.Orchestration.TypingMax,
		Short:          cfg.Orchestration.TypingShort,
		Medium:         cfg.Orchestration.TypingMedium,
		Long:           cfg.Orchestration.TypingLong,
		ShortMaxRunes:  cfg.Orchestration.TypingShortMaxRunes,
		MediumMaxRunes: cfg.Orchestration.TypingMediumMaxRunes,
	}, clk, messenger, sysLogger)

	gate := handoff.NewMachine(store, crmClient, clk, sysLogger)

	// A typed-nil *Publisher inside the interface would dodge the scheduler's
	// nil check, so only assign when the connection came up.
	var followUpEvents followup.EventPublisher
	if natsPub != nil {
		followUpEvents = natsPub
	}

	businessLoc := loadLocation(cfg.Orchestration.BusinessTimezone)
	scheduler := followup.NewScheduler(
		uowFactory,
		gate,
		engine,
		pace,
		followup.Policy{
			AttemptDelays: cfg.Orchestration.FollowUpDelays,
			Hours: followup.BusinessHours{
				StartHour: cfg.Orchestration.BusinessStartHour,
				EndHour:   cfg.Orchestration.BusinessEndHour,
				Location:  businessLoc,
			},
		},
		clk,
		locks,
		followUpEvents,
		sysLogger,
	)

	// 5. Services
	publisherService := service.NewPublisherService(pubSub, inboundTopic)
	orchestratorService := service.NewOrchestratorService(
		pubSub,
		inboundTopic,
		uowFactory,
		buf,
		pace,
		gate,
		engine,
		scheduler,
		natsPub,
		locks,
		clk,
		service.OrchestratorConfig{
			PauseDuration:  cfg.Orchestration.PauseDuration,
			OptOutKeywords: cfg.Orchestration.OptOutKeywords,
			BotUserId:      cfg.CRM.BotUserId,
		},
		sysLogger,
	)
	followUpRunner := service.NewFollowUpRunnerService(
		scheduler,
		uowFactory,
		clk,
		cfg.Orchestration.FollowUpTick,
		sysLogger,
	)

	// 6. Controllers
	return &Container{
		WebhookController: controller.NewWebhookController(publisherService, orchestratorService),
		OpsController:     controller.NewOpsController(orchestratorService, followUpRunner),

		OrchestratorService: orchestratorService,
		FollowUpRunner:      followUpRunner,
	}
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("[WARN] Unknown business timezone %q, using UTC", name)
		return time.UTC
	}
	return loc
}
