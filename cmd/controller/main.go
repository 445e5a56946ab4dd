package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/open-teleop/mission-control/domain/diagnostic"
	"github.com/open-teleop/mission-control/domain/robot"
	"github.com/open-teleop/mission-control/domain/teleop"
	"github.com/open-teleop/mission-control/pkg/api"
	"github.com/open-teleop/mission-control/pkg/config"
	customlog "github.com/open-teleop/mission-control/pkg/log"
	"github.com/open-teleop/mission-control/pkg/mqtt"
	"github.com/open-teleop/mission-control/pkg/processing"
	"github.com/open-teleop/mission-control/pkg/zeromq"
	"github.com/open-teleop/mission-control/services"
)

func main() {
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "./config"
	}

	bootstrapCfg, err := config.LoadBootstrapConfig(configDir)
	if err != nil {
		log.Fatalf("Failed to load bootstrap config from %s: %v", configDir, err)
	}

	appLogger, err := customlog.NewLogrusLogger(bootstrapCfg.Logging.Level, bootstrapCfg.Logging.LogPath)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	appLogger.Infof("Mission control starting (config dir %s)", configDir)

	configService, err := services.NewTeleopConfigService(bootstrapCfg.Data.TeleopConfigPath(), appLogger.WithField("component", "config"))
	if err != nil {
		appLogger.Fatalf("Failed to create teleop config service: %v", err)
	}

	registry := robot.NewRegistry()
	topicRegistry := processing.NewTopicRegistry(appLogger.WithField("component", "topics"))
	applyConfig := func(cfg *config.Config) {
		n := registry.LoadFromConfig(cfg.Fleet, services.ArenaFromConfig(cfg))
		topicRegistry.LoadFromConfig(cfg)
		appLogger.Infof("Applied config %s: %d new robots, %d total", cfg.ConfigID, n, registry.Count())
	}
	if cfg := configService.GetCurrentConfig(); cfg != nil {
		applyConfig(cfg)
	}
	configService.AddListener(applyConfig)

	statePool := processing.NewEventPool("state",
		bootstrapCfg.Processing.StateWorkers,
		bootstrapCfg.Processing.QueueSize,
		topicRegistry,
		appLogger.WithField("component", "pool"))
	statePool.AddSink(processing.NewLoggingSink(appLogger.WithField("component", "state")))

	leases := teleop.NewLeaseManager()
	diagnosticService := diagnostic.NewDiagnosticService(diagnostic.Sources{
		Robots: registry,
		Leases: leases,
		Pool:   statePool,
		Topics: topicRegistry,
	})

	var zmqService *zeromq.ZeroMQService
	if bootstrapCfg.ZeroMQ.Enabled {
		zmqService, err = zeromq.NewZeroMQService(bootstrapCfg.ZeroMQ, appLogger.WithField("component", "zeromq"))
		if err != nil {
			appLogger.Fatalf("Failed to create ZeroMQ service: %v", err)
		}
		configPublisher := zeromq.RegisterHandlers(zmqService, configService.GetCurrentConfig, registry, appLogger.WithField("component", "zeromq"))
		configService.SetPublisher(configPublisher)
		statePool.AddSink(zeromq.NewStateSink(zmqService))

		if err := zmqService.Start(); err != nil {
			appLogger.Fatalf("Failed to start ZeroMQ service: %v", err)
		}
		diagnosticService.SetTransport("zeromq", true)
	}

	var mqttClient *mqtt.Client
	if bootstrapCfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(bootstrapCfg.MQTT, appLogger.WithField("component", "mqtt"))
		if err != nil {
			// Observers are optional; control keeps working without them.
			appLogger.Warnf("MQTT state publication disabled: %v", err)
			diagnosticService.SetTransport("mqtt", false)
		} else {
			statePool.AddSink(mqtt.NewStateSink(mqttClient, mqttClient.Topics(), byte(bootstrapCfg.MQTT.QoS)))
			diagnosticService.SetTransport("mqtt", true)
		}
	}

	statePool.Start()

	teleopService := teleop.NewTeleopService(registry, configService.Arena, leases, statePool, appLogger.WithField("component", "teleop"))

	app := fiber.New(fiber.Config{
		AppName:      "Mission Control",
		ErrorHandler: customErrorHandler,
	})
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "online",
			"service": "mission control",
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	app.Get("/api/diagnostics", diagnosticService.GetMetricsHandler)

	api.RegisterRobotRoutes(app, registry, appLogger.WithField("component", "api"))
	api.RegisterConfigRoutes(app, configService, appLogger.WithField("component", "api"))
	api.RegisterControlRoutes(app, teleopService, registry, appLogger.WithField("component", "control"))

	addr := fmt.Sprintf(":%d", bootstrapCfg.Server.HTTPPort)
	go func() {
		appLogger.Infof("Server starting on %s", addr)
		if err := app.Listen(addr); err != nil {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Infof("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		appLogger.Errorf("Server forced to shutdown: %v", err)
	}

	// Stop producers before sinks so queued events drain.
	statePool.Stop()
	if zmqService != nil {
		zmqService.Stop()
	}
	if mqttClient != nil {
		if err := mqttClient.Close(); err != nil {
			appLogger.Warnf("Error closing MQTT client: %v", err)
		}
	}

	appLogger.Infof("Server exited properly")
}

// customErrorHandler renders every unhandled error as a JSON body.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(api.ErrorResponse{
		Error: err.Error(),
	})
}
