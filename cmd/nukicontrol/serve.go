package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/nuki-control/internal/api"
	"github.com/nerrad567/nuki-control/internal/bridges/nuki"
	"github.com/nerrad567/nuki-control/internal/infrastructure/config"
	"github.com/nerrad567/nuki-control/internal/infrastructure/logging"
	"github.com/nerrad567/nuki-control/internal/infrastructure/mqtt"
	"github.com/nerrad567/nuki-control/internal/locale"
)

// serveCommand runs the long-lived service.
type serveCommand struct {
	app *app
}

// Execute implements flags.Commander.
func (c *serveCommand) Execute(_ []string) error {
	ctx := c.app.ctx

	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting nukicontrol",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := c.app.loadConfig()
	if err != nil {
		return err
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", c.app.opts.Config,
		"lock", cfg.Identity(),
		"level", cfg.Logging.Level,
	)

	s, err := buildStack(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer s.Close()

	server, err := api.New(api.Deps{
		Config:    cfg.API,
		Security:  cfg.Security,
		Logger:    log,
		Service:   s.controller,
		AuditRepo: s.auditRepo,
		Location:  cfg.Location(),
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if cfg.MQTT.Enabled {
		mqttClient, bridge, err := startMQTTBridge(ctx, cfg, s.controller, log)
		if err != nil {
			return err
		}
		// Stop the bridge before the broker connection goes away so its
		// final health status is delivered.
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		defer bridge.Stop()
	} else {
		log.Info("MQTT disabled")
	}

	if err := s.healthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal", "api", server.Addr())

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// startMQTTBridge connects to the broker with the bridge's Last Will and
// starts the command and request handlers.
func startMQTTBridge(ctx context.Context, cfg *config.Config, svc nuki.Service, log *logging.Logger) (*mqtt.Client, *nuki.Bridge, error) {
	topics := nuki.Topics{Prefix: cfg.MQTT.TopicPrefix, DeviceID: cfg.Nuki.ID}

	// The will must be registered before connecting, so it is derived from
	// a reporter that is never started.
	lwt := nuki.NewHealthReporter(nuki.HealthReporterConfig{
		DeviceID: cfg.Nuki.ID,
		Topic:    topics.Health(),
	})
	payload, err := lwt.LWTPayload()
	if err != nil {
		return nil, nil, fmt.Errorf("building MQTT will: %w", err)
	}

	//nolint:gosec // G115: QoS validated to 0-2 by config
	qos := byte(cfg.MQTT.QoS)

	mqttClient, err := mqtt.Connect(cfg.MQTT, &mqtt.Will{
		Topic:   lwt.LWTTopic(),
		Payload: payload,
		QoS:     qos,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	bridge, err := nuki.NewBridge(nuki.BridgeOptions{
		Service:        svc,
		MQTTClient:     &mqttBridgeAdapter{client: mqttClient},
		DeviceID:       cfg.Nuki.ID,
		TopicPrefix:    cfg.MQTT.TopicPrefix,
		QoS:            qos,
		Labels:         locale.NewNegotiator(cfg.API.Language).Default().Summary,
		Location:       cfg.Location(),
		Version:        version,
		HealthInterval: time.Duration(cfg.MQTT.HealthInterval) * time.Second,
		Logger:         log,
	})
	if err != nil {
		_ = mqttClient.Close()
		return nil, nil, fmt.Errorf("creating MQTT bridge: %w", err)
	}

	if err := bridge.Start(ctx); err != nil {
		bridge.Stop()
		_ = mqttClient.Close()
		return nil, nil, fmt.Errorf("starting MQTT bridge: %w", err)
	}
	log.Info("MQTT bridge started", "command_topic", topics.Command())

	return mqttClient, bridge, nil
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to
// nuki.MQTTClient. Bridge handlers report failures on the ack topic
// themselves, so they return nothing.
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements nuki.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements nuki.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements nuki.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
