package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"sentinel-worker-go/internal/config"
	"sentinel-worker-go/internal/incidents"
	"sentinel-worker-go/internal/models"
	"sentinel-worker-go/internal/services/agent"
	"sentinel-worker-go/internal/services/classifier"
	"sentinel-worker-go/internal/services/evidence"
	"sentinel-worker-go/internal/services/messaging"
	"sentinel-worker-go/internal/services/pipeline"
)

// ServiceContainer holds all services
type ServiceContainer struct {
	Config        *config.Config
	ClassifierSvc *classifier.Service
	AgentSvc      *agent.Service
	EvidenceSvc   *evidence.Service
	MessagingSvc  *messaging.Service
	Tracker       *incidents.Tracker
	PipelineSvc   *pipeline.Service
}

// NewServiceContainer creates a new service container
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	classifierSvc := classifier.NewService(cfg)
	agentSvc := agent.NewService(cfg)

	evidenceSvc, err := evidence.NewService(cfg)
	if err != nil {
		return nil, err
	}

	// NATS fan-out is optional; alerting still works without a broker
	var messagingSvc *messaging.Service
	if cfg.NatsEnabled {
		messagingSvc, err = messaging.NewService(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, continuing without alert fan-out")
			messagingSvc = nil
		}
	}

	tracker := incidents.NewTracker(cfg.IncidentHistorySize)

	// Typed-nil guard: the pipeline checks the interface against nil
	var publisher models.MessagePublisher
	if messagingSvc != nil {
		publisher = messagingSvc
	}
	pipelineSvc := pipeline.NewService(cfg, classifierSvc, agentSvc, evidenceSvc, publisher, tracker)

	return &ServiceContainer{
		Config:        cfg,
		ClassifierSvc: classifierSvc,
		AgentSvc:      agentSvc,
		EvidenceSvc:   evidenceSvc,
		MessagingSvc:  messagingSvc,
		Tracker:       tracker,
		PipelineSvc:   pipelineSvc,
	}, nil
}

// Shutdown gracefully shuts down all services, waiting for in-flight
// dispatches before closing the broker connection.
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	if sc.PipelineSvc != nil {
		if err := sc.PipelineSvc.WaitDispatches(ctx); err != nil {
			log.Warn().Err(err).Msg("Timed out waiting for in-flight dispatches")
		}
	}

	if sc.MessagingSvc != nil {
		if err := sc.MessagingSvc.Shutdown(ctx); err != nil {
			return err
		}
	}

	return nil
}
