package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/allisson/keycore/internal/alert/publisher"
	alertUseCase "github.com/allisson/keycore/internal/alert/usecase"
)

// alertContainer holds the alert dispatch pipeline: publishers and the
// dispatcher worker.
type alertContainer struct {
	pubsubPublisher *publisher.PubSubPublisher
	publishers      []publisher.Publisher
	dispatcher      *alertUseCase.DispatcherUseCase

	publishersInit sync.Once
	dispatcherInit sync.Once
}

// Publishers returns the configured alert publishers. An empty slice means
// alerts are stored but never dispatched anywhere.
func (c *Container) Publishers(ctx context.Context) ([]publisher.Publisher, error) {
	var err error
	c.publishersInit.Do(func() {
		c.publishers, err = c.initPublishers(ctx)
		if err != nil {
			c.initErrors["publishers"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["publishers"]; exists {
		return nil, storedErr
	}
	return c.publishers, nil
}

// AlertDispatcher returns the alert dispatcher worker instance.
func (c *Container) AlertDispatcher(ctx context.Context) (*alertUseCase.DispatcherUseCase, error) {
	var err error
	c.dispatcherInit.Do(func() {
		c.dispatcher, err = c.initAlertDispatcher(ctx)
		if err != nil {
			c.initErrors["dispatcher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["dispatcher"]; exists {
		return nil, storedErr
	}
	return c.dispatcher, nil
}

// initPublishers creates the alert publishers from the application configuration.
func (c *Container) initPublishers(ctx context.Context) ([]publisher.Publisher, error) {
	var publishers []publisher.Publisher

	if c.config.AlertTopicURL != "" {
		pub, err := publisher.NewPubSubPublisher(ctx, c.config.AlertTopicURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open alert topic: %w", err)
		}
		c.pubsubPublisher = pub
		publishers = append(publishers, pub)
	}

	if c.config.AlertWebhookURL != "" {
		publishers = append(publishers, publisher.NewWebhookPublisher(c.config.AlertWebhookURL, 0))
	}

	return publishers, nil
}

// initAlertDispatcher creates the alert dispatcher with all its dependencies.
func (c *Container) initAlertDispatcher(ctx context.Context) (*alertUseCase.DispatcherUseCase, error) {
	alertRepo, err := c.AlertRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get alert repository for dispatcher: %w", err)
	}

	publishers, err := c.Publishers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get publishers for dispatcher: %w", err)
	}

	dispatcherConfig := alertUseCase.Config{
		Interval:    c.config.AlertDispatchInterval,
		BatchSize:   c.config.AlertDispatchBatchSize,
		MaxAttempts: c.config.AlertDispatchMaxAttempts,
	}

	return alertUseCase.NewDispatcher(dispatcherConfig, alertRepo, publishers, c.Logger()), nil
}
