package app

import (
	"fmt"
	"sync"

	rotationUseCase "github.com/allisson/keycore/internal/rotation/usecase"
)

// rotationContainer holds the rotation engine use cases.
type rotationContainer struct {
	rotationUC     rotationUseCase.RotationUseCase
	provisioningUC rotationUseCase.ProvisioningUseCase
	reaperUC       rotationUseCase.ReaperUseCase

	rotationUCInit     sync.Once
	provisioningUCInit sync.Once
	reaperUCInit       sync.Once
}

// rotationConfig builds the rotation policy from the application configuration.
func (c *Container) rotationConfig() rotationUseCase.Config {
	return rotationUseCase.Config{
		MasterKeyMaxAge:     c.config.MasterKeyMaxAge,
		DataKeyMaxAge:       c.config.DataKeyMaxAge,
		DeletionGracePeriod: c.config.DeletionGracePeriod,
		ScanBatchSize:       c.config.RotationScanBatchSize,
		Workers:             c.config.RotationWorkers,
		ReaperInterval:      c.config.ReaperInterval,
	}
}

// RotationUseCase returns the rotation engine use case instance.
func (c *Container) RotationUseCase() (rotationUseCase.RotationUseCase, error) {
	var err error
	c.rotationUCInit.Do(func() {
		c.rotationUC, err = c.initRotationUseCase()
		if err != nil {
			c.initErrors["rotationUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rotationUseCase"]; exists {
		return nil, storedErr
	}
	return c.rotationUC, nil
}

// ProvisioningUseCase returns the provisioning use case instance.
func (c *Container) ProvisioningUseCase() (rotationUseCase.ProvisioningUseCase, error) {
	var err error
	c.provisioningUCInit.Do(func() {
		c.provisioningUC, err = c.initProvisioningUseCase()
		if err != nil {
			c.initErrors["provisioningUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["provisioningUseCase"]; exists {
		return nil, storedErr
	}
	return c.provisioningUC, nil
}

// ReaperUseCase returns the key reaper use case instance.
func (c *Container) ReaperUseCase() (rotationUseCase.ReaperUseCase, error) {
	var err error
	c.reaperUCInit.Do(func() {
		c.reaperUC, err = c.initReaperUseCase()
		if err != nil {
			c.initErrors["reaperUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["reaperUseCase"]; exists {
		return nil, storedErr
	}
	return c.reaperUC, nil
}

// initRotationUseCase creates the rotation engine with all its dependencies.
func (c *Container) initRotationUseCase() (rotationUseCase.RotationUseCase, error) {
	settingsRepo, err := c.SettingsRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings repository for rotation use case: %w", err)
	}

	documentRepo, err := c.DocumentRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get document repository for rotation use case: %w", err)
	}

	scheduleRepo, err := c.DeletionScheduleRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get deletion schedule repository for rotation use case: %w", err)
	}

	gateway, err := c.CryptoGateway()
	if err != nil {
		return nil, fmt.Errorf("failed to get crypto gateway for rotation use case: %w", err)
	}

	auditUC, err := c.AuditUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for rotation use case: %w", err)
	}

	useCase := rotationUseCase.NewRotationUseCase(
		c.rotationConfig(),
		settingsRepo,
		documentRepo,
		scheduleRepo,
		gateway,
		auditUC,
		c.Logger(),
	)

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for rotation use case: %w", err)
	}

	return rotationUseCase.NewRotationUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initProvisioningUseCase creates the provisioning use case with all its dependencies.
func (c *Container) initProvisioningUseCase() (rotationUseCase.ProvisioningUseCase, error) {
	settingsRepo, err := c.SettingsRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings repository for provisioning use case: %w", err)
	}

	documentRepo, err := c.DocumentRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get document repository for provisioning use case: %w", err)
	}

	gateway, err := c.CryptoGateway()
	if err != nil {
		return nil, fmt.Errorf("failed to get crypto gateway for provisioning use case: %w", err)
	}

	return rotationUseCase.NewProvisioningUseCase(settingsRepo, documentRepo, gateway, c.Logger()), nil
}

// initReaperUseCase creates the key reaper with all its dependencies.
func (c *Container) initReaperUseCase() (rotationUseCase.ReaperUseCase, error) {
	settingsRepo, err := c.SettingsRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings repository for reaper use case: %w", err)
	}

	documentRepo, err := c.DocumentRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get document repository for reaper use case: %w", err)
	}

	scheduleRepo, err := c.DeletionScheduleRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get deletion schedule repository for reaper use case: %w", err)
	}

	gateway, err := c.CryptoGateway()
	if err != nil {
		return nil, fmt.Errorf("failed to get crypto gateway for reaper use case: %w", err)
	}

	return rotationUseCase.NewReaperUseCase(
		c.rotationConfig(),
		settingsRepo,
		documentRepo,
		scheduleRepo,
		gateway,
		c.Logger(),
	), nil
}
