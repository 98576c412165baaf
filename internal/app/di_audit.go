package app

import (
	"fmt"
	"sync"

	"github.com/allisson/keycore/internal/audit/detector"
	auditRepository "github.com/allisson/keycore/internal/audit/repository"
	auditUseCase "github.com/allisson/keycore/internal/audit/usecase"
)

// auditContainer holds the security log pipeline: repositories, detectors,
// and the audit use case.
type auditContainer struct {
	logRepo      auditUseCase.LogRepository
	alertRepo    auditUseCase.AlertRepository
	counterStore detector.CounterStore
	detectors    []detector.Detector
	auditUC      auditUseCase.AuditUseCase

	logRepoInit      sync.Once
	alertRepoInit    sync.Once
	counterStoreInit sync.Once
	detectorsInit    sync.Once
	auditUCInit      sync.Once
}

// LogRepository returns the security log repository instance.
func (c *Container) LogRepository() (auditUseCase.LogRepository, error) {
	var err error
	c.logRepoInit.Do(func() {
		c.logRepo, err = c.initLogRepository()
		if err != nil {
			c.initErrors["logRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["logRepo"]; exists {
		return nil, storedErr
	}
	return c.logRepo, nil
}

// AlertRepository returns the security alert repository instance.
func (c *Container) AlertRepository() (auditUseCase.AlertRepository, error) {
	var err error
	c.alertRepoInit.Do(func() {
		c.alertRepo, err = c.initAlertRepository()
		if err != nil {
			c.initErrors["alertRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["alertRepo"]; exists {
		return nil, storedErr
	}
	return c.alertRepo, nil
}

// CounterStore returns the detector counter store instance.
func (c *Container) CounterStore() (detector.CounterStore, error) {
	var err error
	c.counterStoreInit.Do(func() {
		c.counterStore, err = c.initCounterStore()
		if err != nil {
			c.initErrors["counterStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["counterStore"]; exists {
		return nil, storedErr
	}
	return c.counterStore, nil
}

// Detectors returns the security detectors, ordered as they run per entry.
func (c *Container) Detectors() ([]detector.Detector, error) {
	var err error
	c.detectorsInit.Do(func() {
		c.detectors, err = c.initDetectors()
		if err != nil {
			c.initErrors["detectors"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["detectors"]; exists {
		return nil, storedErr
	}
	return c.detectors, nil
}

// AuditUseCase returns the audit use case instance.
func (c *Container) AuditUseCase() (auditUseCase.AuditUseCase, error) {
	var err error
	c.auditUCInit.Do(func() {
		c.auditUC, err = c.initAuditUseCase()
		if err != nil {
			c.initErrors["auditUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditUseCase"]; exists {
		return nil, storedErr
	}
	return c.auditUC, nil
}

// initLogRepository creates the security log repository instance.
func (c *Container) initLogRepository() (auditUseCase.LogRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for log repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return auditRepository.NewMySQLLogRepository(db), nil
	case "postgres":
		return auditRepository.NewPostgreSQLLogRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initAlertRepository creates the security alert repository instance.
func (c *Container) initAlertRepository() (auditUseCase.AlertRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for alert repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return auditRepository.NewMySQLAlertRepository(db), nil
	case "postgres":
		return auditRepository.NewPostgreSQLAlertRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initCounterStore creates the detector counter store based on the configured
// provider. Redis keeps detector state shared across processes; memory is for
// single-process deployments and tests.
func (c *Container) initCounterStore() (detector.CounterStore, error) {
	switch c.config.CounterStoreProvider {
	case "redis":
		client, err := c.RedisClient()
		if err != nil {
			return nil, fmt.Errorf("failed to get redis client for counter store: %w", err)
		}
		return detector.NewRedisCounterStore(client), nil
	case "memory":
		return detector.NewMemoryCounterStore(), nil
	default:
		return nil, fmt.Errorf("unsupported counter store provider: %s", c.config.CounterStoreProvider)
	}
}

// initDetectors creates the detector chain from the application configuration.
func (c *Container) initDetectors() ([]detector.Detector, error) {
	store, err := c.CounterStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get counter store for detectors: %w", err)
	}

	return []detector.Detector{
		detector.NewBruteForceDetector(detector.BruteForceConfig{
			Threshold: c.config.BruteForceThreshold,
			Window:    c.config.BruteForceWindow,
			CoolDown:  c.config.BruteForceCoolDown,
		}, store),
		detector.NewExcessiveResetDetector(detector.ExcessiveResetConfig{
			Threshold: c.config.ResetThreshold,
			Window:    c.config.ResetWindow,
		}, store),
		detector.NewAnomalousAccessDetector(detector.AnomalousAccessConfig{
			MaxRegions: c.config.AnomalousMaxRegions,
			Window:     c.config.AnomalousWindow,
		}, store),
		detector.NewAdminDeniedDetector(),
	}, nil
}

// initAuditUseCase creates the audit use case with all its dependencies.
func (c *Container) initAuditUseCase() (auditUseCase.AuditUseCase, error) {
	logRepo, err := c.LogRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get log repository for audit use case: %w", err)
	}

	alertRepo, err := c.AlertRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get alert repository for audit use case: %w", err)
	}

	detectors, err := c.Detectors()
	if err != nil {
		return nil, fmt.Errorf("failed to get detectors for audit use case: %w", err)
	}

	useCase := auditUseCase.NewAuditUseCase(logRepo, alertRepo, detectors, c.Logger())

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for audit use case: %w", err)
	}

	return auditUseCase.NewAuditUseCaseWithMetrics(useCase, businessMetrics), nil
}
