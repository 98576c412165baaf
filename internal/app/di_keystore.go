package app

import (
	"fmt"
	"sync"

	"github.com/allisson/keycore/internal/envelope/blob"
	envelopeService "github.com/allisson/keycore/internal/envelope/service"
	keystoreRepository "github.com/allisson/keycore/internal/keystore/repository"
	rotationUseCase "github.com/allisson/keycore/internal/rotation/usecase"
)

// keystoreContainer holds the key store repositories and the envelope crypto
// gateway.
type keystoreContainer struct {
	settingsRepo rotationUseCase.SettingsRepository
	documentRepo rotationUseCase.DocumentRepository
	scheduleRepo rotationUseCase.DeletionScheduleRepository
	keyOracle    envelopeService.KeyOracle
	blobStore    blob.Store
	gateway      rotationUseCase.CryptoGateway

	settingsRepoInit sync.Once
	documentRepoInit sync.Once
	scheduleRepoInit sync.Once
	keyOracleInit    sync.Once
	blobStoreInit    sync.Once
	gatewayInit      sync.Once
}

// SettingsRepository returns the security settings repository instance.
func (c *Container) SettingsRepository() (rotationUseCase.SettingsRepository, error) {
	var err error
	c.settingsRepoInit.Do(func() {
		c.settingsRepo, err = c.initSettingsRepository()
		if err != nil {
			c.initErrors["settingsRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["settingsRepo"]; exists {
		return nil, storedErr
	}
	return c.settingsRepo, nil
}

// DocumentRepository returns the document encryption repository instance.
func (c *Container) DocumentRepository() (rotationUseCase.DocumentRepository, error) {
	var err error
	c.documentRepoInit.Do(func() {
		c.documentRepo, err = c.initDocumentRepository()
		if err != nil {
			c.initErrors["documentRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["documentRepo"]; exists {
		return nil, storedErr
	}
	return c.documentRepo, nil
}

// DeletionScheduleRepository returns the key deletion schedule repository instance.
func (c *Container) DeletionScheduleRepository() (rotationUseCase.DeletionScheduleRepository, error) {
	var err error
	c.scheduleRepoInit.Do(func() {
		c.scheduleRepo, err = c.initDeletionScheduleRepository()
		if err != nil {
			c.initErrors["scheduleRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["scheduleRepo"]; exists {
		return nil, storedErr
	}
	return c.scheduleRepo, nil
}

// KeyOracle returns the master key oracle instance.
func (c *Container) KeyOracle() (envelopeService.KeyOracle, error) {
	var err error
	c.keyOracleInit.Do(func() {
		c.keyOracle, err = c.initKeyOracle()
		if err != nil {
			c.initErrors["keyOracle"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyOracle"]; exists {
		return nil, storedErr
	}
	return c.keyOracle, nil
}

// BlobStore returns the encrypted blob store instance.
func (c *Container) BlobStore() (blob.Store, error) {
	var err error
	c.blobStoreInit.Do(func() {
		c.blobStore, err = c.initBlobStore()
		if err != nil {
			c.initErrors["blobStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["blobStore"]; exists {
		return nil, storedErr
	}
	return c.blobStore, nil
}

// CryptoGateway returns the envelope crypto gateway instance.
func (c *Container) CryptoGateway() (rotationUseCase.CryptoGateway, error) {
	var err error
	c.gatewayInit.Do(func() {
		c.gateway, err = c.initCryptoGateway()
		if err != nil {
			c.initErrors["gateway"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["gateway"]; exists {
		return nil, storedErr
	}
	return c.gateway, nil
}

// initSettingsRepository creates the security settings repository instance.
func (c *Container) initSettingsRepository() (rotationUseCase.SettingsRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for settings repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return keystoreRepository.NewMySQLSettingsRepository(db), nil
	case "postgres":
		return keystoreRepository.NewPostgreSQLSettingsRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initDocumentRepository creates the document encryption repository instance.
func (c *Container) initDocumentRepository() (rotationUseCase.DocumentRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for document repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return keystoreRepository.NewMySQLDocumentRepository(db), nil
	case "postgres":
		return keystoreRepository.NewPostgreSQLDocumentRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initDeletionScheduleRepository creates the deletion schedule repository instance.
func (c *Container) initDeletionScheduleRepository() (rotationUseCase.DeletionScheduleRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for deletion schedule repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return keystoreRepository.NewMySQLDeletionScheduleRepository(db), nil
	case "postgres":
		return keystoreRepository.NewPostgreSQLDeletionScheduleRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initKeyOracle creates the master key oracle based on the configured provider.
func (c *Container) initKeyOracle() (envelopeService.KeyOracle, error) {
	switch c.config.KeyOracleProvider {
	case "keeper":
		if c.config.KeyOracleURITemplate == "" {
			return nil, fmt.Errorf("keeper key oracle requires KEY_ORACLE_URI_TEMPLATE")
		}
		return envelopeService.NewKeeperOracle(c.config.KeyOracleURITemplate), nil
	case "memory":
		return envelopeService.NewMemoryOracle(), nil
	default:
		return nil, fmt.Errorf("unsupported key oracle provider: %s", c.config.KeyOracleProvider)
	}
}

// initBlobStore creates the encrypted blob store based on the configured provider.
func (c *Container) initBlobStore() (blob.Store, error) {
	switch c.config.BlobStoreProvider {
	case "s3":
		return blob.NewS3Store(blob.S3StoreConfig{
			Bucket:          c.config.BlobS3Bucket,
			Region:          c.config.BlobS3Region,
			Endpoint:        c.config.BlobS3Endpoint,
			AccessKeyID:     c.config.BlobS3AccessKeyID,
			SecretAccessKey: c.config.BlobS3SecretAccessKey,
		})
	case "memory":
		return blob.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported blob store provider: %s", c.config.BlobStoreProvider)
	}
}

// initCryptoGateway creates the envelope crypto gateway with its oracle and
// blob store.
func (c *Container) initCryptoGateway() (rotationUseCase.CryptoGateway, error) {
	oracle, err := c.KeyOracle()
	if err != nil {
		return nil, fmt.Errorf("failed to get key oracle for crypto gateway: %w", err)
	}

	blobStore, err := c.BlobStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get blob store for crypto gateway: %w", err)
	}

	return envelopeService.NewGateway(oracle, blobStore, envelopeService.NewAEADManager()), nil
}
