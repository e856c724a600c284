package app

import (
	"context"
	"fmt"

	"github.com/allisson/registry/internal/dispatch"
	registryHTTP "github.com/allisson/registry/internal/registry/http"
	registryRepository "github.com/allisson/registry/internal/registry/repository"
	"github.com/allisson/registry/internal/registry/storage"
	registryUseCase "github.com/allisson/registry/internal/registry/usecase"
)

// BlobStore returns the object payload store instance.
func (c *Container) BlobStore() (registryUseCase.BlobStore, error) {
	var err error
	c.blobStoreInit.Do(func() {
		c.blobStore, err = storage.NewBlobStore(context.Background(), c.config.BlobBucketURL)
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

// ObjectRepository returns the object metadata repository instance.
func (c *Container) ObjectRepository() (registryUseCase.ObjectRepository, error) {
	var err error
	c.objectRepoInit.Do(func() {
		c.objectRepo, err = c.initObjectRepository()
		if err != nil {
			c.initErrors["objectRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["objectRepo"]; exists {
		return nil, storedErr
	}
	return c.objectRepo, nil
}

// Dispatcher returns the notification dispatcher instance.
func (c *Container) Dispatcher() (*dispatch.Dispatcher, error) {
	var err error
	c.dispatcherInit.Do(func() {
		c.dispatcher, err = c.initDispatcher()
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

// ObjectUseCase returns the object registry use case instance.
func (c *Container) ObjectUseCase() (registryUseCase.UseCase, error) {
	var err error
	c.objectUseCaseInit.Do(func() {
		c.objectUseCase, err = c.initObjectUseCase()
		if err != nil {
			c.initErrors["objectUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["objectUseCase"]; exists {
		return nil, storedErr
	}
	return c.objectUseCase, nil
}

// ObjectHandler returns the object handler instance.
func (c *Container) ObjectHandler() (*registryHTTP.ObjectHandler, error) {
	var err error
	c.objectHandlerInit.Do(func() {
		c.objectHandler, err = c.initObjectHandler()
		if err != nil {
			c.initErrors["objectHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["objectHandler"]; exists {
		return nil, storedErr
	}
	return c.objectHandler, nil
}

// initObjectRepository creates the object metadata repository instance.
func (c *Container) initObjectRepository() (registryUseCase.ObjectRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for object repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return registryRepository.NewMySQLObjectRepository(db), nil
	case "postgres":
		return registryRepository.NewPostgreSQLObjectRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initDispatcher creates the notification dispatcher with all its dependencies.
func (c *Container) initDispatcher() (*dispatch.Dispatcher, error) {
	subscriptionUseCase, err := c.SubscriptionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription use case for dispatcher: %w", err)
	}

	signer, err := c.Signer()
	if err != nil {
		return nil, fmt.Errorf("failed to get signer for dispatcher: %w", err)
	}

	auditLogUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for dispatcher: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for dispatcher: %w", err)
	}

	return dispatch.NewDispatcher(
		dispatch.Config{
			Subject:         c.config.TokenIssuer,
			WebhookTimeout:  c.config.WebhookTimeout,
			DispatchTimeout: c.config.DispatchTimeout,
		},
		subscriptionUseCase,
		signer,
		auditLogUseCase,
		businessMetrics,
		c.Logger(),
	), nil
}

// initObjectUseCase creates the object registry use case with all its dependencies.
func (c *Container) initObjectUseCase() (registryUseCase.UseCase, error) {
	objectRepo, err := c.ObjectRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get object repository for object use case: %w", err)
	}

	blobStore, err := c.BlobStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get blob store for object use case: %w", err)
	}

	dispatcher, err := c.Dispatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to get dispatcher for object use case: %w", err)
	}

	return registryUseCase.NewObjectUseCase(
		objectRepo,
		blobStore,
		dispatcher,
		c.config.ReservedNamespace,
	), nil
}

// initObjectHandler creates the object handler with all its dependencies.
func (c *Container) initObjectHandler() (*registryHTTP.ObjectHandler, error) {
	objectUseCase, err := c.ObjectUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get object use case for object handler: %w", err)
	}

	auditLogUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for object handler: %w", err)
	}

	return registryHTTP.NewObjectHandler(objectUseCase, auditLogUseCase, c.Logger()), nil
}
