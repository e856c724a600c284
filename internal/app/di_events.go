package app

import (
	"fmt"

	eventsHTTP "github.com/allisson/registry/internal/events/http"
	eventsRepository "github.com/allisson/registry/internal/events/repository"
	eventsUseCase "github.com/allisson/registry/internal/events/usecase"
)

// SubscriptionRepository returns the event subscription repository instance.
func (c *Container) SubscriptionRepository() (eventsUseCase.SubscriptionRepository, error) {
	var err error
	c.subscriptionRepoInit.Do(func() {
		c.subscriptionRepo, err = c.initSubscriptionRepository()
		if err != nil {
			c.initErrors["subscriptionRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["subscriptionRepo"]; exists {
		return nil, storedErr
	}
	return c.subscriptionRepo, nil
}

// SubscriptionUseCase returns the event subscription use case instance.
func (c *Container) SubscriptionUseCase() (eventsUseCase.UseCase, error) {
	var err error
	c.subscriptionUseCaseInit.Do(func() {
		c.subscriptionUseCase, err = c.initSubscriptionUseCase()
		if err != nil {
			c.initErrors["subscriptionUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["subscriptionUseCase"]; exists {
		return nil, storedErr
	}
	return c.subscriptionUseCase, nil
}

// SubscriptionHandler returns the event subscription handler instance.
func (c *Container) SubscriptionHandler() (*eventsHTTP.SubscriptionHandler, error) {
	var err error
	c.subscriptionHandlerInit.Do(func() {
		c.subscriptionHandler, err = c.initSubscriptionHandler()
		if err != nil {
			c.initErrors["subscriptionHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["subscriptionHandler"]; exists {
		return nil, storedErr
	}
	return c.subscriptionHandler, nil
}

// initSubscriptionRepository creates the event subscription repository instance.
func (c *Container) initSubscriptionRepository() (eventsUseCase.SubscriptionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for subscription repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return eventsRepository.NewMySQLSubscriptionRepository(db), nil
	case "postgres":
		return eventsRepository.NewPostgreSQLSubscriptionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initSubscriptionUseCase creates the event subscription use case with all its dependencies.
func (c *Container) initSubscriptionUseCase() (eventsUseCase.UseCase, error) {
	subscriptionRepo, err := c.SubscriptionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription repository for subscription use case: %w", err)
	}

	return eventsUseCase.NewSubscriptionUseCase(subscriptionRepo), nil
}

// initSubscriptionHandler creates the event subscription handler with all its dependencies.
func (c *Container) initSubscriptionHandler() (*eventsHTTP.SubscriptionHandler, error) {
	subscriptionUseCase, err := c.SubscriptionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription use case for subscription handler: %w", err)
	}

	auditLogUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for subscription handler: %w", err)
	}

	return eventsHTTP.NewSubscriptionHandler(subscriptionUseCase, auditLogUseCase, c.Logger()), nil
}
