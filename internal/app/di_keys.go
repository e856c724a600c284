package app

import (
	"fmt"

	keysRepository "github.com/allisson/registry/internal/keys/repository"
	keysUseCase "github.com/allisson/registry/internal/keys/usecase"
)

// KeyRepository returns the capability key repository instance.
func (c *Container) KeyRepository() (keysUseCase.KeyRepository, error) {
	var err error
	c.keyRepoInit.Do(func() {
		c.keyRepo, err = c.initKeyRepository()
		if err != nil {
			c.initErrors["keyRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyRepo"]; exists {
		return nil, storedErr
	}
	return c.keyRepo, nil
}

// KeyUseCase returns the capability key use case instance.
func (c *Container) KeyUseCase() (keysUseCase.UseCase, error) {
	var err error
	c.keyUseCaseInit.Do(func() {
		c.keyUseCase, err = c.initKeyUseCase()
		if err != nil {
			c.initErrors["keyUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyUseCase"]; exists {
		return nil, storedErr
	}
	return c.keyUseCase, nil
}

// initKeyRepository creates the capability key repository instance.
func (c *Container) initKeyRepository() (keysUseCase.KeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for key repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return keysRepository.NewMySQLKeyRepository(db), nil
	case "postgres":
		return keysRepository.NewPostgreSQLKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initKeyUseCase creates the capability key use case with all its dependencies.
func (c *Container) initKeyUseCase() (keysUseCase.UseCase, error) {
	keyRepo, err := c.KeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get key repository for key use case: %w", err)
	}

	return keysUseCase.NewKeyUseCase(keyRepo), nil
}
