package ports

import "go.trai.ch/oxidizer/internal/core/domain"

// ConfigLoader defines the interface for loading the optional project configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load discovers oxidizer.yaml from cwd upwards and merges it over the defaults.
	// It returns an error wrapping domain.ErrConfigNotFound if no file exists.
	Load(cwd string) (*domain.Project, error)

	// DiscoverRoot walks up from cwd to find the directory containing oxidizer.yaml.
	DiscoverRoot(cwd string) (string, error)
}
