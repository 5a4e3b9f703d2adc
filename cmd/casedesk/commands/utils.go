package commands

import (
	"fmt"

	"github.com/yshengliao/casedesk/config"
	"github.com/yshengliao/casedesk/nav"
	"github.com/yshengliao/casedesk/pages"
	"github.com/yshengliao/casedesk/services"
)

// loaderFor returns the configuration loader named name.
func loaderFor(name string) (config.LoadFunc, error) {
	switch name {
	case "simple":
		return config.LoadYAML, nil
	case "bofry", "":
		return func(path string) (*config.Config, error) {
			cfg := &config.Config{}
			if err := config.LoadWithBofry(path, config.DefaultEnvPrefix, cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown config loader %q (want simple or bofry)", name)
	}
}

func loadConfig(loader, path string) (*config.Config, error) {
	load, err := loaderFor(loader)
	if err != nil {
		return nil, err
	}
	cfg, err := load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func demoTable() (*nav.Table, error) {
	return pages.NewTable(services.NewSeededStore())
}
