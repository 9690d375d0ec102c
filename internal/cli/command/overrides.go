package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/herdsman/internal/configurator"
	"github.com/yndnr/herdsman/internal/infra/confloader"
)

// loadOverrides merges the overrides file, the environment and the
// command line, in increasing priority. use_defaults is on unless some
// source turns it off.
func loadOverrides(c *cli.Context) (map[string]any, error) {
	flags := ParseGlobalFlags(c)

	l := confloader.NewLoader(
		confloader.WithEnvPrefix(flags.EnvPrefix),
		confloader.WithOverridesFile(flags.OverridesFile),
	)
	if err := l.Load(); err != nil {
		return nil, err
	}

	fromFlags, err := confloader.ParseAssignments(flags.Set)
	if err != nil {
		return nil, err
	}
	if c.IsSet("config") {
		fromFlags[configurator.OptionConfigFile] = flags.ConfigFile
	}
	if c.IsSet("defaults") {
		fromFlags[configurator.OptionUseDefaults] = flags.Defaults
	}
	if err := l.LoadMap(fromFlags); err != nil {
		return nil, err
	}

	overrides := l.Overrides()
	if _, ok := overrides[configurator.OptionUseDefaults]; !ok {
		overrides[configurator.OptionUseDefaults] = flags.Defaults
	}
	return overrides, nil
}

// newConfigurator builds the Configurator for a command.
func newConfigurator(c *cli.Context) (*configurator.Configurator, error) {
	overrides, err := loadOverrides(c)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}

	cfg, err := configurator.New(overrides,
		configurator.WithLogger(GetLogger(c)),
		configurator.WithAddressExpander(configurator.ExpandAddr),
	)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}
