package command

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/herdsman/internal/cli/output"
	"github.com/yndnr/herdsman/internal/infra/buildinfo"
	"github.com/yndnr/herdsman/internal/infra/confloader"
	"github.com/yndnr/herdsman/internal/telemetry/logger"
)

const loggerKey = "logger"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "herdsman",
		Usage:   "Configuration engine for a pre-forking process manager",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			CheckCommand(),
			DefaultsCommand(),
			HistoryCommand(),
			ReloadCommand(),
			RunCommand(),
			StatusCommand(),
		},
		Before: setupLogging,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration script (Lua)",
		},
		&cli.BoolFlag{
			Name:  "defaults",
			Usage: "Seed settings from the defaults table",
			Value: true,
		},
		&cli.StringSliceFlag{
			Name:    "set",
			Aliases: []string{"s"},
			Usage:   "Override a setting, e.g. --set worker_processes=4 (repeatable)",
		},
		&cli.StringFlag{
			Name:  "overrides",
			Usage: "YAML file with setting overrides",
		},
		&cli.StringFlag{
			Name:  "env-prefix",
			Usage: "Environment variable prefix for overrides",
			Value: confloader.DefaultEnvPrefix,
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error, fatal",
			Value: "info",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: json, text",
			Value: "json",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   string(output.FormatTable),
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	ConfigFile    string
	Defaults      bool
	Set           []string
	OverridesFile string
	EnvPrefix     string
	LogLevel      string
	LogFormat     string
	Output        string
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		ConfigFile:    c.String("config"),
		Defaults:      c.Bool("defaults"),
		Set:           c.StringSlice("set"),
		OverridesFile: c.String("overrides"),
		EnvPrefix:     c.String("env-prefix"),
		LogLevel:      c.String("log-level"),
		LogFormat:     c.String("log-format"),
		Output:        c.String("output"),
	}
}

// setupLogging installs the process logger. It writes to the app's
// ErrWriter so tests can capture it.
func setupLogging(c *cli.Context) error {
	var w io.Writer = os.Stderr
	if c.App.ErrWriter != nil {
		w = c.App.ErrWriter
	}

	l, err := logger.New(logger.Config{
		Level:  c.String("log-level"),
		Format: c.String("log-format"),
		Output: w,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(l)

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[loggerKey] = l
	return nil
}

// GetLogger retrieves the process logger from context.
func GetLogger(c *cli.Context) logger.Logger {
	if l, ok := c.App.Metadata[loggerKey].(logger.Logger); ok {
		return l
	}
	return logger.Default()
}

// writer returns the app's output writer.
func writer(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

// render prints data in the format chosen with --output.
func render(c *cli.Context, data any) error {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}
	return output.NewFormatter(format).Format(writer(c), data)
}
