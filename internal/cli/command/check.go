package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/herdsman/internal/master"
)

// CheckCommand loads the configuration, commits it to an idle master and
// prints the result.
func CheckCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Validate the configuration and print the effective settings",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "run-hooks",
				Usage: "Run before_fork and after_fork for each worker, then before_exec, in this process",
			},
		},
		Action: checkAction,
	}
}

func checkAction(c *cli.Context) error {
	cfg, err := newConfigurator(c)
	if err != nil {
		return err
	}

	m := master.New(cfg, master.WithLogger(GetLogger(c)))
	if err := m.Start(); err != nil {
		return err
	}

	if c.Bool("run-hooks") {
		if err := runHooks(m); err != nil {
			return err
		}
	}

	return render(c, configuredRows(cfg))
}

func runHooks(m *master.Master) error {
	workers := m.Snapshot().WorkerProcesses
	for nr := 0; nr < workers; nr++ {
		if err := m.RunBeforeFork(nr); err != nil {
			return err
		}
		if err := m.RunAfterFork(nr); err != nil {
			return err
		}
	}
	return m.RunBeforeExec()
}
