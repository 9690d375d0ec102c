package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/herdsman/internal/cli/output"
	"github.com/yndnr/herdsman/internal/master"
	"github.com/yndnr/herdsman/internal/storage"
)

// HistoryCommand lists applied generations. With --state-dir it reads the
// store of a stopped process; otherwise it asks the running one at --addr.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List applied configuration generations, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "state-dir",
				Usage: "Read the history kept by a stopped herdsman run in this directory",
			},
			addrFlag(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of generations listed; 0 lists all",
				Value: 20,
			},
		},
		Action: historyAction,
	}
}

func historyAction(c *cli.Context) error {
	var (
		records []master.Record
		err     error
	)
	if c.IsSet("state-dir") {
		records, err = localHistory(c, c.Int("limit"))
	} else {
		records, err = remoteHistory(c, c.Int("limit"))
	}
	if err != nil {
		return err
	}
	if records == nil {
		records = []master.Record{}
	}
	return render(c, historyRows(records))
}

func localHistory(c *cli.Context, limit int) ([]master.Record, error) {
	cfg := storage.DefaultConfig(c.String("state-dir"))
	cfg.ReadOnly = true

	store, err := storage.Open(cfg, GetLogger(c))
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	return master.ReadHistory(c.Context, store, limit)
}

type historyRows []master.Record

// Table implements output.Tabular.
func (rows historyRows) Table() *output.Table {
	t := &output.Table{Headers: []string{"GENERATION", "APPLIED AT", "TRIGGER", "WORKERS", "LISTENERS", "DIGEST"}}
	for _, r := range rows {
		t.AddRow(
			r.Generation,
			r.AppliedAt.Local().Format(time.RFC3339),
			r.Trigger,
			fmt.Sprint(r.Settings.WorkerProcesses),
			strings.Join(r.Settings.Listeners, ", "),
			r.Digest,
		)
	}
	return t
}
