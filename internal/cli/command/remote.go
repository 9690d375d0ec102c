package command

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/herdsman/internal/cli/connection"
	"github.com/yndnr/herdsman/internal/cli/output"
	"github.com/yndnr/herdsman/internal/master"
)

// defaultServerAddr matches the default --http-addr of run.
const defaultServerAddr = "127.0.0.1:9464"

func addrFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "addr",
		Usage: "Status server of a running herdsman (host:port or unix:/path)",
		Value: defaultServerAddr,
	}
}

// StatusCommand prints the settings applied by a running herdsman.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Print the settings applied by a running herdsman",
		Flags:  []cli.Flag{addrFlag()},
		Action: statusAction,
	}
}

// ReloadCommand asks a running herdsman to re-run its script.
func ReloadCommand() *cli.Command {
	return &cli.Command{
		Name:   "reload",
		Usage:  "Make a running herdsman reload its configuration",
		Flags:  []cli.Flag{addrFlag()},
		Action: reloadAction,
	}
}

// statusData mirrors the data of GET /status and POST /reload.
type statusData struct {
	Settings master.Snapshot `json:"settings" yaml:"settings"`
	Time     time.Time       `json:"time" yaml:"time"`
}

// Table implements output.Tabular.
func (d statusData) Table() *output.Table {
	s := d.Settings
	t := &output.Table{Headers: []string{"SETTING", "VALUE"}}
	t.AddRow("generation", s.Generation)
	t.AddRow("timeout", s.Timeout.String())
	t.AddRow("worker_processes", fmt.Sprint(s.WorkerProcesses))
	t.AddRow("listeners", cell(s.Listeners))
	t.AddRow("backlog", fmt.Sprint(s.Backlog))
	t.AddRow("pid", s.PID)
	t.AddRow("stderr_path", s.StderrPath)
	t.AddRow("stdout_path", s.StdoutPath)
	t.AddRow("preload_app", fmt.Sprint(s.PreloadApp))
	return t
}

func statusAction(c *cli.Context) error {
	client := connection.NewHTTPClient(c.String("addr"))
	resp, err := client.Get(c.Context, "/status")
	if err != nil {
		return fmt.Errorf("query %s: %w", client.BaseURL(), err)
	}

	var data statusData
	if err := connection.ParseResponse(resp, &data); err != nil {
		return err
	}
	return render(c, data)
}

func reloadAction(c *cli.Context) error {
	client := connection.NewHTTPClient(c.String("addr"))
	resp, err := client.Post(c.Context, "/reload", nil)
	if err != nil {
		return fmt.Errorf("reload %s: %w", client.BaseURL(), err)
	}

	var data statusData
	if err := connection.ParseResponse(resp, &data); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	GetLogger(c).Info("configuration reloaded", "generation", data.Settings.Generation)
	return render(c, data)
}

// remoteHistory fetches applied generations from a running herdsman.
func remoteHistory(c *cli.Context, limit int) ([]master.Record, error) {
	client := connection.NewHTTPClient(c.String("addr"))
	path := "/history"
	if limit > 0 {
		path = fmt.Sprintf("/history?limit=%d", limit)
	}
	resp, err := client.Get(c.Context, path)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", client.BaseURL(), err)
	}

	var records []master.Record
	if err := connection.ParseResponse(resp, &records); err != nil {
		return nil, err
	}
	return records, nil
}
