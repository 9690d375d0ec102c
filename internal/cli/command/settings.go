package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/yndnr/herdsman/internal/cli/output"
	"github.com/yndnr/herdsman/internal/configurator"
)

// settingRow is one printed setting. Value holds only JSON and YAML
// friendly types.
type settingRow struct {
	Setting string `json:"setting" yaml:"setting"`
	Value   any    `json:"value" yaml:"value"`
}

type settingRows []settingRow

// Table implements output.Tabular.
func (rows settingRows) Table() *output.Table {
	t := &output.Table{Headers: []string{"SETTING", "VALUE"}}
	for _, r := range rows {
		t.AddRow(r.Setting, cell(r.Value))
	}
	return t
}

func configuredRows(cfg *configurator.Configurator) settingRows {
	rows := make(settingRows, 0, len(cfg.Names()))
	for _, key := range cfg.Names() {
		rows = append(rows, settingRow{Setting: string(key), Value: printable(cfg.Get(key))})
	}
	return rows
}

func defaultRows() settingRows {
	defaults := configurator.Defaults()
	rows := make(settingRows, 0, len(defaults))
	for _, s := range defaults {
		rows = append(rows, settingRow{Setting: string(s.Key), Value: printable(s.Value)})
	}
	return rows
}

// printable maps setting values to displayable ones: durations as
// strings, callables and loggers by kind.
func printable(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Duration:
		return x.String()
	case configurator.ForkHook, configurator.ExecHook:
		return "function"
	case configurator.Logger:
		return fmt.Sprintf("logger (%T)", x)
	case []string:
		return append([]string{}, x...)
	}
	return v
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case []string:
		if len(x) == 0 {
			return "[]"
		}
		return strings.Join(x, ", ")
	}
	return fmt.Sprint(v)
}
