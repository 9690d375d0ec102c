package command

import "github.com/urfave/cli/v2"

// DefaultsCommand prints the defaults table.
func DefaultsCommand() *cli.Command {
	return &cli.Command{
		Name:  "defaults",
		Usage: "Print the default value of every setting",
		Action: func(c *cli.Context) error {
			return render(c, defaultRows())
		},
	}
}
