package cli

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/jinhakim/roadpulse/pkg/data"
)

var (
	idFlag = &cli.Int64Flag{
		Name:  "id",
		Usage: "Dataset snapshot id (see query datasets)",
	}

	datasetCmd = &cli.Command{
		Name:    "dataset",
		Aliases: []string{"ds"},
		Usage:   "Manage imported dataset snapshots",
		Subcommands: []*cli.Command{
			{
				Name:   "use",
				Usage:  "Make an earlier snapshot the current dataset",
				Action: cmdDatasetUse,
				Flags: []cli.Flag{
					idFlag,
				},
			},
			{
				Name:   "delete",
				Usage:  "Delete a snapshot and its region rows",
				Action: cmdDatasetDelete,
				Flags: []cli.Flag{
					idFlag,
				},
			},
		},
	}
)

func cmdDatasetUse(c *cli.Context) error {
	if !c.IsSet(idFlag.Name) {
		return cli.ShowSubcommandHelp(c)
	}

	cfg := getConfig(c)
	id := c.Int64(idFlag.Name)

	if err := data.SetCurrentDataset(cfg.DB, id); err != nil {
		return fmt.Errorf("switching current dataset: %w", err)
	}

	ds, err := data.GetDataset(cfg.DB, id)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	slog.Info("current dataset switched", "id", ds.ID, "name", ds.Name)
	return encode(ds)
}

func cmdDatasetDelete(c *cli.Context) error {
	if !c.IsSet(idFlag.Name) {
		return cli.ShowSubcommandHelp(c)
	}

	cfg := getConfig(c)
	id := c.Int64(idFlag.Name)

	if err := data.DeleteDataset(cfg.DB, id); err != nil {
		return fmt.Errorf("deleting dataset: %w", err)
	}

	slog.Info("dataset deleted", "id", id)
	return nil
}
