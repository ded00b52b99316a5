package cli

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/jinhakim/roadpulse/pkg/data"
	"github.com/jinhakim/roadpulse/pkg/scoring"
)

const datasetListLimitDefault = 100

var (
	regionNameFlag = &cli.StringFlag{
		Name:  "name",
		Usage: "Region name as it appears in the dataset",
	}

	datasetIDFlag = &cli.Int64Flag{
		Name:  "dataset",
		Usage: "Dataset snapshot id (optional, defaults to the current snapshot)",
	}

	datasetLimitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "Limits number of datasets returned",
		Value: datasetListLimitDefault,
	}

	queryCmd = &cli.Command{
		Name:    "query",
		Aliases: []string{"q"},
		Usage:   "List data query operations",
		Subcommands: []*cli.Command{
			{
				Name:    "regions",
				Usage:   "List regions ranked by composite traffic score",
				Aliases: []string{"r"},
				Action:  cmdQueryRegions,
				Flags: []cli.Flag{
					datasetIDFlag,
				},
			},
			{
				Name:   "region",
				Usage:  "Compare one region against the dataset averages",
				Action: cmdQueryRegion,
				Flags: []cli.Flag{
					regionNameFlag,
					datasetIDFlag,
				},
			},
			{
				Name:    "stats",
				Usage:   "Summarize the dataset metrics (mean, min, max)",
				Aliases: []string{"s"},
				Action:  cmdQueryStats,
				Flags: []cli.Flag{
					datasetIDFlag,
				},
			},
			{
				Name:    "datasets",
				Usage:   "List imported dataset snapshots, newest first",
				Aliases: []string{"d"},
				Action:  cmdQueryDatasets,
				Flags: []cli.Flag{
					datasetLimitFlag,
				},
			},
		},
	}
)

// loadRecords resolves the dataset the query targets: the one named by
// --dataset, or the current snapshot.
func loadRecords(c *cli.Context) (*data.Dataset, []scoring.RegionRecord, error) {
	cfg := getConfig(c)

	if c.IsSet(datasetIDFlag.Name) {
		id := c.Int64(datasetIDFlag.Name)
		ds, err := data.GetDataset(cfg.DB, id)
		if err != nil {
			return nil, nil, err
		}
		records, err := data.GetDatasetRecords(cfg.DB, id)
		if err != nil {
			return nil, nil, err
		}
		return ds, records, nil
	}

	return data.GetCurrentRecords(cfg.DB)
}

func cmdQueryRegions(c *cli.Context) error {
	cfg := getConfig(c)

	ds, records, err := loadRecords(c)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}
	slog.Debug("query regions", "dataset", ds.ID, "rows", len(records))

	scored, err := scoring.Score(cfg.Scoring, records)
	if err != nil {
		return fmt.Errorf("scoring dataset: %w", err)
	}

	if err := encode(scoring.Rank(scored)); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}
	return nil
}

func cmdQueryRegion(c *cli.Context) error {
	name := c.String(regionNameFlag.Name)
	if name == "" {
		return cli.ShowSubcommandHelp(c)
	}

	cfg := getConfig(c)

	_, records, err := loadRecords(c)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	scored, err := scoring.Score(cfg.Scoring, records)
	if err != nil {
		return fmt.Errorf("scoring dataset: %w", err)
	}

	cmp, err := scoring.CompareToAverage(cfg.Scoring, scored, name)
	if err != nil {
		return fmt.Errorf("comparing region %s: %w", name, err)
	}

	if err := encode(cmp); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}
	return nil
}

func cmdQueryStats(c *cli.Context) error {
	cfg := getConfig(c)

	_, records, err := loadRecords(c)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	scored, err := scoring.Score(cfg.Scoring, records)
	if err != nil {
		return fmt.Errorf("scoring dataset: %w", err)
	}

	if err := encode(scoring.Summarize(scored)); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}
	return nil
}

func cmdQueryDatasets(c *cli.Context) error {
	cfg := getConfig(c)

	list, err := data.ListDatasets(cfg.DB, c.Int(datasetLimitFlag.Name))
	if err != nil {
		return fmt.Errorf("listing datasets: %w", err)
	}

	if err := encode(list); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}
	return nil
}
