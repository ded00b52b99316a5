package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jinhakim/roadpulse/pkg/charts"
	"github.com/jinhakim/roadpulse/pkg/render"
	"github.com/jinhakim/roadpulse/pkg/scoring"
)

const exportDirMode = 0755

// utf8BOM prefixes exported CSVs so spreadsheet tools pick up the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var (
	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Path of the CSV file to write",
	}

	chartDirFlag = &cli.StringFlag{
		Name:  "dir",
		Usage: "Directory for the chart PNG files",
	}

	exportCmd = &cli.Command{
		Name:    "export",
		Aliases: []string{"e"},
		Usage:   "Export the ranked table or the charts",
		Subcommands: []*cli.Command{
			{
				Name:   "scores",
				Usage:  "Write the ranked score table as CSV",
				Action: cmdExportScores,
				Flags: []cli.Flag{
					outputFlag,
					datasetIDFlag,
				},
			},
			{
				Name:   "charts",
				Usage:  "Render the dashboard bar charts as PNG files",
				Action: cmdExportCharts,
				Flags: []cli.Flag{
					chartDirFlag,
					datasetIDFlag,
				},
			},
		},
	}
)

func cmdExportScores(c *cli.Context) error {
	out := c.String(outputFlag.Name)
	if out == "" {
		return cli.ShowSubcommandHelp(c)
	}

	cfg := getConfig(c)

	_, records, err := loadRecords(c)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	vm, err := render.State(cfg.Scoring, records, "")
	if err != nil {
		return fmt.Errorf("computing scores: %w", err)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	defer f.Close()

	if err := writeScoresCSV(f, cfg.Scoring.Columns, vm.Rows); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}

	slog.Info("scores exported", "path", out, "rows", len(vm.Rows))
	return nil
}

func cmdExportCharts(c *cli.Context) error {
	dir := c.String(chartDirFlag.Name)
	if dir == "" {
		return cli.ShowSubcommandHelp(c)
	}

	cfg := getConfig(c)

	_, records, err := loadRecords(c)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	vm, err := render.State(cfg.Scoring, records, "")
	if err != nil {
		return fmt.Errorf("computing charts: %w", err)
	}

	if err := os.MkdirAll(dir, exportDirMode); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	var g errgroup.Group
	for _, s := range vm.Charts {
		g.Go(func() error {
			p, err := charts.WriteFile(dir, s)
			if err != nil {
				return fmt.Errorf("rendering %s chart: %w", s.Key, err)
			}
			slog.Info("chart exported", "path", p)
			return nil
		})
	}
	return g.Wait()
}

func writeScoresCSV(w io.Writer, cols scoring.Columns, rows []render.TableRow) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{"순위", cols.Region, cols.Speed, cols.Transit, cols.Accidents, scoring.ColumnScore}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{strconv.Itoa(r.Rank), r.Region, r.AvgSpeed, r.Transit, r.Accidents, r.Score}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
