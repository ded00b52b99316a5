package cli

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"time"

	urfave "github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/jinhakim/roadpulse/pkg/config"
	"github.com/jinhakim/roadpulse/pkg/data"
	"github.com/jinhakim/roadpulse/pkg/logging"
	"github.com/jinhakim/roadpulse/pkg/scoring"
)

const (
	appName      = "roadpulse"
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	outputFormat = formatJSON

	// stdout and stdin are swapped for buffers in tests.
	stdout io.Writer = os.Stdout
	stdin  io.Reader = os.Stdin

	debugFlag = &urfave.BoolFlag{
		Name:    "debug",
		Usage:   "Prints verbose logs (optional, default: false)",
		EnvVars: []string{"ROADPULSE_DEBUG"},
	}

	dbFilePathFlag = &urfave.StringFlag{
		Name:    "db",
		Usage:   "Path to the Sqlite database file",
		EnvVars: []string{"ROADPULSE_DB"},
	}

	formatFlag = &urfave.StringFlag{
		Name:    "format",
		Usage:   "Output format [json, yaml]",
		EnvVars: []string{"ROADPULSE_FORMAT"},
	}
)

// Execute creates and runs the CLI application.
func Execute() {
	initLogging(false)

	app := newApp()
	if err := app.Run(os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	DBPath  string
	Debug   bool
	DB      *sql.DB
	Scoring scoring.Config
	Conf    *config.Config
}

func getConfig(c *urfave.Context) *appConfig {
	return c.App.Metadata[appConfigKey].(*appConfig)
}

func newApp() *urfave.App {
	return &urfave.App{
		Name:                 appName,
		Version:              fmt.Sprintf("%s (%s - %s)", version, commit, date),
		Compiled:             time.Now(),
		EnableBashCompletion: true,
		HideHelpCommand:      true,
		Usage:                "CLI for regional traffic environment analysis",
		Flags: []urfave.Flag{
			debugFlag,
			dbFilePathFlag,
			formatFlag,
		},
		Commands: []*urfave.Command{
			authCmd,
			importCmd,
			queryCmd,
			datasetCmd,
			exportCmd,
			sampleCmd,
			serverCmd,
			resetCmd,
		},
		Before: func(c *urfave.Context) error {
			if c.Bool(debugFlag.Name) {
				initLogging(true)
			}

			homeDir := getHomeDir()

			conf, err := config.ReadOrCreate(homeDir)
			if err != nil {
				slog.Debug("config unavailable, using defaults", "error", err)
				conf = &config.Config{Format: config.DefaultFormat, Port: config.DefaultPort}
			}

			f := conf.Format
			if c.IsSet(formatFlag.Name) {
				f = c.String(formatFlag.Name)
			}
			outputFormat = formatJSON
			if f == formatYAML || f == "yml" {
				outputFormat = formatYAML
			}

			dbPath := c.String(dbFilePathFlag.Name)
			if dbPath == "" {
				dbPath = path.Join(homeDir, data.DataFileName)
			}

			if err := data.Init(dbPath); err != nil {
				return fmt.Errorf("initializing database: %w", err)
			}

			db, err := data.GetDB(dbPath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}

			c.App.Metadata[appConfigKey] = &appConfig{
				DBPath:  dbPath,
				Debug:   c.Bool(debugFlag.Name),
				DB:      db,
				Scoring: scoring.DefaultConfig(),
				Conf:    conf,
			}
			return nil
		},
		After: func(c *urfave.Context) error {
			if cfg, ok := c.App.Metadata[appConfigKey].(*appConfig); ok && cfg.DB != nil {
				cfg.DB.Close()
			}
			return nil
		},
	}
}

func initLogging(debug bool) {
	if debug {
		h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		slog.SetDefault(slog.New(h))
		return
	}
	logging.SetDefaultCLILogger("info")
}

func getHomeDir() string {
	dir, created, err := config.GetOrCreateHomeDir(appName)
	if err != nil {
		slog.Debug("error getting app home dir, using current dir instead", "error", err)
		return "."
	}
	if created {
		slog.Debug("created app home dir", "path", dir)
	}
	return dir
}

func encode(v any) error {
	if outputFormat == formatYAML {
		return yaml.NewEncoder(stdout).Encode(v)
	}
	e := json.NewEncoder(stdout)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
