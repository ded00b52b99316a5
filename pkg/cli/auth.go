package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/jinhakim/roadpulse/pkg/auth"
)

var (
	serviceKeyFlag = &cli.StringFlag{
		Name:  "key",
		Usage: "Data portal service key to store",
	}

	deleteKeyFlag = &cli.BoolFlag{
		Name:  "delete",
		Usage: "Delete the stored service key",
	}

	authCmd = &cli.Command{
		Name:            "auth",
		HideHelpCommand: true,
		Usage:           "Store the data portal service key used by import --url",
		Action:          cmdAuth,
		Flags: []cli.Flag{
			serviceKeyFlag,
			deleteKeyFlag,
		},
	}
)

func cmdAuth(c *cli.Context) error {
	if c.Bool(deleteKeyFlag.Name) {
		if err := auth.DeleteKey(getHomeDir()); err != nil {
			return fmt.Errorf("deleting service key: %w", err)
		}
		fmt.Fprintln(stdout, "Service key deleted")
		return nil
	}

	key := c.String(serviceKeyFlag.Name)
	if key == "" {
		return cli.ShowSubcommandHelp(c)
	}

	if err := auth.SaveKey(getHomeDir(), key); err != nil {
		return fmt.Errorf("saving service key: %w", err)
	}

	fmt.Fprintln(stdout, "Service key saved")
	return nil
}
