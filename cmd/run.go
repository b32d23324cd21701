package cmd

import (
	"github.com/tiltlab/bringup/app"
	"github.com/tiltlab/bringup/config"
	runpkg "github.com/tiltlab/bringup/internal/run"
	"github.com/tiltlab/bringup/util/conf"
	"github.com/urfave/cli/v2"
)

var runFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:     "flash",
		Usage:    "flash the firmware before bringing up the rig, without asking.",
		Aliases:  []string{"f"},
		Category: "run",
		EnvVars:  []string{"BRINGUP_FLASH"},
	},
	&cli.BoolFlag{
		Name:     "blender",
		Usage:    "stream to Blender and put the Blender script on the clipboard.",
		Aliases:  []string{"b"},
		Category: "run",
		EnvVars:  []string{"BRINGUP_BLENDER"},
	},
	&cli.BoolFlag{
		Name:     "visualizer",
		Usage:    "stream to the plot visualizer.",
		Aliases:  []string{"v"},
		Category: "run",
		EnvVars:  []string{"BRINGUP_VISUALIZER"},
	},
	&cli.StringFlag{
		Name:     "port",
		Usage:    "the serial device the board enumerates as.",
		Aliases:  []string{"p"},
		Category: "run",
		EnvVars:  []string{"BRINGUP_PORT"},
	},
	&cli.DurationFlag{
		Name:     "timeout",
		Usage:    "how long to wait for the serial device to appear.",
		Category: "run",
		EnvVars:  []string{"BRINGUP_TIMEOUT"},
	},
}

func runAction(ctx *cli.Context) error {
	cfg, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return err
	}

	// reject impossible configurations before any side effect
	if err := cfg.Run.Validate(); err != nil {
		return err
	}

	application, err := app.New(ctx)
	if err != nil {
		return err
	}

	return application.Run(ctx.Context, runpkg.Module(cfg.Run))
}

func init() {
	rootApp.Flags = append(rootApp.Flags, runFlags...)
}
