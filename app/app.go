package app

import (
	"github.com/tiltlab/bringup/internal/shell"
	"github.com/tiltlab/bringup/util/logging"
	"github.com/urfave/cli/v2"
)

func New(ctx *cli.Context) (*shell.Shell, error) {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return nil, err
	}

	return shell.New(log), nil
}
