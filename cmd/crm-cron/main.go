// Command crm-cron runs the scheduled CRM jobs against the GraphQL API.
//
//	crm-cron               run every job on its schedule
//	crm-cron --once report run one job and exit
package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/xenking/crm/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return err
		}
		return appkg.RunCron(ctx, lg, cfg)
	})
}
