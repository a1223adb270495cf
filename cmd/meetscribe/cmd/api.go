package cmd

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"meetscribe/internal/api"
	"meetscribe/internal/container"
	"meetscribe/internal/task"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup("api")
		if err != nil {
			return err
		}

		base, err := container.NewBase(cfg, log)
		if err != nil {
			return err
		}
		defer base.Close()

		if cfg.Server.Env == "production" {
			gin.SetMode(gin.ReleaseMode)
		}

		router := gin.Default()
		api.RegisterRoutes(router, &api.Handlers{
			Meetings:  base.Meetings,
			Tasks:     task.NewGormRepository(base.DB),
			Publisher: base.Broker,
			Log:       log,
		})

		log.Info().Str("port", cfg.Server.Port).Msg("api server started")
		return router.Run(":" + cfg.Server.Port)
	},
}

func init() {
	rootCmd.AddCommand(apiCmd)
}
