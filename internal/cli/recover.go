package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"ham-exam-bot/internal/config"
	"ham-exam-bot/internal/infra/postgres"
)

// NewRecoverCmd closes session records left active by a crashed process.
func NewRecoverCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Mark every quiz session still flagged active as ended",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			db := openBun(cfg.Postgres.URL)
			defer db.Close()

			service := newService(cfg, nil, postgres.NewResultStore(db), nil, nil)
			n, err := service.Recover(cmd.Context())
			if err != nil {
				return err
			}
			log.Printf("recover: %d session records closed", n)
			return nil
		},
	}
}
