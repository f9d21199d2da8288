package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"giftshop-bot/internal/logging"
	"giftshop-bot/internal/repository"
)

func migrateCmd() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.New("info", "text")
			if err != nil {
				return err
			}
			db, err := repository.NewDB(dsn, logging.GormWriter{Log: logging.Component(log, "gorm")})
			if err != nil {
				return fmt.Errorf("db: %w", err)
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			log.WithField("dialect", db.Dialector.Name()).Info("schema is up to date")
			return nil
		},
	}

	defaultDSN := os.Getenv("DATABASE_URL")
	if defaultDSN == "" {
		defaultDSN = "giftbot.db"
	}
	cmd.Flags().StringVar(&dsn, "dsn", defaultDSN, "database DSN, sqlite path or postgres URL (env DATABASE_URL)")
	return cmd
}
