package main

import (
	"errors"
	"log"
	"os"

	"dost-pmns-api/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	config.App = cfg
	logger := config.InitLogging(cfg)

	db, err := config.InitDB(cfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	cli := &commandLine{db: db, out: os.Stdout}
	if err := cli.run(os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			logger.WithError(err).Error("admin command failed")
		}
		os.Exit(1)
	}
}
