package main

import (
	"context"
	"flag"
	"log"
	"time"

	"bookhub/internal/lending"
	"bookhub/internal/notify"
	"bookhub/pkg/database"
	"bookhub/pkg/utils"
)

func main() {
	var (
		window   = flag.Duration("window", 48*time.Hour, "notify for loans due within this window")
		interval = flag.Duration("interval", 10*time.Minute, "how often to scan for due loans")
	)
	flag.Parse()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	srvCfg := utils.LoadServerConfig()

	registry := notify.NewRegistry()
	server := notify.NewServer(srvCfg.NotifyAddr, registry, nil)

	go func() {
		if err := server.Run(); err != nil {
			log.Fatalf("[notify] UDP server failed: %v", err)
		}
	}()

	repo := lending.NewRepo(db)

	log.Printf("[due-notify] scanning every %s for loans due within %s", *interval, *window)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	scan(repo, server, *window)
	for range ticker.C {
		scan(repo, server, *window)
	}
}

func scan(repo *lending.Repo, server *notify.Server, window time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	due, err := repo.ListDueWithin(ctx, window)
	if err != nil {
		log.Printf("[due-notify] scan failed: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}

	log.Printf("[due-notify] %d loans due within %s", len(due), window)
	for _, rec := range due {
		server.NotifyDue(rec)
	}
}
