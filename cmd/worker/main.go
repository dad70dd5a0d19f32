package main

import (
	"context"
	"log"
	"time"

	"docchat/internal/activities"
	"docchat/internal/api"
	"docchat/internal/config"
	"docchat/internal/storage"
	"docchat/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	index, err := api.BuildIndex(cfg, db)
	if err != nil {
		log.Fatal(err)
	}
	blobs, err := storage.NewBlobStore(cfg.DataRoot)
	if err != nil {
		log.Fatal(err)
	}
	a, err := activities.New(cfg, storage.NewPostgresStore(db), index, blobs)
	if err != nil {
		log.Fatal(err)
	}
	activities.Register(w, a)

	log.Printf("docchat worker listening on %s queue=%s vector_backend=%q embed_providers=%q", cfg.TemporalAddress, cfg.TemporalTaskQueue, cfg.VectorBackend, cfg.EmbedProviders)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal(err)
	}
}
