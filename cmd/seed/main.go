package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"whatsapp-ai-agent/internal/config"
	"whatsapp-ai-agent/internal/domain/model"
	"whatsapp-ai-agent/internal/domain/ports/repository"
	pg "whatsapp-ai-agent/internal/infra/db/postgres"
)

func main() {
	// ---- Config ----
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Connect Postgres
	cfg.Database.MaxConns = 4
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	models := pg.NewAIModelRepo(pool)

	// If models already exist, do nothing
	existing, err := models.ListActive(ctx, repository.NoTX)
	if err != nil {
		log.Fatalf("list models: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("%d active models already present. No changes.\n", len(existing))
		for _, m := range existing {
			fmt.Printf("  - %s (%s/%s, default=%t)\n", m.Name, m.Provider, m.ModelIdentifier, m.IsDefault)
		}
		return
	}

	seed := []*model.AIModel{
		{
			Name: "GPT-4o mini", Provider: "openai", ModelIdentifier: "gpt-4o-mini",
			IsActive: true, IsDefault: true, MaxTokens: 500, Temperature: 0.7,
			Pricing: &model.ModelPricing{InputMicrosPer1K: 150, OutputMicrosPer1K: 600},
		},
		{
			Name: "Gemini 2.0 Flash", Provider: "gemini", ModelIdentifier: "gemini-2.0-flash",
			IsActive: true, MaxTokens: 500, Temperature: 0.7,
			Pricing: &model.ModelPricing{InputMicrosPer1K: 100, OutputMicrosPer1K: 400},
		},
		{
			Name: "Llama 3 (local)", Provider: "ollama", ModelIdentifier: "llama3:8b",
			IsActive: true, MaxTokens: 400, Temperature: 0.6,
		},
	}

	for _, m := range seed {
		if err := models.Save(ctx, repository.NoTX, m); err != nil {
			log.Fatalf("save model %q: %v", m.Name, err)
		}
		fmt.Printf("seeded: %s (id=%d, %s/%s, default=%t)\n", m.Name, m.ID, m.Provider, m.ModelIdentifier, m.IsDefault)
	}

	fmt.Println("Seeding complete.")
}
