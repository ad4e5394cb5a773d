package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"masterclass-reconciler/internal/config"
	"masterclass-reconciler/internal/domain"
	"masterclass-reconciler/internal/domain/model"
	"masterclass-reconciler/internal/infra/db"
	"masterclass-reconciler/internal/infra/db/docstore"
	"masterclass-reconciler/internal/infra/logging"
)

// catalogFile is the on-disk shape of a resource catalog. Prices are strings
// so they keep their exact decimal value.
type catalogFile struct {
	Resources []struct {
		ID       string     `yaml:"id"`
		Title    string     `yaml:"title"`
		Type     string     `yaml:"type"`
		Price    string     `yaml:"price"`
		StartsAt *time.Time `yaml:"starts_at"`
		Items    []struct {
			ID    string `yaml:"id"`
			Title string `yaml:"title"`
			Price string `yaml:"price"`
			Type  string `yaml:"type"`
		} `yaml:"items"`
	} `yaml:"resources"`
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	catalogPath := flag.String("catalog", "catalog.yaml", "path to the resource catalog")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, closeStore, err := db.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer closeStore()

	resources, err := loadCatalog(*catalogPath)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}

	repo := docstore.NewResourceRepo(store)
	created, kept := 0, 0
	for _, r := range resources {
		// Version 0 means create-if-absent; existing resources keep their access lists.
		err := repo.Save(ctx, r)
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrVersionConflict):
			kept++
		default:
			log.Fatalf("save %s: %v", r.ID, err)
		}
	}
	fmt.Printf("%d resources created, %d already present.\n", created, kept)
}

func loadCatalog(path string) ([]*model.Resource, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	out := make([]*model.Resource, 0, len(f.Resources))
	for _, in := range f.Resources {
		if in.ID == "" || in.Title == "" {
			return nil, fmt.Errorf("resource without id or title")
		}
		price, err := parsePrice(in.Price)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in.ID, err)
		}
		r := &model.Resource{
			ID:         in.ID,
			Title:      in.Title,
			Type:       model.ResourceType(in.Type),
			Price:      price,
			AccessList: []string{},
			UpdatedAt:  now,
		}
		if in.StartsAt != nil {
			r.Schedule = &model.Schedule{StartsAt: in.StartsAt.UTC()}
		}
		for _, it := range in.Items {
			p, err := parsePrice(it.Price)
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", in.ID, it.ID, err)
			}
			r.Items = append(r.Items, model.Item{ID: it.ID, Title: it.Title, Price: p, Type: it.Type})
		}
		out = append(out, r)
	}
	return out, nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
