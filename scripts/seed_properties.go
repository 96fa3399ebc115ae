package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"rentals/internal/database"
	"rentals/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type seedProperty struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Price       float64  `yaml:"price"`
	Location    string   `yaml:"location"`
	Description string   `yaml:"description"`
	Bedrooms    int      `yaml:"bedrooms"`
	Bathrooms   int      `yaml:"bathrooms"`
	MaxGuests   int      `yaml:"max_guests"`
	Area        float64  `yaml:"area"`
	Amenities   []string `yaml:"amenities"`
	Email       string   `yaml:"email"`
	Phone       string   `yaml:"phone"`
	Discount    float64  `yaml:"discount"`
	Rules       *struct {
		Smoking bool `yaml:"smoking"`
		Pets    bool `yaml:"pets"`
		Events  bool `yaml:"events"`
		Cooking bool `yaml:"cooking"`
	} `yaml:"rules"`
	Availability struct {
		StartDate   string `yaml:"start_date"`
		EndDate     string `yaml:"end_date"`
		MinimumStay *int   `yaml:"minimum_stay"`
	} `yaml:"availability"`
}

type SeedConfig struct {
	Properties []seedProperty `yaml:"properties"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		seedPath = flag.String("properties", "configs/properties.yaml", "path to properties.yaml")
		dbPath   = flag.String("db", "./data/rentals.db", "path to sqlite db")
	)
	flag.Parse()

	data, err := os.ReadFile(*seedPath)
	if err != nil {
		return fmt.Errorf("read properties: %w", err)
	}
	var cfg SeedConfig
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse properties: %w", err)
	}
	if len(cfg.Properties) == 0 {
		return fmt.Errorf("no properties in yaml")
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created := 0
	updated := 0
	for _, sp := range cfg.Properties {
		if strings.TrimSpace(sp.Name) == "" {
			continue
		}
		property, err := sp.toProperty()
		if err != nil {
			return fmt.Errorf("%s: %w", sp.Name, err)
		}

		existing, err := findByName(ctx, db, property.Email, property.Name)
		if err != nil {
			return fmt.Errorf("lookup %s: %w", sp.Name, err)
		}
		if existing != nil {
			// отзывы и рейтинг остаются от текущей версии
			property.ID = existing.ID
			property.Owner = existing.Owner
			property.Images = existing.Images
			property.Reviews = existing.Reviews
			property.AverageRating = existing.AverageRating
			property.TotalReviews = existing.TotalReviews
			property.CreatedAt = existing.CreatedAt
			property.Version = existing.Version
			if err = db.ReplaceProperty(ctx, property); err != nil {
				return fmt.Errorf("update %s: %w", sp.Name, err)
			}
			updated++
			continue
		}

		if err = db.CreateProperty(ctx, property); err != nil {
			return fmt.Errorf("create %s: %w", sp.Name, err)
		}
		created++
	}

	fmt.Printf("done: created=%d updated=%d\n", created, updated)
	return nil
}

func findByName(ctx context.Context, db *database.DB, email, name string) (*models.Property, error) {
	owned, err := db.GetPropertiesByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	for _, p := range owned {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, nil
}

func (sp seedProperty) toProperty() (*models.Property, error) {
	p := &models.Property{
		Name:        sp.Name,
		Type:        sp.Type,
		Price:       sp.Price,
		Location:    sp.Location,
		Description: sp.Description,
		Bedrooms:    sp.Bedrooms,
		Bathrooms:   sp.Bathrooms,
		MaxGuests:   sp.MaxGuests,
		Area:        sp.Area,
		Amenities:   sp.Amenities,
		Email:       strings.TrimSpace(sp.Email),
		Phone:       sp.Phone,
		Discount:    sp.Discount,
		Rules:       models.DefaultRules(),
	}
	if sp.Rules != nil {
		p.Rules = models.Rules{
			Smoking: sp.Rules.Smoking,
			Pets:    sp.Rules.Pets,
			Events:  sp.Rules.Events,
			Cooking: sp.Rules.Cooking,
		}
	}

	var err error
	if p.Availability.StartDate, err = seedDate(sp.Availability.StartDate); err != nil {
		return nil, err
	}
	if p.Availability.EndDate, err = seedDate(sp.Availability.EndDate); err != nil {
		return nil, err
	}
	p.Availability.MinimumStay = models.MinimumStayOrDefault(sp.Availability.MinimumStay)

	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func seedDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return &t, nil
}
