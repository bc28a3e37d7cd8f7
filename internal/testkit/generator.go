// Package testkit generates synthetic retail sales tables with known
// structure, used by tests and the CLI sample command.
package testkit

import (
	"math"
	"math/rand"
	"time"

	"datastory/domain/table"
)

// Config controls the shape of the generated dataset.
type Config struct {
	Regions     []string
	Products    []string
	Days        int
	BaseSales   float64
	Trend       float64 // additive drift per day
	Noise       float64 // stddev of the gaussian noise on sales
	MissingRate float64 // probability that a sales cell is blank
	StartDate   time.Time
	Seed        int64
}

// DefaultConfig returns a small dataset with a visible upward trend and
// weekly seasonality.
func DefaultConfig() Config {
	return Config{
		Regions:     []string{"north", "south", "east", "west"},
		Products:    []string{"widget", "gadget", "gizmo"},
		Days:        90,
		BaseSales:   1000,
		Trend:       4,
		Noise:       120,
		MissingRate: 0.02,
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Seed:        42,
	}
}

// Generator produces deterministic synthetic sales data for a given seed.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// NewGenerator creates a generator for the given config.
func NewGenerator(cfg Config) *Generator {
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// Table generates one row per day and region: order_date, region, product,
// sales, units. Sales follow base + trend*day + weekly seasonality + noise,
// with a few cells left missing.
func (g *Generator) Table() (*table.Table, error) {
	n := g.cfg.Days * len(g.cfg.Regions)
	dates := make([]table.Value, 0, n)
	regions := make([]table.Value, 0, n)
	products := make([]table.Value, 0, n)
	sales := make([]table.Value, 0, n)
	units := make([]table.Value, 0, n)

	for day := 0; day < g.cfg.Days; day++ {
		date := g.cfg.StartDate.AddDate(0, 0, day)
		seasonal := 1 + 0.15*math.Sin(2*math.Pi*float64(day)/7)
		for ri, region := range g.cfg.Regions {
			dates = append(dates, table.NewTimeValue(date))
			regions = append(regions, table.NewStringValue(region))
			products = append(products, table.NewStringValue(g.cfg.Products[g.rng.Intn(len(g.cfg.Products))]))

			// Regions differ by a fixed multiplier so group comparisons
			// have something to find.
			level := g.cfg.BaseSales * (1 + 0.1*float64(ri))
			amount := (level+g.cfg.Trend*float64(day))*seasonal + g.rng.NormFloat64()*g.cfg.Noise
			if amount < 0 {
				amount = 0
			}

			if g.rng.Float64() < g.cfg.MissingRate {
				sales = append(sales, table.NewMissingValue())
			} else {
				sales = append(sales, table.NewNumberValue(math.Round(amount*100)/100))
			}
			units = append(units, table.NewNumberValue(float64(1+g.rng.Intn(50))))
		}
	}

	return table.New(
		table.Column{Name: "order_date", Type: table.TypeDatetime, Values: dates},
		table.Column{Name: "region", Type: table.TypeCategorical, Values: regions},
		table.Column{Name: "product", Type: table.TypeCategorical, Values: products},
		table.Column{Name: "sales", Type: table.TypeNumeric, Values: sales},
		table.Column{Name: "units", Type: table.TypeNumeric, Values: units},
	)
}
