package migrations

import (
	"os"
	"time"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

// Sample inventory for local development only.
func init() {
	m.Register(func(app core.App) error {
		if os.Getenv("ENVIRONMENT") != "development" {
			return nil
		}

		events, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}
		categories, err := app.FindCollectionByNameOrId("ticket_categories")
		if err != nil {
			return err
		}

		starts := time.Now().AddDate(0, 1, 0).Truncate(time.Hour)

		event := core.NewRecord(events)
		event.Set("name", "Summer Open Air")
		event.Set("description", "Open air concert at the riverside stage.")
		event.Set("venue", "Riverside Stage")
		event.Set("starts_at", starts.Format(types.DefaultDateLayout))
		event.Set("ends_at", starts.Add(6*time.Hour).Format(types.DefaultDateLayout))
		event.Set("status", "upcoming")
		if err := app.Save(event); err != nil {
			return err
		}

		type seedCat struct {
			name        string
			price       string
			earlyBird   string
			quantity    int
			maxPerOrder int
		}
		for _, c := range []seedCat{
			{"General Admission", "25.00", "20.00", 500, 10},
			{"VIP", "75.00", "", 50, 4},
		} {
			r := core.NewRecord(categories)
			r.Set("event", event.Id)
			r.Set("name", c.name)
			r.Set("price", c.price)
			if c.earlyBird != "" {
				r.Set("early_bird_price", c.earlyBird)
				r.Set("early_bird_deadline", starts.AddDate(0, 0, -14).Format(types.DefaultDateLayout))
			}
			r.Set("quantity", c.quantity)
			r.Set("sold", 0)
			r.Set("max_per_order", c.maxPerOrder)
			if err := app.Save(r); err != nil {
				return err
			}
		}
		return nil
	}, nil)
}
