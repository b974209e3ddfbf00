package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		events, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}
		categories, err := app.FindCollectionByNameOrId("ticket_categories")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("bookings")

		collection.Fields.Add(
			&core.TextField{Name: "reference", Required: true, Max: 50},
			&core.RelationField{
				Name:         "event",
				Required:     true,
				MaxSelect:    1,
				CollectionId: events.Id,
			},
			&core.RelationField{
				Name:         "category",
				Required:     true,
				MaxSelect:    1,
				CollectionId: categories.Id,
			},
			&core.NumberField{Name: "quantity", Required: true, OnlyInt: true, Min: types.Pointer(1.0)},
			&core.TextField{Name: "customer_name", Required: true, Max: 200},
			&core.EmailField{Name: "customer_email", Required: true},
			&core.TextField{Name: "customer_phone", Max: 50},
			&core.TextField{Name: "unit_price", Required: true, Max: 50},
			&core.TextField{Name: "subtotal", Required: true, Max: 50},
			&core.TextField{Name: "service_fee", Required: true, Max: 50},
			&core.TextField{Name: "tax", Required: true, Max: 50},
			&core.TextField{Name: "total", Required: true, Max: 50},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"reserved", "pending", "confirmed", "cancelled", "expired", "refunded"},
			},
			&core.DateField{Name: "expires_at", Required: true},
			&core.TextField{Name: "payment", Max: 50},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_bookings_reference", true, "reference", "")
		collection.AddIndex("idx_bookings_status_expires", false, "status, expires_at", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("bookings")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
