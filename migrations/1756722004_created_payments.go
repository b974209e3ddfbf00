package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		bookings, err := app.FindCollectionByNameOrId("bookings")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("payments")

		collection.Fields.Add(
			&core.RelationField{
				Name:          "booking",
				Required:      true,
				MaxSelect:     1,
				CollectionId:  bookings.Id,
				CascadeDelete: true,
			},
			&core.TextField{Name: "amount", Required: true, Max: 50},
			&core.TextField{Name: "currency", Required: true, Max: 10},
			&core.TextField{Name: "method", Max: 50},
			&core.TextField{Name: "gateway_order_id", Required: true, Max: 100},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"pending", "completed", "failed", "refunded"},
			},
			&core.TextField{Name: "gateway_response", Max: 10000},
			&core.DateField{Name: "processed_at"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_payments_gateway_order", true, "gateway_order_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("payments")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
