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

		collection := core.NewBaseCollection("ticket_categories")

		collection.Fields.Add(
			&core.RelationField{
				Name:          "event",
				Required:      true,
				MaxSelect:     1,
				CollectionId:  events.Id,
				CascadeDelete: true,
			},
			&core.TextField{Name: "name", Required: true, Max: 100},
			// Prices are stored as exact decimal strings; arithmetic
			// never touches floats.
			&core.TextField{Name: "price", Required: true, Max: 50},
			&core.TextField{Name: "early_bird_price", Max: 50},
			&core.DateField{Name: "early_bird_deadline"},
			&core.NumberField{Name: "quantity", Required: true, OnlyInt: true, Min: types.Pointer(1.0)},
			&core.NumberField{Name: "sold", OnlyInt: true, Min: types.Pointer(0.0)},
			&core.NumberField{Name: "max_per_order", OnlyInt: true, Min: types.Pointer(0.0)},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("ticket_categories")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
