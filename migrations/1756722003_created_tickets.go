package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		bookings, err := app.FindCollectionByNameOrId("bookings")
		if err != nil {
			return err
		}
		categories, err := app.FindCollectionByNameOrId("ticket_categories")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("tickets")

		collection.Fields.Add(
			&core.RelationField{
				Name:          "booking",
				Required:      true,
				MaxSelect:     1,
				CollectionId:  bookings.Id,
				CascadeDelete: true,
			},
			&core.RelationField{
				Name:         "category",
				Required:     true,
				MaxSelect:    1,
				CollectionId: categories.Id,
			},
			&core.NumberField{Name: "seq", Required: true, OnlyInt: true, Min: types.Pointer(1.0)},
			&core.TextField{Name: "code", Required: true, Max: 100},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"valid", "used", "cancelled"},
			},
			&core.DateField{Name: "redeemed_at"},
			&core.TextField{Name: "redeemed_by", Max: 200},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_tickets_code", true, "code", "")
		collection.AddIndex("idx_tickets_booking", false, "booking", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
