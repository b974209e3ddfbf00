package migrations

import (
	"os"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"

	"ticketbox/internal/auth"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("admins")

		collection.Fields.Add(
			&core.EmailField{Name: "email", Required: true},
			&core.TextField{Name: "name", Required: true, Max: 200},
			&core.TextField{Name: "password_hash", Required: true, Max: 200},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_admins_email", true, "email", "")

		if err := app.Save(collection); err != nil {
			return err
		}

		// Bootstrap the first staff account from the environment so a
		// fresh deployment has a working dashboard login.
		email := os.Getenv("ADMIN_EMAIL")
		password := os.Getenv("ADMIN_PASSWORD")
		if email == "" || password == "" {
			return nil
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		r := core.NewRecord(collection)
		r.Set("email", email)
		r.Set("name", "Administrator")
		r.Set("password_hash", hash)
		return app.Save(r)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("admins")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
