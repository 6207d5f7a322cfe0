// Command clean-db empties the key tables in a development PostgreSQL
// instance. Destructive; it exists so a dev environment can return to a
// cold-start state without dropping the schema.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/creatorhub/signet/internal/config"
	"github.com/creatorhub/signet/internal/store/postgres"
)

func main() {
	ctx := context.Background()

	db, err := postgres.New(ctx, postgres.Config(config.LoadDatabase()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Println("Cleaning database...")

	if err := db.Migrate(ctx, "TRUNCATE kv_records, set_members"); err != nil {
		fmt.Fprintf(os.Stderr, "Truncate failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Cleared kv_records and set_members. Next server start mints a fresh key.")
}
