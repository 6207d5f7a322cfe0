// Copyright 2026 The Signet Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command migrate applies the postgres key store schema. Only needed when
// STORE_BACKEND=postgres; the redis backend needs no schema.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/creatorhub/signet/internal/config"
	"github.com/creatorhub/signet/internal/store/postgres"
)

func main() {
	dbCfg := config.LoadDatabase()

	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		Host:         dbCfg.Host,
		Port:         dbCfg.Port,
		User:         dbCfg.User,
		Password:     dbCfg.Password,
		Database:     dbCfg.Database,
		SSLMode:      dbCfg.SSLMode,
		MaxOpenConns: dbCfg.MaxOpenConns,
		MaxIdleConns: dbCfg.MaxIdleConns,
	})
	if err != nil {
		fmt.Printf("Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Println("Applying schema...")
	if err := db.Migrate(ctx, postgres.Schema); err != nil {
		fmt.Printf("Migration failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Migration successful.")
}
