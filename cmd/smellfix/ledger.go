/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"fmt"

	"chainguard.dev/smellfix/ledger"
	"chainguard.dev/smellfix/ledger/postgresledger"
	"chainguard.dev/smellfix/ledger/sqliteledger"
)

func openLedger(ctx context.Context, cfg ledgerConfig) (ledger.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqliteledger.New(cfg.DSN)
	case "postgres":
		return postgresledger.Open(ctx, cfg.DSN)
	case "memory":
		return ledger.NewMemory(), nil
	default:
		return nil, fmt.Errorf("ledger driver %q is not one of sqlite, postgres, memory", cfg.Driver)
	}
}
