package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"

	accountdomain "github.com/AlibekovAA/book-exchange/backend/internal/account/domain"
	catalogdomain "github.com/AlibekovAA/book-exchange/backend/internal/catalog/domain"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/config"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/constants"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/crypto"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/db"
	commonhttp "github.com/AlibekovAA/book-exchange/backend/internal/common/http"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
	exchangedomain "github.com/AlibekovAA/book-exchange/backend/internal/exchange/domain"
	"github.com/AlibekovAA/book-exchange/backend/internal/recordstore"
	"github.com/AlibekovAA/book-exchange/backend/migrations"
)

type stores struct {
	accounts  recordstore.Store[accountdomain.Account]
	listings  recordstore.Store[catalogdomain.Listing]
	proposals recordstore.Store[exchangedomain.Proposal]
	health    commonhttp.HealthCheck
	pool      *pgxpool.Pool
}

// openStores builds one RecordStore per collection on the configured backend.
// Pool metrics stop when runCtx is cancelled.
func openStores(ctx, runCtx context.Context, cfg config.Config, ids crypto.IDGenerator, log *logger.Logger) (stores, error) {
	if cfg.StoreBackend == config.BackendPostgres {
		return openPgStores(ctx, runCtx, cfg, ids, log)
	}
	return openFileStores(cfg, ids, log)
}

func openFileStores(cfg config.Config, ids crypto.IDGenerator, log *logger.Logger) (stores, error) {
	accounts, err := recordstore.OpenFileStore[accountdomain.Account](constants.AccountsCollection, cfg.DataDir, ids, log)
	if err != nil {
		return stores{}, err
	}
	listings, err := recordstore.OpenFileStore[catalogdomain.Listing](constants.ListingsCollection, cfg.DataDir, ids, log)
	if err != nil {
		return stores{}, err
	}
	proposals, err := recordstore.OpenFileStore[exchangedomain.Proposal](constants.ProposalsCollection, cfg.DataDir, ids, log)
	if err != nil {
		return stores{}, err
	}

	dir := cfg.DataDir
	return stores{
		accounts:  accounts,
		listings:  listings,
		proposals: proposals,
		health: func(context.Context) error {
			info, err := os.Stat(dir)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}
			return nil
		},
	}, nil
}

func openPgStores(ctx, runCtx context.Context, cfg config.Config, ids crypto.IDGenerator, log *logger.Logger) (stores, error) {
	migrator, err := db.NewMigrator(cfg.DatabaseURL, migrations.FS, log)
	if err != nil {
		return stores{}, err
	}
	if err := migrator.Up(ctx); err != nil {
		return stores{}, fmt.Errorf("apply migrations: %w", err)
	}

	pool, err := db.NewPool(ctx, log, cfg.DatabaseURL)
	if err != nil {
		return stores{}, err
	}
	db.StartPoolMetrics(runCtx, pool, constants.DBPoolMetricsInterval)

	return stores{
		accounts:  recordstore.NewPgStore[accountdomain.Account](constants.AccountsCollection, pool, ids, log),
		listings:  recordstore.NewPgStore[catalogdomain.Listing](constants.ListingsCollection, pool, ids, log),
		proposals: recordstore.NewPgStore[exchangedomain.Proposal](constants.ProposalsCollection, pool, ids, log),
		health:    pool.Ping,
		pool:      pool,
	}, nil
}
