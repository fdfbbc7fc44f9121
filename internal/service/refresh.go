package service

import (
	"context"

	"github.com/injoyai/logs"
	"github.com/pkg/errors"

	"github.com/itzana/itzanago/internal/storage"
	"github.com/itzana/itzanago/models"
)

const (
	TableReservations = "reservations"
	TableAccounts     = "grouped_accounts"
)

type TableLoader interface {
	Load(ctx context.Context, path, table string) (storage.Table, error)
}

type SnapshotWriter interface {
	Rebuild(ctx context.Context, tables []storage.Table) (map[string]int, error)
}

// Refresher rebuilds the relational snapshot from the two spreadsheets.
type Refresher struct {
	loader           TableLoader
	snapshot         SnapshotWriter
	reservationsFile string
	accountsFile     string
}

func NewRefresher(loader TableLoader, snapshot SnapshotWriter, reservationsFile, accountsFile string) *Refresher {
	return &Refresher{
		loader:           loader,
		snapshot:         snapshot,
		reservationsFile: reservationsFile,
		accountsFile:     accountsFile,
	}
}

// Reload reads both spreadsheets first and only then replaces the snapshot,
// so a bad file leaves the previous snapshot in place.
func (r *Refresher) Reload(ctx context.Context) (*models.ReloadResult, error) {
	logs.Infof("[Refresh] loading %s and %s\n", r.reservationsFile, r.accountsFile)

	reservations, err := r.loader.Load(ctx, r.reservationsFile, TableReservations)
	if err != nil {
		return nil, errors.Wrap(err, "load reservations")
	}
	accounts, err := r.loader.Load(ctx, r.accountsFile, TableAccounts)
	if err != nil {
		return nil, errors.Wrap(err, "load grouped accounts")
	}

	counts, err := r.snapshot.Rebuild(ctx, []storage.Table{reservations, accounts})
	if err != nil {
		return nil, errors.Wrap(err, "rebuild snapshot")
	}

	res := &models.ReloadResult{
		ReservationsLoaded: counts[TableReservations],
		AccountsLoaded:     counts[TableAccounts],
	}
	logs.Infof("[Refresh] snapshot rebuilt: %d reservations, %d grouped accounts\n",
		res.ReservationsLoaded, res.AccountsLoaded)
	return res, nil
}
