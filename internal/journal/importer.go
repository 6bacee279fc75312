package journal

import (
	"context"
	"io"

	"trade-journal/internal/csvimport"
	jerrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
)

// Import reads a broker CSV export, normalizes it and stores the resulting
// trades under accountID. When mandatory columns are missing nothing is
// stored and the returned error is an ImportError.
func (s *Service) Import(ctx context.Context, r io.Reader, source, accountID string) (csvimport.Result, error) {
	logger := s.log(ctx, "import")

	if accountID != "" {
		if _, err := s.store.GetAccount(ctx, accountID); err != nil {
			return csvimport.Result{}, err
		}
	}

	rows, headers, err := csvimport.ReadCSV(r)
	if err != nil {
		return csvimport.Result{}, jerrors.Wrap(err, "failed to read CSV")
	}

	now := s.now()
	res := csvimport.Normalize(rows, headers, now)
	if err := res.Err(); err != nil {
		logging.LogImport(logger, 0, len(rows), res.Errors)
		return res, err
	}

	for i := range res.Trades {
		res.Trades[i].AccountID = accountID
	}
	if len(res.Trades) > 0 {
		if err := s.store.SaveTrades(ctx, res.Trades); err != nil {
			return res, jerrors.Wrap(err, "failed to save imported trades")
		}
	}

	rec := &models.ImportRecord{
		ID:        newID(),
		Source:    source,
		Imported:  len(res.Trades),
		Skipped:   res.Skipped,
		AccountID: accountID,
		At:        now,
	}
	if err := s.store.RecordImport(ctx, rec); err != nil {
		logger.Warn().Err(err).Msg("Failed to record import")
	}

	logging.LogImport(logger, len(res.Trades), res.Skipped, res.Errors)
	return res, nil
}

// Export writes the trades in scope as CSV, or XLSX when xlsx is set.
func (s *Service) Export(ctx context.Context, w io.Writer, sc Scope, xlsx bool) (int, error) {
	trades, err := s.Trades(ctx, sc)
	if err != nil {
		return 0, err
	}
	if xlsx {
		err = csvimport.ExportXLSX(w, trades)
	} else {
		err = csvimport.ExportCSV(w, trades)
	}
	if err != nil {
		return 0, jerrors.Wrap(err, "failed to export trades")
	}
	return len(trades), nil
}
