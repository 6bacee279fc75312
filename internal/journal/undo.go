package journal

import (
	"context"
	"time"

	jerrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// DeleteBatch describes a bulk delete that can still be reversed.
type DeleteBatch struct {
	ID        string    `json:"id"`
	Count     int       `json:"count"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type undoBatch struct {
	DeleteBatch
	trades []models.Trade
	timer  *time.Timer
}

// BulkDelete removes trades at once and keeps exact copies for the undo
// window. Only the latest batch can be undone; starting a new delete makes
// the previous one permanent.
func (s *Service) BulkDelete(ctx context.Context, ids []string, confirmed bool) (DeleteBatch, error) {
	if !confirmed {
		return DeleteBatch{}, jerrors.ErrNotConfirmed
	}
	if len(ids) == 0 {
		return DeleteBatch{}, jerrors.NewValidationError("ids", ids, "nothing selected")
	}
	logger := s.log(ctx, "bulk_delete")

	saved := make([]models.Trade, 0, len(ids))
	found := make([]string, 0, len(ids))
	for _, id := range ids {
		t, err := s.store.GetTrade(ctx, id)
		if err != nil {
			if jerrors.Is(err, jerrors.ErrTradeNotFound) {
				continue
			}
			return DeleteBatch{}, err
		}
		saved = append(saved, t.Clone())
		found = append(found, id)
	}
	if len(found) == 0 {
		return DeleteBatch{}, jerrors.ErrTradeNotFound
	}

	n, err := s.store.DeleteTrades(ctx, found)
	if err != nil {
		return DeleteBatch{}, jerrors.Wrap(err, "failed to delete trades")
	}

	batch := &undoBatch{
		DeleteBatch: DeleteBatch{
			ID:        newID(),
			Count:     n,
			ExpiresAt: s.now().Add(s.opts.UndoWindow),
		},
		trades: saved,
	}

	s.undoMu.Lock()
	if s.pending != nil {
		s.pending.timer.Stop()
	}
	batch.timer = time.AfterFunc(s.opts.UndoWindow, func() { s.expire(batch.ID) })
	s.pending = batch
	s.undoMu.Unlock()

	logger.Info().Str("batch_id", batch.ID).Int("count", n).Dur("undo_window", s.opts.UndoWindow).Msg("Trades deleted")
	return batch.DeleteBatch, nil
}

// Undo restores the trades of the pending delete batch exactly as they were.
func (s *Service) Undo(ctx context.Context) (DeleteBatch, error) {
	s.undoMu.Lock()
	batch := s.pending
	if batch == nil || !s.now().Before(batch.ExpiresAt) {
		s.pending = nil
		s.undoMu.Unlock()
		return DeleteBatch{}, jerrors.ErrNothingToUndo
	}
	batch.timer.Stop()
	s.pending = nil
	s.undoMu.Unlock()

	if err := s.store.SaveTrades(ctx, batch.trades); err != nil {
		return DeleteBatch{}, jerrors.Wrap(err, "failed to restore trades")
	}

	logger := s.log(ctx, "undo")
	logger.Info().Str("batch_id", batch.ID).Int("count", len(batch.trades)).Msg("Delete undone")
	return batch.DeleteBatch, nil
}

// PendingDelete returns the batch that can currently be undone, if any.
func (s *Service) PendingDelete() (DeleteBatch, bool) {
	s.undoMu.Lock()
	defer s.undoMu.Unlock()
	if s.pending == nil || !s.now().Before(s.pending.ExpiresAt) {
		return DeleteBatch{}, false
	}
	return s.pending.DeleteBatch, true
}

func (s *Service) expire(id string) {
	s.undoMu.Lock()
	defer s.undoMu.Unlock()
	if s.pending != nil && s.pending.ID == id {
		s.pending = nil
		s.logger.Debug().Str("batch_id", id).Msg("Undo window expired")
	}
}
