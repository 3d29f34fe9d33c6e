package memoranda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pacioli/internal/core"
)

// ErrNotFound is returned by the store when a memorandum (or one of
// its cascade members) does not exist.
var ErrNotFound = errors.New("memorandum not found")

// MemorandumSummary is a listing row: the memorandum plus how many
// transactions it carried.
type MemorandumSummary struct {
	core.Memorandum
	Transactions int
}

// Store is the persistence the pipeline consumes. SaveMemorandum and
// SaveJournalEntry are each atomic; DeleteMemorandumCascade removes
// the memorandum and everything it owns in one transaction.
type Store interface {
	SaveMemorandum(ctx context.Context, m core.Memorandum, txs []core.MemorandaTransaction) error
	ListMemoranda(ctx context.Context) ([]MemorandumSummary, error)
	ListTransactions(ctx context.Context, memorandumID string) ([]core.MemorandaTransaction, error)
	SaveJournalEntry(ctx context.Context, transactionID int64, je core.JournalEntry) (int64, error)
	DeleteMemorandumCascade(ctx context.Context, memorandumID string) error
}

// Publisher hands a posting job to the queue. A nil Publisher makes
// the service post synchronously instead.
type Publisher interface {
	PublishMemorandumPosting(ctx context.Context, memorandumID string) error
}

type Service struct {
	store     Store
	publisher Publisher
}

func NewService(store Store, publisher Publisher) *Service {
	return &Service{store: store, publisher: publisher}
}

// Upload parses an uploaded memorandum, persists it with its
// transactions and hands posting off to the worker queue. When no
// queue is configured, or publishing fails, posting happens inline so
// an accepted upload always ends up in the ledger.
func (s *Service) Upload(ctx context.Context, fileName string, r io.Reader) (core.Memorandum, error) {
	details, err := ParseMemorandum(r)
	if err != nil {
		return core.Memorandum{}, fmt.Errorf("parse memorandum %q: %w", fileName, err)
	}

	m := core.Memorandum{
		ID:         uuid.NewString(),
		FileName:   fileName,
		UploadedAt: core.DateOf(time.Now()),
	}
	txs := make([]core.MemorandaTransaction, len(details))
	for i, d := range details {
		payload, err := json.Marshal(d)
		if err != nil {
			return core.Memorandum{}, fmt.Errorf("serialize transaction details: %w", err)
		}
		txs[i] = core.MemorandaTransaction{
			MemorandumID: m.ID,
			Details:      string(payload),
		}
	}

	if err := s.store.SaveMemorandum(ctx, m, txs); err != nil {
		return core.Memorandum{}, fmt.Errorf("save memorandum %q: %w", fileName, err)
	}
	slog.InfoContext(ctx, "Memorandum saved",
		"id", m.ID,
		"file_name", fileName,
		"transactions", len(txs))

	if s.publisher != nil {
		err := s.publisher.PublishMemorandumPosting(ctx, m.ID)
		if err == nil {
			return m, nil
		}
		slog.ErrorContext(ctx, "Failed to publish posting message, posting inline",
			"id", m.ID, "error", err)
	}
	if err := s.Post(ctx, m.ID); err != nil {
		return m, fmt.Errorf("post memorandum %s: %w", m.ID, err)
	}
	return m, nil
}

// Post converts the memorandum's unposted transactions into journal
// entries and writes each one atomically. Already-posted transactions
// are skipped, so redelivered queue messages are harmless.
func (s *Service) Post(ctx context.Context, memorandumID string) error {
	txs, err := s.store.ListTransactions(ctx, memorandumID)
	if err != nil {
		return fmt.Errorf("list transactions for %s: %w", memorandumID, err)
	}

	posted := 0
	for _, tx := range txs {
		if tx.JournalEntryID != 0 {
			continue
		}
		var d TransactionDetails
		if err := json.Unmarshal([]byte(tx.Details), &d); err != nil {
			return fmt.Errorf("decode details of transaction %d: %w", tx.ID, err)
		}
		je, err := journalEntryFrom(tx.ID, d)
		if err != nil {
			return err
		}
		if _, err := s.store.SaveJournalEntry(ctx, tx.ID, je); err != nil {
			return fmt.Errorf("save journal entry for transaction %d: %w", tx.ID, err)
		}
		posted++
	}

	slog.InfoContext(ctx, "Memorandum posted",
		"id", memorandumID,
		"journal_entries", posted,
		"skipped", len(txs)-posted)
	return nil
}

// Delete removes the memorandum and everything it owns. The cascade
// runs in one store transaction: either every transaction, journal
// entry and ledger entry goes, or nothing does.
func (s *Service) Delete(ctx context.Context, memorandumID string) error {
	if err := s.store.DeleteMemorandumCascade(ctx, memorandumID); err != nil {
		return fmt.Errorf("delete memorandum %s: %w", memorandumID, err)
	}
	slog.InfoContext(ctx, "Memorandum deleted", "id", memorandumID)
	return nil
}

// List returns all memoranda with their transaction counts, newest
// first.
func (s *Service) List(ctx context.Context) ([]MemorandumSummary, error) {
	memos, err := s.store.ListMemoranda(ctx)
	if err != nil {
		return nil, fmt.Errorf("list memoranda: %w", err)
	}
	return memos, nil
}

// Transactions returns one memorandum's parsed transactions.
func (s *Service) Transactions(ctx context.Context, memorandumID string) ([]core.MemorandaTransaction, error) {
	txs, err := s.store.ListTransactions(ctx, memorandumID)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", memorandumID, err)
	}
	return txs, nil
}
