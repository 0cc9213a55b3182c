// Package journal keeps a local record of submitted transfers in BadgerDB so
// that hashes survive a crash between broadcast and confirmation.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"time"

	"github.com/Mohsinsiddi/tokensend/internal/transfer"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned by Get for an unknown hash.
var ErrNotFound = errors.New("journal: transfer not found")

// Status of a journaled transfer.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusReverted  Status = "reverted"
	StatusTimeout   Status = "timeout"
)

const (
	recordPrefix = "transfer:"
	timePrefix   = "submitted:"
)

// Record is one journaled transfer.
type Record struct {
	ID          uuid.UUID `json:"id"`
	Hash        string    `json:"hash"`
	ChainID     int64     `json:"chain_id"`
	From        string    `json:"from"`
	Recipient   string    `json:"recipient"`
	Token       string    `json:"token"`
	Amount      string    `json:"amount"` // raw base units, decimal
	Nonce       uint64    `json:"nonce"`
	GasLimit    uint64    `json:"gas_limit"`
	GasPrice    string    `json:"gas_price"` // wei, decimal
	Status      Status    `json:"status"`
	BlockNumber uint64    `json:"block_number,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store is a Badger-backed transfer journal. It implements transfer.Journal.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

var _ transfer.Journal = (*Store)(nil)

// Dir returns the journal directory under configDir.
func Dir(configDir string) string {
	return filepath.Join(configDir, "journal")
}

// Open opens (creating if needed) the journal at dir. Badger's own messages
// go to log.
func Open(dir string, log zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(newBadgerLogger(log))
	opts.Compression = options.Snappy
	return open(opts)
}

// OpenInMemory opens a journal that lives only as long as the Store.
func OpenInMemory() (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true).WithLogger(newBadgerLogger(zerolog.Nop())))
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts or replaces rec. A zero ID is assigned a fresh UUID.
func (s *Store) Put(rec *Record) error {
	if rec.Hash == "" {
		return errors.New("journal: record hash is required")
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	if rec.SubmittedAt.IsZero() {
		rec.SubmittedAt = s.now().UTC()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.SubmittedAt
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		prev, err := getRecord(txn, rec.Hash)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		case !prev.SubmittedAt.Equal(rec.SubmittedAt):
			if err := txn.Delete(timeKey(prev.SubmittedAt, rec.Hash)); err != nil {
				return err
			}
		}
		if err := txn.Set(recordKey(rec.Hash), data); err != nil {
			return err
		}
		return txn.Set(timeKey(rec.SubmittedAt, rec.Hash), []byte(rec.Hash))
	})
}

// Get returns the record for hash.
func (s *Store) Get(hash string) (*Record, error) {
	var rec *Record
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, hash)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func getRecord(txn *badger.Txn, hash string) (*Record, error) {
	item, err := txn.Get(recordKey(hash))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns up to limit records, newest first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]*Record, error) {
	var out []*Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(timePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration must start past the last key with the prefix.
		for it.Seek(append([]byte(timePrefix), 0xff)); it.Valid(); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			hash, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			item, err := txn.Get(recordKey(string(hash)))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			var rec Record
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
				return err
			}
			out = append(out, &rec)
		}
		return nil
	})
	return out, err
}

// UpdateStatus sets the status and block number of hash.
func (s *Store) UpdateStatus(hash string, status Status, block uint64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, hash)
		if err != nil {
			return err
		}
		rec.Status = status
		if block != 0 {
			rec.BlockNumber = block
		}
		rec.UpdatedAt = s.now().UTC()
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set(recordKey(hash), data)
	})
}

// RecordSubmission stores a freshly broadcast transfer as pending.
func (s *Store) RecordSubmission(_ context.Context, sub transfer.Submission) error {
	rec := &Record{
		Hash:        sub.Hash.Hex(),
		From:        sub.From.Hex(),
		Recipient:   sub.Recipient.Hex(),
		Token:       sub.Token.Hex(),
		Amount:      bigString(sub.Amount),
		Nonce:       sub.Nonce,
		GasLimit:    sub.Gas,
		GasPrice:    bigString(sub.GasPrice),
		Status:      StatusPending,
		SubmittedAt: sub.At.UTC(),
	}
	if sub.ChainID != nil {
		rec.ChainID = sub.ChainID.Int64()
	}
	return s.Put(rec)
}

// RecordOutcome moves hash to the status matching outcome.
func (s *Store) RecordOutcome(_ context.Context, hash common.Hash, outcome transfer.Outcome, block uint64) error {
	return s.UpdateStatus(hash.Hex(), statusFor(outcome), block)
}

func statusFor(o transfer.Outcome) Status {
	switch o {
	case transfer.OutcomeConfirmed:
		return StatusConfirmed
	case transfer.OutcomeReverted:
		return StatusReverted
	case transfer.OutcomeTimeout:
		return StatusTimeout
	default:
		return StatusPending
	}
}

func recordKey(hash string) []byte {
	return []byte(recordPrefix + hash)
}

func timeKey(t time.Time, hash string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", timePrefix, t.UnixNano(), hash))
}

func bigString(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}
