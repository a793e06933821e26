package wallet

import (
	"fmt"

	"github.com/dgraph-io/badger"
	"github.com/mosaicnetworks/servicenode/src/collateral"
	cm "github.com/mosaicnetworks/servicenode/src/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const outputPrefix = "output"

// BadgerOutputStore is an OutputStore backed by a Badger database.
type BadgerOutputStore struct {
	db   *badger.DB
	path string
}

// NewBadgerOutputStore opens an existing database or creates a new one if
// nothing is found in path.
func NewBadgerOutputStore(path string, logger *logrus.Entry) (*BadgerOutputStore, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(true).
		WithTruncate(true)

	if logger != nil {
		sub := logger.WithFields(logrus.Fields{"ns": "badger"})
		opts = opts.WithLogger(sub)
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open output store")
	}

	return &BadgerOutputStore{
		db:   handle,
		path: path,
	}, nil
}

func outputKey(ref collateral.Outpoint) []byte {
	return []byte(fmt.Sprintf("%s_%s", outputPrefix, ref.String()))
}

// StorePath returns the full path of the underlying Badger database directory.
func (s *BadgerOutputStore) StorePath() string {
	return s.path
}

// GetOutput implements OutputStore.
func (s *BadgerOutputStore) GetOutput(ref collateral.Outpoint) (*OutputRecord, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(outputKey(ref))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})
	if err != nil {
		if isDBKeyNotFound(err) {
			return nil, cm.NewErr("Output", cm.KeyNotFound, ref.String())
		}
		return nil, errors.Wrap(err, "failed to read output")
	}

	rec := new(OutputRecord)
	if err := rec.Unmarshal(data); err != nil {
		return nil, errors.Wrap(err, "failed to decode output")
	}
	return rec, nil
}

// SetOutput implements OutputStore.
func (s *BadgerOutputStore) SetOutput(rec *OutputRecord) error {
	val, err := rec.Marshal()
	if err != nil {
		return errors.Wrap(err, "failed to encode output")
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(outputKey(rec.Outpoint), val)
	})
	if err != nil {
		return errors.Wrap(err, "failed to write output")
	}
	return nil
}

// ListOutputs implements OutputStore.
func (s *BadgerOutputStore) ListOutputs() ([]*OutputRecord, error) {
	res := []*OutputRecord{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(outputPrefix + "_")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(data []byte) error {
				rec := new(OutputRecord)
				if err := rec.Unmarshal(data); err != nil {
					return err
				}
				res = append(res, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list outputs")
	}
	sortRecords(res)
	return res, nil
}

// Close implements OutputStore.
func (s *BadgerOutputStore) Close() error {
	return s.db.Close()
}

func isDBKeyNotFound(err error) bool {
	return err != nil && err.Error() == badger.ErrKeyNotFound.Error()
}
