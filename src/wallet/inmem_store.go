package wallet

import (
	"sort"
	"sync"

	"github.com/mosaicnetworks/servicenode/src/collateral"
	cm "github.com/mosaicnetworks/servicenode/src/common"
)

// InmemOutputStore is an OutputStore that lives in memory only.
type InmemOutputStore struct {
	sync.RWMutex
	outputs map[collateral.Outpoint]OutputRecord
}

// NewInmemOutputStore creates an empty InmemOutputStore.
func NewInmemOutputStore() *InmemOutputStore {
	return &InmemOutputStore{
		outputs: make(map[collateral.Outpoint]OutputRecord),
	}
}

// GetOutput implements OutputStore.
func (s *InmemOutputStore) GetOutput(ref collateral.Outpoint) (*OutputRecord, error) {
	s.RLock()
	defer s.RUnlock()

	rec, ok := s.outputs[ref]
	if !ok {
		return nil, cm.NewErr("Output", cm.KeyNotFound, ref.String())
	}
	return &rec, nil
}

// SetOutput implements OutputStore. Existing records are overwritten, which is
// how outputs get marked spent.
func (s *InmemOutputStore) SetOutput(rec *OutputRecord) error {
	s.Lock()
	defer s.Unlock()

	s.outputs[rec.Outpoint] = *rec
	return nil
}

// ListOutputs implements OutputStore.
func (s *InmemOutputStore) ListOutputs() ([]*OutputRecord, error) {
	s.RLock()
	defer s.RUnlock()

	res := make([]*OutputRecord, 0, len(s.outputs))
	for _, rec := range s.outputs {
		r := rec
		res = append(res, &r)
	}
	sortRecords(res)
	return res, nil
}

// Close implements OutputStore.
func (s *InmemOutputStore) Close() error {
	return nil
}

func sortRecords(recs []*OutputRecord) {
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].Outpoint.String() < recs[j].Outpoint.String()
	})
}
