package testutil

import (
	"context"
	"sort"
	"sync"

	domainMol "github.com/ClairePA/ChemistryToolkit/internal/domain/molecule"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
	"github.com/ClairePA/ChemistryToolkit/pkg/types/common"
)

// FragmentStore is an in-memory domainMol.FragmentRepository.  Names are
// unique and List returns fragments ordered by name.
type FragmentStore struct {
	mu    sync.Mutex
	items map[common.ID]*domainMol.Fragment
}

var _ domainMol.FragmentRepository = (*FragmentStore)(nil)

func NewFragmentStore() *FragmentStore {
	return &FragmentStore{items: map[common.ID]*domainMol.Fragment{}}
}

func (s *FragmentStore) Save(ctx context.Context, f *domainMol.Fragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.Name == f.Name && it.ID != f.ID {
			return errors.New(errors.ErrCodeFragmentAlreadyExists, "fragment already exists").WithDetail(f.Name)
		}
	}
	s.items[f.ID] = f
	return nil
}

func (s *FragmentStore) FindByID(ctx context.Context, id common.ID) (*domainMol.Fragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.items[id]; ok {
		return f, nil
	}
	return nil, errors.New(errors.ErrCodeFragmentNotFound, "fragment not found").WithDetail(string(id))
}

func (s *FragmentStore) FindByName(ctx context.Context, name string) (*domainMol.Fragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.items {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, errors.New(errors.ErrCodeFragmentNotFound, "fragment not found").WithDetail(name)
}

func (s *FragmentStore) List(ctx context.Context, limit, offset int) ([]*domainMol.Fragment, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]*domainMol.Fragment, 0, len(s.items))
	for _, f := range s.items {
		all = append(all, f)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	total := int64(len(all))
	if offset >= len(all) {
		return []*domainMol.Fragment{}, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (s *FragmentStore) Delete(ctx context.Context, id common.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return errors.New(errors.ErrCodeFragmentNotFound, "fragment not found").WithDetail(string(id))
	}
	delete(s.items, id)
	return nil
}
