package inmemdb

import (
	"context"
	"sort"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/santri"
)

type santriRepository struct {
	db *DB
}

var _ santri.Repository = (*santriRepository)(nil)

func NewSantriRepository(db *DB) santri.Repository {
	return &santriRepository{db: db}
}

func (repo *santriRepository) CheckRegistrationNumberUniqueness(_ context.Context, regNumber string, excluded ...santri.Santri) error {
	repo.db.santri.RLock()
	defer repo.db.santri.RUnlock()

	excl := make(map[string]struct{}, len(excluded))
	for _, s := range excluded {
		excl[s.ID] = struct{}{}
	}
	for _, s := range repo.db.santri.table {
		if _, ok := excl[s.ID]; ok {
			continue
		}
		if s.RegistrationNumber == regNumber {
			return santri.ErrRegistrationNumberExists
		}
	}
	return nil
}

func (repo *santriRepository) CreateSantri(_ context.Context, s santri.Santri) (santri.Santri, error) {
	repo.db.santri.Lock()
	defer repo.db.santri.Unlock()

	repo.db.santri.table[s.ID] = &s
	return s, nil
}

func (repo *santriRepository) GetSantriByID(_ context.Context, id string) (santri.Santri, error) {
	repo.db.santri.RLock()
	defer repo.db.santri.RUnlock()

	if s, ok := repo.db.santri.table[id]; ok {
		return *s, nil
	}
	return santri.Santri{}, santri.ErrNotFound
}

func (repo *santriRepository) QuerySantri(_ context.Context, f santri.Filter) ([]santri.Santri, error) {
	repo.db.santri.RLock()
	defer repo.db.santri.RUnlock()

	ids := idSet(f.IDs)
	result := make([]santri.Santri, 0)
	for _, s := range repo.db.santri.table {
		switch {
		case !in(ids, s.ID),
			f.Program != "" && s.Program != f.Program,
			f.Class != "" && s.Class != f.Class,
			f.Status != "" && s.Status != f.Status,
			f.Search != "" && !containsFold(s.Name, f.Search) && !containsFold(s.RegistrationNumber, f.Search):
			continue
		}
		result = append(result, *s)
	}
	sortSantri(result, f.Ordering)
	return result, nil
}

func (repo *santriRepository) UpdateSantri(_ context.Context, s santri.Santri) (santri.Santri, error) {
	repo.db.santri.Lock()
	defer repo.db.santri.Unlock()

	if _, ok := repo.db.santri.table[s.ID]; !ok {
		return santri.Santri{}, santri.ErrNotFound
	}
	repo.db.santri.table[s.ID] = &s
	return s, nil
}

func sortSantri(ss []santri.Santri, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	sort.SliceStable(ss, func(i, j int) bool {
		for _, ord := range ordering {
			var a, b string
			switch ord.Field {
			case "name":
				a, b = ss[i].Name, ss[j].Name
			case "registration_number":
				a, b = ss[i].RegistrationNumber, ss[j].RegistrationNumber
			case "class":
				a, b = ss[i].Class, ss[j].Class
			case "created_at":
				if ss[i].CreatedAt.Equal(ss[j].CreatedAt) {
					continue
				}
				return ss[i].CreatedAt.Before(ss[j].CreatedAt) == ord.Ascending
			default:
				continue
			}
			if a == b {
				continue
			}
			return (a < b) == ord.Ascending
		}
		return ss[i].ID < ss[j].ID
	})
}
