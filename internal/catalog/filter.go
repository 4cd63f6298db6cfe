package catalog

import (
	"sort"
	"strings"

	"github.com/Rosesandthorns/TheShinyArchives/pkg/models"
)

const (
	SortByID       = "id"
	SortByIDDesc   = "id-desc"
	SortByName     = "name"
	SortByNameDesc = "name-desc"
)

// Filter narrows a pokemon listing. Zero values mean "no filter"; a zero
// Limit returns everything after Offset.
type Filter struct {
	Generation int
	Type       string
	GameID     int
	Sort       string
	Limit      int
	Offset     int
}

func (f Filter) matches(p models.Pokemon, gameIDs []int) bool {
	if f.Generation != 0 && Generation(p.PokeID) != f.Generation {
		return false
	}
	if t := strings.TrimSpace(f.Type); t != "" && !hasType(p, t) {
		return false
	}
	if f.GameID != 0 && !containsInt(gameIDs, f.GameID) {
		return false
	}
	return true
}

func hasType(p models.Pokemon, t string) bool {
	want := fold(t)
	for _, pt := range p.Types {
		if fold(pt) == want {
			return true
		}
	}
	return false
}

// ValidSort reports whether s is a known sort option. Empty means the default.
func ValidSort(s string) bool {
	switch s {
	case "", SortByID, SortByIDDesc, SortByName, SortByNameDesc:
		return true
	}
	return false
}

// sortPokemon orders in place. Unknown options fall back to dex order.
func sortPokemon(ps []models.Pokemon, by string) {
	switch by {
	case SortByIDDesc:
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].PokeID > ps[j].PokeID })
	case SortByName:
		sort.SliceStable(ps, func(i, j int) bool { return lessByName(ps[i], ps[j]) })
	case SortByNameDesc:
		sort.SliceStable(ps, func(i, j int) bool { return lessByName(ps[j], ps[i]) })
	default:
		sort.SliceStable(ps, func(i, j int) bool {
			if ps[i].PokeID != ps[j].PokeID {
				return ps[i].PokeID < ps[j].PokeID
			}
			return ps[i].ID < ps[j].ID
		})
	}
}

func lessByName(a, b models.Pokemon) bool {
	an, bn := fold(a.Name), fold(b.Name)
	if an != bn {
		return an < bn
	}
	return a.PokeID < b.PokeID
}

func paginate(ps []models.Pokemon, limit, offset int) []models.Pokemon {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ps) {
		return nil
	}
	end := len(ps)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return ps[offset:end]
}
