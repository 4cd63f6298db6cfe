package importer

import (
	"sort"
	"strings"

	"github.com/Rosesandthorns/TheShinyArchives/pkg/models"
)

const (
	hiddenSuffix    = " (Hidden)"
	descriptionLang = "en"
	// evolutionStages is the deepest chain kept: base form plus two evolutions.
	evolutionStages = 3
)

// normalize flattens the three upstream documents into one catalog record.
// species and chain may be nil.
func normalize(detail *PokemonResponse, species *SpeciesResponse, chain *EvolutionChainResponse) models.Pokemon {
	p := models.Pokemon{
		PokeID:      detail.ID,
		Name:        strings.ToLower(detail.Name),
		Types:       typeNames(detail),
		Sprite:      firstNonEmpty(detail.Sprites.Other.OfficialArtwork.FrontDefault, detail.Sprites.FrontDefault),
		ShinySprite: firstNonEmpty(detail.Sprites.Other.OfficialArtwork.FrontShiny, detail.Sprites.FrontShiny),
		Height:      detail.Height,
		Weight:      detail.Weight,
		Abilities:   abilityNames(detail),
		Stats:       baseStats(detail),
		GameIndices: detail.GameIndices,
		Description: description(species),
	}
	if p.GameIndices == nil {
		p.GameIndices = []models.GameIndex{}
	}
	if chain != nil {
		c := chain.Chain
		c.Trim(evolutionStages)
		fillChain(&c)
		p.EvolutionChain = &c
	}
	return p
}

// fillChain turns missing lists into empty ones so every link keeps
// upstream's shape.
func fillChain(c *models.EvolutionChain) {
	if c.EvolutionDetails == nil {
		c.EvolutionDetails = []models.EvolutionDetail{}
	}
	if c.EvolvesTo == nil {
		c.EvolvesTo = []models.EvolutionChain{}
	}
	for i := range c.EvolvesTo {
		fillChain(&c.EvolvesTo[i])
	}
}

func typeNames(detail *PokemonResponse) []string {
	types := append(detail.Types[:0:0], detail.Types...)
	sort.SliceStable(types, func(i, j int) bool { return types[i].Slot < types[j].Slot })

	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, t.Type.Name)
	}
	return out
}

func abilityNames(detail *PokemonResponse) []string {
	out := make([]string, 0, len(detail.Abilities))
	for _, a := range detail.Abilities {
		name := a.Ability.Name
		if a.IsHidden {
			name += hiddenSuffix
		}
		out = append(out, name)
	}
	return out
}

// baseStats always carries the six standard keys; anything upstream omits is 0.
func baseStats(detail *PokemonResponse) map[string]int {
	stats := make(map[string]int, len(models.StatNames))
	for _, name := range models.StatNames {
		stats[name] = 0
	}
	for _, s := range detail.Stats {
		stats[s.Stat.Name] = s.BaseStat
	}
	return stats
}

// description picks the first English flavor text, with form feeds
// turned into spaces.
func description(species *SpeciesResponse) string {
	if species == nil {
		return ""
	}
	for _, e := range species.FlavorTextEntries {
		if e.Language.Name == descriptionLang {
			return strings.ReplaceAll(e.FlavorText, "\f", " ")
		}
	}
	return ""
}

// versionNames lists the upstream versions a pokemon has a game index in.
func versionNames(detail *PokemonResponse) []string {
	out := make([]string, 0, len(detail.GameIndices))
	for _, gi := range detail.GameIndices {
		out = append(out, gi.Version.Name)
	}
	return out
}

// shortCodesFor maps version names to roster shortcodes, deduplicated in
// first-seen order. Unmapped versions are dropped.
func shortCodesFor(versions []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range versions {
		code, ok := VersionShortCodes[v]
		if !ok {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
