package models

// Pokemon is the normalized, internal form of one upstream species entry.
//
// ID is assigned by the catalog on insert and never changes. PokeID is the
// national dex number from upstream and is what clients address pokemon by.
type Pokemon struct {
	ID             int             `json:"id"`
	PokeID         int             `json:"pokeId"`
	Name           string          `json:"name"`
	Types          []string        `json:"types"`
	Sprite         string          `json:"sprite"`
	ShinySprite    string          `json:"shinySprite"`
	Height         int             `json:"height"`
	Weight         int             `json:"weight"`
	Abilities      []string        `json:"abilities"`
	Stats          map[string]int  `json:"stats"`
	GameIndices    []GameIndex     `json:"gameIndices"`
	Description    string          `json:"description"`
	EvolutionChain *EvolutionChain `json:"evolutionChain"`
}

// PokemonWithGames is a Pokemon joined with the games it appears in.
type PokemonWithGames struct {
	Pokemon
	Games []Game `json:"games"`
}

// StatNames are the six base stats every imported pokemon carries.
var StatNames = []string{
	"hp",
	"attack",
	"defense",
	"special-attack",
	"special-defense",
	"speed",
}

// NamedResource is upstream's {name, url} reference pair.
type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// GameIndex is passed through from upstream untouched.
type GameIndex struct {
	GameIndex int           `json:"game_index"`
	Version   NamedResource `json:"version"`
}
