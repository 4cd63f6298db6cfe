package models

// EvolutionChain mirrors upstream's chain link. The root link has an empty
// evolution_details list; each evolves_to link describes how it is reached.
type EvolutionChain struct {
	Species          NamedResource     `json:"species"`
	EvolutionDetails []EvolutionDetail `json:"evolution_details"`
	EvolvesTo        []EvolutionChain  `json:"evolves_to"`
}

type EvolutionDetail struct {
	Trigger      NamedResource  `json:"trigger"`
	Item         *NamedResource `json:"item"`
	MinLevel     *int           `json:"min_level"`
	MinHappiness *int           `json:"min_happiness"`
}

// Trim cuts the chain below the given number of stages (1 keeps only the root).
func (c *EvolutionChain) Trim(stages int) {
	if c == nil {
		return
	}
	if stages <= 1 {
		c.EvolvesTo = []EvolutionChain{}
		return
	}
	for i := range c.EvolvesTo {
		c.EvolvesTo[i].Trim(stages - 1)
	}
}

// SpeciesNames returns every species name in the chain, depth first.
func (c *EvolutionChain) SpeciesNames() []string {
	if c == nil {
		return nil
	}
	names := []string{c.Species.Name}
	for i := range c.EvolvesTo {
		names = append(names, c.EvolvesTo[i].SpeciesNames()...)
	}
	return names
}
