package catalog

// GenerationRange is the span of national dex numbers introduced by one generation.
type GenerationRange struct {
	Number int `json:"number"`
	First  int `json:"first"`
	Last   int `json:"last"`
}

var Generations = []GenerationRange{
	{Number: 1, First: 1, Last: 151},
	{Number: 2, First: 152, Last: 251},
	{Number: 3, First: 252, Last: 386},
	{Number: 4, First: 387, Last: 493},
	{Number: 5, First: 494, Last: 649},
	{Number: 6, First: 650, Last: 721},
	{Number: 7, First: 722, Last: 809},
	{Number: 8, First: 810, Last: 905},
	{Number: 9, First: 906, Last: 1025},
}

// Generation classifies a dex number. Numbers outside every range return 0.
func Generation(pokeID int) int {
	for _, g := range Generations {
		if pokeID >= g.First && pokeID <= g.Last {
			return g.Number
		}
	}
	return 0
}
