package catalog

// TypeInfo is an elemental type and the color the client draws it with.
type TypeInfo struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

const fallbackTypeColor = "#777777"

var Types = []TypeInfo{
	{Name: "normal", Color: "#A8A878"},
	{Name: "fire", Color: "#F08030"},
	{Name: "water", Color: "#6890F0"},
	{Name: "electric", Color: "#F8D030"},
	{Name: "grass", Color: "#78C850"},
	{Name: "ice", Color: "#98D8D8"},
	{Name: "fighting", Color: "#C03028"},
	{Name: "poison", Color: "#A040A0"},
	{Name: "ground", Color: "#E0C068"},
	{Name: "flying", Color: "#A890F0"},
	{Name: "psychic", Color: "#F85888"},
	{Name: "bug", Color: "#A8B820"},
	{Name: "rock", Color: "#B8A038"},
	{Name: "ghost", Color: "#705898"},
	{Name: "dragon", Color: "#7038F8"},
	{Name: "dark", Color: "#705848"},
	{Name: "steel", Color: "#B8B8D0"},
	{Name: "fairy", Color: "#EE99AC"},
}

// TypeColor returns the display color for a type name, ignoring case.
func TypeColor(name string) string {
	want := fold(name)
	for _, t := range Types {
		if t.Name == want {
			return t.Color
		}
	}
	return fallbackTypeColor
}
