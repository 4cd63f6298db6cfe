package importer

import "github.com/Rosesandthorns/TheShinyArchives/pkg/models"

// Roster is the hand-maintained list of games seeded before any upstream call.
// Upstream has no endpoint that groups versions the way the catalog shows them.
var Roster = []models.Game{
	{Name: "Red/Blue", ShortCode: "RB", Color: "#EE1515", Generation: 1},
	{Name: "Yellow", ShortCode: "Y", Color: "#FFD733", Generation: 1},
	{Name: "Gold/Silver", ShortCode: "GS", Color: "#B69E00", Generation: 2},
	{Name: "Crystal", ShortCode: "C", Color: "#7B63E7", Generation: 2},
	{Name: "Ruby/Sapphire", ShortCode: "RS", Color: "#A00000", Generation: 3},
	{Name: "Emerald", ShortCode: "E", Color: "#00A000", Generation: 3},
	{Name: "FireRed/LeafGreen", ShortCode: "FRLG", Color: "#FF7327", Generation: 3},
	{Name: "Diamond/Pearl", ShortCode: "DP", Color: "#5A5A5A", Generation: 4},
	{Name: "Platinum", ShortCode: "Pt", Color: "#999999", Generation: 4},
	{Name: "HeartGold/SoulSilver", ShortCode: "HGSS", Color: "#B69E00", Generation: 4},
	{Name: "Black/White", ShortCode: "BW", Color: "#444444", Generation: 5},
	{Name: "Black 2/White 2", ShortCode: "B2W2", Color: "#222222", Generation: 5},
	{Name: "X/Y", ShortCode: "XY", Color: "#025DA6", Generation: 6},
	{Name: "Omega Ruby/Alpha Sapphire", ShortCode: "ORAS", Color: "#AB2813", Generation: 6},
	{Name: "Sun/Moon", ShortCode: "SM", Color: "#F1912B", Generation: 7},
	{Name: "Ultra Sun/Ultra Moon", ShortCode: "USUM", Color: "#E95B2B", Generation: 7},
	{Name: "Let's Go Pikachu/Eevee", ShortCode: "LGPE", Color: "#FFC524", Generation: 7},
	{Name: "Sword/Shield", ShortCode: "SwSh", Color: "#00A1E9", Generation: 8},
	{Name: "Brilliant Diamond/Shining Pearl", ShortCode: "BDSP", Color: "#AAAAAA", Generation: 8},
	{Name: "Legends: Arceus", ShortCode: "LA", Color: "#3A4A77", Generation: 8},
	{Name: "Scarlet/Violet", ShortCode: "SV", Color: "#BF004F", Generation: 9},
}

// VersionShortCodes maps upstream version names to roster shortcodes.
// Versions missing here produce no membership.
var VersionShortCodes = map[string]string{
	"red":               "RB",
	"blue":              "RB",
	"yellow":            "Y",
	"gold":              "GS",
	"silver":            "GS",
	"crystal":           "C",
	"ruby":              "RS",
	"sapphire":          "RS",
	"emerald":           "E",
	"firered":           "FRLG",
	"leafgreen":         "FRLG",
	"diamond":           "DP",
	"pearl":             "DP",
	"platinum":          "Pt",
	"heartgold":         "HGSS",
	"soulsilver":        "HGSS",
	"black":             "BW",
	"white":             "BW",
	"black-2":           "B2W2",
	"white-2":           "B2W2",
	"x":                 "XY",
	"y":                 "XY",
	"omega-ruby":        "ORAS",
	"alpha-sapphire":    "ORAS",
	"sun":               "SM",
	"moon":              "SM",
	"ultra-sun":         "USUM",
	"ultra-moon":        "USUM",
	"lets-go-pikachu":   "LGPE",
	"lets-go-eevee":     "LGPE",
	"sword":             "SwSh",
	"shield":            "SwSh",
	"brilliant-diamond": "BDSP",
	"shining-pearl":     "BDSP",
	"legends-arceus":    "LA",
	"scarlet":           "SV",
	"violet":            "SV",
}
