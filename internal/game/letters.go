package game

// letterPool is A-Z minus the letters that make most categories nearly
// unanswerable (Q, U, V, X, Y, Z).
var letterPool = []string{
	"A", "B", "C", "D", "E", "F", "G", "H", "I", "J",
	"K", "L", "M", "N", "O", "P", "R", "S", "T", "W",
}

// DefaultCategories is used when a game's settings carry no custom list.
var DefaultCategories = []string{
	"Animal",
	"City",
	"Country",
	"Food",
	"Movie",
	"Famous Person",
	"Occupation",
	"Thing",
}
