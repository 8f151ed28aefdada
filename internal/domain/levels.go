package domain

// Level is one XP tier.
type Level struct {
	XP   int
	Name string
}

// Levels is ordered by ascending threshold.
var Levels = []Level{
	{XP: 0, Name: "Beginner"},
	{XP: 500, Name: "Learner"},
	{XP: 1500, Name: "Student"},
	{XP: 3000, Name: "Scholar"},
	{XP: 6000, Name: "Theologian"},
}

// LevelFor returns the highest tier whose threshold is <= xp.
func LevelFor(xp int) string {
	for i := len(Levels) - 1; i >= 0; i-- {
		if xp >= Levels[i].XP {
			return Levels[i].Name
		}
	}
	return Levels[0].Name
}
