package gamification

import "github.com/sankofa-trivia/backend/internal/models"

// Ranks, lowest to highest.
const (
	RankTourist = "Tourist"
	RankExpat   = "Expat"
	RankCitizen = "Citizen"
	RankPatriot = "Patriot"
	RankLegend  = "Legend"
)

// LevelBand covers [MinXP, MaxXP]. MaxXP < 0 marks the open-ended top band.
type LevelBand struct {
	MinXP int64
	MaxXP int64
	Level int
	Rank  string
}

// LevelBands is ordered and contiguous.
var LevelBands = []LevelBand{
	{MinXP: 0, MaxXP: 249, Level: 1, Rank: RankTourist},
	{MinXP: 250, MaxXP: 599, Level: 2, Rank: RankTourist},
	{MinXP: 600, MaxXP: 1099, Level: 3, Rank: RankExpat},
	{MinXP: 1100, MaxXP: 1799, Level: 4, Rank: RankExpat},
	{MinXP: 1800, MaxXP: 2799, Level: 5, Rank: RankCitizen},
	{MinXP: 2800, MaxXP: 4199, Level: 6, Rank: RankCitizen},
	{MinXP: 4200, MaxXP: 5999, Level: 7, Rank: RankPatriot},
	{MinXP: 6000, MaxXP: 8499, Level: 8, Rank: RankPatriot},
	{MinXP: 8500, MaxXP: 11999, Level: 9, Rank: RankLegend},
	{MinXP: 12000, MaxXP: -1, Level: 10, Rank: RankLegend},
}

// LevelFor derives level, rank and progress within the band from total XP.
func LevelFor(totalXP int64) models.LevelInfo {
	if totalXP < 0 {
		totalXP = 0
	}

	band := LevelBands[0]
	for _, b := range LevelBands {
		if totalXP >= b.MinXP {
			band = b
		}
	}

	if band.MaxXP < 0 {
		return models.LevelInfo{Level: band.Level, Rank: band.Rank, ProgressPercent: 100, XPToNextLevel: 0}
	}

	width := band.MaxXP + 1 - band.MinXP
	into := totalXP - band.MinXP
	return models.LevelInfo{
		Level:           band.Level,
		Rank:            band.Rank,
		ProgressPercent: int(into * 100 / width),
		XPToNextLevel:   band.MaxXP + 1 - totalXP,
	}
}
