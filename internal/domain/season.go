package domain

// Season is a meteorological season derived from the calendar month
// (northern hemisphere).
type Season string

const (
	Spring Season = "Spring"
	Summer Season = "Summer"
	Fall   Season = "Fall"
	Winter Season = "Winter"
)

// SeasonOf maps a month (1-12) to its season: 3-5 Spring, 6-8 Summer,
// 9-11 Fall, anything else Winter.
func SeasonOf(month int) Season {
	switch {
	case month >= 3 && month <= 5:
		return Spring
	case month >= 6 && month <= 8:
		return Summer
	case month >= 9 && month <= 11:
		return Fall
	default:
		return Winter
	}
}

// Seasons returns the seasons in calendar presentation order.
func Seasons() []Season {
	return []Season{Spring, Summer, Fall, Winter}
}

// Rank is the season's position in Seasons().
func (s Season) Rank() int {
	switch s {
	case Spring:
		return 0
	case Summer:
		return 1
	case Fall:
		return 2
	case Winter:
		return 3
	default:
		return 4
	}
}
