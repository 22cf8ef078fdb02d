package service

import (
	"fmt"
	"math"
	"strings"
)

type rank struct {
	name  string
	below int
}

// ranks are ordered by the XP total that ends each one.
var ranks = []rank{
	{name: "🎯 Rookie Planner", below: 200},
	{name: "⚡ Achiever", below: 500},
	{name: "🔥 Crusher", below: 1200},
	{name: "🏆 Master", below: 2500},
	{name: "🗽 Legend", below: math.MaxInt},
}

// Rank is a user's standing on the XP ladder.
type Rank struct {
	Name string
	// Next is empty at the top rank.
	Next string
	// ToNext is the XP still missing for Next.
	ToNext int
	// Percent is the progress through the current rank, 0..100.
	Percent int
}

// RankFor places an XP total on the ladder. Negative totals count as zero.
func RankFor(xp int) Rank {
	xp = max(0, xp)
	floor := 0
	for i, r := range ranks {
		if xp >= r.below {
			floor = r.below
			continue
		}
		if i == len(ranks)-1 {
			break
		}
		return Rank{
			Name:    r.name,
			Next:    ranks[i+1].name,
			ToNext:  r.below - xp,
			Percent: (xp - floor) * 100 / (r.below - floor),
		}
	}
	return Rank{Name: ranks[len(ranks)-1].name, Percent: 100}
}

// ProgressBar renders a percentage as ten segments.
func ProgressBar(percent int) string {
	percent = min(100, max(0, percent))
	filled := (percent + 5) / 10
	return strings.Repeat("▰", filled) + strings.Repeat("▱", 10-filled)
}

// FormatRank renders a rank with its progress bar for chat messages.
func FormatRank(r Rank) string {
	line := fmt.Sprintf("🏅 %s\n%s %d%%", r.Name, ProgressBar(r.Percent), r.Percent)
	if r.Next != "" {
		line += fmt.Sprintf(" · %d XP to %s", r.ToNext, r.Next)
	}
	return line + "\n"
}
