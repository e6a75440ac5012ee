package app

import (
	"sort"

	"quiz-arena-service/internal/domain"
)

// Settle computes the end-of-game ranking and prize split. It is pure: no
// timers, no registry, just the player slice as it stood when the clock hit
// zero. Ranking is stable, so equal scores keep their join order.
func Settle(players []domain.Player) domain.GameResult {
	if len(players) == 0 {
		return domain.GameResult{Type: "draw"}
	}

	ranking := make([]domain.Player, len(players))
	copy(ranking, players)
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Score > ranking[j].Score
	})

	highest := ranking[0].Score
	winners := make([]domain.Player, 0, 1)
	for _, p := range ranking {
		if p.Score == highest {
			winners = append(winners, p)
		}
	}

	totalBet := 0
	for _, p := range players {
		totalBet += p.BetAmount
	}

	// Integer division; the remainder is deliberately not distributed.
	prize := 0
	if totalBet > 0 {
		prize = totalBet / len(winners)
	}

	result := domain.GameResult{
		Type:           "draw",
		Winners:        winners,
		Ranking:        ranking,
		TotalBet:       totalBet,
		PrizePerWinner: prize,
	}
	if len(winners) == 1 {
		result.Type = "winner"
		result.Winner = &winners[0]
	}
	return result
}
