package app

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quiz-arena-service/internal/domain"
)

// maxDistractorAttempts bounds the backfill loop so a pathological random
// streak cannot stall question delivery.
const maxDistractorAttempts = 10

// QuestionGenerator produces arithmetic questions with randomized distractors.
// Output is intentionally non-deterministic; tests treat it as a constrained
// random variable.
type QuestionGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionGenerator() *QuestionGenerator {
	return NewQuestionGeneratorWithSeed(time.Now().UnixNano())
}

// NewQuestionGeneratorWithSeed pins the random source for tests.
func NewQuestionGeneratorWithSeed(seed int64) *QuestionGenerator {
	return &QuestionGenerator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate builds the question for the given 1-based question number.
// Questions 1-5 are easy, 6-10 medium, everything after that hard.
func (g *QuestionGenerator) Generate(questionNumber int) domain.Question {
	g.mu.Lock()
	defer g.mu.Unlock()

	difficulty := difficultyFor(questionNumber)

	ops := []domain.OperationType{domain.OpAddition, domain.OpSubtraction, domain.OpMultiplication}
	op := ops[g.rnd.Intn(len(ops))]

	var a, b, correct int
	switch op {
	case domain.OpAddition:
		a = g.randBetween(pick(difficulty, 5, 20, 20), pick(difficulty, 50, 50, 99))
		b = g.randBetween(pick(difficulty, 5, 20, 20), pick(difficulty, 50, 50, 99))
		correct = a + b
	case domain.OpSubtraction:
		a = g.randBetween(pick(difficulty, 10, 30, 30), pick(difficulty, 60, 60, 99))
		b = g.randBetween(pick(difficulty, 5, 10, 10), a-1)
		correct = a - b
	case domain.OpMultiplication:
		a = g.randBetween(pick(difficulty, 2, 5, 5), pick(difficulty, 12, 12, 20))
		b = g.randBetween(pick(difficulty, 2, 5, 5), pick(difficulty, 12, 12, 20))
		correct = a * b
	}

	options := append(g.distractors(correct, difficulty), correct)
	g.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	return domain.Question{
		Prompt:     prompt(op, a, b),
		Options:    options,
		Correct:    correct,
		Type:       op,
		Difficulty: difficulty,
	}
}

// distractors returns exactly 3 unique positive wrong answers: small noise
// above and below the correct value plus one far outlier, backfilled with
// bounded random offsets when a candidate collides or goes non-positive.
func (g *QuestionGenerator) distractors(correct int, difficulty domain.Difficulty) []int {
	nearMax := pick(difficulty, 5, 15, 15)
	farMax := pick(difficulty, 20, 30, 30)

	candidates := []int{
		correct + g.randBetween(1, nearMax),
		correct - g.randBetween(1, nearMax),
		correct + g.randBetween(10, farMax),
	}

	out := make([]int, 0, 3)
	for _, c := range candidates {
		if c > 0 && c != correct && !contains(out, c) {
			out = append(out, c)
		}
	}

	for attempt := 0; len(out) < 3 && attempt < maxDistractorAttempts; attempt++ {
		c := correct + g.randBetween(-20, 20)
		if c > 0 && c != correct && !contains(out, c) {
			out = append(out, c)
		}
	}

	// Deterministic fallback keeps worst-case latency bounded.
	for next := correct + farMax + 1; len(out) < 3; next++ {
		if !contains(out, next) {
			out = append(out, next)
		}
	}
	return out
}

// randBetween returns a uniform integer in [min, max] inclusive.
func (g *QuestionGenerator) randBetween(min, max int) int {
	if max <= min {
		return min
	}
	return min + g.rnd.Intn(max-min+1)
}

func difficultyFor(questionNumber int) domain.Difficulty {
	switch {
	case questionNumber <= 5:
		return domain.DifficultyEasy
	case questionNumber <= 10:
		return domain.DifficultyMedium
	default:
		return domain.DifficultyHard
	}
}

func pick(d domain.Difficulty, easy, medium, hard int) int {
	switch d {
	case domain.DifficultyEasy:
		return easy
	case domain.DifficultyMedium:
		return medium
	default:
		return hard
	}
}

func prompt(op domain.OperationType, a, b int) string {
	switch op {
	case domain.OpAddition:
		return fmt.Sprintf("%d + %d", a, b)
	case domain.OpSubtraction:
		return fmt.Sprintf("%d - %d", a, b)
	default:
		return fmt.Sprintf("%d × %d", a, b)
	}
}

func contains(values []int, v int) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}
