package app_test

import (
	"testing"

	"quiz-arena-service/internal/app"
	"quiz-arena-service/internal/domain"
)

// Generation is random by design, so these tests assert structural
// invariants over many samples instead of fixed values.
func TestGenerateOptionSets(t *testing.T) {
	gen := app.NewQuestionGeneratorWithSeed(42)

	cases := []struct {
		questionNumber int
		difficulty     domain.Difficulty
	}{
		{1, domain.DifficultyEasy},
		{6, domain.DifficultyMedium},
		{11, domain.DifficultyHard},
	}

	for _, tc := range cases {
		for i := 0; i < 1000; i++ {
			q := gen.Generate(tc.questionNumber)

			if q.Difficulty != tc.difficulty {
				t.Fatalf("question %d: expected difficulty %s, got %s", tc.questionNumber, tc.difficulty, q.Difficulty)
			}
			if len(q.Options) != 4 {
				t.Fatalf("expected 4 options, got %d (%v)", len(q.Options), q.Options)
			}

			seen := make(map[int]bool, 4)
			containsCorrect := false
			for _, opt := range q.Options {
				if opt <= 0 {
					t.Fatalf("non-positive option %d in %v", opt, q.Options)
				}
				if seen[opt] {
					t.Fatalf("duplicate option %d in %v", opt, q.Options)
				}
				seen[opt] = true
				if opt == q.Correct {
					containsCorrect = true
				}
			}
			if !containsCorrect {
				t.Fatalf("options %v missing correct answer %d", q.Options, q.Correct)
			}

			if q.Type == domain.OpSubtraction && q.Correct < 1 {
				t.Fatalf("subtraction produced non-positive result %d (%s)", q.Correct, q.Prompt)
			}
			if q.Prompt == "" {
				t.Fatalf("empty prompt")
			}
		}
	}
}

func TestDifficultyTierBoundaries(t *testing.T) {
	gen := app.NewQuestionGeneratorWithSeed(7)

	if d := gen.Generate(5).Difficulty; d != domain.DifficultyEasy {
		t.Fatalf("question 5 should be easy, got %s", d)
	}
	if d := gen.Generate(10).Difficulty; d != domain.DifficultyMedium {
		t.Fatalf("question 10 should be medium, got %s", d)
	}
	if d := gen.Generate(42).Difficulty; d != domain.DifficultyHard {
		t.Fatalf("question 42 should be hard, got %s", d)
	}
}
