package app

import "scripture-quiz-service/internal/domain"

// FallbackQuestions returns a fresh copy of the built-in set used when the catalog is
// unreachable or the filters match nothing.
func FallbackQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:            1,
			Prompt:        "Who was the first man created by God?",
			Choices:       []string{"Adam", "Eve", "Noah", "Abraham"},
			CorrectAnswer: "Adam",
			Reference:     "Genesis 2:7",
			Difficulty:    domain.DifficultyEasy,
			Topic:         "old-testament",
			Tags:          []string{"creation", "genesis"},
			Points:        10,
			Timer:         30,
			Hints:         []string{"Think about the creation story", "He named all the animals", "His wife was created from his rib"},
			Explanations: map[string]string{
				"Eve":     "Eve was the first woman, not the first man",
				"Noah":    "Noah built the ark during the flood",
				"Abraham": "Abraham is the father of many nations",
			},
		},
		{
			ID:            2,
			Prompt:        "How many days and nights did it rain during the flood?",
			Choices:       []string{"7", "12", "40", "100"},
			CorrectAnswer: "40",
			Reference:     "Genesis 7:12",
			Difficulty:    domain.DifficultyEasy,
			Topic:         "old-testament",
			Tags:          []string{"flood", "genesis"},
			Points:        10,
			Timer:         30,
			Hints:         []string{"The same number as Jesus fasted in the wilderness"},
			Explanations: map[string]string{
				"7":   "Noah waited seven days before the flood began",
				"100": "Noah was six hundred years old when the flood came",
			},
		},
		{
			ID:            3,
			Prompt:        "In which town was Jesus born?",
			Choices:       []string{"Nazareth", "Bethlehem", "Jerusalem", "Capernaum"},
			CorrectAnswer: "Bethlehem",
			Reference:     "Matthew 2:1",
			Difficulty:    domain.DifficultyEasy,
			Topic:         "gospels",
			Tags:          []string{"new-testament", "nativity"},
			Points:        10,
			Timer:         30,
			Hints:         []string{"The city of David", "Micah prophesied it"},
			Explanations: map[string]string{
				"Nazareth": "Jesus grew up in Nazareth",
			},
		},
		{
			ID:            4,
			Prompt:        "Who was swallowed by a great fish?",
			Choices:       []string{"Jonah", "Elijah", "Peter", "Daniel"},
			CorrectAnswer: "Jonah",
			Reference:     "Jonah 1:17",
			Difficulty:    domain.DifficultyMedium,
			Topic:         "prophets",
			Tags:          []string{"old-testament"},
			Points:        15,
			Timer:         30,
			Hints:         []string{"He was sent to Nineveh", "He fled to Tarshish", "He spent three days inside"},
			Explanations: map[string]string{
				"Daniel": "Daniel was thrown into the lions' den",
			},
		},
		{
			ID:             5,
			Prompt:         "Which book follows Acts in the New Testament?",
			Choices:        []string{"Romans", "Galatians", "Hebrews", "James"},
			CorrectAnswer:  "Romans",
			Reference:      "Romans 1:1",
			Difficulty:     domain.DifficultyHard,
			Topic:          "new-testament",
			Tags:           []string{"epistles"},
			Points:         20,
			NegativePoints: 5,
			Timer:          20,
			Hints:          []string{"It is Paul's longest letter", "It was written to believers in the capital of the empire"},
		},
	}
}
