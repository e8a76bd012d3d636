package estimator

import "github.com/couchcryptid/quake-felt-service/internal/domain"

// Sample is one labelled training row.
type Sample struct {
	Perception domain.Perception
	Magnitude  float64
}

// TrainingSet is the fixed table the regression is fitted on at startup.
var TrainingSet = []Sample{
	{domain.Perception{Shaking: 1, Duration: 1, Objects: 1, Reaction: 1, Damage: 1}, 2.0},
	{domain.Perception{Shaking: 2, Duration: 1, Objects: 1, Reaction: 2, Damage: 1}, 2.5},
	{domain.Perception{Shaking: 2, Duration: 2, Objects: 2, Reaction: 2, Damage: 1}, 3.0},
	{domain.Perception{Shaking: 3, Duration: 2, Objects: 2, Reaction: 3, Damage: 1}, 3.4},
	{domain.Perception{Shaking: 3, Duration: 3, Objects: 3, Reaction: 3, Damage: 2}, 3.9},
	{domain.Perception{Shaking: 4, Duration: 3, Objects: 3, Reaction: 4, Damage: 2}, 4.3},
	{domain.Perception{Shaking: 4, Duration: 4, Objects: 4, Reaction: 4, Damage: 3}, 4.8},
	{domain.Perception{Shaking: 5, Duration: 4, Objects: 4, Reaction: 5, Damage: 3}, 5.2},
	{domain.Perception{Shaking: 5, Duration: 5, Objects: 5, Reaction: 5, Damage: 4}, 5.8},
	{domain.Perception{Shaking: 5, Duration: 5, Objects: 5, Reaction: 5, Damage: 5}, 6.3},
}
