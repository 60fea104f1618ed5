package appraisal

import (
	"math"
	"strconv"
)

// Score is a single weighted rating fed to the aggregator.
type Score struct {
	Rating float64
	Weight float64
}

// Aggregate returns the weighted mean of scores rounded to one decimal place.
// An empty input or a zero total weight yields 0.
func Aggregate(scores []Score) float64 {
	var sum, totalWeight float64
	for _, s := range scores {
		sum += s.Rating * s.Weight
		totalWeight += s.Weight
	}
	if totalWeight == 0 {
		return 0
	}
	return RoundRating(sum / totalWeight)
}

// OverallRating aggregates the rating and weight of each category.
func OverallRating(categories []Category) float64 {
	scores := make([]Score, 0, len(categories))
	for _, c := range categories {
		scores = append(scores, Score{Rating: c.Rating, Weight: c.Weight})
	}
	return Aggregate(scores)
}

// RoundRating rounds half away from zero to one decimal place.
func RoundRating(value float64) float64 {
	return math.Round(value*10) / 10
}

func validateCategories(categories []Category, allowEmpty bool) error {
	verr := &ValidationError{}
	if len(categories) == 0 && !allowEmpty {
		verr.add("categories", "at least one category is required")
	}
	for i, c := range categories {
		field := "categories[" + strconv.Itoa(i) + "]"
		if c.Name == "" {
			verr.add(field+".name", "required")
		}
		if math.IsNaN(c.Rating) || c.Rating < MinRating || c.Rating > MaxRating {
			verr.add(field+".rating", "must be between 0 and 5")
		}
		if math.IsNaN(c.Weight) || math.IsInf(c.Weight, 0) || c.Weight < 0 {
			verr.add(field+".weight", "must be zero or positive")
		}
	}
	return verr.orNil()
}
