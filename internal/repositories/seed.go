package repositories

import "vexa-service/internal/models"

// DemoUsers is the profile set loaded when the service runs without a database.
func DemoUsers() []models.User {
	return []models.User{
		{ID: "ava", Name: "Ava", Interests: []string{"Design", "Tech", "Music"}},
		{ID: "leo", Name: "Leo", Interests: []string{"Music", "Travel", "Art"}},
		{ID: "maya", Name: "Maya", Interests: []string{"Art", "Wellness", "Books"}},
		{ID: "omar", Name: "Omar", Interests: []string{"Tech", "Gaming", "Sports"}},
		{ID: "sara", Name: "Sara", Interests: []string{"Wellness", "Cooking", "Travel"}},
	}
}
