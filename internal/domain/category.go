package domain

import "fmt"

// Category is the closed set of touchpoint categories. Repositories validate
// stored category strings against this set so a typo'd key fails loudly
// instead of silently never matching.
type Category string

const (
	// Notification categories (gated on notifications_enabled + push_enabled).
	CategoryLessonReminders Category = "lesson_reminders"
	CategoryNewContent      Category = "new_content"
	CategoryAchievements    Category = "achievements"
	CategoryInsights        Category = "insights"

	// Call categories (gated on calls_enabled).
	CategoryMicroLesson    Category = "micro_lesson"
	CategoryInactivityCall Category = "inactivity_call"
	CategoryTestCall       Category = "test_call"
)

var knownCategories = map[Category]bool{
	CategoryLessonReminders: true,
	CategoryNewContent:      true,
	CategoryAchievements:    true,
	CategoryInsights:        true,
	CategoryMicroLesson:     true,
	CategoryInactivityCall:  true,
	CategoryTestCall:        true,
}

var callCategories = map[Category]bool{
	CategoryMicroLesson:    true,
	CategoryInactivityCall: true,
	CategoryTestCall:       true,
}

// ParseCategory validates a raw category string.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !knownCategories[c] {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// IsCall reports whether the category is delivered over the call channel.
func (c Category) IsCall() bool { return callCategories[c] }

// String returns the wire representation of the category.
func (c Category) String() string { return string(c) }
