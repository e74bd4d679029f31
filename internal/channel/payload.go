package channel

// NotificationPayload is the JSON body posted to each push endpoint. Tag is
// stable per category so clients can replace a prior notification of the
// same kind instead of stacking duplicates.
type NotificationPayload struct {
	Title              string            `json:"title"`
	Body               string            `json:"body"`
	Tag                string            `json:"tag"`
	RequireInteraction bool              `json:"requireInteraction,omitempty"`
	Data               map[string]string `json:"data,omitempty"`
}

// LessonReminderPayload builds the reminder notification for one lesson.
func LessonReminderPayload(lessonTitle string) NotificationPayload {
	return NotificationPayload{
		Title: "Time for your lesson!",
		Body:  "Your lesson \"" + lessonTitle + "\" is waiting for you.",
		Tag:   "lesson-reminder",
	}
}

// NewContentPayload announces a freshly published content item, carrying a
// deep link so the client can open it directly.
func NewContentPayload(contentID, contentTitle string) NotificationPayload {
	return NotificationPayload{
		Title: "New lesson available",
		Body:  contentTitle,
		Tag:   "new-content",
		Data: map[string]string{
			"content_id": contentID,
			"url":        "/lessons/" + contentID,
		},
	}
}

// AchievementPayload celebrates a reached goal. These stay on screen until
// dismissed.
func AchievementPayload(message string) NotificationPayload {
	return NotificationPayload{
		Title:              "Achievement unlocked!",
		Body:               message,
		Tag:                "achievement",
		RequireInteraction: true,
	}
}

// InsightPayload carries a free-text insight message.
func InsightPayload(message string) NotificationPayload {
	return NotificationPayload{
		Title: "Your learning insight",
		Body:  message,
		Tag:   "insight",
	}
}
