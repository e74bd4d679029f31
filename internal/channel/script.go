package channel

import (
	"fmt"
	"strings"

	"github.com/lumenlearn/engage/internal/domain"
)

// scriptBuilder assembles the TwiML document spoken on a call.
type scriptBuilder struct {
	b strings.Builder
}

func newScriptBuilder() *scriptBuilder {
	s := &scriptBuilder{}
	s.b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<Response>\n")
	return s
}

func (s *scriptBuilder) say(text string) {
	fmt.Fprintf(&s.b, "  <Say voice=\"alice\">%s</Say>\n", xmlEscape(text))
}

func (s *scriptBuilder) pause(seconds int) {
	fmt.Fprintf(&s.b, "  <Pause length=\"%d\"/>\n", seconds)
}

func (s *scriptBuilder) play(url string) {
	fmt.Fprintf(&s.b, "  <Play>%s</Play>\n", xmlEscape(url))
}

func (s *scriptBuilder) gather(actionURL, prompt string) {
	fmt.Fprintf(&s.b, "  <Gather numDigits=\"1\" action=\"%s\" method=\"POST\">\n", xmlEscape(actionURL))
	fmt.Fprintf(&s.b, "    <Say voice=\"alice\">%s</Say>\n", xmlEscape(prompt))
	s.b.WriteString("  </Gather>\n")
}

func (s *scriptBuilder) redirect(url string) {
	fmt.Fprintf(&s.b, "  <Redirect method=\"POST\">%s</Redirect>\n", xmlEscape(url))
}

func (s *scriptBuilder) hangup() {
	s.b.WriteString("  <Hangup/>\n")
}

func (s *scriptBuilder) String() string {
	return s.b.String() + "</Response>\n"
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func xmlEscape(s string) string { return xmlEscaper.Replace(s) }

// Script generates the call script for a call log. content may be nil when
// the call type does not need it; responseURL is where digit input posts.
func Script(log *domain.CallLog, content *domain.ContentRef, responseURL string) string {
	s := newScriptBuilder()

	switch log.CallType {
	case domain.CallReminder:
		message := log.Message
		if message == "" {
			message = "This is your learning reminder. Your next lesson is waiting for you."
		}
		s.say(message)
		s.say("Open the app whenever you are ready. Goodbye!")
		s.hangup()

	case domain.CallMicroLesson:
		s.say("Hello! Here is your micro lesson for today.")
		s.pause(1)
		title, description := log.Message, ""
		if content != nil {
			title, description = content.Title, content.Description
		}
		s.say(title)
		if description != "" {
			s.say(description)
		}
		s.pause(1)
		s.gather(responseURL, "Press 1 to save this lesson for later. Press 2 to hear it again.")
		s.say("Thanks for listening. Goodbye!")
		s.hangup()

	case domain.CallAudio:
		s.say("Hello! Here is your audio lesson.")
		if content != nil && content.AudioURL != "" {
			s.play(content.AudioURL)
		}
		s.say("Thanks for listening. Goodbye!")
		s.hangup()
	}

	return s.String()
}
