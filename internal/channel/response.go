package channel

import (
	"github.com/lumenlearn/engage/internal/domain"
)

// DigitOutcome is the result of one in-call keypress: what to speak next and
// what to record onto the originating CallLog.
type DigitOutcome struct {
	// Terminal means the interaction is over and no further input follows.
	Terminal bool
	// ResponseData is recorded on the call log (user_responded=true).
	ResponseData string
	// Script is the document returned to the provider.
	Script string
}

// HandleDigit runs the in-call response machine. Digit 1 saves the lesson
// and ends the call; digit 2 replays the micro-lesson script; anything else
// is invalid and hangs up.
func HandleDigit(log *domain.CallLog, content *domain.ContentRef, digit, responseURL string) DigitOutcome {
	switch digit {
	case "1":
		s := newScriptBuilder()
		s.say("Got it! The lesson has been saved for later. Goodbye!")
		s.hangup()
		return DigitOutcome{Terminal: true, ResponseData: "saved_for_later", Script: s.String()}

	case "2":
		return DigitOutcome{
			Terminal:     false,
			ResponseData: "replay",
			Script:       Script(log, content, responseURL),
		}

	default:
		s := newScriptBuilder()
		s.say("Sorry, that is not a valid option. Goodbye!")
		s.hangup()
		return DigitOutcome{Terminal: true, ResponseData: "invalid:" + digit, Script: s.String()}
	}
}
