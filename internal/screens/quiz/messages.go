package quiz

import (
	"time"

	qz "github.com/abhisek/pdfquiz/internal/quiz"
	"github.com/abhisek/pdfquiz/internal/store"
)

// quizLoadedMsg is sent when the questions have been selected.
type quizLoadedMsg struct {
	Runner    *qz.Runner
	Questions []store.Question
	Err       error
}

// timerTickMsg is sent every second to update the countdown.
type timerTickMsg time.Time

// quizEndMsg moves on to the summary.
type quizEndMsg struct{}
