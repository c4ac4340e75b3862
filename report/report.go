// Package report gives finished fuzzing campaigns a file form: what was
// fuzzed, with which seed, what it scored and what it broke. Nothing in a
// report resumes a campaign; it exists for humans and result collectors.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/Anygaardranloev/jpamb-group26/fuzz"
	"github.com/Anygaardranloev/jpamb-group26/jvm"
)

// Session is the record of one campaign against one method.
type Session struct {
	ID         string    `cbor:"1,keyasint" json:"id"`
	Method     string    `cbor:"2,keyasint" json:"method"`
	Seed       int64     `cbor:"3,keyasint" json:"seed"`
	Started    time.Time `cbor:"4,keyasint" json:"started"`
	Finished   time.Time `cbor:"5,keyasint" json:"finished"`
	Iterations int       `cbor:"6,keyasint" json:"iterations"`
	Score      int       `cbor:"7,keyasint" json:"score"`
	Outcome    string    `cbor:"8,keyasint" json:"outcome"`
	Reason     string    `cbor:"9,keyasint" json:"reason"`
	Crashes    []Crash   `cbor:"10,keyasint,omitempty" json:"crashes,omitempty"`
}

// Crash is one deduplicated failing input. Inputs are rendered in the
// benchmark literal syntax, so a crash line can be replayed verbatim.
type Crash struct {
	Outcome   string `cbor:"1,keyasint" json:"outcome"`
	Inputs    string `cbor:"2,keyasint" json:"inputs"`
	Depth     int    `cbor:"3,keyasint" json:"depth"`
	Score     int    `cbor:"4,keyasint" json:"score"`
	Iteration int    `cbor:"5,keyasint" json:"iteration"`
}

// New assembles a session from a finished campaign.
func New(id jvm.MethodID, seed int64, started, finished time.Time, sum fuzz.Summary) *Session {
	s := &Session{
		ID:         uuid.New().String(),
		Method:     id.String(),
		Seed:       seed,
		Started:    started,
		Finished:   finished,
		Iterations: sum.Iterations,
		Score:      sum.Score,
		Outcome:    sum.Outcome.String(),
		Reason:     string(sum.Reason),
	}
	for _, c := range sum.Crashes {
		s.Crashes = append(s.Crashes, Crash{
			Outcome:   c.Outcome.String(),
			Inputs:    jvm.FormatInputs(c.Inputs),
			Depth:     c.Depth,
			Score:     c.Score,
			Iteration: c.Iteration,
		})
	}
	return s
}
