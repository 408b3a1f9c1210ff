package ranked

import "github.com/pkg/errors"

var (
	// ErrNoActiveSession is returned when an operation needs a running
	// ranked session and none exists.
	ErrNoActiveSession = errors.New("no active ranked session")

	// ErrSessionInProgress is returned when startSession is called while a
	// ranked session is already running. Reset or end it first.
	ErrSessionInProgress = errors.New("ranked session already in progress")

	// ErrGauntletIncomplete is returned when extendSession is called before
	// the initial gauntlet has been played through.
	ErrGauntletIncomplete = errors.New("initial gauntlet not complete")
)
