package app

import "errors"

var (
	// ErrQuit signals that the shell should exit normally.
	ErrQuit = errors.New("quit requested")
)
