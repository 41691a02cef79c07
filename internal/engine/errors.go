// Package engine turns model output into narration and world state. Every
// operation here treats the model as an untrusted source: a failed call or an
// unparseable reply never corrupts the state handed in.
package engine

import "errors"

var (
	// ErrNarrationFailed means no narration was produced; the turn is skipped.
	ErrNarrationFailed = errors.New("narration failed")
	// ErrExtractionParse means the initial state could not be extracted and
	// the default state was used instead.
	ErrExtractionParse = errors.New("initial state extraction failed")
	// ErrReconcileParse means the reconciler reply was not a valid world
	// state; the previous state is kept.
	ErrReconcileParse = errors.New("reconciled state could not be parsed")
	// ErrReconcileBackendExhausted means every reconcile attempt failed at
	// the backend; the previous state is kept.
	ErrReconcileBackendExhausted = errors.New("reconcile attempts exhausted")
)
