package domain

import "errors"

// Sentinel errors for the alignment and selection engine. Callers match
// them with errors.Is; everything else is wrapped context.
var (
	// ErrInvalidRange reports a time interval whose start lies after its end.
	ErrInvalidRange = errors.New("invalid time range")

	// ErrSchemaMismatch reports input that lacks an expected column or shape.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrInsufficientCandidates reports fewer usable stations than requested.
	ErrInsufficientCandidates = errors.New("insufficient candidate stations")

	// ErrNoSeaCell reports a grid in which every cell is masked as land.
	ErrNoSeaCell = errors.New("no sea cell found")

	// ErrDepthNotFound reports a depth absent from a grid's depth axis.
	ErrDepthNotFound = errors.New("depth level not found")

	// ErrEmptyResult reports that every chunk of a chunked fetch failed.
	ErrEmptyResult = errors.New("empty result: all chunks failed")
)
