package accuracy

import "errors"

var (
	// ErrJournal indicates the tracker could not persist an update. The
	// in-memory state is left unchanged when it is returned.
	ErrJournal = errors.New("accuracy journal unavailable")
	// ErrInvalidObservation indicates an unknown category or a confidence outside [0,1].
	ErrInvalidObservation = errors.New("invalid accuracy observation")
	// ErrTxUnsupported is returned when a staged update is requested but
	// the journal cannot append inside a transaction.
	ErrTxUnsupported = errors.New("accuracy journal does not support transactions")
)
