package model

// Flag is the progress marker stored on feedback records. Historic data
// carries three states: unset (record predates the flag), "false", and
// "true". Unset and "false" both mean the work is still pending, so the
// distinction only matters at the storage layer.
type Flag string

const (
	// FlagPending marks work not yet done.
	FlagPending Flag = "false"
	// FlagDone marks work completed and persisted.
	FlagDone Flag = "true"
)

// ParseFlag maps a stored tri-state string onto a Flag. Empty string and
// "false" collapse to FlagPending.
func ParseFlag(s string) Flag {
	if s == string(FlagDone) {
		return FlagDone
	}
	return FlagPending
}

// IsDone reports whether the flag marks completed work.
func (f Flag) IsDone() bool {
	return f == FlagDone
}

// String returns the storage encoding of the flag.
func (f Flag) String() string {
	return string(f)
}
