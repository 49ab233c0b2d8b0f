package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Session routing/state.
	ErrBusy    = "E_BUSY"
	ErrStopped = "E_STOPPED"

	// Edit layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrOutOfBounds   = "E_OUT_OF_BOUNDS"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBusy:            {},
	ErrStopped:         {},
	ErrBadRequest:      {},
	ErrOutOfBounds:     {},
	ErrInvalidTarget:   {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
