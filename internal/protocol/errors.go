package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Ownership rules.
	ErrChunkDoesNotExist = "E_CHUNK_DOES_NOT_EXIST"
	ErrNotYours          = "E_NOT_YOURS"
	ErrAlreadyOwned      = "E_ALREADY_OWNED"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:   {},
	ErrChunkDoesNotExist: {},
	ErrNotYours:          {},
	ErrAlreadyOwned:      {},
	ErrInternal:          {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
