package server

const (
	// CHUNK_SIZE bounds every read and write of payload bytes.
	CHUNK_SIZE = 1024
	SEPARATOR  = "<SEPARATOR>"

	// MAX_HEADER_SIZE caps the length prefix accepted from a peer.
	MAX_HEADER_SIZE = 4096
	// length prefix width in bytes
	HEADER_PREFIX_SIZE = 4
)
