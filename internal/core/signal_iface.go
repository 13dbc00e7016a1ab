package core

// Frame is one encoded outbound envelope.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend queues f without blocking. It fails when the connection is
	// closed or its queue is full.
	TrySend(Frame) error
	Close()
}
