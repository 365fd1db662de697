package consts

import "time"

// Network defaults
const (
	// DefaultPort is the TCP port the router listens on
	DefaultPort = 12345
	// DefaultListenAddr is the router's listen address
	DefaultListenAddr = ":12345"
	// DefaultServerAddr is where the client connects by default
	DefaultServerAddr = "127.0.0.1:12345"
	// WebSocketPath is the HTTP path upgraded to a line transport
	WebSocketPath = "/ws"
)

// Buffer sizes for various operations
const (
	// BufferSize1KB is 1 kilobyte
	BufferSize1KB = 1024
	// BufferSize4KB is 4 kilobytes
	BufferSize4KB = 4 * 1024
	// BufferSize64KB is 64 kilobytes
	BufferSize64KB = 64 * 1024
)

// Chat limits
const (
	// ScrollbackCapacity is the number of lines the client keeps
	ScrollbackCapacity = 1000
	// DefaultSendQueueSize is the per-session outbound queue length
	DefaultSendQueueSize = 256
	// DefaultMaxLineBytes caps a single inbound protocol line
	DefaultMaxLineBytes = BufferSize64KB
	// MaxDisplayLineBytes is how much of one router line the client keeps;
	// the rest of a longer line is discarded
	MaxDisplayLineBytes = DefaultMaxLineBytes + BufferSize1KB
	// ReservedRows is the number of terminal rows below the message window
	ReservedRows = 3
)

// Timeouts for various operations
const (
	// Timeout1Second is a 1 second timeout
	Timeout1Second = 1 * time.Second
	// Timeout5Seconds is a 5 second timeout
	Timeout5Seconds = 5 * time.Second
	// Timeout10Seconds is a 10 second timeout
	Timeout10Seconds = 10 * time.Second
)
