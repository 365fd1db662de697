// Package chatserver implements the linechat router.
//
// The router accepts line-oriented connections, negotiates a nickname with
// each peer and fans every chat line out to all other named participants.
//
// # Architecture
//
//   - Server: owns the listeners and the accept loop, tracks every live session
//     and performs orderly shutdown
//   - Hub: the registry of active (named) sessions; Broadcast delivers over a
//     snapshot of the members taken at call time
//   - Session: one connected participant with a bounded outbound queue drained
//     by its own writer goroutine
//   - protocol: the per-connection state machine (AwaitingNickname, Active,
//     Closed) running on the connection's reader goroutine
//
// # Wire Protocol
//
// Plain newline-delimited text. The server prompts for a nickname first; after
// that the reserved lines are:
//
//	/quit             leave the chat
//	/nick <newname>   change nickname
//
// Every other line is relayed to the other participants as
//
//	<color><nick><reset>: <line>
//
// An optional WebSocket listener carries the same protocol with one text frame
// per line.
//
// Usage
//
//	cfg := config.DefaultConfig()
//	srv := chatserver.NewServer(&cfg.Server)
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	<-srv.Done()
package chatserver
