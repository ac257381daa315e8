// Package wire defines the JSON envelope exchanged over a transport channel.
//
// Every message is {"type": TAG, "payload": {...}}. Action tags are the
// game.Kind values. The host additionally sends:
//
// SYNC_STATE:
//
//	version: number   // monotonic per authority loop
//	state:   Session  // the complete session, replaces the receiver's copy
//
// Peers only ever send action envelopes. Unknown tags decode to game.Unknown
// and are ignored by the reducer.
package wire
