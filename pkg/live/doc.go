// Package live maintains one bidirectional streaming session with the
// speech backend over WebSocket.
//
// A Session dials the endpoint, performs the setup handshake, and then
// splits into two halves: outbound senders (SendRealtimeInput, SendText,
// SendToolResponse) and an inbound read loop that decodes server
// messages into tagged events and publishes them, in wire order, on the
// session's Emitter.
package live
