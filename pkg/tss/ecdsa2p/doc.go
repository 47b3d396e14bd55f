// Package ecdsa2p implements the two-party ECDSA protocols over secp256k1
// named in spec.md §4.2: DKG, Sign (plus the batched-signing supplement),
// and Refresh. Each protocol is written as an ordinary blocking function
// against an engine.Worker and handed to engine.NewSession, exactly the
// way the teacher's cgo ecdsa2p.DKG/Sign/Refresh wrap a blocking cb-mpc
// job — the difference is that here the blocking body is pure Go and the
// "job" is a rendezvous with a step-driven host instead of a socket.
//
// Round structure is grounded in original_source/cpp/src/bridge.cpp's
// DkgSessionImpl/SignSessionImpl worker bodies for message shape and
// sequencing, and in mr-shifu-mpc-lib's lib/mta/mta.go for the MtA-based
// delta/sigma derivation Sign uses in place of a direct interactive
// inversion.
package ecdsa2p
