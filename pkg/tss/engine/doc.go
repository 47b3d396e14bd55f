// Package engine implements the step-driven rendezvous that lets a
// protocol driver written as an ordinary blocking send/recv function be
// consumed one step at a time by a host that cannot block (spec.md §4.1).
//
// Ported field-for-field from original_source/cpp/src/bridge.cpp's
// AsyncSession/AwaitStep: a dedicated worker goroutine runs the blocking
// protocol function against a Worker (Send/Recv), while Step rendezvouses
// with it through a mutex + condition variable exactly the way the C++
// reference uses std::mutex + std::condition_variable in place of a
// channel-based redesign, preserving the exact one-message-in/
// one-message-out contract spec.md §9 requires.
package engine
