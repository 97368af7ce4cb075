// Package controller turns an algorithm routine into a pausable, resumable,
// restartable and step-logged process driven by external commands.
//
// # State Machine
//
// The controller reads and writes the status cell of a [state.Cells] handle:
//
//	idle ──start──▶ running ◀──resume── paused
//	                   │  └───pause──────▶ ┘
//	             routine returns
//	                   ▼
//	               finished ──restart──▶ idle
//
// start, pause, resume and restart are external commands ([Apply]); each is a
// compare-and-set on the status followed by firing the resume signal. The
// running → finished transition is made by the controller itself when the
// routine returns.
//
// # Routines
//
// A [RunFunc] receives the controller and reports each discrete step through
// [Controller.Log] (or [Controller.Stepf], which also applies the playback
// delay and the pause check). [Controller.PauseIfNeeded] is the only place a
// routine suspends: if the status is paused, the routine blocks until the
// status is running again and a resume signal fires. Waits never poll; they
// block on the signal edge and re-check the status only when it fires.
//
// # Failure Policy
//
// A routine error or panic never escapes [Controller.Run]. It is recorded in
// [Result.Err], written to the log as "Error: <message>", and the run proceeds
// to finished exactly as a successful run would. Errors returned by Run itself
// come only from the state cells or from context cancellation.
//
// # Restart
//
// After finishing, [Controller.Start] waits for the restart command. On that
// edge it clears the log, zeroes the step count and calls the [ResetFunc]
// (for a tree visualization, emptying the tree) before a new run may begin.
package controller
