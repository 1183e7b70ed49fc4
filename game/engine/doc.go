// Package engine provides the core game logic for Code Maze.
//
// The engine package implements:
//   - Action resolution from validated statement text
//   - Grid movement and turning rules
//   - The execution sequencer that plays actions back one at a time
//   - Level validation and loading
//
// Core Types:
//
// Level is the immutable puzzle definition and Grid its playable view.
// Action is a tagged Move/Turn value. ExecutionState is the snapshot of a
// playback, owned by a Sequencer and always returned by copy.
//
// Usage:
//
//	level, err := engine.LoadLevelFile("configs/levels/level-1.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	seq, err := engine.NewSequencer(level, engine.Options{Driver: driver})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	state, _ := seq.Submit("move();")
//	// the driver animates frame 0, then:
//	state, _ = seq.OnFinishingAnimation(state.PlaybackID, 0)
//
// Playback:
//
// Each successful action emits an AnimationFrame and waits for its
// acknowledgment before the next action runs. A rejected action emits a
// frame flagged Rejected and moves the sequencer to the error state, which
// only Retry leaves. When the actions run out the level is completed if the
// avatar stands on the finish cell.
package engine
