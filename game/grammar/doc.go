// Package grammar checks learner statements against a level's canonical
// solution and reports positioned diagnostics.
//
// A canonical solution is a single string: statement lines are separated by
// "||" and accepted alternatives for one line by "//", for example
//
//	move(2); || turn("right"); || move(); // move(1);
//
// Validate splits the submitted text into statements (one per non-blank
// line), checks the statement count, the ";" terminator and compares each
// statement with the alternatives for its ordinal. Every diagnostic carries
// 1-based line and rune columns with an exclusive end column, ready to be
// rendered as inline markers by an editor.
//
// The package has no notion of grids or actions; it only compares text.
package grammar
