// Package rotation drives the timed, randomized rotation through the save
// slots of a multi-game speedrun challenge.
//
// Two goroutines cooperate for the lifetime of a run. The Scheduler owns
// the active and previous slot pointers: it activates a random slot, waits
// a random time and saves a checkpoint, over and over. The Listener samples
// the completion signal; when it fires it removes the active slot from the
// pool, sets the cancellation Token so the Scheduler's wait ends early, and
// exits. The Driver restarts the Listener after each completion and stops
// once the pool is empty.
package rotation
