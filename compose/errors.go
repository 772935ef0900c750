package compose

import "errors"

var (
	// ErrNoComposition is raised when a composable runs outside a composition pass.
	ErrNoComposition = errors.New("compose: no composition in progress")

	// ErrReentrant is raised when a pass is started from inside another pass
	// or from an input handler.
	ErrReentrant = errors.New("compose: reentrant composition")

	// ErrConcurrentComposition is raised when two runtimes compose at once.
	ErrConcurrentComposition = errors.New("compose: another runtime is composing")

	// ErrUnbalanced is raised when a composable leaves the parent or scope
	// stack deeper or shallower than it found it.
	ErrUnbalanced = errors.New("compose: unbalanced composition stack")

	// ErrScopeDropped is returned when a state handle outlived its scope.
	ErrScopeDropped = errors.New("compose: state scope dropped")

	ErrAlreadyStarted = errors.New("compose: initial composition already ran")
	ErrNoHandler      = errors.New("compose: entity has no click handler")
	ErrQueueClosed    = errors.New("compose: runtime queue closed")

	// ErrQueueFull is returned by Post when the runtime's own goroutine
	// would have to wait for a queue only it drains.
	ErrQueueFull = errors.New("compose: runtime queue full")
)
