package subprocess

// pipe is the parent's end of an OS pipe, accessed without ever blocking.
// pipe_unix.go and pipe_windows.go provide the two implementations.
//
// A pipe is owned by exactly one ProcessHandle and is not safe for
// concurrent use.
type pipe interface {
	// read copies whatever is currently available into p. It returns
	// 0, nil when nothing is available yet and 0, io.EOF once the other
	// end has been closed, after which the pipe has released its handle.
	read(p []byte) (int, error)

	// write hands as much of p to the pipe as it will take right now,
	// possibly nothing. It returns io.ErrClosedPipe once the reader has
	// gone away, after which the pipe has released its handle.
	write(p []byte) (int, error)

	// close releases the handle. It is safe to call more than once.
	close() error
}
