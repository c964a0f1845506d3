package output

import "io"

// flushIfPossible pushes buffered output through writers such as
// *bufio.Writer (Flush() error) and http.ResponseWriter (Flush()).
func flushIfPossible(w io.Writer) error {
	switch f := w.(type) {
	case interface{ Flush() error }:
		return f.Flush()
	case interface{ Flush() }:
		f.Flush()
	}
	return nil
}
