package data

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is checks against the typed load errors below.
var (
	ErrUnknownRemote         = errors.New("unknown remote")
	ErrUnknownExport         = errors.New("unknown export")
	ErrNetwork               = errors.New("remote entry unreachable")
	ErrIncompatibleSharedDep = errors.New("incompatible shared dependency")
	ErrInvalidEntry          = errors.New("invalid remote entry")
	ErrLoaderClosed          = errors.New("loader closed")
)

// UnknownRemoteError reports a reference to a remote that is not configured.
type UnknownRemoteError struct {
	Remote string
}

func (e *UnknownRemoteError) Error() string {
	return fmt.Sprintf("unknown remote %q", e.Remote)
}

func (e *UnknownRemoteError) Is(target error) bool { return target == ErrUnknownRemote }

// UnknownExportError reports an export name the remote's entry does not provide.
type UnknownExportError struct {
	Remote    string
	Export    string
	Available []string
}

func (e *UnknownExportError) Error() string {
	msg := fmt.Sprintf("remote %q does not expose %q", e.Remote, e.Export)
	if len(e.Available) > 0 {
		msg += " (available: " + strings.Join(e.Available, ", ") + ")"
	}
	return msg
}

func (e *UnknownExportError) Is(target error) bool { return target == ErrUnknownExport }

// NetworkError reports a failure to retrieve a remote entry manifest:
// transport errors, timeouts and non-2xx responses.
type NetworkError struct {
	Remote     string
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fetch entry for remote %q from %s", e.Remote, e.URL)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// Timeout reports whether the failure was a deadline expiry.
func (e *NetworkError) Timeout() bool {
	var t interface{ Timeout() bool }
	if errors.As(e.Err, &t) {
		return t.Timeout()
	}
	return false
}

// IncompatibleSharedDependencyError reports a hard version-range violation
// between the host's copy of a shared dependency and a remote's requirement.
type IncompatibleSharedDependencyError struct {
	Remote      string
	Dependency  string
	HostVersion string
	Required    string
	Reason      string
}

func (e *IncompatibleSharedDependencyError) Error() string {
	msg := fmt.Sprintf("remote %q requires shared %s %s, host provides %s", e.Remote, e.Dependency, e.Required, e.HostVersion)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *IncompatibleSharedDependencyError) Is(target error) bool {
	return target == ErrIncompatibleSharedDep
}

// InvalidEntryError reports an entry manifest that could not be evaluated, or
// an export that does not have the shape of a component.
type InvalidEntryError struct {
	Remote string
	Export string
	Reason string
	Err    error
}

func (e *InvalidEntryError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid entry for remote %q", e.Remote)
	if e.Export != "" {
		fmt.Fprintf(&b, " export %q", e.Export)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *InvalidEntryError) Unwrap() error { return e.Err }

func (e *InvalidEntryError) Is(target error) bool { return target == ErrInvalidEntry }
