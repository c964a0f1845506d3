package compose

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"fedhost/internal/data"
	"fedhost/internal/ui"
)

// ErrorKind classifies a region failure for presentation and events.
type ErrorKind string

const (
	KindUnknownRemote      ErrorKind = "unknown_remote"
	KindUnknownExport      ErrorKind = "unknown_export"
	KindNetwork            ErrorKind = "network"
	KindIncompatibleShared ErrorKind = "incompatible_shared"
	KindInvalidEntry       ErrorKind = "invalid_entry"
	KindRender             ErrorKind = "render"
)

// Presentation is a failure made safe to show to end users. Unless verbose,
// entry URLs and request details are removed.
type Presentation struct {
	Kind    ErrorKind
	Message string
	Verbose string
}

// PresentError describes err for display.
func PresentError(err error, verbose bool) Presentation {
	if err == nil {
		return Presentation{Kind: KindRender, Message: "unknown error"}
	}
	full := err.Error()
	p := Presentation{Kind: Classify(err)}
	if verbose {
		p.Message, p.Verbose = full, full
		return p
	}

	var netErr *data.NetworkError
	if errors.As(err, &netErr) {
		switch {
		case netErr.StatusCode != 0:
			p.Message = fmt.Sprintf("remote %q entry unavailable (%d %s)", netErr.Remote, netErr.StatusCode, http.StatusText(netErr.StatusCode))
		case netErr.Timeout():
			p.Message = fmt.Sprintf("remote %q entry timed out", netErr.Remote)
		default:
			p.Message = fmt.Sprintf("remote %q entry unreachable", netErr.Remote)
		}
		return p
	}

	if scrubbed := scrubRequestFromErrorString(full); scrubbed != "" {
		p.Message = scrubbed
		return p
	}
	p.Message = strings.TrimSpace(full)
	return p
}

// Classify maps err to an ErrorKind.
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, data.ErrUnknownRemote):
		return KindUnknownRemote
	case errors.Is(err, data.ErrUnknownExport):
		return KindUnknownExport
	case errors.Is(err, data.ErrNetwork):
		return KindNetwork
	case errors.Is(err, data.ErrIncompatibleSharedDep):
		return KindIncompatibleShared
	case errors.Is(err, data.ErrInvalidEntry):
		return KindInvalidEntry
	default:
		return KindRender
	}
}

var urlPattern = regexp.MustCompile(`(?i)\b(?:https?|file|github)://\S+`)

// scrubRequestFromErrorString drops request prefixes such as
//
//	Get "http://host/assets/remoteEntry.js": dial tcp ...
//
// and masks any remaining URLs. It returns "" when nothing changed.
func scrubRequestFromErrorString(s string) string {
	out := strings.TrimSpace(s)
	methods := []string{"Get ", "Post ", "GET ", "POST "}
	for _, m := range methods {
		idx := strings.Index(out, m+`"`)
		if idx < 0 {
			continue
		}
		rest := out[idx+len(m)+1:]
		if j := strings.Index(rest, `": `); j >= 0 {
			out = strings.TrimSpace(out[:idx] + rest[j+3:])
		}
		break
	}
	out = urlPattern.ReplaceAllString(out, "<url>")
	if out == strings.TrimSpace(s) {
		return ""
	}
	return out
}

// ErrorNode renders a failed region.
func ErrorNode(p Presentation) *ui.Node {
	return ui.Element("div", map[string]string{
		"class":           "fedhost-error text-red-700 p-4",
		"role":            "alert",
		"data-error-kind": string(p.Kind),
	}, ui.Text("Remote content unavailable: "+p.Message))
}
