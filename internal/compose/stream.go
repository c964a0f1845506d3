package compose

import (
	"context"
	"fmt"
	"html"
	"io"

	"fedhost/internal/ui"
)

// ClientScript swaps streamed region content into place and forwards
// activation events on resolved regions to the host.
const ClientScript = `window.fedhost = {
  swap: function (id) {
    var tpl = document.getElementById("fedhost-tpl-" + id);
    var region = document.getElementById("region-" + id);
    if (tpl && region) {
      region.replaceChildren(tpl.content.cloneNode(true));
      tpl.remove();
    }
  }
};
document.addEventListener("click", function (ev) {
  var el = ev.target.closest("[data-fedhost-events~=click]");
  var region = el && el.closest("[data-region]");
  if (!region) { return; }
  fetch("/regions/" + encodeURIComponent(region.dataset.region) + "/events/click", { method: "POST" })
    .then(function (r) { return r.json(); })
    .then(function (res) { if (res.messages && res.messages.length) { alert(res.messages.join("\n")); } });
});`

type flusher interface {
	Flush()
}

// Stream writes the view with fallbacks first, then each region's content as
// it settles, in settlement order. It returns when every region has settled,
// the view is unmounted or ctx is done.
func Stream(ctx context.Context, w io.Writer, v *View) error {
	node, statuses := v.render()
	if err := ui.RenderHTML(w, node); err != nil {
		return err
	}
	flush(w)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-v.Updates():
			if !ok {
				return v.Err()
			}
			if statuses[u.Region] != StatusPending {
				continue
			}
			if err := writeSwap(w, u); err != nil {
				return err
			}
			flush(w)
		}
	}
}

func writeSwap(w io.Writer, u Update) error {
	id := html.EscapeString(u.Region)
	if _, err := fmt.Fprintf(w, `<template id="fedhost-tpl-%s">`, id); err != nil {
		return err
	}
	if err := ui.RenderHTML(w, u.Node); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, `</template><script>fedhost.swap(%q)</script>`, u.Region)
	return err
}

func flush(w io.Writer) {
	if f, ok := w.(flusher); ok {
		f.Flush()
	}
}

// WriteDocument streams v as a complete HTML page.
func WriteDocument(ctx context.Context, w io.Writer, title string, v *View) error {
	if _, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>%s</title><script>%s</script></head><body>",
		html.EscapeString(title), ClientScript); err != nil {
		return err
	}
	if err := Stream(ctx, w, v); err != nil {
		return err
	}
	_, err := io.WriteString(w, "</body></html>\n")
	return err
}
