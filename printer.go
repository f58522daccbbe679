package shmstate

import (
	"fmt"
	"io"
	"sort"

	"github.com/valyala/bytebufferpool"
)

// FormatState renders a one-line description of a handle, using the same
// sentinels the queries report.
func FormatState(s *State) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if !s.Subscribed() {
		_, _ = buf.WriteString("state <unsubscribed>")
		return buf.String()
	}
	_, _ = fmt.Fprintf(buf, "state %q perms=%s id=%s region=%d",
		s.Name(), s.Permissions(), s.ID(), RegionSize())
	return buf.String()
}

// FormatTransaction renders a one-line description of a transaction.
func FormatTransaction(t *Transaction) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if !t.Active() {
		_, _ = buf.WriteString("transaction <inactive>")
		return buf.String()
	}
	_, _ = fmt.Fprintf(buf, "transaction %d on %q perms=%s",
		t.ID(), t.Name(), t.Permissions())
	return buf.String()
}

// DumpSubscriptions writes this process's live subscription counts to w,
// one name per line, sorted.
func DumpSubscriptions(w io.Writer) error {
	snap := Subscriptions()
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	_, _ = fmt.Fprintf(buf, "subscriptions: %d state(s)\n", len(names))
	for _, name := range names {
		_, _ = fmt.Fprintf(buf, "  %s %d\n", name, snap[name])
	}
	_, err := w.Write(buf.Bytes())
	return err
}
