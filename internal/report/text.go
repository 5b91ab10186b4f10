package report

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"xm2m/internal/repo"
)

// Text renders records as an aligned plain-text table.
type Text struct {
	w    io.Writer
	info Info
	tw   *tabwriter.Writer
	n    int
}

// NewText returns a text sink writing to w.
func NewText(w io.Writer, info Info) *Text {
	return &Text{w: w, info: info}
}

func (t *Text) Begin() error {
	t.n = 0
	if _, err := fmt.Fprintf(t.w, "xm2m-server session test results\nReport run on %s (version %s, port %d)\n\n",
		t.info.now().Format(TimeLayout), t.info.Version, t.info.TransactionPort); err != nil {
		return err
	}
	t.tw = tabwriter.NewWriter(t.w, 0, 4, 2, ' ', 0)
	_, err := fmt.Fprintln(t.tw, "#\tTIME\tADDRESS\tPORT\tRECEIVED\tSENT")
	return err
}

func (t *Text) WriteRecord(rec repo.Record) error {
	r := rowOf(rec)
	t.n++
	_, err := fmt.Fprintf(t.tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
		r.Seq, r.Time, r.Addr, r.Port, strconv.Quote(r.Received), strconv.Quote(r.Sent))
	return err
}

func (t *Text) End() error {
	if err := t.tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(t.w, "\n%d transaction(s)\n", t.n)
	return err
}
