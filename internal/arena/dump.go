package arena

import (
	"fmt"
	"io"
)

// Dump writes the region contents in [from, to) to w as hex plus ASCII,
// 16 bytes per line. Debug only; no stability contract on the format.
func (a *Arena) Dump(w io.Writer, from, to uint32) error {
	if to > a.size {
		to = a.size
	}
	if _, err := fmt.Fprintf(w, "arena dump %08x..%08x\n", from, to); err != nil {
		return err
	}

	for line := from; line < to; line += 16 {
		if _, err := fmt.Fprintf(w, "%08x: ", line); err != nil {
			return err
		}

		end := line + 16
		if end > to {
			end = to
		}

		for off := line; off < line+16; off++ {
			if off < end {
				fmt.Fprintf(w, "%02x ", a.data[off])
			} else {
				fmt.Fprint(w, "   ")
			}
		}

		fmt.Fprint(w, " ")
		for off := line; off < end; off++ {
			b := a.data[off]
			if b > 0x1f && b < 0x80 {
				fmt.Fprintf(w, "%c", b)
			} else {
				fmt.Fprint(w, ".")
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// DumpFreeSpans writes the free blocks between live spans to w, one per
// line. Debug only.
func (a *Arena) DumpFreeSpans(w io.Writer, live []Span) error {
	if _, err := fmt.Fprintln(w, "free spans:"); err != nil {
		return err
	}
	for _, s := range a.FreeSpans(live) {
		if _, err := fmt.Fprintf(w, "  %08x -- %08x (%d bytes)\n", s.Off, s.End(), s.Len); err != nil {
			return err
		}
	}
	return nil
}
