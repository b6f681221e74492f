// Package report renders an enrichment report as the plain-text triage summary.
package report

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lvonguyen/rapidtriage/internal/enrichment"
	"github.com/lvonguyen/rapidtriage/internal/netaddr"
)

const separatorWidth = 52

var separator = strings.Repeat("-", separatorWidth)

// Section titles.
const (
	TitleAll        = "All Discovered IPs"
	titleFlagged    = "IPs reported to %s"
	titleUnresolved = "IPs not looked up on %s"
)

// Render writes the summary: every discovered address, then flagged
// addresses, then addresses that could not be checked. Only the first section
// is printed when empty.
func Render(w io.Writer, r *enrichment.Report) error {
	bw := bufio.NewWriter(w)

	writeSection(bw, TitleAll, r.Addresses)

	if flagged := r.FlaggedAddresses(); len(flagged) > 0 {
		bw.WriteString("\n")
		writeSection(bw, fmt.Sprintf(titleFlagged, r.Source), flagged)
	}
	if unresolved := r.UnresolvedAddresses(); len(unresolved) > 0 {
		bw.WriteString("\n")
		writeSection(bw, fmt.Sprintf(titleUnresolved, r.Source), unresolved)
	}

	return bw.Flush()
}

func writeSection(w *bufio.Writer, title string, addrs []netaddr.Address) {
	w.WriteString(separator + "\n")
	w.WriteString(title + "\n")
	w.WriteString(separator + "\n")
	for _, a := range addrs {
		w.WriteString(a.String() + "\n")
	}
}

// RenderString renders into a string.
func RenderString(r *enrichment.Report) string {
	var buf bytes.Buffer
	_ = Render(&buf, r)
	return buf.String()
}

// WriteFile renders r and replaces path with the result. The content goes to
// a temporary file in the same directory which is synced and renamed over
// path, so a failed write never leaves a partial artifact.
func WriteFile(path string, r *enrichment.Report) (err error) {
	var buf bytes.Buffer
	if err := Render(&buf, r); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", tmpName, path, err)
	}
	return nil
}
