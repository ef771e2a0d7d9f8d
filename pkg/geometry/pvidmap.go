package geometry

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

type PVIDEntry struct {
	CopyNumber int
	Name       string
}

// PVIDMap lists every physical volume of the tree in placement order.
func (t *Tree) PVIDMap() []PVIDEntry {
	entries := make([]PVIDEntry, len(t.store))
	for i, pv := range t.store {
		entries[i] = PVIDEntry{CopyNumber: pv.CopyNumber, Name: pv.Name}
	}
	return entries
}

// WritePVIDMap writes one "<copyNumber> <volumeName>" line per entry.
func WritePVIDMap(w io.Writer, entries []PVIDEntry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintf(bw, "%d %s\n", e.CopyNumber, e.Name); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func WritePVIDMapFile(filename string, entries []PVIDEntry) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("error creating PVID map file %q: %w", filename, err)
	}
	if err := WritePVIDMap(f, entries); err != nil {
		f.Close()
		return fmt.Errorf("error writing PVID map file %q: %w", filename, err)
	}
	return f.Close()
}

func ReadPVIDMap(r io.Reader) ([]PVIDEntry, error) {
	var entries []PVIDEntry
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		copyStr, name, ok := strings.Cut(text, " ")
		if !ok {
			return nil, fmt.Errorf("PVID map line %d: missing volume name", line)
		}
		copyNumber, err := strconv.Atoi(copyStr)
		if err != nil {
			return nil, fmt.Errorf("PVID map line %d: %w", line, err)
		}
		entries = append(entries, PVIDEntry{CopyNumber: copyNumber, Name: strings.TrimSpace(name)})
	}
	return entries, scanner.Err()
}
