package io

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
)

// DumpToFile writes path through a buffered writer. The data lands in a temp file
// that is renamed over path once write succeeds, so readers never see half a file.
func DumpToFile(path string, write func(w *bufio.Writer) error) (topErr error) {
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	defer func() {
		if topErr != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	bw := bufio.NewWriter(f)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("unable to flush %s: %s", tmp, err.Error())
	}
	if err = f.Close(); err != nil {
		return err
	}

	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("unable to move %s into place: %s", tmp, err.Error())
	}

	slog.Debug("file written", "path", path)

	return nil
}
