package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/arloliu/fitsimg/fits"
	"github.com/arloliu/fitsimg/fsys"
)

// inspect prints the header cards of every HDU of the file at path.
func inspect(w io.Writer, fs fsys.FS, path string) error {
	hdus, err := fits.Open(fs, path)
	if err != nil {
		return err
	}

	for i, hdu := range hdus {
		hdr, err := hdu.Header()
		if err != nil {
			return fmt.Errorf("HDU %d: %w", i, err)
		}

		fmt.Fprintf(w, "HDU %d", i)
		if name := hdu.Name(); name != "" {
			fmt.Fprintf(w, " %q", name)
		}
		if desc, ok := hdu.Description(); ok {
			fmt.Fprintf(w, " %s %v", desc.Type, desc.Dimensions)
		}
		if hdu.IsCompressed() {
			fmt.Fprintf(w, " %s tile=%v", hdu.Compression().AlgorithmName(), hdu.Tile())
		}
		fmt.Fprintln(w)

		for _, card := range hdr.Cards() {
			rec, err := card.AppendTo(nil)
			if err != nil {
				return fmt.Errorf("HDU %d: %w", i, err)
			}
			for len(rec) >= fits.CardSize {
				fmt.Fprintf(w, "  %s\n", strings.TrimRight(string(rec[:fits.CardSize]), " "))
				rec = rec[fits.CardSize:]
			}
		}
	}

	return nil
}
