package main

import (
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/pflag"

	"github.com/evanphx/atlantis/abi"
	"github.com/evanphx/atlantis/loader"
)

var fSpew = pflag.BoolP("spew", "s", false, "dump the parsed image structure")

func main() {
	pflag.Parse()

	if pflag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: atlimg [-s] image.img ...")
		os.Exit(1)
	}

	l := loader.NewLoader(nil)

	for _, path := range pflag.Args() {
		if err := dump(l, path); err != nil {
			log.Fatal(err)
		}
	}
}

func dump(l *loader.Loader, path string) error {
	img, err := l.LoadFile(path)
	if err != nil {
		return err
	}

	fmt.Printf("%s: entry=%x stack=%d pages\n", path, img.Entry, img.StackPages)

	fmt.Printf("\n[segments]\n")

	tr := tabwriter.NewWriter(os.Stdout, 4, 8, 1, ' ', 0)

	fmt.Fprintf(tr, "VADDR\tMEM\tDATA\tPERMS\n")

	for _, seg := range img.Segments {
		fmt.Fprintf(tr, "%06x\t%x\t%x\t%s\n",
			seg.Vaddr, seg.MemSize, len(seg.Data), perms(seg.Port))
	}

	tr.Flush()

	if *fSpew {
		spew.Fdump(os.Stdout, img)
	}

	return nil
}

func perms(port uint32) string {
	out := []byte("---")

	if port&abi.ProtRead != 0 {
		out[0] = 'r'
	}

	if port&abi.ProtWrite != 0 {
		out[1] = 'w'
	}

	if port&abi.ProtExec != 0 {
		out[2] = 'x'
	}

	return string(out)
}
