package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime/pprof"
	"text/tabwriter"

	"github.com/inhies/go-bytesize"
	"github.com/mattn/go-tty"
	"github.com/spf13/pflag"

	"github.com/evanphx/atlantis/kernel"
	"github.com/evanphx/atlantis/loader"
	alog "github.com/evanphx/atlantis/log"
	"github.com/evanphx/atlantis/syscalls"
)

var (
	fConsole = pflag.BoolP("console", "c", false, "attach the host tty in raw mode")
	fQuantum = pflag.Uint64P("quantum", "q", 0, "preempt after this many syscalls (0 = never)")
	fTrace   = pflag.BoolP("trace", "t", false, "enable trace logging")
	fList    = pflag.BoolP("list", "l", false, "list registered apps and exit")
	fDump    = pflag.BoolP("dump", "d", false, "spew the task table after the run")
	fExport  = pflag.String("export", "", "write registered app images to this directory and exit")
)

type ttyConsole struct {
	io *tty.TTY
}

func (t ttyConsole) Read(b []byte) (int, error)  { return t.io.Input().Read(b) }
func (t ttyConsole) Write(b []byte) (int, error) { return t.io.Output().Write(b) }

func main() {
	cpuprofile := os.Getenv("CPUPROFILE")
	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		fmt.Printf("pprof: profiling started\n")
	}

	pflag.Parse()

	if *fTrace {
		alog.EnableTrace()
	}

	reg := loader.NewRegistry()
	if err := registerApps(reg); err != nil {
		log.Fatal(err)
	}

	if *fList {
		for _, name := range reg.Names() {
			app, _ := reg.Lookup(name)
			fmt.Printf("%-10s %s\n", name, bytesize.New(float64(len(app.Blob))))
		}
		return
	}

	if *fExport != "" {
		for _, name := range reg.Names() {
			app, _ := reg.Lookup(name)

			path := filepath.Join(*fExport, name+".img")
			if err := os.WriteFile(path, app.Blob, 0644); err != nil {
				log.Fatal(err)
			}

			fmt.Printf("wrote %s (%s)\n", path, bytesize.New(float64(len(app.Blob))))
		}
		return
	}

	k, err := kernel.NewKernel(kernel.Config{
		Registry: reg,
		Quantum:  *fQuantum,
	})
	if err != nil {
		log.Fatal(err)
	}

	var console io.ReadWriter

	if *fConsole {
		t, err := tty.Open()
		if err != nil {
			log.Fatal(err)
		}
		defer t.Close()

		_ = t.MustRaw()

		console = ttyConsole{io: t}
	}

	syscalls.NewInvoker(k, console)

	names := pflag.Args()
	if len(names) == 0 {
		names = []string{"hello"}
	}

	var tasks []*kernel.Task

	for _, name := range names {
		task, err := k.Spawn(name)
		if err != nil {
			log.Fatal(err)
		}

		tasks = append(tasks, task)
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- k.RunTasks(ctx)
	}()

	for _, task := range tasks {
		code, err := k.WaitExited(context.Background(), task)
		if err != nil {
			log.Fatal(err)
		}

		alog.L.Info("task finished", "pid", task.Pid, "name", task.Name, "code", code)
	}

	cancel()
	<-done

	printAccounting(k)

	if *fDump {
		k.DumpTasks(os.Stderr)
	}

	if cpuprofile != "" {
		pprof.StopCPUProfile()
		fmt.Printf("pprof: profiling finished\n")
	}
}

func printAccounting(k *kernel.Kernel) {
	snaps := k.Snapshot()
	if len(snaps) == 0 {
		return
	}

	tr := tabwriter.NewWriter(os.Stderr, 4, 8, 1, ' ', 0)

	fmt.Fprintf(tr, "PID\tNAME\tSTATUS\tCODE\tMEM\tSYSCALLS\n")

	for _, s := range snaps {
		var total uint32
		for _, n := range s.Syscalls {
			total += n
		}

		fmt.Fprintf(tr, "%d\t%s\t%s\t%d\t%s\t%d\n",
			s.Pid, s.Name, s.Status, s.ExitCode,
			bytesize.New(float64(s.MappedBytes)), total)
	}

	tr.Flush()
}
