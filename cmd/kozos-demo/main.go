// Command kozos-demo boots a kozos kernel with a small fixed set of
// threads and runs it until a shutdown signal arrives, the way the
// teacher's cmd/ublk-mem wires a Device instead of a Kernel.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	"golang.org/x/sys/unix"

	"github.com/kozos-go/kozos"
	"github.com/kozos-go/kozos/internal/constants"
	"github.com/kozos-go/kozos/internal/logging"
	kzsyscall "github.com/kozos-go/kozos/internal/syscall"
	"github.com/kozos-go/kozos/internal/vector"
)

const (
	msgBox = 0

	// uartVector is the soft vector a simulated UART receive interrupt
	// fires against; the first vector slot past the kernel-reserved pair.
	uartVector = vector.NumReserved
)

func main() {
	var (
		verbose = flag.Bool("v", false, "verbose (debug-level) logging")
		cpu     = flag.Int("cpu", 0, "logical CPU to pin this process to (single-core kernel, no SMP)")
	)
	flag.Parse()

	if err := pinToCPU(*cpu); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not pin to CPU %d: %v\n", *cpu, err)
	}

	logLevel := charmlog.InfoLevel
	if *verbose {
		logLevel = charmlog.DebugLevel
	}
	charm := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Level:           logLevel,
		ReportTimestamp: true,
	})

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	console := newCharmConsole(charm)

	k := kozos.NewKernel(nil, console, logger)
	k.SetObserver(kozos.NewMetricsObserver(k.Metrics()))

	specs := []kozos.BootSpec{
		{Name: "receiver", Priority: 2, Entry: receiverEntry},
		{Name: "command", Priority: 3, Entry: commandEntry},
		{Name: "sender", Priority: 4, Entry: senderEntry, Argv: []any{"static memory\n"}},
		{Name: "hello", Priority: 5, Entry: helloEntry},
		{Name: "uartrx", Priority: 1, Entry: uartrxEntry},
		{Name: "idle", Priority: constants.PriorityNum - 1, Entry: idleEntry},
	}

	done := make(chan error, 1)
	go func() { done <- k.Start(specs...) }()

	installStackDumpHandler(logger)
	installUARTInterruptSource(k)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("received shutdown signal")
	case err := <-done:
		logger.Error("kernel halted", "error", err)
		os.Exit(1)
	}
}

// pinToCPU restricts this process to a single logical CPU, a literal
// expression of "single-core microcontroller, no SMP" (spec §1
// Non-goals), grounded on the teacher's per-queue-goroutine affinity
// pinning in internal/queue/runner.go.
func pinToCPU(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}

// installStackDumpHandler wires SIGUSR1 to a full goroutine stack dump,
// mirroring the teacher's cmd/ublk-mem debugging hook — useful here to
// see every parked thread goroutine at once.
func installStackDumpHandler(logger *logging.Logger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	go func() {
		for range ch {
			logger.Info("=== goroutine stack dump ===")
			buf := make([]byte, 1<<20)
			n := runtime.Stack(buf, true)
			fmt.Fprintf(os.Stderr, "%s\n", buf[:n])
			pprof.Lookup("goroutine").WriteTo(os.Stderr, 1)
		}
	}()
}

// installUARTInterruptSource simulates a UART receive interrupt firing on
// a fixed period. A real port would have the hardware line trigger this
// through the low-level common entry (spec §1, out of scope); here a
// goroutine stands in for the hardware and calls Interrupt directly,
// the way a test calls it against a mocked ISR.
func installUARTInterruptSource(k *kozos.Kernel) {
	go func() {
		ticker := time.NewTicker(3 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			k.Interrupt(uartVector)
		}
	}()
}

// uartrxEntry registers the UART vector's handler and then parks in a
// wait/sleep loop; the handler it installs runs in interrupt context and
// reaches back into the kernel only through the service-call callback
// (spec §4.6), never by calling thread methods directly.
func uartrxEntry(self *kozos.Thread, argv []any) {
	handle := self.GetID()
	self.SetInterrupt(uartVector, func(vectorType int, serviceCall func(kzsyscall.Param) kzsyscall.Param) {
		logging.Info("uart rx interrupt", "vector", vectorType)
		serviceCall(kzsyscall.Param{Type: kzsyscall.Wakeup, Handle: handle})
	})
	for {
		self.Sleep()
		logging.Info("uartrx woken by interrupt")
	}
}

func helloEntry(self *kozos.Thread, argv []any) {
	os.Stdout.WriteString("Hello World!\n")
	for {
		self.Wait()
		time.Sleep(500 * time.Millisecond)
	}
}

func commandEntry(self *kozos.Thread, argv []any) {
	self.Exit()
}

func receiverEntry(self *kozos.Thread, argv []any) {
	size, p, sender := self.Recv(msgBox)
	logging.Info("recv complete", "from", sender, "size", size, "payload", string(p))
	self.Exit()
}

func senderEntry(self *kozos.Thread, argv []any) {
	msg := argv[0].(string)
	ret := self.Send(msgBox, len(msg), []byte(msg))
	logging.Info("send complete", "ret", ret)
	self.Exit()
}

func idleEntry(self *kozos.Thread, argv []any) {
	for {
		self.Wait()
		time.Sleep(50 * time.Millisecond)
	}
}
