// minivm CLI - runs, inspects, and stores compiled program images
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/minivm/manifest"
	"github.com/chazu/minivm/pkg/bytecode"
	"github.com/chazu/minivm/pkg/store"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("minivm")

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	disasm := flag.Bool("disasm", false, "Print a disassembly listing instead of executing")
	trace := flag.Bool("trace", false, "Trace instruction dispatch to stderr")
	maxStack := flag.Int("max-stack", 0, "Operand stack depth limit (0 = default)")
	maxCalls := flag.Int("max-calls", 0, "Call frame depth limit (0 = default)")
	storePath := flag.String("store", "", "Image store database path (default: manifest, then ~/.minivm/images.db)")
	save := flag.String("save", "", "Store the image under this name and print its hash")
	fromHash := flag.String("hash", "", "Load the image from the store by content hash")
	fromName := flag.String("name", "", "Load the image from the store by name")
	list := flag.Bool("list", false, "List stored images")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: minivm [options] [image.mini]\n\n")
		fmt.Fprintf(os.Stderr, "Executes a compiled program image. The program's return value becomes\n")
		fmt.Fprintf(os.Stderr, "the process exit code.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  minivm prog.mini              # Run an image\n")
		fmt.Fprintf(os.Stderr, "  minivm -disasm prog.mini      # Show its listing\n")
		fmt.Fprintf(os.Stderr, "  minivm -trace prog.mini       # Run with dispatch tracing\n")
		fmt.Fprintf(os.Stderr, "  minivm -save adder prog.mini  # Store under a name\n")
		fmt.Fprintf(os.Stderr, "  minivm -name adder            # Run the stored image\n")
		fmt.Fprintf(os.Stderr, "  minivm -list                  # Show stored images\n")
	}
	flag.Parse()

	if *verbose {
		commonlog.Configure(1, nil)
	} else {
		commonlog.Configure(0, nil)
	}

	// A manifest supplies defaults for anything not set on the command line.
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if m != nil {
		log.Debugf("using manifest in %s", m.Dir)
		if *storePath == "" {
			*storePath = m.StorePath()
		}
		if *maxStack == 0 {
			*maxStack = m.VM.MaxStackDepth
		}
		if *maxCalls == 0 {
			*maxCalls = m.VM.MaxCallDepth
		}
		if m.VM.Trace {
			*trace = true
		}
	}

	if *list {
		if err := listImages(*storePath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	prog, err := loadProgram(flag.Args(), *storePath, *fromHash, *fromName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		log.Infof("loaded image: %d functions, %d code bytes, entry %s",
			len(prog.Functions), len(prog.Code), prog.EntryFunction().Name)
	}

	if *save != "" {
		hash, err := saveImage(*storePath, *save, prog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	if *disasm {
		fmt.Print(prog.Disassemble())
		return
	}

	var opts []bytecode.Option
	if *maxStack > 0 {
		opts = append(opts, bytecode.WithMaxStackDepth(*maxStack))
	}
	if *maxCalls > 0 {
		opts = append(opts, bytecode.WithMaxCallDepth(*maxCalls))
	}
	if *trace {
		opts = append(opts, bytecode.WithTrace())
	}

	result, err := bytecode.NewVM(prog, opts...).Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(int(uint8(result)))
}

// loadProgram resolves the image to execute: a file path argument, or a
// store lookup by hash or name.
func loadProgram(args []string, storePath, fromHash, fromName string) (*bytecode.Program, error) {
	switch {
	case fromHash != "" && fromName != "":
		return nil, errors.New("use -hash or -name, not both")
	case fromHash != "" || fromName != "":
		s, err := openStore(storePath)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		if fromHash != "" {
			return s.Get(fromHash)
		}
		return s.GetByName(fromName)
	case len(args) == 1:
		return bytecode.ReadImageFile(args[0])
	case len(args) == 0:
		return nil, errors.New("no image given (see -h)")
	default:
		return nil, fmt.Errorf("expected one image path, got %d arguments", len(args))
	}
}

func openStore(path string) (*store.Store, error) {
	if path != "" {
		return store.Open(path)
	}
	return store.OpenDefault()
}

func saveImage(storePath, name string, prog *bytecode.Program) (string, error) {
	s, err := openStore(storePath)
	if err != nil {
		return "", err
	}
	defer s.Close()
	return s.Put(name, prog)
}

func listImages(storePath string) error {
	s, err := openStore(storePath)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("store is empty")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s  %-20s %3d fns %6d bytes  %s\n",
			e.Hash[:12], e.Name, e.Functions, e.CodeLen, e.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
