package main

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/xplshn/glir/pkg/cli"
	"github.com/xplshn/glir/pkg/config"
	"github.com/xplshn/glir/pkg/flowgraph"
	"github.com/xplshn/glir/pkg/ir"
	"github.com/xplshn/glir/pkg/legalizer"
)

// testCase describes one function to build: a single heap, a single
// heap_addr of its offset parameter, nothing else. The legalizer does
// the interesting part.
type testCase struct {
	Name       string
	Style      string // "static" or "dynamic"
	Bound      uint64
	MinSize    uint64
	AccessSize uint64
	OffsetType string // "i32" or "i64"
}

func main() {
	app := cli.NewApp("glir")
	app.Synopsis = "[options] [input.glt] ..."
	app.Description = "Legalizes heap_addr instructions in a linear IR and dumps the result. Given no input files, builds one function from the flags below."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/glir>"

	var (
		target     string
		style      string
		bound      uint64
		minSize    uint64
		accessSize uint64
		offsetType string
		noExpand   bool
	)

	fs := app.FlagSet
	fs.String(&target, "target", "t", "", "Set the QBE-style target (defaults to the host).", "target")
	fs.String(&style, "style", "s", "static", "Heap style: static or dynamic.", "style")
	fs.Uint64(&bound, "bound", "b", 0x10000, "Heap bound in bytes (static heaps).", "bytes")
	fs.Uint64(&minSize, "min-size", "m", 0, "Guaranteed minimum heap size in bytes.", "bytes")
	fs.Uint64(&accessSize, "access-size", "a", 1, "Access size in bytes for the heap_addr.", "bytes")
	fs.String(&offsetType, "offset-type", "", "i32", "Type of the offset operand (i32, i64).", "type")
	fs.Bool(&noExpand, "no-expand", "n", false, "Dump the abstract IR without legalizing it.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		for i, entry := range warningFlags {
			if entry.Enabled != nil && *entry.Enabled {
				cfg.SetWarning(config.Warning(i), true)
			}
			if entry.Disabled != nil && *entry.Disabled {
				cfg.SetWarning(config.Warning(i), false)
			}
		}
		for i, entry := range featureFlags {
			if entry.Enabled != nil && *entry.Enabled {
				cfg.SetFeature(config.Feature(i), true)
			}
			if entry.Disabled != nil && *entry.Disabled {
				cfg.SetFeature(config.Feature(i), false)
			}
		}

		cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target)

		cases := []testCase{{
			Name:       "demo",
			Style:      style,
			Bound:      bound,
			MinSize:    minSize,
			AccessSize: accessSize,
			OffsetType: offsetType,
		}}
		if len(inputFiles) > 0 {
			cases = nil
			for _, path := range inputFiles {
				parsed, err := readCaseFile(path)
				if err != nil {
					return err
				}
				cases = append(cases, parsed...)
			}
		}

		for _, tc := range cases {
			if err := runCase(tc, cfg, noExpand); err != nil {
				return err
			}
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "glir: error: %v\n", err)
		os.Exit(1)
	}
}

func runCase(tc testCase, cfg *config.Config, noExpand bool) error {
	fn, err := buildFunc(tc, cfg)
	if err != nil {
		return err
	}

	fmt.Printf(";; %s: before\n%s", tc.Name, fn)
	if noExpand {
		return nil
	}

	graph := flowgraph.New()
	graph.Compute(fn)
	for _, inst := range heapAddrs(fn) {
		legalizer.ExpandHeapAddr(inst, fn, graph, cfg)
	}

	fmt.Printf(";; %s: after\n%s", tc.Name, fn)
	return nil
}

// buildFunc constructs the single-block function a test case describes.
func buildFunc(tc testCase, cfg *config.Config) (*ir.Function, error) {
	offsetTy, err := parseType(tc.OffsetType)
	if err != nil {
		return nil, err
	}
	if tc.AccessSize == 0 {
		return nil, fmt.Errorf("%s: access size cannot be zero", tc.Name)
	}
	ptr := cfg.PointerType()

	fn := ir.NewFunction(tc.Name)
	vmctx := fn.CreateGlobalValue(ir.VMContextData())
	base := fn.CreateGlobalValue(ir.LoadData(vmctx, 0, ptr))

	var heapStyle ir.HeapStyle
	switch tc.Style {
	case "dynamic":
		boundGV := fn.CreateGlobalValue(ir.LoadData(vmctx, int64(cfg.WordSize), offsetTy))
		heapStyle = ir.DynamicStyle(boundGV)
	case "static":
		heapStyle = ir.StaticStyle(tc.Bound)
	default:
		return nil, fmt.Errorf("%s: unknown heap style '%s'", tc.Name, tc.Style)
	}
	heap := fn.CreateHeap(ir.HeapData{Style: heapStyle, Base: base, MinSize: tc.MinSize})

	blk := fn.MakeBlock()
	fn.AppendBlock(blk)
	offset := fn.AppendBlockParam(blk, offsetTy)

	pos := ir.NewCursor(fn).AtBottom(blk)
	pos.Ins().HeapAddr(ptr, heap, offset, uint32(tc.AccessSize))
	pos.Ins().Return()
	return fn, nil
}

// heapAddrs collects every heap_addr instruction in layout order.
func heapAddrs(fn *ir.Function) []ir.Inst {
	var out []ir.Inst
	for _, b := range fn.Blocks() {
		for _, i := range fn.BlockInsts(b) {
			if fn.Inst(i).Op == ir.OpHeapAddr {
				out = append(out, i)
			}
		}
	}
	return out
}

func parseType(name string) (ir.Type, error) {
	switch name {
	case "i32":
		return ir.TypeI32, nil
	case "i64":
		return ir.TypeI64, nil
	}
	return ir.TypeInvalid, fmt.Errorf("unsupported offset type '%s'", name)
}

// readCaseFile parses a .glt file: line-oriented "key: value" pairs, one
// case per "case:" header, '#' comments.
func readCaseFile(path string) ([]testCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not read case file: %w", err)
	}
	defer f.Close()

	var cases []testCase
	var curr *testCase
	lineNo := 0

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%s:%d: expected 'key: value', got '%s'", path, lineNo, line)
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		if key == "case" {
			cases = append(cases, testCase{
				Name:       value,
				Style:      "static",
				Bound:      0x10000,
				AccessSize: 1,
				OffsetType: "i32",
			})
			curr = &cases[len(cases)-1]
			continue
		}
		if curr == nil {
			return nil, fmt.Errorf("%s:%d: '%s' before any 'case:' header", path, lineNo, key)
		}

		switch key {
		case "style":
			curr.Style = value
		case "offset-type":
			curr.OffsetType = value
		case "bound", "min-size", "access-size":
			n, err := strconv.ParseUint(value, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: bad %s '%s': %w", path, lineNo, key, value, err)
			}
			switch key {
			case "bound":
				curr.Bound = n
			case "min-size":
				curr.MinSize = n
			case "access-size":
				curr.AccessSize = n
			}
		default:
			return nil, fmt.Errorf("%s:%d: unknown key '%s'", path, lineNo, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("%s: no cases found", path)
	}
	return cases, nil
}
