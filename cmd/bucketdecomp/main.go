// Command bucketdecomp loads a JSON problem description, runs one of the
// engine's four entry points against it, and prints a JSON result.
//
// Usage:
//
//	bucketdecomp -mode optimize -in problem.json
//	bucketdecomp -mode sample -in problem.json
//	bucketdecomp -mode count -in problem.json
//	bucketdecomp -mode order -in problem.json
//
// -mode and -in are the only flags. The problem file supplies the factor
// tables and the knobs each mode needs; see Problem's JSON tags below for
// the shape.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/arbogen/bucketdecomp"
	"github.com/arbogen/bucketdecomp/value"
	"github.com/arbogen/bucketdecomp/voorder"
)

// rawTableJSON mirrors bucketdecomp.RawTable for JSON (un)marshaling.
type rawTableJSON struct {
	Vars     []int     `json:"vars"`
	DomSizes []int     `json:"domSizes"`
	Values   []float64 `json:"values"`
}

// Problem is the JSON-in wire shape: every field a mode might need, so one
// file can be reused across modes.
type Problem struct {
	Tables         []rawTableJSON `json:"tables"`
	Order          []int          `json:"order,omitempty"`
	MaxComplexity  float64        `json:"maxComplexity,omitempty"`
	MaxSolutions   int            `json:"maxSolutions,omitempty"`
	Samples        int            `json:"samples,omitempty"`
	Eps            float64        `json:"eps,omitempty"`
	X0             []int          `json:"x0,omitempty"`
	MinVars        int            `json:"minVars,omitempty"`
	Seed           int64          `json:"seed,omitempty"`
	Heuristic      string         `json:"heuristic,omitempty"`
	ClampRanks     []int          `json:"clampRanks,omitempty"`
	SelectionScale float64        `json:"selectionScale,omitempty"`
}

func (p Problem) tables() []bucketdecomp.RawTable {
	out := make([]bucketdecomp.RawTable, len(p.Tables))
	for i, t := range p.Tables {
		vars := make([]value.Var, len(t.Vars))
		for j, v := range t.Vars {
			vars[j] = value.Var(v)
		}
		doms := make([]value.Dom, len(t.DomSizes))
		for j, d := range t.DomSizes {
			doms[j] = value.Dom(d)
		}
		out[i] = bucketdecomp.RawTable{Vars: vars, DomSizes: doms, Values: t.Values}
	}
	return out
}

func (p Problem) order() []value.Var {
	out := make([]value.Var, len(p.Order))
	for i, v := range p.Order {
		out[i] = value.Var(v)
	}
	return out
}

func (p Problem) x0() []value.Dom {
	out := make([]value.Dom, len(p.X0))
	for i, d := range p.X0 {
		out[i] = value.Dom(d)
	}
	return out
}

func parseHeuristic(name string) (voorder.Heuristic, error) {
	switch name {
	case "", "min-degree":
		return voorder.MinDegree, nil
	case "weighted-min-degree":
		return voorder.WeightedMinDegree, nil
	case "min-fill":
		return voorder.MinFill, nil
	case "weighted-min-fill":
		return voorder.WeightedMinFill, nil
	default:
		return 0, fmt.Errorf("unknown heuristic %q", name)
	}
}

func main() {
	mode := flag.String("mode", "", "one of: order, optimize, sample, count")
	inPath := flag.String("in", "", "path to a JSON problem file")
	flag.Parse()

	if *mode == "" || *inPath == "" {
		fmt.Fprintln(os.Stderr, "usage: bucketdecomp -mode <order|optimize|sample|count> -in <problem.json>")
		os.Exit(2)
	}

	data, err := os.ReadFile(*inPath)
	if err != nil {
		fail(err)
	}
	var p Problem
	if err := json.Unmarshal(data, &p); err != nil {
		fail(err)
	}

	result, err := run(*mode, p)
	if err != nil {
		fail(err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fail(err)
	}
	fmt.Println(string(out))
}

// run dispatches mode against p and returns the JSON-marshalable result,
// kept separate from main so it can be exercised without a process exit.
func run(mode string, p Problem) (any, error) {
	switch mode {
	case "order":
		h, err := parseHeuristic(p.Heuristic)
		if err != nil {
			return nil, err
		}
		order, err := bucketdecomp.GreedyVarOrder(p.tables(), p.MaxComplexity, p.ClampRanks, h, p.SelectionScale, p.Seed)
		if err != nil {
			return nil, err
		}
		return order, nil

	case "optimize":
		res, err := bucketdecomp.Optimize(p.tables(), p.order(), p.MaxComplexity, p.MaxSolutions, p.x0(), p.MinVars)
		if err != nil {
			return nil, err
		}
		return res, nil

	case "sample":
		res, err := bucketdecomp.Sample(p.tables(), p.order(), p.MaxComplexity, p.Samples, p.x0(), p.MinVars, p.Seed, false)
		if err != nil {
			return nil, err
		}
		return res, nil

	case "count":
		res, err := bucketdecomp.CountMin(p.tables(), p.order(), p.MaxComplexity, p.Eps, p.x0(), p.MinVars)
		if err != nil {
			return nil, err
		}
		return res, nil

	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "bucketdecomp:", err)
	os.Exit(1)
}
