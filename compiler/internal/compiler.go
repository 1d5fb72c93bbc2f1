package internal

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/tliron/commonlog"

	"github.com/xiaobogaga/jmm/compiler/internal/ast"
	"github.com/xiaobogaga/jmm/compiler/internal/config"
	"github.com/xiaobogaga/jmm/compiler/internal/jasmin"
	"github.com/xiaobogaga/jmm/compiler/internal/ollir"
	"github.com/xiaobogaga/jmm/compiler/internal/ollir/gen"
	"github.com/xiaobogaga/jmm/compiler/internal/report"
	"github.com/xiaobogaga/jmm/compiler/internal/semantic"
	"github.com/xiaobogaga/jmm/compiler/internal/symtab"
)

var log = commonlog.GetLogger("jmm.compiler")

// Analyzer builds the symbol table of a tree and checks it.
type Analyzer func(root *ast.Node, cfg *config.Config) (*symtab.SymbolTable, []report.Report)

// Decoder reads the tree the parser produced.
type Decoder func(data []byte) (*ast.Node, error)

var (
	analyzers = map[string]Analyzer{}
	decoders  = map[string]Decoder{}
)

func init() {
	RegisterAnalyzer("jmm", analyzeJmm)
	RegisterDecoder("json", func(data []byte) (*ast.Node, error) {
		return ast.DecodeJSON(bytes.NewReader(data))
	})
	RegisterDecoder("cbor", ast.DecodeCBOR)
}

// RegisterAnalyzer makes an analyzer selectable with the analyzer configuration key.
func RegisterAnalyzer(name string, a Analyzer) {
	analyzers[name] = a
}

// RegisterDecoder makes a decoder selectable with the input_format configuration key.
func RegisterDecoder(name string, d Decoder) {
	decoders[name] = d
}

func names[T any](m map[string]T) []string {
	ret := make([]string, 0, len(m))
	for name := range m {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

func analyzeJmm(root *ast.Node, cfg *config.Config) (*symtab.SymbolTable, []report.Report) {
	table, reports := symtab.Build(root, symtab.Strict(cfg.StrictSymbols))
	return table, append(reports, semantic.Analyze(root, table)...)
}

// Decode reads a tree in the given input format.
func Decode(format string, data []byte) (*ast.Node, error) {
	d, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("unknown input format %q, known formats: %v", format, names(decoders))
	}
	root, err := d(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s tree: %w", format, err)
	}
	return root, nil
}

type SemanticResult struct {
	Root    *ast.Node
	Table   *symtab.SymbolTable
	Reports []report.Report
}

type OllirResult struct {
	Table   *symtab.SymbolTable
	Unit    *ollir.ClassUnit
	Text    string
	Reports []report.Report
}

type JasminResult struct {
	ClassName string
	Ollir     string
	Text      string
	Reports   []report.Report
}

// Analyze runs the configured analyzer. The only error is an unknown analyzer, problems in the program are
// reports.
func Analyze(root *ast.Node, cfg *config.Config) (*SemanticResult, error) {
	a, ok := analyzers[cfg.Analyzer]
	if !ok {
		return nil, fmt.Errorf("unknown analyzer %q, known analyzers: %v", cfg.Analyzer, names(analyzers))
	}
	log.Info("compiler: start semantic analysis")
	table, reports := a(root, cfg)
	return &SemanticResult{Root: root, Table: table, Reports: reports}, nil
}

// skip reports whether a stage must not run, and the reports it returns in that case.
func skip(stage report.Stage, reports []report.Report) ([]report.Report, bool) {
	if !report.HasErrors(reports) {
		return reports, false
	}
	log.Warningf("compiler: skipping %s stage", stage)
	ret := append([]report.Report{}, reports...)
	return append(ret, report.Skipped(stage)), true
}

func ToOllir(sem *SemanticResult) *OllirResult {
	if reports, skipped := skip(report.OllirStage, sem.Reports); skipped {
		return &OllirResult{Table: sem.Table, Reports: reports}
	}
	log.Info("compiler: start generating ollir")
	unit, reports := gen.Generate(sem.Root, sem.Table)
	return &OllirResult{
		Table:   sem.Table,
		Unit:    unit,
		Text:    unit.String(),
		Reports: append(append([]report.Report{}, sem.Reports...), reports...),
	}
}

func ToJasmin(o *OllirResult, cfg *config.Config) *JasminResult {
	if reports, skipped := skip(report.JasminStage, o.Reports); skipped {
		return &JasminResult{Ollir: o.Text, Reports: reports}
	}
	log.Info("compiler: start generating jasmin")
	text, reports := jasmin.Generate(o.Unit, jasmin.StackLimit(cfg.StackLimit))
	ret := &JasminResult{
		ClassName: o.Unit.Name,
		Ollir:     o.Text,
		Text:      text,
		Reports:   append(append([]report.Report{}, o.Reports...), reports...),
	}
	if cfg.VerifyLabels {
		ret.Reports = append(ret.Reports, jasmin.CheckLabels(text)...)
	}
	return ret
}

// Compile runs every stage on root. A stage after one that reported an error does not run.
func Compile(root *ast.Node, cfg *config.Config) (*JasminResult, error) {
	sem, err := Analyze(root, cfg)
	if err != nil {
		return nil, err
	}
	ret := ToJasmin(ToOllir(sem), cfg)
	log.Infof("compiler: finished with %d reports", len(ret.Reports))
	return ret, nil
}
