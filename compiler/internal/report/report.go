package report

import (
	"fmt"
	"strings"
)

// A Report is a single diagnostic produced by one of the compiler stages. Reports are only ever
// appended, every stage hands the full list to the next one.
type Report struct {
	Kind    Kind   `cbor:"1,keyasint" json:"kind"`
	Stage   Stage  `cbor:"2,keyasint" json:"stage"`
	Line    int    `cbor:"3,keyasint" json:"line"`
	Col     int    `cbor:"4,keyasint" json:"col"`
	Message string `cbor:"5,keyasint" json:"message"`
}

type Kind int

const (
	ErrorKind Kind = iota
	WarningKind
	LogKind
	DebugKind
)

func (k Kind) String() string {
	switch k {
	case ErrorKind:
		return "ERROR"
	case WarningKind:
		return "WARNING"
	case LogKind:
		return "LOG"
	case DebugKind:
		return "DEBUG"
	}
	return "UNKNOWN"
}

type Stage int

const (
	ParserStage Stage = iota
	SemanticStage
	OllirStage
	JasminStage
	OtherStage
)

func (s Stage) String() string {
	switch s {
	case ParserStage:
		return "PARSER"
	case SemanticStage:
		return "SEMANTIC"
	case OllirStage:
		return "OLLIR"
	case JasminStage:
		return "JASMIN"
	}
	return "OTHER"
}

// NoPosition marks an absent line or column.
const NoPosition = -1

func New(kind Kind, stage Stage, line, col int, format string, args ...interface{}) Report {
	return Report{Kind: kind, Stage: stage, Line: line, Col: col, Message: fmt.Sprintf(format, args...)}
}

func NewError(stage Stage, line, col int, format string, args ...interface{}) Report {
	return New(ErrorKind, stage, line, col, format, args...)
}

func NewWarning(stage Stage, line, col int, format string, args ...interface{}) Report {
	return New(WarningKind, stage, line, col, format, args...)
}

func (r Report) String() string {
	var b strings.Builder
	b.WriteString(r.Kind.String())
	b.WriteByte('@')
	b.WriteString(r.Stage.String())
	if r.Line != NoPosition {
		fmt.Fprintf(&b, ", line %d", r.Line)
	}
	if r.Col != NoPosition {
		fmt.Fprintf(&b, ", col %d", r.Col)
	}
	b.WriteString(": ")
	b.WriteString(r.Message)
	return b.String()
}

// HasErrors reports whether any report in the list is an ERROR.
func HasErrors(reports []Report) bool {
	for _, r := range reports {
		if r.Kind == ErrorKind {
			return true
		}
	}
	return false
}

// Errors returns only the ERROR reports, in order.
func Errors(reports []Report) []Report {
	var ret []Report
	for _, r := range reports {
		if r.Kind == ErrorKind {
			ret = append(ret, r)
		}
	}
	return ret
}

// Skipped is the report a stage returns when it refuses to run because the previous stage failed.
func Skipped(stage Stage) Report {
	return NewError(stage, NoPosition, NoPosition, "skipped %s stage: previous stage reported errors", strings.ToLower(stage.String()))
}
