package jasmin

import (
	"bufio"
	"strings"

	"github.com/xiaobogaga/jmm/compiler/internal/report"
	"github.com/xiaobogaga/jmm/util"
)

// A small scanner over jasmin listings. It knows the directives delimiting methods, label definitions and the
// instructions taking a label operand, which is enough to check that every label a method jumps to is defined
// exactly once in that method.

type lineTP int

const (
	otherLineTP lineTP = iota
	methodLineTP
	endMethodLineTP
	labelLineTP
	branchLineTP
	commentLineTP
)

var branchKeyWords = map[string]bool{
	"goto":      true,
	"ifeq":      true,
	"ifne":      true,
	"iflt":      true,
	"ifle":      true,
	"ifgt":      true,
	"ifge":      true,
	"if_icmpeq": true,
	"if_icmpne": true,
	"if_icmplt": true,
	"if_icmple": true,
	"if_icmpgt": true,
	"if_icmpge": true,
}

type line struct {
	tp lineTP
	// the label a labelLineTP defines or a branchLineTP jumps to, the name of a method.
	name string
}

func parseLine(text string) line {
	text = strings.TrimSpace(text)
	if text == "" {
		return line{tp: otherLineTP}
	}
	if strings.HasPrefix(text, ";") {
		return line{tp: commentLineTP}
	}
	fields := strings.Fields(text)
	switch {
	case fields[0] == ".method":
		return line{tp: methodLineTP, name: fields[len(fields)-1]}
	case fields[0] == ".end" && len(fields) > 1 && fields[1] == "method":
		return line{tp: endMethodLineTP}
	case len(fields) == 1 && strings.HasSuffix(fields[0], ":"):
		return line{tp: labelLineTP, name: strings.TrimSuffix(fields[0], ":")}
	case branchKeyWords[fields[0]] && len(fields) == 2:
		return line{tp: branchLineTP, name: fields[1]}
	}
	return line{tp: otherLineTP}
}

// CheckLabels reports malformed labels, labels defined twice within a method and jumps to labels the method
// does not define.
func CheckLabels(listing string) []report.Report {
	var reports []report.Report
	scanner := bufio.NewScanner(strings.NewReader(listing))
	method := ""
	defined := map[string]int{}
	var used []string
	lineCounter := 0
	finish := func() {
		for _, l := range used {
			if defined[l] == 0 {
				reports = append(reports, report.NewError(report.JasminStage, report.NoPosition, report.NoPosition,
					"method %s jumps to undefined label %s", method, l))
			}
		}
		defined, used = map[string]int{}, nil
	}
	for scanner.Scan() {
		lineCounter++
		l := parseLine(scanner.Text())
		switch l.tp {
		case methodLineTP:
			method = l.name
		case endMethodLineTP:
			finish()
			method = ""
		case labelLineTP:
			if !util.IsIdentifier(l.name) {
				reports = append(reports, report.NewError(report.JasminStage, lineCounter, report.NoPosition,
					"malformed label %q in method %s", l.name, method))
			}
			defined[l.name]++
			if defined[l.name] == 2 {
				reports = append(reports, report.NewError(report.JasminStage, lineCounter, report.NoPosition,
					"label %s defined more than once in method %s", l.name, method))
			}
		case branchLineTP:
			used = append(used, l.name)
		}
	}
	if method != "" {
		finish()
	}
	return reports
}
