package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Грамматика директив и строк
	DirInfo                   Code = 1000
	DirUnknown                Code = 1001
	DirArity                  Code = 1002
	DirCommentAfterDirective  Code = 1003
	DirCommentBeforeDirective Code = 1004
	DirCodeBeforeDirective    Code = 1005

	// include
	IncInfo      Code = 2000
	IncReadError Code = 2001

	// imacro / macro
	MacInfo               Code = 3000
	MacDuplicateImmediate Code = 3001
	MacDuplicate          Code = 3002
	MacUnterminated       Code = 3003
	MacUndefinedImmediate Code = 3004
	MacUndefined          Code = 3005
	MacArgCount           Code = 3006
	MacIsolatedEnd        Code = 3007
	MacRecursive          Code = 3008

	// funcdecl / poison
	SymInfo            Code = 4000
	SymDuplicateFunc   Code = 4001
	SymBadArity        Code = 4002
	SymBadHint         Code = 4003
	SymUnterminated    Code = 4004
	SymDirectiveInBody Code = 4005
	SymIsolatedEnd     Code = 4006
	SymRepoisoned      Code = 4007
	SymHintSpelling    Code = 4008
	SymNestedDecl      Code = 4009

	// sections and call sites
	RteInfo                Code = 5000
	RtePoisoned            Code = 5001
	RteUndefinedFunc       Code = 5002
	RteArgCount            Code = 5003
	RteForbiddenReg        Code = 5004
	RteInvalidReg          Code = 5005
	RteSaveCalleeSaved     Code = 5006
	RteMissingEntry        Code = 5007
	RteMissingRet          Code = 5008
	RteDuplicateSectord    Code = 5009
	RteStrayMacroDirective Code = 5010
	RteDuplicateSaveReg    Code = 5011

	// merge
	MrgInfo             Code = 6000
	MrgMissingSection   Code = 6001
	MrgDuplicateInOrder Code = 6002

	IOInfo          Code = 7000
	IOLoadFileError Code = 7001
	IOWriteError    Code = 7002

	ObsInfo    Code = 8000
	ObsTimings Code = 8001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:               "Unknown error",
		DirInfo:                   "Directive information",
		DirUnknown:                "Unknown directive",
		DirArity:                  "Wrong number of directive arguments",
		DirCommentAfterDirective:  "Comment after directive",
		DirCommentBeforeDirective: "Comment before directive",
		DirCodeBeforeDirective:    "Code before directive",
		IncInfo:                   "Include information",
		IncReadError:              "Cannot read included file",
		MacInfo:                   "Macro information",
		MacDuplicateImmediate:     "Duplicate immediate macro",
		MacDuplicate:              "Duplicate macro",
		MacUnterminated:           "Macro without endmacro",
		MacUndefinedImmediate:     "Undefined immediate macro",
		MacUndefined:              "Undefined macro",
		MacArgCount:               "Macro argument count mismatch",
		MacIsolatedEnd:            "Isolated endmacro",
		MacRecursive:              "Recursive macro expansion",
		SymInfo:                   "Symbol information",
		SymDuplicateFunc:          "Duplicate function",
		SymBadArity:               "Invalid function arity",
		SymBadHint:                "Invalid inline hint",
		SymUnterminated:           "Function without endfunc",
		SymDirectiveInBody:        "Directive inside function body",
		SymIsolatedEnd:            "Isolated endfunc",
		SymRepoisoned:             "Symbol already poisoned",
		SymHintSpelling:           "Misspelled inline hint",
		SymNestedDecl:             "Nested function declaration",
		RteInfo:                   "Routing information",
		RtePoisoned:               "Use of poisoned symbol",
		RteUndefinedFunc:          "Call to undeclared function",
		RteArgCount:               "Call argument count mismatch",
		RteForbiddenReg:           "Forbidden register in call",
		RteInvalidReg:             "Invalid register name",
		RteSaveCalleeSaved:        "Callee-saved register in save list",
		RteMissingEntry:           "Missing function entry label",
		RteMissingRet:             "Missing return instruction",
		RteDuplicateSectord:       "Duplicate sectord",
		RteStrayMacroDirective:    "Macro directive after expansion",
		RteDuplicateSaveReg:       "Register saved twice",
		MrgInfo:                   "Merge information",
		MrgMissingSection:         "Ordered section was never populated",
		MrgDuplicateInOrder:       "Section listed twice in sectord",
		IOInfo:                    "I/O information",
		IOLoadFileError:           "I/O load file error",
		IOWriteError:              "I/O write file error",
		ObsInfo:                   "Observability information",
		ObsTimings:                "Pipeline timings",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("DIR%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("INC%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("MAC%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("SYM%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("RTE%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("MRG%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 8000 && ic < 9000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
