package directive

// Kind classifies a directive line.
type Kind uint8

const (
	KindNone Kind = iota
	KindInclude
	KindSect
	KindFuncDecl
	KindEndFunc
	KindFuncCall
	KindSectOrd
	KindPoison
	KindIMacro
	KindMacro
	KindEndMacro
)

func (k Kind) String() string {
	if int(k) < len(registry) && k != KindNone {
		return registry[k].Keyword
	}
	return "none"
}

// IsMacroKind reports whether k belongs to the macro stage.
func (k Kind) IsMacroKind() bool {
	return k == KindIMacro || k == KindMacro || k == KindEndMacro
}
