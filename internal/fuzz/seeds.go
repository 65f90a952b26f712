package fuzztests

import (
	"strings"
	"testing"
)

const (
	maxSeedBytes = 64 << 10 // предел для корпуса сидов
	maxFuzzInput = 1 << 16
)

func addCorpusSeeds(f *testing.F) {
	for _, seed := range programSeeds {
		f.Add(clampSeed([]byte(seed)))
	}
	for _, line := range lineSeeds {
		f.Add([]byte(line))
	}
}

var lineSeeds = []string{
	"",
	";",
	";include lib.s",
	";funccall f a0, a1 save t0 t1",
	";funcdecl f 2 noinline",
	";imacro X 4",
	";macro m a b",
	"  $$m t0, t1",
	"addi a0, a0, $X # comment",
	"# ;include commented",
	"x ;sect text",
	";sect text # trailing",
	"#[[FABR]] MACRO m",
	";poison secret foo",
	";sectord text data bss",
}

var programSeeds = []string{
	strings.Join([]string{
		";imacro ONE 1",
		";macro inc r",
		"  addi r, r, $ONE",
		";endmacro",
		";funcdecl add2 2 aggressiveinline",
		"add2:",
		"  add a0, a0, a1",
		"  beqz a0, done",
		"  ret",
		"done:",
		"  ret",
		";endfunc",
		";sectord text data",
		";sect text",
		"main:",
		"  $$inc t0",
		"  ;funccall add2 a1 a0 save t1",
		";sect data",
		"msg: .word 1",
	}, "\n"),
	strings.Join([]string{
		";macro loop x",
		"  $$loop x",
		";endmacro",
		"  $$loop t0",
	}, "\n"),
	strings.Join([]string{
		";funcdecl spill 1",
		"spill:",
		"  mv s0, a0",
		"  mv s1, s0",
		"  ret",
		";endfunc",
		"  ;funccall spill s0",
		";poison spill2",
		"spill2:",
	}, "\n"),
}

func clampSeed(src []byte) []byte {
	if len(src) > maxSeedBytes {
		return append([]byte(nil), src[:maxSeedBytes]...)
	}
	return src
}

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}
