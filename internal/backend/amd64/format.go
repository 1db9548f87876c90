package amd64

import (
	"fmt"
	"io"
	"strings"

	asm_amd64 "github.com/swrast/pxjit/internal/asm/amd64"
	"github.com/swrast/pxjit/ir"
)

// Listing writes the code produced by the last Assemble, one operator per
// line, followed by the constant pool:
//
//	0x0000: 48 83 c0 05   add $5, %rax
func (a *Assembler) Listing(w io.Writer) error {
	if a.buf == nil {
		return nil
	}
	code := a.buf.Bytes()

	type line struct {
		offset int
		hex    string
		text   string
	}
	lines := make([]line, 0, len(a.emitted)+len(a.pool.Consts))
	width := 0
	for _, e := range a.emitted {
		l := line{offset: e.offset, hex: hexBytes(code[e.offset : e.offset+e.length]), text: a.describe(a.p.Op(e.id))}
		lines = append(lines, l)
		width = max(width, len(l.hex))
	}
	for _, c := range a.pool.Consts {
		l := line{offset: c.OffsetInBinary, hex: hexBytes(c.Raw), text: fmt.Sprintf(".const %d", len(c.Raw))}
		lines = append(lines, l)
		width = max(width, len(l.hex))
	}

	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "0x%04x: %-*s   %s\n", l.offset, width, l.hex, l.text); err != nil {
			return err
		}
	}
	return nil
}

func hexBytes(b []byte) string {
	return fmt.Sprintf("% x", b)
}

// describe returns the AT&T style text of op: sources first, result last.
func (a *Assembler) describe(op *ir.Operator) string {
	f := op.Flags()
	mnemonic := strings.ToLower(op.Kind.String())
	width := f.Width()

	switch op.Kind {
	case ir.KindLabel:
		return fmt.Sprintf("op%d:", op.ID())
	case ir.KindCall:
		return fmt.Sprintf("call op%d", op.Linked)
	case ir.KindReturn:
		return "jmp *%r11"
	case ir.KindEntry:
		return fmt.Sprintf("entry $%d", op.Imm)
	case ir.KindEpilogue:
		return "epilogue"
	case ir.KindMovImm:
		res := a.location(op, op.Result)
		return fmt.Sprintf("movimm $%d, %s", op.Imm, res.Format(width))
	}
	if f.Control() {
		return fmt.Sprintf("%s op%d", mnemonic, op.Linked)
	}

	var args []string
	add := func(o asm_amd64.Operand) {
		args = append(args, o.Format(width))
	}
	switch {
	case f.Template() == ir.TemplateMemDest:
		add(a.location(op, op.Operand1))
		add(asm_amd64.NewOperandMem(a.resolveMemory(op)))
		return mnemonic + " " + strings.Join(args, ", ")
	case op.Kind == ir.KindMaskStore:
		add(a.location(op, op.Operand2))
		add(a.location(op, op.Operand1))
		add(a.location(op, op.Operand3))
		return mnemonic + " " + strings.Join(args, ", ")
	case f.Template() == ir.TemplateUnary && encodings[op.Kind].form != formLoad:
		add(a.location(op, op.Operand1))
	case f.Template() == ir.TemplateUnary:
		add(a.resolveSource(op, 1))
	default:
		add(a.resolveSource(op, 2))
		if op.Kind == ir.KindBlendv {
			args = append([]string{"%xmm0"}, args...)
		}
		if op.Operand1 != ir.VRegInvalid && (op.Result == ir.VRegInvalid || a.p.Location(op.Operand1) != a.p.Location(op.Result)) {
			add(a.location(op, op.Operand1))
		}
	}
	if f.Has(ir.FlagImm8) {
		args = append([]string{fmt.Sprintf("$%d", uint8(op.Imm))}, args...)
	}
	if op.Result != ir.VRegInvalid {
		add(a.location(op, op.Result))
	}
	return mnemonic + " " + strings.Join(args, ", ")
}
