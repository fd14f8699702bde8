package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the program.
func (p Program) Disassemble() string {
	return p.DisassembleWithName("")
}

// DisassembleWithName returns a listing with a name header. Relative jumps
// are annotated with the index execution resumes at.
func (p Program) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; sgm bytecode v%d, %d instructions\n", ImageVersion, len(p)))

	for idx, in := range p {
		line := in.Op.String()
		if len(in.Params) > 0 {
			args := make([]string, len(in.Params))
			for j, param := range in.Params {
				if param.Kind == Relative {
					args[j] = fmt.Sprintf("%+d", param.Value.Int)
				} else {
					args[j] = param.Value.GoString()
				}
			}
			line = fmt.Sprintf("%-10s %s", line, strings.Join(args, ", "))
		}
		if target, ok := p.resumeIndex(idx); ok {
			sb.WriteString(fmt.Sprintf("%04d  %-30s ; -> %04d\n", idx, line, target))
		} else {
			sb.WriteString(fmt.Sprintf("%04d  %s\n", idx, line))
		}
	}

	return sb.String()
}

// resumeIndex reports where execution continues when the jump at idx is taken.
func (p Program) resumeIndex(idx int) (int, bool) {
	in := p[idx]
	if !in.Op.IsJump() || len(in.Params) != 1 || in.Params[0].Value.Kind != KindInt {
		return 0, false
	}
	off := int(in.Params[0].Value.Int)
	switch in.Params[0].Kind {
	case Relative:
		return idx + off + 1, true
	case Immediate:
		return off + 1, true
	}
	return 0, false
}
