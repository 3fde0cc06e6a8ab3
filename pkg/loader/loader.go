// Package loader parses the line-oriented bytecode text format spec §6
// describes into linked value.Prototype values, one of which is the
// module's main entry point.
//
// Grounded on original_source/include/loader/bytecode_parser.h: a
// single-pass line scanner (parseLine/parseDirective) that defers
// label resolution to a second pass (resolveAllLabels) once every
// .proto block in the source has been seen, and defers `proto <name>`
// constant references to a final linking pass (linkProtos) once every
// named prototype exists. spec §1 treats the assembler/loader as an
// external collaborator specified only by the interface the core
// consumes (§6); this package is the minimal implementation of that
// interface needed to drive the VM end to end, shipped alongside it
// exactly as original_source ships loader/bytecode_parser.h alongside
// the VM proper.
package loader

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"paserati/pkg/errors"
	"paserati/pkg/value"
)

// Program is the result of parsing one source file: every named
// prototype plus whichever one is named "main".
type Program struct {
	Protos map[string]*value.Prototype
	Main   *value.Prototype
}

// constRef records a `proto <name>` constant awaiting linking, since
// the referenced prototype may be defined later in the file.
type constRef struct {
	proto *value.Prototype
	index int
	name  string
}

type parser struct {
	sourceName   string
	protos       map[string]*value.Prototype
	current      *value.Prototype
	currentLabels map[string]int
	pendingRefs  []constRef
	line         int
}

// ParseSource parses bytecode text into a Program.
func ParseSource(source, sourceName string) (*Program, error) {
	p := &parser{
		sourceName: sourceName,
		protos:     make(map[string]*value.Prototype),
	}

	scanner := bufio.NewScanner(strings.NewReader(source))
	for scanner.Scan() {
		p.line++
		if err := p.parseLine(scanner.Text()); err != nil {
			return nil, err
		}
	}
	if p.current != nil {
		return nil, p.errf("unterminated .proto block (missing .end)")
	}

	for _, proto := range p.protos {
		if err := p.resolveLabels(proto); err != nil {
			return nil, err
		}
	}
	if err := p.linkProtoConstants(); err != nil {
		return nil, err
	}

	main, ok := p.protos["main"]
	if !ok {
		return nil, p.errf(`no ".proto main" entry point found`)
	}
	return &Program{Protos: p.protos, Main: main}, nil
}

func (p *parser) errf(format string, args ...interface{}) *errors.LoadError {
	return errors.NewLoadError(errors.Position{SourceName: p.sourceName, Line: p.line}, format, args...)
}

func (p *parser) parseLine(raw string) error {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, ";") {
		return nil
	}
	fields := strings.Fields(line)
	head := fields[0]

	if strings.HasPrefix(head, ".") {
		return p.parseDirective(head, fields[1:], line)
	}
	return p.parseInstruction(head, fields[1:])
}

func (p *parser) parseDirective(directive string, args []string, fullLine string) error {
	switch directive {
	case ".proto":
		if p.current != nil {
			return p.errf("nested .proto blocks are not supported")
		}
		if len(args) != 3 && len(args) != 4 {
			return p.errf(".proto requires NAME REGS UPVALUES [PARAMS], got %q", fullLine)
		}
		regs, err := strconv.Atoi(args[1])
		if err != nil {
			return p.errf(".proto REGS must be an integer: %v", err)
		}
		ups, err := strconv.Atoi(args[2])
		if err != nil {
			return p.errf(".proto UPVALUES must be an integer: %v", err)
		}
		params := 0
		if len(args) == 4 {
			params, err = strconv.Atoi(args[3])
			if err != nil {
				return p.errf(".proto PARAMS must be an integer: %v", err)
			}
		}
		proto := &value.Prototype{
			NumRegisters: regs,
			NumUpvalues:  ups,
			NumParams:    params,
			SourceName:   p.sourceName,
			Labels:       make(map[string]int),
		}
		p.current = proto
		p.currentLabels = proto.Labels
		p.protos[args[0]] = proto
		return nil

	case ".end":
		if p.current == nil {
			return p.errf(".end without matching .proto")
		}
		p.current.PendingJumps = p.current.PendingJumps // no-op, clarity
		p.current = nil
		p.currentLabels = nil
		return nil

	case ".const":
		if p.current == nil {
			return p.errf(".const outside of a .proto block")
		}
		if len(args) < 1 {
			return p.errf(".const requires a TYPE")
		}
		return p.parseConst(args)

	case ".upvalue":
		if p.current == nil {
			return p.errf(".upvalue outside of a .proto block")
		}
		if len(args) != 2 {
			return p.errf(".upvalue requires LOCAL INDEX, got %q", fullLine)
		}
		isLocal, err := parseLocalFlag(args[0])
		if err != nil {
			return p.errf(".upvalue LOCAL must be 'local' or 'upvalue': %v", err)
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			return p.errf(".upvalue INDEX must be an integer: %v", err)
		}
		p.current.UpvalueDescs = append(p.current.UpvalueDescs, value.UpvalueDesc{IsLocal: isLocal, Index: idx})
		return nil

	case ".label":
		if p.current == nil {
			return p.errf(".label outside of a .proto block")
		}
		if len(args) != 1 {
			return p.errf(".label requires exactly one NAME")
		}
		p.currentLabels[args[0]] = len(p.current.Code)
		return nil

	default:
		return p.errf("unknown directive %q", directive)
	}
}

func parseLocalFlag(tok string) (bool, error) {
	switch tok {
	case "local":
		return true, nil
	case "upvalue":
		return false, nil
	default:
		return false, fmt.Errorf("got %q", tok)
	}
}

func (p *parser) parseConst(args []string) error {
	typ := args[0]
	rest := strings.Join(args[1:], " ")
	switch typ {
	case "int":
		n, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
		if err != nil {
			return p.errf("bad int constant: %v", err)
		}
		p.current.ConstantPool = append(p.current.ConstantPool, value.Int(n))
	case "real":
		n, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
		if err != nil {
			return p.errf("bad real constant: %v", err)
		}
		p.current.ConstantPool = append(p.current.ConstantPool, value.Real(n))
	case "bool":
		switch strings.TrimSpace(rest) {
		case "true":
			p.current.ConstantPool = append(p.current.ConstantPool, value.Bool(true))
		case "false":
			p.current.ConstantPool = append(p.current.ConstantPool, value.Bool(false))
		default:
			return p.errf("bad bool constant %q", rest)
		}
	case "null":
		p.current.ConstantPool = append(p.current.ConstantPool, value.Null)
	case "string":
		s, err := unquote(strings.TrimSpace(rest))
		if err != nil {
			return p.errf("bad string constant: %v", err)
		}
		p.current.ConstantPool = append(p.current.ConstantPool, value.Str(s))
	case "proto":
		name := strings.TrimSpace(rest)
		idx := len(p.current.ConstantPool)
		p.current.ConstantPool = append(p.current.ConstantPool, value.Null) // placeholder, linked later
		p.pendingRefs = append(p.pendingRefs, constRef{proto: p.current, index: idx, name: name})
	default:
		return p.errf("unknown constant type %q", typ)
	}
	return nil
}

// unquote decodes a `"..."` string literal token with the standard
// escapes spec §6 names: \n \t \\ \".
func unquote(tok string) (string, error) {
	if len(tok) < 2 || tok[0] != '"' || tok[len(tok)-1] != '"' {
		return "", fmt.Errorf("expected quoted string, got %q", tok)
	}
	body := tok[1 : len(tok)-1]
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", fmt.Errorf("trailing backslash in string literal")
		}
		switch body[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case '\\':
			sb.WriteByte('\\')
		case '"':
			sb.WriteByte('"')
		default:
			return "", fmt.Errorf("unknown escape \\%c", body[i])
		}
	}
	return sb.String(), nil
}

// jumpOpcodes names every opcode whose final argument is a label
// reference rather than a numeric literal, per spec §4.3/§6.
var jumpOpcodes = map[value.OpCode]bool{
	value.OpJump:         true,
	value.OpJumpIfFalse:  true,
	value.OpJumpIfTrue:   true,
	value.OpSetupTry:     true,
}

func (p *parser) parseInstruction(mnemonic string, args []string) error {
	if p.current == nil {
		return p.errf("instruction %q outside of a .proto block", mnemonic)
	}
	op, ok := value.OpCodeByName(mnemonic)
	if !ok {
		return p.errf("unknown opcode %q", mnemonic)
	}

	instrIndex := len(p.current.Code)
	intArgs := make([]int64, len(args))
	var labelArgIndex = -1
	var labelName string

	for i, tok := range args {
		if jumpOpcodes[op] && i == len(args)-1 {
			labelArgIndex = i
			labelName = tok
			continue
		}
		n, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return p.errf("instruction %s: argument %d (%q) must be an integer", mnemonic, i, tok)
		}
		intArgs[i] = n
	}

	p.current.Code = append(p.current.Code, value.Instruction{Op: op, Args: intArgs})

	if labelArgIndex >= 0 {
		p.current.PendingJumps = append(p.current.PendingJumps, value.PendingJump{
			InstrIndex: instrIndex,
			ArgIndex:   labelArgIndex,
			Label:      labelName,
		})
	}
	return nil
}

// resolveLabels patches every recorded jump reference now that every
// label in the proto has been seen. JUMP/JUMP_IF_FALSE/JUMP_IF_TRUE
// offsets are relative to the instruction immediately following the
// jump (where the interpreter's ip sits once it has fetched the jump
// instruction itself); SETUP_TRY's catchIp is an absolute instruction
// index, matching spec §4.5's "resumes at catchIp" wording directly.
func (p *parser) resolveLabels(proto *value.Prototype) error {
	for _, pj := range proto.PendingJumps {
		target, ok := proto.Labels[pj.Label]
		if !ok {
			return errors.NewLoadError(errors.Position{SourceName: p.sourceName}, "unresolved label %q", pj.Label)
		}
		instr := &proto.Code[pj.InstrIndex]
		if instr.Op == value.OpSetupTry {
			instr.Args[pj.ArgIndex] = int64(target)
		} else {
			instr.Args[pj.ArgIndex] = int64(target - (pj.InstrIndex + 1))
		}
	}
	proto.PendingJumps = nil
	proto.Labels = nil
	return nil
}

// linkProtoConstants resolves every `proto <name>` constant now that
// every .proto block in the file has been parsed.
func (p *parser) linkProtoConstants() error {
	for _, ref := range p.pendingRefs {
		target, ok := p.protos[ref.name]
		if !ok {
			return errors.NewLoadError(errors.Position{SourceName: p.sourceName}, "reference to unknown prototype %q", ref.name)
		}
		ref.proto.ConstantPool[ref.index] = value.Object(target)
	}
	return nil
}
