package script

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/wonst719/exult-sub000/pkg/world"
)

// Opcode is an instruction of the script machine. The values are
// those found in saved games and behavior function data.
type Opcode int

// Opcodes.
const (
	Cont          Opcode = 0x01
	Nop1          Opcode = 0x02
	Reset         Opcode = 0x0a
	Repeat        Opcode = 0x0b // offset, count
	Repeat2       Opcode = 0x0c // offset, count, reset
	Nop2          Opcode = 0x21
	DontHalt      Opcode = 0x23
	WaitWhileNear Opcode = 0x24 // dist
	DelayTicks    Opcode = 0x27 // n
	DelayMinutes  Opcode = 0x28 // n
	DelayHours    Opcode = 0x29 // n
	WaitWhileFar  Opcode = 0x2b // dist
	Finish        Opcode = 0x2c
	Remove        Opcode = 0x2d
	StepN         Opcode = 0x30
	StepNE        Opcode = 0x31
	StepE         Opcode = 0x32
	StepSE        Opcode = 0x33
	StepS         Opcode = 0x34
	StepSW        Opcode = 0x35
	StepW         Opcode = 0x36
	StepNW        Opcode = 0x37
	Descend       Opcode = 0x38
	Rise          Opcode = 0x39
	Frame         Opcode = 0x46 // frame
	Egg           Opcode = 0x48
	SetEgg        Opcode = 0x49 // criteria, dist
	NextFrameMax  Opcode = 0x4d
	NextFrame     Opcode = 0x4e
	PrevFrameMin  Opcode = 0x4f
	PrevFrame     Opcode = 0x50
	Say           Opcode = 0x52 // text
	Step          Opcode = 0x53 // dir, dz
	Music         Opcode = 0x54 // track, continuous
	Usecode       Opcode = 0x55 // fun
	Speech        Opcode = 0x56 // track
	Sfx           Opcode = 0x58 // id
	FaceDir       Opcode = 0x59 // dir
	Weather       Opcode = 0x5a // kind
	NPCFrame      Opcode = 0x61 // + pose, up to 0x70
	Hit           Opcode = 0x78 // hps, type
	Attack        Opcode = 0x7a
	Usecode2      Opcode = 0x80 // fun, event
	Resurrect     Opcode = 0x81
)

// Poses addressed by NPCFrame+pose. They match the low nibble of
// actor frame numbers.
var poseNames = []string{
	"standing", "step_right", "step_left", "ready", "raise1", "reach1",
	"strike1", "raise2", "reach2", "strike2", "sit", "bow", "kneel",
	"sleep", "up", "out",
}

var opNames = map[Opcode]string{
	Cont: "cont", Nop1: "nop1", Reset: "reset", Repeat: "repeat",
	Repeat2: "repeat2", Nop2: "nop2", DontHalt: "dont_halt",
	WaitWhileNear: "wait_while_near", DelayTicks: "delay_ticks",
	DelayMinutes: "delay_minutes", DelayHours: "delay_hours",
	WaitWhileFar: "wait_while_far", Finish: "finish", Remove: "remove",
	StepN: "step_n", StepNE: "step_ne", StepE: "step_e", StepSE: "step_se",
	StepS: "step_s", StepSW: "step_sw", StepW: "step_w", StepNW: "step_nw",
	Descend: "descend", Rise: "rise", Frame: "frame", Egg: "egg",
	SetEgg: "set_egg", NextFrameMax: "next_frame_max", NextFrame: "next_frame",
	PrevFrameMin: "prev_frame_min", PrevFrame: "prev_frame", Say: "say",
	Step: "step", Music: "music", Usecode: "usecode", Speech: "speech",
	Sfx: "sfx", FaceDir: "face_dir", Weather: "weather", Hit: "hit",
	Attack: "attack", Usecode2: "usecode2", Resurrect: "resurrect",
}

// numOperands is used by the disassembler.
var numOperands = map[Opcode]int{
	Repeat: 2, Repeat2: 3, WaitWhileNear: 1, DelayTicks: 1,
	DelayMinutes: 1, DelayHours: 1, WaitWhileFar: 1, Frame: 1,
	SetEgg: 2, Say: 1, Step: 2, Music: 2, Usecode: 1, Speech: 1, Sfx: 1,
	FaceDir: 1, Weather: 1, Hit: 2, Usecode2: 2,
}

var opByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opNames)+len(poseNames))
	for op, n := range opNames {
		m[n] = op
	}
	for i, n := range poseNames {
		m[n] = NPCFrame + Opcode(i)
	}
	return m
}()

func (op Opcode) String() string {
	if n, ok := opNames[op]; ok {
		return n
	}
	if op >= NPCFrame && op < NPCFrame+Opcode(len(poseNames)) {
		return poseNames[op-NPCFrame]
	}
	return fmt.Sprintf("op%#02x", int(op))
}

// ParseOpcode resolves a mnemonic, including pose names.
func ParseOpcode(s string) (Opcode, bool) {
	op, ok := opByName[s]
	return op, ok
}

// Mnemonics returns all the known mnemonics, sorted.
func Mnemonics() []string {
	res := make([]string, 0, len(opByName))
	for n := range opByName {
		res = append(res, n)
	}
	sort.Strings(res)
	return res
}

// Disassemble renders code as mnemonics and operands. The cursor, if
// within bounds, is marked with ">".
func Disassemble(code []Cell, cursor int) string {
	var buf strings.Builder
	for i := 0; i < len(code); {
		if i > 0 {
			buf.WriteString("; ")
		}
		if i == cursor {
			buf.WriteByte('>')
		}
		op := Opcode(code[i].Val)
		buf.WriteString(op.String())
		i++
		for n := numOperands[op]; n > 0 && i < len(code); n-- {
			buf.WriteByte(' ')
			if i == cursor {
				buf.WriteByte('>')
			}
			buf.WriteString(code[i].String())
			i++
		}
	}
	return buf.String()
}

// Assemble parses the textual form printed by Disassemble: mnemonics
// and operands separated by blanks or semicolons. Operands are
// integers, direction names or double-quoted strings. A ">" cursor
// mark is accepted and ignored.
func Assemble(src string) ([]Cell, error) {
	var code []Cell
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	for _, tok := range toks {
		tok = strings.TrimPrefix(tok, ">")
		switch {
		case tok == "":
		case tok[0] == '"':
			s, err := strconv.Unquote(tok)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid text operand %s", tok)
			}
			code = append(code, Text(s))
		default:
			if op, ok := ParseOpcode(tok); ok {
				code = append(code, Int(int(op)))
				continue
			}
			if d, ok := world.ParseDir(tok); ok {
				code = append(code, Int(int(d)))
				continue
			}
			v, err := strconv.ParseInt(tok, 0, 32)
			if err != nil {
				return nil, errors.WithHintf(
					errors.Newf("unknown instruction or operand: %q", tok),
					"known mnemonics: %s", strings.Join(Mnemonics(), " "))
			}
			code = append(code, Int(int(v)))
		}
	}
	return code, nil
}

func tokenize(src string) ([]string, error) {
	var toks []string
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ';' || c == ',':
			i++
		case c == '"' || (c == '>' && i+1 < len(src) && src[i+1] == '"'):
			j := i + 1
			if c == '>' {
				j++
			}
			for ; j < len(src) && src[j] != '"'; j++ {
				if src[j] == '\\' {
					j++
				}
			}
			if j >= len(src) {
				return nil, errors.Newf("unterminated string at offset %d", i)
			}
			toks = append(toks, src[i:j+1])
			i = j + 1
		default:
			j := i
			for j < len(src) && !strings.ContainsRune(" \t\r\n;,", rune(src[j])) {
				j++
			}
			toks = append(toks, src[i:j])
			i = j
		}
	}
	return toks, nil
}
