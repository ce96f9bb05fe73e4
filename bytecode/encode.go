package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Ravyn-Coding-Language/Rayvn/value"
)

// magic identifies a Rayvn compiled chunk on disk: magic bytes,
// version, a count-prefixed instruction stream, then a count-prefixed
// function table. Instructions are addressed by stream index rather
// than byte offset, matching the VM's index-addressed jump targets.
var magic = [4]byte{'R', 'V', 'Y', 'N'}

const version uint32 = 1

// operand tag bytes.
const (
	tagNone byte = iota
	tagInt
	tagFloat
	tagBool
	tagStr
	tagNil
	tagFn
)

// Encode serializes a Chunk to a portable byte stream: header, then
// one record per instruction, then the function table.
func Encode(c *Chunk) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(magic[:])
	binary.Write(&buf, binary.LittleEndian, version)
	binary.Write(&buf, binary.LittleEndian, uint32(len(c.Instructions)))

	for _, ins := range c.Instructions {
		buf.WriteByte(byte(ins.Op))
		if err := encodeOperand(&buf, ins.Operand); err != nil {
			return nil, fmt.Errorf("encode instruction %s: %w", ins.Op, err)
		}
	}

	binary.Write(&buf, binary.LittleEndian, uint32(len(c.Functions)))
	for name, fn := range c.Functions {
		writeStr(&buf, name)
		binary.Write(&buf, binary.LittleEndian, uint32(fn.ID))
		binary.Write(&buf, binary.LittleEndian, uint32(fn.Entry))
		binary.Write(&buf, binary.LittleEndian, uint32(len(fn.Params)))
		for _, p := range fn.Params {
			writeStr(&buf, p)
		}
	}

	return buf.Bytes(), nil
}

func encodeOperand(buf *bytes.Buffer, v value.Value) error {
	switch x := v.(type) {
	case nil:
		buf.WriteByte(tagNone)
	case value.Int:
		buf.WriteByte(tagInt)
		binary.Write(buf, binary.LittleEndian, x.Val)
	case value.Float:
		buf.WriteByte(tagFloat)
		binary.Write(buf, binary.LittleEndian, math.Float64bits(x.Val))
	case value.Bool:
		buf.WriteByte(tagBool)
		if x.Val {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case value.Str:
		buf.WriteByte(tagStr)
		writeStr(buf, x.Val)
	case value.Nil:
		buf.WriteByte(tagNil)
	case value.FnRef:
		buf.WriteByte(tagFn)
		writeStr(buf, x.Name)
		binary.Write(buf, binary.LittleEndian, uint32(x.ID))
		binary.Write(buf, binary.LittleEndian, uint32(x.Entry))
		binary.Write(buf, binary.LittleEndian, uint32(len(x.Params)))
		for _, p := range x.Params {
			writeStr(buf, p)
		}
	default:
		return fmt.Errorf("unsupported operand type %T", v)
	}
	return nil
}

func writeStr(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint32(len(s)))
	buf.WriteString(s)
}

// Decode parses a byte stream produced by Encode back into a Chunk.
func Decode(data []byte) (*Chunk, error) {
	r := bytes.NewReader(data)

	var got [4]byte
	if _, err := r.Read(got[:]); err != nil || got != magic {
		return nil, fmt.Errorf("invalid rayvn bytecode: bad magic bytes")
	}

	var ver uint32
	if err := binary.Read(r, binary.LittleEndian, &ver); err != nil {
		return nil, fmt.Errorf("invalid rayvn bytecode: missing version")
	}
	if ver != version {
		return nil, fmt.Errorf("unsupported rayvn bytecode version: %d", ver)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("invalid rayvn bytecode: missing instruction count")
	}

	instructions := make([]Instruction, 0, count)
	for i := uint32(0); i < count; i++ {
		opByte, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("truncated instruction %d", i)
		}
		operand, err := decodeOperand(r)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		instructions = append(instructions, Instruction{Op: OpCode(opByte), Operand: operand})
	}

	var fnCount uint32
	if err := binary.Read(r, binary.LittleEndian, &fnCount); err != nil {
		return nil, fmt.Errorf("invalid rayvn bytecode: missing function table")
	}
	functions := make(map[string]value.FnRef, fnCount)
	for i := uint32(0); i < fnCount; i++ {
		name, err := readStr(r)
		if err != nil {
			return nil, fmt.Errorf("function table entry %d: %w", i, err)
		}
		var id, entry, paramCount uint32
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &entry); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &paramCount); err != nil {
			return nil, err
		}
		params := make([]string, paramCount)
		for j := range params {
			p, err := readStr(r)
			if err != nil {
				return nil, err
			}
			params[j] = p
		}
		functions[name] = value.FnRef{ID: int(id), Name: name, Entry: int(entry), Params: params}
	}

	return &Chunk{Instructions: instructions, Functions: functions}, nil
}

func decodeOperand(r *bytes.Reader) (value.Value, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagNone:
		return nil, nil
	case tagInt:
		var v int64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, err
		}
		return value.Int{Val: v}, nil
	case tagFloat:
		var bits uint64
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return nil, err
		}
		return value.Float{Val: math.Float64frombits(bits)}, nil
	case tagBool:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return value.Bool{Val: b != 0}, nil
	case tagStr:
		s, err := readStr(r)
		if err != nil {
			return nil, err
		}
		return value.Str{Val: s}, nil
	case tagNil:
		return value.Nil{}, nil
	case tagFn:
		name, err := readStr(r)
		if err != nil {
			return nil, err
		}
		var id, entry, paramCount uint32
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &entry); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &paramCount); err != nil {
			return nil, err
		}
		params := make([]string, paramCount)
		for i := range params {
			p, err := readStr(r)
			if err != nil {
				return nil, err
			}
			params[i] = p
		}
		return value.FnRef{ID: int(id), Name: name, Entry: int(entry), Params: params}, nil
	default:
		return nil, fmt.Errorf("unknown operand tag 0x%02x", tag)
	}
}

func readStr(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := r.Read(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
