// Package kv is the key-value state machine applied on top of committed log
// entries. The op encoding in this file is shared by the HTTP layer (which
// encodes ops into AppendData) and the commit-driven Store (which decodes
// and applies them).
package kv

import (
	"bytes"
	"fmt"
)

const unitSeparator byte = 0x1f

type Op interface {
	Name() string
	Encode(*bytes.Buffer)
	Decode([]byte) error
}

func EncodeOp(op Op) []byte {
	var buf bytes.Buffer

	buf.WriteString(op.Name())
	buf.WriteByte(0)
	op.Encode(&buf)

	return buf.Bytes()
}

func DecodeOp(data []byte) (Op, error) {
	sep := bytes.IndexByte(data, 0)
	if sep == -1 {
		return nil, fmt.Errorf("invalid op data: missing name separator")
	}

	var op Op

	switch name := string(data[:sep]); name {
	case "put":
		op = &OpPut{}
	case "delete":
		op = &OpDelete{}
	default:
		return nil, fmt.Errorf("unknown op %q", name)
	}

	if err := op.Decode(data[sep+1:]); err != nil {
		return nil, err
	}

	return op, nil
}

type OpPut struct {
	Key   string
	Value string
}

func (op OpPut) Name() string { return "put" }

func (op OpPut) Encode(buf *bytes.Buffer) {
	buf.WriteString(op.Key)
	buf.WriteByte(unitSeparator)
	buf.WriteString(op.Value)
}

func (op *OpPut) Decode(data []byte) error {
	sep := bytes.IndexByte(data, unitSeparator)
	if sep == -1 {
		return fmt.Errorf("invalid put op data")
	}

	op.Key = string(data[:sep])
	op.Value = string(data[sep+1:])

	return nil
}

type OpDelete struct {
	Key string
}

func (op OpDelete) Name() string { return "delete" }

func (op OpDelete) Encode(buf *bytes.Buffer) {
	buf.WriteString(op.Key)
}

func (op *OpDelete) Decode(data []byte) error {
	op.Key = string(data)
	return nil
}
