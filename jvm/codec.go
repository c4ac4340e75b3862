package jvm

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// classFile mirrors one decoded class file of a benchmark suite. Method
// bodies stay raw until a lookup asks for them, so a class may carry methods
// outside the modeled instruction subset without poisoning its siblings.
type classFile struct {
	Name    string       `json:"name"`
	Methods []methodJSON `json:"methods"`
}

type methodJSON struct {
	Name       string   `json:"name"`
	Descriptor string   `json:"descriptor"`
	Code       codeJSON `json:"code"`
}

type codeJSON struct {
	MaxLocals int                   `json:"max_locals"`
	MaxStack  int                   `json:"max_stack"`
	Bytecode  []jsoniter.RawMessage `json:"bytecode"`
}

// instJSON is the superset of fields an instruction object may carry; which
// ones are required depends on the "opr".
type instJSON struct {
	Offset    *int           `json:"offset"`
	Opr       string         `json:"opr"`
	Type      *string        `json:"type"`
	Index     *int           `json:"index"`
	Amount    *int32         `json:"amount"`
	Value     *pushJSON      `json:"value"`
	Condition string         `json:"condition"`
	Target    *int           `json:"target"`
	Operant   string         `json:"operant"`
	Access    string         `json:"access"`
	Method    *methodRefJSON `json:"method"`
	Class     string         `json:"class"`
	Static    *bool          `json:"static"`
	Words     int            `json:"words"`
	Dim       int            `json:"dim"`
	To        string         `json:"to"`
	From      string         `json:"from"`
}

type pushJSON struct {
	Type  string              `json:"type"`
	Value jsoniter.RawMessage `json:"value"`
}

type methodRefJSON struct {
	Ref     refJSON  `json:"ref"`
	Name    string   `json:"name"`
	Args    []string `json:"args"`
	Returns *string  `json:"returns"`
}

type refJSON struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

func parseClassFile(data []byte, path string) (*classFile, error) {
	var cf classFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if cf.Name == "" {
		return nil, fmt.Errorf("parse error in %s: missing class name", path)
	}
	return &cf, nil
}

// decodeCode turns a raw bytecode array into the instruction sequence whose
// indices are the program-counter offsets.
func decodeCode(raws []jsoniter.RawMessage, id MethodID) ([]Inst, error) {
	code := make([]Inst, len(raws))
	for i, raw := range raws {
		inst, err := decodeInst(raw, i)
		if err != nil {
			return nil, fmt.Errorf("%s offset %d: %w", id, i, err)
		}
		code[i] = inst
	}
	return code, nil
}

func decodeInst(raw jsoniter.RawMessage, idx int) (Inst, error) {
	var ij instJSON
	if err := json.Unmarshal(raw, &ij); err != nil {
		return Inst{}, err
	}
	if ij.Offset != nil && *ij.Offset != idx {
		return Inst{}, fmt.Errorf("declared offset %d does not match position", *ij.Offset)
	}
	op, ok := parseOp(ij.Opr)
	if !ok {
		return Inst{}, fmt.Errorf("unknown instruction %q", ij.Opr)
	}
	inst := Inst{Op: op}

	switch op {
	case OpPush:
		v, err := decodePushValue(ij.Value)
		if err != nil {
			return Inst{}, err
		}
		inst.Value = v

	case OpPop, OpDup, OpThrow, OpArrayLength:
		// no operands

	case OpLoad, OpStore:
		if ij.Index == nil {
			return Inst{}, fmt.Errorf("%s without index", ij.Opr)
		}
		inst.Index = *ij.Index

	case OpIncr:
		if ij.Index == nil || ij.Amount == nil {
			return Inst{}, fmt.Errorf("incr without index or amount")
		}
		inst.Index = *ij.Index
		inst.Amount = *ij.Amount

	case OpBinary:
		if ij.Type == nil || (*ij.Type != "int" && *ij.Type != "integer") {
			return Inst{}, fmt.Errorf("binary over unsupported type %v", deref(ij.Type))
		}
		b, err := ParseBinOp(ij.Operant)
		if err != nil {
			return Inst{}, err
		}
		inst.BinOp = b
		inst.Type = TypeInt

	case OpIfz, OpIf:
		c, err := ParseCmp(ij.Condition)
		if err != nil {
			return Inst{}, err
		}
		if ij.Target == nil {
			return Inst{}, fmt.Errorf("%s without target", ij.Opr)
		}
		inst.Cond = c
		inst.Target = *ij.Target

	case OpGoto:
		if ij.Target == nil {
			return Inst{}, fmt.Errorf("goto without target")
		}
		inst.Target = *ij.Target

	case OpReturn:
		if ij.Type == nil {
			inst.Type = TypeVoid
		} else {
			t, err := parseTypeName(*ij.Type)
			if err != nil {
				return Inst{}, err
			}
			inst.Type = t
		}

	case OpGet:
		if ij.Static == nil || !*ij.Static {
			return Inst{}, fmt.Errorf("non-static get is not modeled")
		}

	case OpNew:
		if ij.Class == "" {
			return Inst{}, fmt.Errorf("new without class")
		}
		inst.Class = ij.Class

	case OpInvoke:
		k, err := ParseInvokeKind(ij.Access)
		if err != nil {
			return Inst{}, err
		}
		if ij.Method == nil {
			return Inst{}, fmt.Errorf("invoke without method reference")
		}
		inst.Invoke = k
		inst.Method = MethodRef{
			ClassName: ij.Method.Ref.Name,
			Name:      ij.Method.Name,
			Args:      ij.Method.Args,
		}
		if ij.Method.Returns != nil {
			inst.Method.Returns = *ij.Method.Returns
		}

	case OpNewArray:
		if ij.Dim > 1 {
			return Inst{}, fmt.Errorf("multi-dimensional arrays are not modeled")
		}
		t, err := decodeElemType(ij.Type)
		if err != nil {
			return Inst{}, err
		}
		inst.Type = t

	case OpArrayLoad, OpArrayStore:
		// The element type rides on the array value itself; the declared
		// type is informational.
		if ij.Type != nil {
			if t, err := decodeElemType(ij.Type); err == nil {
				inst.Type = t
			}
		}

	case OpCast:
		switch ij.To {
		case "char":
			inst.Type = TypeChar
		case "int":
			inst.Type = TypeInt
		default:
			return Inst{}, fmt.Errorf("cast to unsupported type %q", ij.To)
		}
	}

	return inst, nil
}

func decodePushValue(pj *pushJSON) (Value, error) {
	if pj == nil {
		return Null, nil
	}
	switch pj.Type {
	case "integer", "int":
		var n int32
		if err := json.Unmarshal(pj.Value, &n); err != nil {
			return Null, fmt.Errorf("bad integer operand: %w", err)
		}
		return Int(n), nil
	case "boolean":
		var b bool
		if err := json.Unmarshal(pj.Value, &b); err != nil {
			return Null, fmt.Errorf("bad boolean operand: %w", err)
		}
		return Bool(b), nil
	case "char":
		var s string
		if err := json.Unmarshal(pj.Value, &s); err == nil {
			for _, r := range s {
				return Char(r), nil
			}
			return Null, fmt.Errorf("empty char operand")
		}
		var n int32
		if err := json.Unmarshal(pj.Value, &n); err != nil {
			return Null, fmt.Errorf("bad char operand: %w", err)
		}
		return Char(rune(n)), nil
	case "string":
		var s string
		if err := json.Unmarshal(pj.Value, &s); err != nil {
			return Null, fmt.Errorf("bad string operand: %w", err)
		}
		return Str(s), nil
	}
	return Null, fmt.Errorf("push of unsupported constant type %q", pj.Type)
}

// parseTypeName decodes the loose java-side type names that annotate loads,
// returns and casts. Reference-typed slots map to TypeString since strings
// are the only reference type the interpreter models.
func parseTypeName(s string) (Type, error) {
	switch s {
	case "int", "integer":
		return TypeInt, nil
	case "boolean":
		return TypeBool, nil
	case "char":
		return TypeChar, nil
	case "ref", "string":
		return TypeString, nil
	}
	return TypeVoid, fmt.Errorf("unsupported type name %q", s)
}

func decodeElemType(s *string) (Type, error) {
	if s == nil {
		return TypeVoid, fmt.Errorf("array instruction without element type")
	}
	switch *s {
	case "int", "integer":
		return TypeInt, nil
	case "char":
		return TypeChar, nil
	}
	return TypeVoid, fmt.Errorf("unsupported array element type %q", *s)
}

func deref(s *string) string {
	if s == nil {
		return "<none>"
	}
	return *s
}
