package vm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/luiggi/bytecode"
)

// ---------------------------------------------------------------------------
// Values
// ---------------------------------------------------------------------------

// Kind identifies the dynamic type of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindBool
	KindList
	KindObject
)

var kindNames = [...]string{
	KindNull:   "null",
	KindNumber: "number",
	KindString: "string",
	KindBool:   "boolean",
	KindList:   "list",
	KindObject: "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Value is a runtime value. Lists and objects are shared references; every
// other kind is immutable. The zero Value is null.
type Value struct {
	kind Kind
	num  float64
	str  string
	list *List
	obj  *Object
}

// Null is the null value.
var Null = Value{}

// Number returns a number value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Bool returns a boolean value.
func Bool(b bool) Value {
	if b {
		return Value{kind: KindBool, num: 1}
	}
	return Value{kind: KindBool}
}

// NewList returns a new list holding items.
func NewList(items ...Value) Value {
	return Value{kind: KindList, list: &List{Items: append([]Value(nil), items...)}}
}

// NewObject returns a new empty object.
func NewObject() Value {
	return Value{kind: KindObject, obj: &Object{fields: make(map[string]Value)}}
}

// FromLiteral converts a compiled literal operand.
func FromLiteral(l bytecode.Literal) Value {
	switch l.Kind {
	case bytecode.LitNumber:
		return Number(l.Number)
	case bytecode.LitString:
		return String(l.String)
	case bytecode.LitBool:
		return Bool(l.Bool)
	default:
		return Null
	}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) AsNumber() float64 { return v.num }
func (v Value) AsString() string { return v.str }
func (v Value) AsBool() bool { return v.kind == KindBool && v.num != 0 }
func (v Value) AsList() *List { return v.list }
func (v Value) AsObject() *Object { return v.obj }

// Truthy reports whether v counts as true in a condition. Only null and
// false are falsy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.num != 0
	default:
		return true
	}
}

// Equal compares two values. Lists and objects compare by identity.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindNumber, KindBool:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindList:
		return v.list == o.list
	case KindObject:
		return v.obj == o.obj
	}
	return false
}

// String renders the value for display. Strings print bare at the top level
// and quoted inside containers.
func (v Value) String() string {
	var sb strings.Builder
	v.format(&sb, false, make(map[any]bool))
	return sb.String()
}

// Repr renders the value as it would be written in source.
func (v Value) Repr() string {
	var sb strings.Builder
	v.format(&sb, true, make(map[any]bool))
	return sb.String()
}

func (v Value) format(sb *strings.Builder, quote bool, seen map[any]bool) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindNumber:
		sb.WriteString(strconv.FormatFloat(v.num, 'g', -1, 64))
	case KindString:
		if quote {
			sb.WriteString(strconv.Quote(v.str))
		} else {
			sb.WriteString(v.str)
		}
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.AsBool()))
	case KindList:
		if seen[v.list] {
			sb.WriteString("[...]")
			return
		}
		seen[v.list] = true
		defer delete(seen, v.list)
		sb.WriteByte('[')
		for i, item := range v.list.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.format(sb, true, seen)
		}
		sb.WriteByte(']')
	case KindObject:
		if seen[v.obj] {
			sb.WriteString("{...}")
			return
		}
		seen[v.obj] = true
		defer delete(seen, v.obj)
		sb.WriteByte('{')
		for i, key := range v.obj.keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(key)
			sb.WriteString(" = ")
			v.obj.fields[key].format(sb, true, seen)
		}
		sb.WriteByte('}')
	}
}

// Interface converts the value to plain Go data: nil, float64, string,
// bool, []any and map[string]any. Cycles are cut with nil.
func (v Value) Interface() any {
	return v.toGo(make(map[any]bool))
}

func (v Value) toGo(seen map[any]bool) any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindBool:
		return v.AsBool()
	case KindList:
		if seen[v.list] {
			return nil
		}
		seen[v.list] = true
		defer delete(seen, v.list)
		out := make([]any, len(v.list.Items))
		for i, item := range v.list.Items {
			out[i] = item.toGo(seen)
		}
		return out
	case KindObject:
		if seen[v.obj] {
			return nil
		}
		seen[v.obj] = true
		defer delete(seen, v.obj)
		out := make(map[string]any, len(v.obj.keys))
		for _, key := range v.obj.keys {
			out[key] = v.obj.fields[key].toGo(seen)
		}
		return out
	}
	return nil
}

// ---------------------------------------------------------------------------
// Containers
// ---------------------------------------------------------------------------

// List is a growable sequence shared by reference.
type List struct {
	Items []Value
}

// Len returns the number of items.
func (l *List) Len() int { return len(l.Items) }

// Append adds an item at the end.
func (l *List) Append(v Value) { l.Items = append(l.Items, v) }

// Object is a string-keyed record that remembers insertion order.
type Object struct {
	keys   []string
	fields map[string]Value
}

// Get returns the member value and whether it is set.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.fields[key]
	return v, ok
}

// Set assigns a member, appending new keys to the order.
func (o *Object) Set(key string, v Value) {
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = v
}

// Keys returns the member names in insertion order.
func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Len returns the number of members.
func (o *Object) Len() int { return len(o.keys) }
