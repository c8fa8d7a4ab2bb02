package loom

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// Kwargs is the parameter type a callable declares to receive named values.
// When a wrapped function's final parameter is of this type, the pack's
// Kwargs map is delivered there; otherwise named values are simply not
// forwarded to that function.
type Kwargs map[string]any

var (
	kwargsType = reflect.TypeOf(Kwargs(nil))
	errorType  = reflect.TypeOf((*error)(nil)).Elem()
)

// CallError reports an invocation that could not be performed: wrong number
// of positional arguments, an argument of an unusable type, or a target
// that is not a function at all.
//
// A CallError is never caught inside the execution core. It aborts the
// entire current stepper generation, not just the offending branch.
type CallError struct {
	// Fn is the display name of the target function.
	Fn string

	// Want and Got describe a positional-arity mismatch.
	Want, Got int

	// Reason carries a non-arity failure description.
	Reason string
}

func (e *CallError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("call %s: %s", e.Fn, e.Reason)
	}
	return fmt.Sprintf("call %s: takes %d positional arguments but %d given", e.Fn, e.Want, e.Got)
}

// invoke calls an arbitrary function value with the given positional and
// named values.
//
// Positional values map to parameters in order; variadic functions accept
// any surplus. If the function's final (non-variadic) parameter is of type
// Kwargs, the named values are passed there. A trailing error result is
// split off and returned as the error. Zero remaining results yield nil,
// one yields the value itself, and several are forwarded as a positional
// pack so the next call receives them spread.
func invoke(fn any, args []any, kwargs map[string]any) (any, error) {
	fv := reflect.ValueOf(fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func {
		return nil, &CallError{Fn: FuncName(fn), Reason: fmt.Sprintf("%T is not callable", fn)}
	}

	ft := fv.Type()
	numIn := ft.NumIn()

	wantsKwargs := !ft.IsVariadic() && numIn > 0 && ft.In(numIn-1) == kwargsType
	positional := numIn
	if wantsKwargs {
		positional--
	}

	if ft.IsVariadic() {
		if len(args) < numIn-1 {
			return nil, &CallError{Fn: FuncName(fn), Want: numIn - 1, Got: len(args)}
		}
	} else if len(args) != positional {
		return nil, &CallError{Fn: FuncName(fn), Want: positional, Got: len(args)}
	}

	in := make([]reflect.Value, 0, len(args)+1)
	for i, arg := range args {
		pt := paramType(ft, i)
		av, err := coerce(arg, pt)
		if err != nil {
			return nil, &CallError{Fn: FuncName(fn), Reason: fmt.Sprintf("argument %d: %v", i, err)}
		}
		in = append(in, av)
	}
	if wantsKwargs {
		kw := Kwargs{}
		for k, v := range kwargs {
			kw[k] = v
		}
		in = append(in, reflect.ValueOf(kw))
	}

	outs := fv.Call(in)

	if n := len(outs); n > 0 && ft.Out(n-1) == errorType {
		if errv := outs[n-1]; !errv.IsNil() {
			return nil, errv.Interface().(error)
		}
		outs = outs[:n-1]
	}

	switch len(outs) {
	case 0:
		return nil, nil
	case 1:
		return outs[0].Interface(), nil
	default:
		res := make([]any, len(outs))
		for i, o := range outs {
			res[i] = o.Interface()
		}
		return PackArgs(res...), nil
	}
}

// paramType resolves the declared type for positional argument i,
// unwrapping the element type of a variadic tail.
func paramType(ft reflect.Type, i int) reflect.Type {
	if ft.IsVariadic() && i >= ft.NumIn()-1 {
		return ft.In(ft.NumIn() - 1).Elem()
	}
	return ft.In(i)
}

// coerce adapts a value to the target parameter type. Assignable values
// pass through; numeric kinds convert; everything else is an error.
func coerce(arg any, pt reflect.Type) (reflect.Value, error) {
	if arg == nil {
		switch pt.Kind() {
		case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
			return reflect.Zero(pt), nil
		default:
			return reflect.Value{}, fmt.Errorf("cannot use nil as %s", pt)
		}
	}

	av := reflect.ValueOf(arg)
	if av.Type().AssignableTo(pt) {
		return av, nil
	}
	if isNumeric(av.Kind()) && isNumeric(pt.Kind()) {
		return av.Convert(pt), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", arg, pt)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// FuncName returns a short display name for a function value, or the
// value's type description when it is not a function.
func FuncName(fn any) string {
	fv := reflect.ValueOf(fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func {
		return fmt.Sprintf("%T", fn)
	}
	rf := runtime.FuncForPC(fv.Pointer())
	if rf == nil {
		return "func"
	}
	name := rf.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}

// funcPointer returns a stable address for a function value, used for
// value-based merge addressing and the graph's callable index. Returns 0
// for nil or non-function values.
func funcPointer(fn any) uintptr {
	fv := reflect.ValueOf(fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func {
		return 0
	}
	return fv.Pointer()
}
