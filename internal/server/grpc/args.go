package grpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/dmitrijs2005/qborelay/internal/common"
	"google.golang.org/protobuf/types/known/structpb"
)

// stringArg returns a required, non-blank string argument.
func stringArg(in *structpb.Struct, name string) (string, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return "", fmt.Errorf("%w: %s is required", common.ErrInvalidArgument, name)
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok || strings.TrimSpace(s.StringValue) == "" {
		return "", fmt.Errorf("%w: %s must be a non-empty string", common.ErrInvalidArgument, name)
	}
	return s.StringValue, nil
}

// intArg returns an optional integer argument, def when absent.
func intArg(in *structpb.Struct, name string, def int) (int, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return def, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return def, nil
	case *structpb.Value_NumberValue:
		n := k.NumberValue
		if n != math.Trunc(n) || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, fmt.Errorf("%w: %s must be an integer", common.ErrInvalidArgument, name)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number", common.ErrInvalidArgument, name)
	}
}

// maxExactInt is the largest integer a Struct number (float64) holds exactly.
const maxExactInt = 1 << 53

// toStruct converts any JSON-serializable value into a Struct. Integers
// beyond ±2^53 are carried as their decimal text.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	exactNumbers(m)
	return structpb.NewStruct(m)
}

func exactNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = exactNumbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = exactNumbers(e)
		}
	case json.Number:
		return numberValue(t)
	}
	return v
}

func numberValue(n json.Number) any {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		i, err := n.Int64()
		if err != nil || i > maxExactInt || i < -maxExactInt {
			return s
		}
	}
	f, err := n.Float64()
	if err != nil {
		return s
	}
	return f
}
