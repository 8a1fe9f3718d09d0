package safetensors

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// DType is a safetensors element type tag, e.g. "BF16".
type DType string

const (
	BF16 DType = "BF16"
	F16  DType = "F16"
	F32  DType = "F32"
	F64  DType = "F64"
	I64  DType = "I64"
	I32  DType = "I32"
	I8   DType = "I8"
	U8   DType = "U8"
	Bool DType = "BOOL"
)

// ParseDType accepts safetensors tags and the torch spellings used in
// config.json ("bfloat16", "torch.float16", "half", ...).
func ParseDType(s string) (DType, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, "torch.")
	switch v {
	case "bf16", "bfloat16":
		return BF16, nil
	case "f16", "fp16", "float16", "half":
		return F16, nil
	case "f32", "fp32", "float32", "float":
		return F32, nil
	case "f64", "fp64", "float64", "double":
		return F64, nil
	default:
		return "", fmt.Errorf("unsupported dtype %q", s)
	}
}

// Size is the element width in bytes, or 0 for unknown tags.
func (d DType) Size() int {
	switch d {
	case F64, I64:
		return 8
	case F32, I32:
		return 4
	case BF16, F16:
		return 2
	case I8, U8, Bool:
		return 1
	default:
		return 0
	}
}

// IsFloat reports whether tensors of this type are converted to the loading
// precision.
func (d DType) IsFloat() bool {
	switch d {
	case BF16, F16, F32, F64:
		return true
	default:
		return false
	}
}

// TorchName returns the config.json spelling, e.g. "bfloat16".
func (d DType) TorchName() string {
	switch d {
	case BF16:
		return "bfloat16"
	case F16:
		return "float16"
	case F32:
		return "float32"
	case F64:
		return "float64"
	default:
		return strings.ToLower(string(d))
	}
}

func convert(raw []byte, from, to DType, n int) ([]byte, error) {
	if !to.IsFloat() {
		return nil, fmt.Errorf("cannot convert %s to %s", from, to)
	}
	vals := make([]float64, n)
	switch from {
	case F64:
		for i := range n {
			vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
		}
	case F32:
		for i := range n {
			vals[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
		}
	case BF16:
		for i := range n {
			vals[i] = float64(bf16ToF32(binary.LittleEndian.Uint16(raw[i*2:])))
		}
	case F16:
		for i := range n {
			vals[i] = float64(fp16ToFloat32(binary.LittleEndian.Uint16(raw[i*2:])))
		}
	default:
		return nil, fmt.Errorf("cannot convert %s to %s", from, to)
	}

	out := make([]byte, n*to.Size())
	switch to {
	case F64:
		for i, v := range vals {
			binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
		}
	case F32:
		for i, v := range vals {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(float32(v)))
		}
	case BF16:
		for i, v := range vals {
			binary.LittleEndian.PutUint16(out[i*2:], f32ToBF16(float32(v)))
		}
	case F16:
		for i, v := range vals {
			binary.LittleEndian.PutUint16(out[i*2:], f32ToFP16(float32(v)))
		}
	}
	return out, nil
}

func bf16ToF32(u uint16) float32 {
	return math.Float32frombits(uint32(u) << 16)
}

// f32ToBF16 rounds to nearest even; NaN stays NaN.
func f32ToBF16(f float32) uint16 {
	bits := math.Float32bits(f)
	if math.IsNaN(float64(f)) {
		return uint16(bits>>16) | 0x40
	}
	rounding := uint32(0x7FFF) + (bits>>16)&1
	return uint16((bits + rounding) >> 16)
}

func fp16ToFloat32(h uint16) float32 {
	sign := uint32(h>>15) & 0x1
	exp := uint32(h>>10) & 0x1F
	frac := uint32(h & 0x3FF)
	var f uint32
	switch exp {
	case 0:
		if frac == 0 {
			f = sign << 31
		} else {
			e := uint32(127 - 15 + 1)
			for (frac & 0x400) == 0 {
				frac <<= 1
				e--
			}
			frac &= 0x3FF
			f = (sign << 31) | (e << 23) | (frac << 13)
		}
	case 0x1F:
		f = (sign << 31) | 0x7F800000 | (frac << 13)
	default:
		e := exp + (127 - 15)
		f = (sign << 31) | (e << 23) | (frac << 13)
	}
	return math.Float32frombits(f)
}

// f32ToFP16 rounds to nearest even, flushing values below the subnormal
// range to signed zero and overflowing to infinity.
func f32ToFP16(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23) & 0xFF
	frac := bits & 0x7FFFFF

	switch {
	case exp == 0xFF:
		if frac != 0 {
			return sign | 0x7E00
		}
		return sign | 0x7C00
	case exp-127 > 15:
		return sign | 0x7C00
	case exp-127 >= -14:
		e := uint32(exp-127+15) << 10
		m := frac >> 13
		v := e | m
		rem := frac & 0x1FFF
		if rem > 0x1000 || (rem == 0x1000 && v&1 == 1) {
			v++
		}
		return sign | uint16(v)
	case exp-127 >= -25:
		m := frac | 0x800000
		shift := uint32(-(exp - 127) - 14 + 13)
		v := m >> shift
		rem := m & (1<<shift - 1)
		half := uint32(1) << (shift - 1)
		if rem > half || (rem == half && v&1 == 1) {
			v++
		}
		return sign | uint16(v)
	default:
		return sign
	}
}
