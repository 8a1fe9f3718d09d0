package safetensors

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/goccy/go-json"
	"golang.org/x/sys/unix"
)

// maxHeaderLen mirrors the 100MB header limit of the reference reader.
const maxHeaderLen = 100 << 20

var ErrCorruptFile = errors.New("safetensors: corrupt file")

type TensorInfo struct {
	DType DType
	Shape []int
	Start int64
	End   int64
}

type File struct {
	Path      string
	DataStart int64
	Tensors   map[string]TensorInfo
	Metadata  map[string]string

	data []byte
}

type tensorHeader struct {
	DType       string  `json:"dtype"`
	Shape       []int   `json:"shape"`
	DataOffsets []int64 `json:"data_offsets"`
}

// Open parses the header of a safetensors file. Tensor data is read on demand.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return parseHeader(path, f, st.Size())
}

// OpenMapped is Open plus a read-only mapping of the file, so tensor reads
// slice the mapping instead of issuing ReadAt calls. If mmap is unavailable
// the file is still usable unmapped. Close releases the mapping.
func OpenMapped(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	sf, err := parseHeader(path, f, st.Size())
	if err != nil {
		return nil, err
	}
	if st.Size() > 0 && st.Size() <= int64(int(^uint(0)>>1)) {
		data, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ, unix.MAP_SHARED)
		if err == nil {
			sf.data = data
		}
	}
	return sf, nil
}

func parseHeader(path string, r io.Reader, size int64) (*File, error) {
	headerLen, err := readU64(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptFile, path, err)
	}
	if headerLen > maxHeaderLen || int64(headerLen)+8 > size {
		return nil, fmt.Errorf("%w: %s: header length %d", ErrCorruptFile, path, headerLen)
	}
	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptFile, path, err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptFile, path, err)
	}

	var meta map[string]string
	if m, ok := raw["__metadata__"]; ok {
		if err := json.Unmarshal(m, &meta); err != nil {
			return nil, fmt.Errorf("%w: %s: metadata: %v", ErrCorruptFile, path, err)
		}
		delete(raw, "__metadata__")
	}

	dataStart := int64(8 + headerLen)
	tensors := make(map[string]TensorInfo, len(raw))
	for name, msg := range raw {
		var th tensorHeader
		if err := json.Unmarshal(msg, &th); err != nil {
			return nil, fmt.Errorf("parse tensor %s: %w", name, err)
		}
		if len(th.DataOffsets) != 2 {
			return nil, fmt.Errorf("tensor %s: invalid data_offsets", name)
		}
		start, end := th.DataOffsets[0], th.DataOffsets[1]
		if start < 0 || end < start || end > size-dataStart {
			return nil, fmt.Errorf("%w: tensor %s: offsets out of range", ErrCorruptFile, name)
		}
		if width := DType(th.DType).Size(); width > 0 {
			n, err := numElements(th.Shape)
			if err != nil {
				return nil, fmt.Errorf("%w: tensor %s: %v", ErrCorruptFile, name, err)
			}
			if int64(n) > (end-start)/int64(width) || int64(n*width) != end-start {
				return nil, fmt.Errorf("%w: tensor %s: %d bytes for shape %v of %s", ErrCorruptFile, name, end-start, th.Shape, th.DType)
			}
		}
		tensors[name] = TensorInfo{
			DType: DType(th.DType),
			Shape: th.Shape,
			Start: start,
			End:   end,
		}
	}
	return &File{
		Path:      path,
		DataStart: dataStart,
		Tensors:   tensors,
		Metadata:  meta,
	}, nil
}

// Close releases the mapping created by OpenMapped.
func (f *File) Close() error {
	if f.data == nil {
		return nil
	}
	data := f.data
	f.data = nil
	return unix.Munmap(data)
}

// Mapped reports whether tensor reads are served from a memory mapping.
func (f *File) Mapped() bool { return f.data != nil }

// Names returns tensor names in sorted order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Tensors))
	for name := range f.Tensors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (f *File) Tensor(name string) (TensorInfo, bool) {
	t, ok := f.Tensors[name]
	return t, ok
}

// ReadTensor returns the raw bytes of a tensor in its stored dtype.
func (f *File) ReadTensor(name string) ([]byte, TensorInfo, error) {
	t, ok := f.Tensors[name]
	if !ok {
		return nil, TensorInfo{}, fmt.Errorf("tensor not found: %s", name)
	}
	off := f.DataStart + t.Start
	n := t.End - t.Start
	if t.Start < 0 || n < 0 {
		return nil, TensorInfo{}, fmt.Errorf("%w: tensor %s: offsets out of range", ErrCorruptFile, name)
	}
	if f.data != nil {
		if off+n > int64(len(f.data)) {
			return nil, TensorInfo{}, fmt.Errorf("%w: tensor %s: offsets past mapping", ErrCorruptFile, name)
		}
		out := make([]byte, n)
		copy(out, f.data[off:off+n])
		return out, t, nil
	}

	buf := make([]byte, n)
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, TensorInfo{}, err
	}
	defer func() { _ = file.Close() }()

	if _, err := file.ReadAt(buf, off); err != nil {
		return nil, TensorInfo{}, fmt.Errorf("read tensor %s: %w", name, err)
	}
	return buf, t, nil
}

// ReadTensorAs returns tensor bytes converted to dtype. Non-float tensors are
// returned unchanged.
func (f *File) ReadTensorAs(name string, dtype DType) ([]byte, TensorInfo, error) {
	raw, info, err := f.ReadTensor(name)
	if err != nil {
		return nil, TensorInfo{}, err
	}
	if info.DType == dtype || !info.DType.IsFloat() {
		return raw, info, nil
	}
	n, err := numElements(info.Shape)
	if err != nil {
		return nil, TensorInfo{}, fmt.Errorf("tensor %s: %w", name, err)
	}
	if len(raw) != n*info.DType.Size() {
		return nil, TensorInfo{}, fmt.Errorf("tensor %s: invalid %s data size", name, info.DType)
	}
	out, err := convert(raw, info.DType, dtype, n)
	if err != nil {
		return nil, TensorInfo{}, fmt.Errorf("tensor %s: %w", name, err)
	}
	info.DType = dtype
	return out, info, nil
}

func numElements(shape []int) (int, error) {
	// Scalars are stored with an empty shape.
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("invalid dim %d", d)
		}
		if d > 0 && n > (int(^uint(0)>>1))/d {
			return 0, fmt.Errorf("tensor too large")
		}
		n *= d
	}
	return n, nil
}

func readU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
