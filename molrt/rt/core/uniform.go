package core

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// uniformWriter appends little-endian words into a fixed-size block.
type uniformWriter struct {
	buf []byte
	off int
}

func newUniformWriter(size int) *uniformWriter {
	return &uniformWriter{buf: make([]byte, size)}
}

func (w *uniformWriter) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
}

func (w *uniformWriter) f32(v float32) {
	w.u32(math.Float32bits(v))
}

func (w *uniformWriter) vec2(v mgl32.Vec2) {
	w.f32(v[0])
	w.f32(v[1])
}

func (w *uniformWriter) vec3(v mgl32.Vec3) {
	w.f32(v[0])
	w.f32(v[1])
	w.f32(v[2])
}

func (w *uniformWriter) vec4(v mgl32.Vec4) {
	for _, f := range v {
		w.f32(f)
	}
}

// mat4 writes column-major, which is what WGSL mat4x4<f32> reads.
func (w *uniformWriter) mat4(m mgl32.Mat4) {
	for _, f := range m {
		w.f32(f)
	}
}

func (w *uniformWriter) bytes() []byte {
	return w.buf
}
