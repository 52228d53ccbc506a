package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

const readChunkSize = 4096

var replacementChar = []byte("\uFFFD")

// Demux recompone lineas completas a partir de chunks de bytes con cortes
// arbitrarios. Los bytes de una linea incompleta (incluidos caracteres
// multibyte cortados) quedan en buffer hasta que llega el delimitador.
type Demux struct {
	buf     []byte
	started bool
	bom     *encoding.Decoder
	utf8    *encoding.Decoder
}

func NewDemux() *Demux {
	return &Demux{
		bom:  unicode.UTF8BOM.NewDecoder(),
		utf8: unicode.UTF8.NewDecoder(),
	}
}

// Push agrega un chunk y devuelve las lineas que quedaron completas, en orden.
// Las lineas vacias se descartan.
func (d *Demux) Push(chunk []byte) []string {
	d.buf = append(d.buf, chunk...)

	var lines []string
	start := 0
	for {
		i := bytes.IndexByte(d.buf[start:], '\n')
		if i < 0 {
			break
		}
		line := d.decode(d.buf[start : start+i])
		start += i + 1
		if line != "" {
			lines = append(lines, line)
		}
	}
	if start > 0 {
		n := copy(d.buf, d.buf[start:])
		d.buf = d.buf[:n]
	}
	return lines
}

// Pending devuelve cuantos bytes esperan un delimitador.
func (d *Demux) Pending() int {
	return len(d.buf)
}

// Close descarta la linea final sin terminar y devuelve su largo en bytes.
func (d *Demux) Close() int {
	n := len(d.buf)
	d.buf = nil
	return n
}

func (d *Demux) decode(raw []byte) string {
	raw = bytes.TrimSuffix(raw, []byte{'\r'})
	dec := d.utf8
	if !d.started {
		d.started = true
		dec = d.bom
	}
	out, err := dec.Bytes(raw)
	if err != nil {
		out = bytes.ToValidUTF8(raw, replacementChar)
	}
	return string(out)
}

// Lines lee r por chunks y produce sus lineas de forma perezosa. Un error de
// lectura distinto de io.EOF se entrega como ultimo elemento. El buffer se
// descarta cuando el consumidor deja de iterar.
func Lines(ctx context.Context, r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		d := NewDemux()
		defer d.Close()

		buf := make([]byte, readChunkSize)
		for {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			n, err := r.Read(buf)
			if n > 0 {
				for _, line := range d.Push(buf[:n]) {
					if !yield(line, nil) {
						return
					}
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
		}
	}
}
